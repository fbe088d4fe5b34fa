package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"

	"pulse-board/backend/internal/services"
	"pulse-board/backend/internal/utils"
)

type TaskHandler struct {
	db          *gorm.DB
	taskService services.TaskService
}

func NewTaskHandler(db *gorm.DB, taskService services.TaskService) *TaskHandler {
	return &TaskHandler{db: db, taskService: taskService}
}

// actorID pulls the authenticated caller out of the gin context.
func actorID(c *gin.Context) (uuid.UUID, bool) {
	userIDInterface, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, false
	}
	userIDStr, ok := userIDInterface.(string)
	if !ok || !utils.IsValidUUID(userIDStr) {
		return uuid.Nil, false
	}
	return uuid.FromStringOrNil(userIDStr), true
}

func actorArea(c *gin.Context) string {
	areaInterface, _ := c.Get("user_area")
	area, _ := areaInterface.(string)
	return area
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

// respondServiceError maps the service error taxonomy onto HTTP codes.
// Unexpected errors collapse to a generic 500 so internals never leak.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		respondError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrForbidden):
		respondError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		respondError(c, http.StatusNotFound, "task not found")
	case errors.Is(err, services.ErrCriticalLimit), errors.Is(err, services.ErrNoActiveBlocker):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrTransitionFailed), errors.Is(err, services.ErrCompletionFailed):
		respondError(c, http.StatusInternalServerError, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "failed to process task request")
	}
}

func taskIDParam(c *gin.Context) (uuid.UUID, bool) {
	idStr := c.Param("id")
	if !utils.IsValidUUID(idStr) {
		respondError(c, http.StatusBadRequest, "invalid task id")
		return uuid.Nil, false
	}
	return uuid.FromStringOrNil(idStr), true
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	var taskInput struct {
		Title       string     `json:"title" binding:"required"`
		Description string     `json:"description"`
		AssigneeID  *string    `json:"assignee_id"`
		DueDate     *time.Time `json:"due_date"`
	}
	if err := c.ShouldBindJSON(&taskInput); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	input := services.CreateTaskInput{
		Title:       taskInput.Title,
		Description: taskInput.Description,
		DueDate:     taskInput.DueDate,
	}
	if taskInput.AssigneeID != nil {
		if !utils.IsValidUUID(*taskInput.AssigneeID) {
			respondError(c, http.StatusBadRequest, "invalid assignee id")
			return
		}
		assignee := uuid.FromStringOrNil(*taskInput.AssigneeID)
		input.AssigneeID = &assignee
	}

	task, err := h.taskService.CreateTask(h.db, input, actor, actorArea(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": task})
}

func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	id, ok := taskIDParam(c)
	if !ok {
		return
	}
	task, err := h.taskService.GetTaskByID(h.db, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, task)
}

// GetBoard returns the caller's area partitioned by status column.
func (h *TaskHandler) GetBoard(c *gin.Context) {
	area := actorArea(c)
	if area == "" {
		respondError(c, http.StatusUnauthorized, "user has no area")
		return
	}
	board, err := h.taskService.GetBoard(h.db, area)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, board)
}

func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	var input struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.taskService.UpdateStatus(h.db, id, input.Status, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, task)
}

func (h *TaskHandler) CompleteTask(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	var input struct {
		Notes    string   `json:"notes"`
		Links    []string `json:"links"`
		Mentions []string `json:"mentions"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	mentions := make([]uuid.UUID, 0, len(input.Mentions))
	for _, m := range input.Mentions {
		if !utils.IsValidUUID(m) {
			respondError(c, http.StatusBadRequest, "invalid mention id")
			return
		}
		mentions = append(mentions, uuid.FromStringOrNil(m))
	}

	task, err := h.taskService.Complete(h.db, id, actor, services.CompletionInput{
		Notes:    input.Notes,
		Links:    input.Links,
		Mentions: mentions,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, task)
}

func (h *TaskHandler) UpdateCompletedAt(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	var input struct {
		CompletedAt time.Time `json:"completed_at" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.taskService.UpdateCompletedAt(h.db, id, actor, input.CompletedAt)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, task)
}

func (h *TaskHandler) CreateDerivedTask(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	var input struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.taskService.CreateDerived(h.db, id, actor, input.Title)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": task})
}

func (h *TaskHandler) ToggleCritical(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	task, err := h.taskService.ToggleCritical(h.db, id, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, task)
}

func (h *TaskHandler) AddBlocker(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	var input struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.taskService.AddBlocker(h.db, id, actor, input.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, task)
}

func (h *TaskHandler) RemoveBlocker(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	task, err := h.taskService.RemoveBlocker(h.db, id, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, task)
}

func (h *TaskHandler) UpdateProgress(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	var input struct {
		Progress *int `json:"progress" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.taskService.UpdateProgress(h.db, id, actor, *input.Progress)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, task)
}

func (h *TaskHandler) UpdateDueDate(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	var input struct {
		DueDate *time.Time `json:"due_date"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.taskService.UpdateDueDate(h.db, id, actor, input.DueDate)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, task)
}

func (h *TaskHandler) AssignTask(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	var input struct {
		AssigneeID *string `json:"assignee_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var assignee *uuid.UUID
	if input.AssigneeID != nil {
		if !utils.IsValidUUID(*input.AssigneeID) {
			respondError(c, http.StatusBadRequest, "invalid assignee id")
			return
		}
		parsed := uuid.FromStringOrNil(*input.AssigneeID)
		assignee = &parsed
	}

	task, err := h.taskService.Assign(h.db, id, actor, assignee)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(h.db, id, actor); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

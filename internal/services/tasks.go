package services

import (
	"log"
	"net/url"
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"

	"pulse-board/backend/internal/models"
)

const (
	maxCompletionLinks = 10
	maxBlockerReason   = 500
)

// Outbox receives post-commit side-effect jobs (email dispatch). Failures
// are logged and swallowed: they never flip the primary operation's result.
type Outbox interface {
	EnqueueEmail(payload map[string]interface{}) error
}

type CreateTaskInput struct {
	Title       string
	Description string
	AssigneeID  *uuid.UUID
	DueDate     *time.Time
}

type CompletionInput struct {
	Notes    string
	Links    []string
	Mentions []uuid.UUID
}

type TaskService interface {
	CreateTask(db *gorm.DB, input CreateTaskInput, actorID uuid.UUID, area string) (models.Task, error)
	GetTaskByID(db *gorm.DB, id uuid.UUID) (models.Task, error)
	GetBoard(db *gorm.DB, area string) (map[string][]models.Task, error)
	UpdateStatus(db *gorm.DB, id uuid.UUID, newStatus string, actorID uuid.UUID) (models.Task, error)
	Complete(db *gorm.DB, id uuid.UUID, actorID uuid.UUID, input CompletionInput) (models.Task, error)
	UpdateCompletedAt(db *gorm.DB, id uuid.UUID, actorID uuid.UUID, completedAt time.Time) (models.Task, error)
	CreateDerived(db *gorm.DB, parentID uuid.UUID, actorID uuid.UUID, title string) (models.Task, error)
	ToggleCritical(db *gorm.DB, id uuid.UUID, actorID uuid.UUID) (models.Task, error)
	AddBlocker(db *gorm.DB, id uuid.UUID, actorID uuid.UUID, reason string) (models.Task, error)
	RemoveBlocker(db *gorm.DB, id uuid.UUID, actorID uuid.UUID) (models.Task, error)
	UpdateProgress(db *gorm.DB, id uuid.UUID, actorID uuid.UUID, progress int) (models.Task, error)
	UpdateDueDate(db *gorm.DB, id uuid.UUID, actorID uuid.UUID, dueDate *time.Time) (models.Task, error)
	Assign(db *gorm.DB, id uuid.UUID, actorID uuid.UUID, assigneeID *uuid.UUID) (models.Task, error)
	DeleteTask(db *gorm.DB, id uuid.UUID, actorID uuid.UUID) error
}

type TaskServiceImpl struct {
	outbox Outbox
}

// NewTaskService builds the task service. outbox may be nil, in which case
// email side effects are skipped.
func NewTaskService(outbox Outbox) *TaskServiceImpl {
	return &TaskServiceImpl{outbox: outbox}
}

func (s *TaskServiceImpl) loadTask(db *gorm.DB, id uuid.UUID) (models.Task, error) {
	var task models.Task
	if err := db.First(&task, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return task, ErrNotFound
		}
		return task, err
	}
	return task, nil
}

func (s *TaskServiceImpl) CreateTask(db *gorm.DB, input CreateTaskInput, actorID uuid.UUID, area string) (models.Task, error) {
	if actorID == uuid.Nil {
		return models.Task{}, ErrUnauthorized
	}
	if input.Title == "" {
		return models.Task{}, invalidInput("title is required")
	}
	if area == "" {
		return models.Task{}, invalidInput("area is required")
	}

	task := models.Task{
		ID:          uuid.Must(uuid.NewV4()),
		Title:       input.Title,
		Description: input.Description,
		Status:      models.StatusBacklog,
		CreatorID:   actorID,
		AssigneeID:  input.AssigneeID,
		DueDate:     input.DueDate,
		Area:        area,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return err
		}
		if err := logEvent(tx, &task.ID, actorID, models.EventCreated, area, models.Metadata{
			"taskTitle": task.Title,
		}); err != nil {
			return err
		}
		if task.AssigneeID != nil && *task.AssigneeID != actorID {
			if err := createNotification(tx, *task.AssigneeID, actorID, &task.ID, models.NotificationAssigned); err != nil {
				return err
			}
			if err := logEvent(tx, &task.ID, actorID, models.EventAssigned, area, models.Metadata{
				"assigneeId": task.AssigneeID.String(),
				"taskTitle":  task.Title,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Task{}, err
	}

	if task.AssigneeID != nil && *task.AssigneeID != actorID {
		s.dispatchEmail("task_assigned", *task.AssigneeID, task)
	}
	return task, nil
}

func (s *TaskServiceImpl) GetTaskByID(db *gorm.DB, id uuid.UUID) (models.Task, error) {
	return s.loadTask(db, id)
}

// GetBoard returns the area's tasks partitioned by status, each column
// ordered oldest first.
func (s *TaskServiceImpl) GetBoard(db *gorm.DB, area string) (map[string][]models.Task, error) {
	var tasks []models.Task
	if err := db.Where("area = ?", area).Order("created_at ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	board := make(map[string][]models.Task, len(models.Statuses))
	for _, status := range models.Statuses {
		board[status] = []models.Task{}
	}
	for _, task := range tasks {
		board[task.Status] = append(board[task.Status], task)
	}
	return board, nil
}

// UpdateStatus is the generic transition path. Done is terminal: once a
// task is done this path rejects every move, including back to done. The
// done column itself is reached through Complete, which also sets
// completedAt; this path never touches it.
//
// Moving to the current status is legal and performs the write and event
// anyway, matching the reference behavior (see DESIGN.md).
func (s *TaskServiceImpl) UpdateStatus(db *gorm.DB, id uuid.UUID, newStatus string, actorID uuid.UUID) (models.Task, error) {
	if actorID == uuid.Nil {
		return models.Task{}, ErrUnauthorized
	}
	if !models.IsValidStatus(newStatus) {
		return models.Task{}, invalidInput("unknown status: " + newStatus)
	}

	task, err := s.loadTask(db, id)
	if err != nil {
		return models.Task{}, err
	}
	if task.IsDone() {
		return models.Task{}, invalidInput("completed tasks cannot be moved; create a derived task")
	}

	oldStatus := task.Status
	now := time.Now()

	// Time-tracking derivation: startedAt is set once on the first move to
	// in_progress and cleared whenever the task returns to backlog or todo.
	switch newStatus {
	case models.StatusInProgress:
		if task.StartedAt == nil {
			task.StartedAt = &now
		}
	case models.StatusBacklog, models.StatusTodo:
		task.StartedAt = nil
	}

	task.Status = newStatus
	task.UpdatedAt = now

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).Updates(map[string]interface{}{
			"status":     task.Status,
			"started_at": task.StartedAt,
			"updated_at": task.UpdatedAt,
		}).Error; err != nil {
			return err
		}
		return logEvent(tx, &task.ID, actorID, models.EventStatusChanged, task.Area, models.Metadata{
			"oldStatus": oldStatus,
			"newStatus": newStatus,
			"taskTitle": task.Title,
		})
	})
	if err != nil {
		log.Printf("task %s: status transition %s -> %s rolled back: %v", task.ID, oldStatus, newStatus, err)
		return models.Task{}, ErrTransitionFailed
	}
	return task, nil
}

func validateCompletionLinks(links []string) error {
	if len(links) > maxCompletionLinks {
		return invalidInput("at most 10 completion links are allowed")
	}
	for _, link := range links {
		u, err := url.Parse(link)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalidInput("completion links must be absolute http or https URLs")
		}
	}
	return nil
}

// dedupeMentions preserves first-seen order and drops the actor's own id.
func dedupeMentions(mentions []uuid.UUID, actorID uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(mentions))
	unique := make([]uuid.UUID, 0, len(mentions))
	for _, id := range mentions {
		if id == uuid.Nil || id == actorID || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	return unique
}

// Complete is the only path into done. The task update, completed event and
// mention fan-out all commit in one transaction.
func (s *TaskServiceImpl) Complete(db *gorm.DB, id uuid.UUID, actorID uuid.UUID, input CompletionInput) (models.Task, error) {
	if actorID == uuid.Nil {
		return models.Task{}, ErrUnauthorized
	}
	if err := validateCompletionLinks(input.Links); err != nil {
		return models.Task{}, err
	}

	task, err := s.loadTask(db, id)
	if err != nil {
		return models.Task{}, err
	}
	if task.IsDone() {
		return models.Task{}, invalidInput("task is already completed")
	}

	mentions := dedupeMentions(input.Mentions, actorID)
	now := time.Now()

	task.Status = models.StatusDone
	task.CompletedAt = &now
	task.CompletionNotes = input.Notes
	task.CompletionLinks = models.StringList(input.Links)
	task.Mentions = make(models.StringList, 0, len(mentions))
	for _, m := range mentions {
		task.Mentions = append(task.Mentions, m.String())
	}
	task.UpdatedAt = now

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).Updates(map[string]interface{}{
			"status":           task.Status,
			"completed_at":     task.CompletedAt,
			"completion_notes": task.CompletionNotes,
			"completion_links": task.CompletionLinks,
			"mentions":         task.Mentions,
			"updated_at":       task.UpdatedAt,
		}).Error; err != nil {
			return err
		}
		if err := logEvent(tx, &task.ID, actorID, models.EventCompleted, task.Area, models.Metadata{
			"taskTitle": task.Title,
			"notes":     task.CompletionNotes,
		}); err != nil {
			return err
		}
		for _, mentioned := range mentions {
			// The mentioned event's user is the recipient, not the actor.
			if err := logEvent(tx, &task.ID, mentioned, models.EventMentioned, task.Area, models.Metadata{
				"actorId":   actorID.String(),
				"taskTitle": task.Title,
			}); err != nil {
				return err
			}
			if err := createNotification(tx, mentioned, actorID, &task.ID, models.NotificationMentioned); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("task %s: completion rolled back: %v", task.ID, err)
		return models.Task{}, ErrCompletionFailed
	}

	for _, mentioned := range mentions {
		s.dispatchEmail("task_mentioned", mentioned, task)
	}
	return task, nil
}

// UpdateCompletedAt edits the completion instant of an already-done task.
// Assignee or creator only, and never to a future instant.
func (s *TaskServiceImpl) UpdateCompletedAt(db *gorm.DB, id uuid.UUID, actorID uuid.UUID, completedAt time.Time) (models.Task, error) {
	if actorID == uuid.Nil {
		return models.Task{}, ErrUnauthorized
	}

	task, err := s.loadTask(db, id)
	if err != nil {
		return models.Task{}, err
	}
	if !task.IsDone() {
		return models.Task{}, forbidden("only completed tasks can have their completion date edited")
	}
	if !task.OwnedBy(actorID) {
		return models.Task{}, forbidden("only the assignee or creator can edit the completion date")
	}
	if completedAt.After(time.Now()) {
		return models.Task{}, invalidInput("completion date cannot be in the future")
	}

	var oldValue interface{}
	if task.CompletedAt != nil {
		oldValue = task.CompletedAt.Format(time.RFC3339)
	}
	task.CompletedAt = &completedAt
	task.UpdatedAt = time.Now()

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).Updates(map[string]interface{}{
			"completed_at": task.CompletedAt,
			"updated_at":   task.UpdatedAt,
		}).Error; err != nil {
			return err
		}
		return logEvent(tx, &task.ID, actorID, models.EventUpdated, task.Area, models.Metadata{
			"field":    "completedAt",
			"oldValue": oldValue,
			"newValue": completedAt.Format(time.RFC3339),
		})
	})
	if err != nil {
		return models.Task{}, ErrTransitionFailed
	}
	return task, nil
}

// CreateDerived is the sanctioned way to continue completed work: a new
// backlog task pointing at its parent, inheriting description, assignee
// and area.
func (s *TaskServiceImpl) CreateDerived(db *gorm.DB, parentID uuid.UUID, actorID uuid.UUID, title string) (models.Task, error) {
	if actorID == uuid.Nil {
		return models.Task{}, ErrUnauthorized
	}

	parent, err := s.loadTask(db, parentID)
	if err != nil {
		return models.Task{}, err
	}
	if title == "" {
		title = "Continuación: " + parent.Title
	}

	task := models.Task{
		ID:           uuid.Must(uuid.NewV4()),
		Title:        title,
		Description:  parent.Description,
		Status:       models.StatusBacklog,
		CreatorID:    actorID,
		AssigneeID:   parent.AssigneeID,
		ParentTaskID: &parent.ID,
		Area:         parent.Area,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return err
		}
		return logEvent(tx, &task.ID, actorID, models.EventCreated, task.Area, models.Metadata{
			"taskTitle":    task.Title,
			"parentTaskId": parent.ID.String(),
		})
	})
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// ToggleCritical flips the critical flag. At most one critical task per
// creator: the conflict check and the flip run in the same transaction so
// two concurrent toggles cannot both succeed.
func (s *TaskServiceImpl) ToggleCritical(db *gorm.DB, id uuid.UUID, actorID uuid.UUID) (models.Task, error) {
	if actorID == uuid.Nil {
		return models.Task{}, ErrUnauthorized
	}

	var task models.Task
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		task, err = s.loadTask(tx, id)
		if err != nil {
			return err
		}
		if !task.IsCritical {
			var count int64
			if err := tx.Model(&models.Task{}).
				Where("creator_id = ? AND is_critical = ? AND id <> ?", task.CreatorID, true, task.ID).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrCriticalLimit
			}
		}
		task.IsCritical = !task.IsCritical
		task.UpdatedAt = time.Now()
		return tx.Model(&models.Task{}).Where("id = ?", task.ID).Updates(map[string]interface{}{
			"is_critical": task.IsCritical,
			"updated_at":  task.UpdatedAt,
		}).Error
	})
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// AddBlocker flags the task as blocked. Advisory only: a blocked task can
// still move between columns.
func (s *TaskServiceImpl) AddBlocker(db *gorm.DB, id uuid.UUID, actorID uuid.UUID, reason string) (models.Task, error) {
	if actorID == uuid.Nil {
		return models.Task{}, ErrUnauthorized
	}
	if reason == "" {
		return models.Task{}, invalidInput("blocker reason is required")
	}
	if len(reason) > maxBlockerReason {
		return models.Task{}, invalidInput("blocker reason must be at most 500 characters")
	}

	task, err := s.loadTask(db, id)
	if err != nil {
		return models.Task{}, err
	}
	if !task.OwnedBy(actorID) {
		return models.Task{}, forbidden("only the assignee or creator can block a task")
	}

	task.BlockerReason = &reason
	task.UpdatedAt = time.Now()

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).Updates(map[string]interface{}{
			"blocker_reason": task.BlockerReason,
			"updated_at":     task.UpdatedAt,
		}).Error; err != nil {
			return err
		}
		return logEvent(tx, &task.ID, actorID, models.EventUpdated, task.Area, models.Metadata{
			"blocked":       true,
			"blockerReason": reason,
		})
	})
	if err != nil {
		return models.Task{}, ErrTransitionFailed
	}
	return task, nil
}

func (s *TaskServiceImpl) RemoveBlocker(db *gorm.DB, id uuid.UUID, actorID uuid.UUID) (models.Task, error) {
	if actorID == uuid.Nil {
		return models.Task{}, ErrUnauthorized
	}

	task, err := s.loadTask(db, id)
	if err != nil {
		return models.Task{}, err
	}
	if !task.OwnedBy(actorID) {
		return models.Task{}, forbidden("only the assignee or creator can unblock a task")
	}
	if !task.IsBlocked() {
		return models.Task{}, ErrNoActiveBlocker
	}

	previous := *task.BlockerReason
	task.BlockerReason = nil
	task.UpdatedAt = time.Now()

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).Updates(map[string]interface{}{
			"blocker_reason": nil,
			"updated_at":     task.UpdatedAt,
		}).Error; err != nil {
			return err
		}
		return logEvent(tx, &task.ID, actorID, models.EventUpdated, task.Area, models.Metadata{
			"blocked":               false,
			"previousBlockerReason": previous,
		})
	})
	if err != nil {
		return models.Task{}, ErrTransitionFailed
	}
	return task, nil
}

// UpdateProgress: assignee only, or the creator while the task is
// unassigned.
func (s *TaskServiceImpl) UpdateProgress(db *gorm.DB, id uuid.UUID, actorID uuid.UUID, progress int) (models.Task, error) {
	if actorID == uuid.Nil {
		return models.Task{}, ErrUnauthorized
	}
	if progress < 0 || progress > 100 {
		return models.Task{}, invalidInput("progress must be between 0 and 100")
	}

	task, err := s.loadTask(db, id)
	if err != nil {
		return models.Task{}, err
	}
	if task.AssigneeID != nil {
		if *task.AssigneeID != actorID {
			return models.Task{}, forbidden("only the assignee can update progress")
		}
	} else if task.CreatorID != actorID {
		return models.Task{}, forbidden("only the creator can update progress of an unassigned task")
	}

	task.Progress = progress
	task.UpdatedAt = time.Now()
	err = db.Model(&models.Task{}).Where("id = ?", task.ID).Updates(map[string]interface{}{
		"progress":   task.Progress,
		"updated_at": task.UpdatedAt,
	}).Error
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (s *TaskServiceImpl) UpdateDueDate(db *gorm.DB, id uuid.UUID, actorID uuid.UUID, dueDate *time.Time) (models.Task, error) {
	if actorID == uuid.Nil {
		return models.Task{}, ErrUnauthorized
	}

	task, err := s.loadTask(db, id)
	if err != nil {
		return models.Task{}, err
	}
	if task.CreatorID != actorID {
		return models.Task{}, forbidden("only the creator can change the due date")
	}

	task.DueDate = dueDate
	task.UpdatedAt = time.Now()
	err = db.Model(&models.Task{}).Where("id = ?", task.ID).Updates(map[string]interface{}{
		"due_date":   task.DueDate,
		"updated_at": task.UpdatedAt,
	}).Error
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// Assign sets or clears the assignee, logging an assigned event and
// notifying the new assignee unless they are the actor.
func (s *TaskServiceImpl) Assign(db *gorm.DB, id uuid.UUID, actorID uuid.UUID, assigneeID *uuid.UUID) (models.Task, error) {
	if actorID == uuid.Nil {
		return models.Task{}, ErrUnauthorized
	}

	task, err := s.loadTask(db, id)
	if err != nil {
		return models.Task{}, err
	}

	var oldAssignee interface{}
	if task.AssigneeID != nil {
		oldAssignee = task.AssigneeID.String()
	}
	var newAssignee interface{}
	if assigneeID != nil {
		newAssignee = assigneeID.String()
	}

	task.AssigneeID = assigneeID
	task.UpdatedAt = time.Now()

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).Updates(map[string]interface{}{
			"assignee_id": task.AssigneeID,
			"updated_at":  task.UpdatedAt,
		}).Error; err != nil {
			return err
		}
		if err := logEvent(tx, &task.ID, actorID, models.EventAssigned, task.Area, models.Metadata{
			"oldAssigneeId": oldAssignee,
			"newAssigneeId": newAssignee,
			"taskTitle":     task.Title,
		}); err != nil {
			return err
		}
		if assigneeID != nil && *assigneeID != actorID {
			return createNotification(tx, *assigneeID, actorID, &task.ID, models.NotificationAssigned)
		}
		return nil
	})
	if err != nil {
		return models.Task{}, ErrTransitionFailed
	}

	if assigneeID != nil && *assigneeID != actorID {
		s.dispatchEmail("task_assigned", *assigneeID, task)
	}
	return task, nil
}

// DeleteTask writes the deletion event with a nil task reference so it
// survives, detaches the task's remaining events, and removes the row with
// its notifications and attachment metadata. Attachment blobs are cleaned
// up by the storage sweep.
func (s *TaskServiceImpl) DeleteTask(db *gorm.DB, id uuid.UUID, actorID uuid.UUID) error {
	if actorID == uuid.Nil {
		return ErrUnauthorized
	}

	task, err := s.loadTask(db, id)
	if err != nil {
		return err
	}
	if task.CreatorID != actorID {
		return forbidden("only the creator can delete a task")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := logEvent(tx, nil, actorID, models.EventDeleted, task.Area, models.Metadata{
			"taskId":    task.ID.String(),
			"taskTitle": task.Title,
		}); err != nil {
			return err
		}
		if err := tx.Model(&models.ActivityEvent{}).Where("task_id = ?", task.ID).
			Update("task_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Task{}, "id = ?", task.ID).Error
	})
}

func (s *TaskServiceImpl) dispatchEmail(kind string, recipientID uuid.UUID, task models.Task) {
	if s.outbox == nil {
		return
	}
	err := s.outbox.EnqueueEmail(map[string]interface{}{
		"kind":         kind,
		"recipient_id": recipientID.String(),
		"task_id":      task.ID.String(),
		"task_title":   task.Title,
	})
	if err != nil {
		log.Printf("task %s: email enqueue failed (ignored): %v", task.ID, err)
	}
}

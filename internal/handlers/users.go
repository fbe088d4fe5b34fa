package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"

	"pulse-board/backend/internal/services"
)

type UserHandler struct {
	db          *gorm.DB
	userService services.UserService
}

func NewUserHandler(db *gorm.DB, userService services.UserService) *UserHandler {
	return &UserHandler{db: db, userService: userService}
}

// SyncProfile is the identity-provider sync hook: upserts the pushed
// profile into the local users table.
func (h *UserHandler) SyncProfile(c *gin.Context) {
	var input services.ProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if input.ID == uuid.Nil {
		respondError(c, http.StatusBadRequest, "user id is required")
		return
	}

	user, err := h.userService.SyncProfile(h.db, input)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to sync profile")
		return
	}
	respondOK(c, user)
}

func (h *UserHandler) Me(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	user, err := h.userService.GetByID(h.db, actor)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "user not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to get user profile")
		return
	}
	respondOK(c, user)
}

// Team lists the active members of the caller's area.
func (h *UserHandler) Team(c *gin.Context) {
	area := actorArea(c)
	if area == "" {
		respondError(c, http.StatusUnauthorized, "user has no area")
		return
	}

	users, err := h.userService.ListByArea(h.db, area)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list team members")
		return
	}
	respondOK(c, users)
}

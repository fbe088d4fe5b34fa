package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"pulse-board/backend/internal/services"
)

type ActivityHandler struct {
	db              *gorm.DB
	activityService services.ActivityService
}

func NewActivityHandler(db *gorm.DB, activityService services.ActivityService) *ActivityHandler {
	return &ActivityHandler{db: db, activityService: activityService}
}

// Feed returns recent activity for the caller's area, newest first.
func (h *ActivityHandler) Feed(c *gin.Context) {
	area := actorArea(c)
	if area == "" {
		respondError(c, http.StatusUnauthorized, "user has no area")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	events, err := h.activityService.RecentByArea(h.db, area, limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load activity feed")
		return
	}
	respondOK(c, events)
}

func (h *ActivityHandler) ByTask(c *gin.Context) {
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	events, err := h.activityService.ByTask(h.db, id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load task activity")
		return
	}
	respondOK(c, events)
}

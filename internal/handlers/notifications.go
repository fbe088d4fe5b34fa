package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"pulse-board/backend/internal/cache"
	"pulse-board/backend/internal/services"
	"pulse-board/backend/internal/utils"

	"github.com/gofrs/uuid"
)

type NotificationHandler struct {
	db                  *gorm.DB
	notificationService services.NotificationService
	cache               *cache.RedisCache
}

func NewNotificationHandler(db *gorm.DB, notificationService services.NotificationService, cacheInstance *cache.RedisCache) *NotificationHandler {
	return &NotificationHandler{db: db, notificationService: notificationService, cache: cacheInstance}
}

func unreadKey(recipientID uuid.UUID) string {
	return fmt.Sprintf("unread:%s", recipientID)
}

func (h *NotificationHandler) List(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	unreadOnly := c.Query("unread") == "true"
	notifications, err := h.notificationService.ListByRecipient(h.db, actor, unreadOnly)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	respondOK(c, notifications)
}

// UnreadCount serves the polled badge count, cached briefly so the client
// poll loop does not hammer the database.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	if h.cache != nil {
		var cached int64
		if err := h.cache.Get(unreadKey(actor), &cached); err == nil {
			respondOK(c, gin.H{"count": cached})
			return
		}
	}

	count, err := h.notificationService.UnreadCount(h.db, actor)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to count notifications")
		return
	}
	if h.cache != nil {
		h.cache.Set(unreadKey(actor), count, 15*time.Second)
	}
	respondOK(c, gin.H{"count": count})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	idStr := c.Param("id")
	if !utils.IsValidUUID(idStr) {
		respondError(c, http.StatusBadRequest, "invalid notification id")
		return
	}

	err := h.notificationService.MarkRead(h.db, uuid.FromStringOrNil(idStr), actor)
	if err != nil {
		if err == services.ErrNotFound {
			respondError(c, http.StatusNotFound, "notification not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to mark notification read")
		return
	}

	if h.cache != nil {
		h.cache.Delete(unreadKey(actor))
	}
	respondOK(c, gin.H{"read": true})
}

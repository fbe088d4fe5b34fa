package services

import (
	"github.com/gofrs/uuid"
	"gorm.io/gorm"

	"pulse-board/backend/internal/models"
)

type NotificationService interface {
	ListByRecipient(db *gorm.DB, recipientID uuid.UUID, unreadOnly bool) ([]models.Notification, error)
	UnreadCount(db *gorm.DB, recipientID uuid.UUID) (int64, error)
	MarkRead(db *gorm.DB, notificationID, recipientID uuid.UUID) error
}

type NotificationServiceImpl struct{}

func NewNotificationService() *NotificationServiceImpl {
	return &NotificationServiceImpl{}
}

// createNotification inserts a notification using the caller's db handle so
// it joins the caller's transaction. Self-notifications are suppressed.
func createNotification(db *gorm.DB, recipientID, actorID uuid.UUID, taskID *uuid.UUID, notificationType string) error {
	if recipientID == actorID {
		return nil
	}
	notification := models.Notification{
		ID:          uuid.Must(uuid.NewV4()),
		RecipientID: recipientID,
		ActorID:     actorID,
		TaskID:      taskID,
		Type:        notificationType,
	}
	return db.Create(&notification).Error
}

func (s *NotificationServiceImpl) ListByRecipient(db *gorm.DB, recipientID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	query := db.Where("recipient_id = ?", recipientID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	var notifications []models.Notification
	err := query.Order("created_at DESC").Limit(100).Find(&notifications).Error
	return notifications, err
}

func (s *NotificationServiceImpl) UnreadCount(db *gorm.DB, recipientID uuid.UUID) (int64, error) {
	var count int64
	err := db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flips is_read for one notification. Only the recipient may do
// this; marking someone else's notification reports not-found rather than
// leaking its existence.
func (s *NotificationServiceImpl) MarkRead(db *gorm.DB, notificationID, recipientID uuid.UUID) error {
	result := db.Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

package services

import (
	"github.com/gofrs/uuid"
	"gorm.io/gorm"

	"pulse-board/backend/internal/models"
)

type ActivityService interface {
	RecentByArea(db *gorm.DB, area string, limit int) ([]models.ActivityEvent, error)
	ByTask(db *gorm.DB, taskID uuid.UUID) ([]models.ActivityEvent, error)
}

type ActivityServiceImpl struct{}

func NewActivityService() *ActivityServiceImpl {
	return &ActivityServiceImpl{}
}

// logEvent appends one activity event using the caller's db handle, so it
// joins whatever transaction the caller is running.
func logEvent(db *gorm.DB, taskID *uuid.UUID, userID uuid.UUID, eventType, area string, metadata models.Metadata) error {
	event := models.ActivityEvent{
		ID:       uuid.Must(uuid.NewV4()),
		TaskID:   taskID,
		UserID:   userID,
		Type:     eventType,
		Metadata: metadata,
		Area:     area,
	}
	return db.Create(&event).Error
}

func (s *ActivityServiceImpl) RecentByArea(db *gorm.DB, area string, limit int) ([]models.ActivityEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var events []models.ActivityEvent
	err := db.Where("area = ?", area).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (s *ActivityServiceImpl) ByTask(db *gorm.DB, taskID uuid.UUID) ([]models.ActivityEvent, error) {
	var events []models.ActivityEvent
	err := db.Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}

// Package cleanup runs the scheduled attachment sweep: attachments of
// tasks completed more than the retention window ago are removed from
// object storage, best-effort.
package cleanup

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"pulse-board/backend/internal/models"
	"pulse-board/backend/internal/storage"
)

type Sweeper struct {
	db        *gorm.DB
	storage   storage.ObjectStorage
	retention time.Duration
	cron      *cron.Cron
}

// SweepResult counts one run's outcome. Failures are logged and counted,
// never retried within the run.
type SweepResult struct {
	Candidates int
	Deleted    int
	Failed     int
}

func NewSweeper(db *gorm.DB, objectStorage storage.ObjectStorage, retention time.Duration) *Sweeper {
	if retention <= 0 {
		retention = 72 * time.Hour
	}
	return &Sweeper{
		db:        db,
		storage:   objectStorage,
		retention: retention,
	}
}

// Start schedules the sweep with a cron spec ("0 3 * * *" for the daily
// 3am run). Blocks only on scheduling errors.
func (s *Sweeper) Start(spec string) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(spec, func() {
		result, err := s.Run()
		if err != nil {
			log.Printf("attachment sweep aborted: %v", err)
			return
		}
		log.Printf("attachment sweep: %d candidates, %d deleted, %d failed",
			result.Candidates, result.Deleted, result.Failed)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Run performs one sweep over the candidate set, sequentially.
func (s *Sweeper) Run() (SweepResult, error) {
	var result SweepResult
	cutoff := time.Now().Add(-s.retention)

	var attachments []models.Attachment
	err := s.db.
		Joins("JOIN tasks ON tasks.id = attachments.task_id").
		Where("tasks.status = ? AND tasks.completed_at < ?", models.StatusDone, cutoff).
		Find(&attachments).Error
	if err != nil {
		return result, err
	}
	result.Candidates = len(attachments)

	for _, attachment := range attachments {
		if err := s.storage.Delete(attachment.FileID); err != nil {
			log.Printf("sweep: failed to delete blob %s for attachment %s: %v",
				attachment.FileID, attachment.ID, err)
			result.Failed++
			continue
		}
		if err := s.db.Delete(&models.Attachment{}, "id = ?", attachment.ID).Error; err != nil {
			log.Printf("sweep: blob %s deleted but metadata row %s remains: %v",
				attachment.FileID, attachment.ID, err)
			result.Failed++
			continue
		}
		result.Deleted++
	}
	return result, nil
}

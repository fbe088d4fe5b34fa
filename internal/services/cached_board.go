package services

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"

	"pulse-board/backend/internal/cache"
	"pulse-board/backend/internal/models"
)

// CachedBoardService decorates TaskService with a short-lived redis cache
// of the per-area board payload. Every mutation drops the affected area's
// snapshot so readers never see a stale column after a confirmed move.
type CachedBoardService struct {
	taskService TaskService
	cache       *cache.RedisCache
	ttl         time.Duration
}

func NewCachedBoardService(taskService TaskService, cacheInstance *cache.RedisCache) *CachedBoardService {
	return &CachedBoardService{
		taskService: taskService,
		cache:       cacheInstance,
		ttl:         30 * time.Second,
	}
}

func boardKey(area string) string {
	return fmt.Sprintf("board:%s", area)
}

func (s *CachedBoardService) invalidate(area string) {
	if s.cache == nil || area == "" {
		return
	}
	s.cache.Delete(boardKey(area))
}

func (s *CachedBoardService) GetBoard(db *gorm.DB, area string) (map[string][]models.Task, error) {
	if s.cache != nil {
		var cached map[string][]models.Task
		if err := s.cache.Get(boardKey(area), &cached); err == nil {
			return cached, nil
		}
	}

	board, err := s.taskService.GetBoard(db, area)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(boardKey(area), board, s.ttl)
	}
	return board, nil
}

func (s *CachedBoardService) CreateTask(db *gorm.DB, input CreateTaskInput, actorID uuid.UUID, area string) (models.Task, error) {
	task, err := s.taskService.CreateTask(db, input, actorID, area)
	if err == nil {
		s.invalidate(task.Area)
	}
	return task, err
}

func (s *CachedBoardService) GetTaskByID(db *gorm.DB, id uuid.UUID) (models.Task, error) {
	return s.taskService.GetTaskByID(db, id)
}

func (s *CachedBoardService) UpdateStatus(db *gorm.DB, id uuid.UUID, newStatus string, actorID uuid.UUID) (models.Task, error) {
	task, err := s.taskService.UpdateStatus(db, id, newStatus, actorID)
	if err == nil {
		s.invalidate(task.Area)
	}
	return task, err
}

func (s *CachedBoardService) Complete(db *gorm.DB, id uuid.UUID, actorID uuid.UUID, input CompletionInput) (models.Task, error) {
	task, err := s.taskService.Complete(db, id, actorID, input)
	if err == nil {
		s.invalidate(task.Area)
	}
	return task, err
}

func (s *CachedBoardService) UpdateCompletedAt(db *gorm.DB, id uuid.UUID, actorID uuid.UUID, completedAt time.Time) (models.Task, error) {
	task, err := s.taskService.UpdateCompletedAt(db, id, actorID, completedAt)
	if err == nil {
		s.invalidate(task.Area)
	}
	return task, err
}

func (s *CachedBoardService) CreateDerived(db *gorm.DB, parentID uuid.UUID, actorID uuid.UUID, title string) (models.Task, error) {
	task, err := s.taskService.CreateDerived(db, parentID, actorID, title)
	if err == nil {
		s.invalidate(task.Area)
	}
	return task, err
}

func (s *CachedBoardService) ToggleCritical(db *gorm.DB, id uuid.UUID, actorID uuid.UUID) (models.Task, error) {
	task, err := s.taskService.ToggleCritical(db, id, actorID)
	if err == nil {
		s.invalidate(task.Area)
	}
	return task, err
}

func (s *CachedBoardService) AddBlocker(db *gorm.DB, id uuid.UUID, actorID uuid.UUID, reason string) (models.Task, error) {
	task, err := s.taskService.AddBlocker(db, id, actorID, reason)
	if err == nil {
		s.invalidate(task.Area)
	}
	return task, err
}

func (s *CachedBoardService) RemoveBlocker(db *gorm.DB, id uuid.UUID, actorID uuid.UUID) (models.Task, error) {
	task, err := s.taskService.RemoveBlocker(db, id, actorID)
	if err == nil {
		s.invalidate(task.Area)
	}
	return task, err
}

func (s *CachedBoardService) UpdateProgress(db *gorm.DB, id uuid.UUID, actorID uuid.UUID, progress int) (models.Task, error) {
	task, err := s.taskService.UpdateProgress(db, id, actorID, progress)
	if err == nil {
		s.invalidate(task.Area)
	}
	return task, err
}

func (s *CachedBoardService) UpdateDueDate(db *gorm.DB, id uuid.UUID, actorID uuid.UUID, dueDate *time.Time) (models.Task, error) {
	task, err := s.taskService.UpdateDueDate(db, id, actorID, dueDate)
	if err == nil {
		s.invalidate(task.Area)
	}
	return task, err
}

func (s *CachedBoardService) Assign(db *gorm.DB, id uuid.UUID, actorID uuid.UUID, assigneeID *uuid.UUID) (models.Task, error) {
	task, err := s.taskService.Assign(db, id, actorID, assigneeID)
	if err == nil {
		s.invalidate(task.Area)
	}
	return task, err
}

func (s *CachedBoardService) DeleteTask(db *gorm.DB, id uuid.UUID, actorID uuid.UUID) error {
	task, getErr := s.taskService.GetTaskByID(db, id)

	err := s.taskService.DeleteTask(db, id, actorID)
	if err != nil {
		return err
	}
	if getErr == nil {
		s.invalidate(task.Area)
	}
	return nil
}

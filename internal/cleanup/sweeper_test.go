package cleanup_test

import (
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pulse-board/backend/internal/cleanup"
	"pulse-board/backend/internal/models"
	"pulse-board/backend/internal/storage"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Task{}, &models.Attachment{}))
	return db
}

func seedCompletedTask(t *testing.T, db *gorm.DB, store storage.ObjectStorage, completedAt time.Time) models.Attachment {
	t.Helper()
	creator := uuid.Must(uuid.NewV4())
	task := models.Task{
		ID:          uuid.Must(uuid.NewV4()),
		Title:       "Done task",
		Status:      models.StatusDone,
		CreatorID:   creator,
		CompletedAt: &completedAt,
		Area:        "engineering",
	}
	require.NoError(t, db.Create(&task).Error)

	fileID, err := store.Put([]byte("payload"), "report.pdf", "application/pdf")
	require.NoError(t, err)

	attachment := models.Attachment{
		ID:         uuid.Must(uuid.NewV4()),
		TaskID:     task.ID,
		FileID:     fileID,
		Name:       "report.pdf",
		UploadedBy: creator,
	}
	require.NoError(t, db.Create(&attachment).Error)
	return attachment
}

func TestSweepDeletesOldCompletedAttachments(t *testing.T) {
	db := setupTestDB(t)
	store := storage.NewMemoryStorage()

	old := seedCompletedTask(t, db, store, time.Now().Add(-96*time.Hour))
	recent := seedCompletedTask(t, db, store, time.Now().Add(-24*time.Hour))

	sweeper := cleanup.NewSweeper(db, store, 72*time.Hour)
	result, err := sweeper.Run()
	require.NoError(t, err)

	assert.Equal(t, 1, result.Candidates)
	assert.Equal(t, 1, result.Deleted)
	assert.Zero(t, result.Failed)

	_, err = store.Get(old.FileID)
	assert.ErrorIs(t, err, storage.ErrFileNotFound)
	_, err = store.Get(recent.FileID)
	assert.NoError(t, err)

	var count int64
	db.Model(&models.Attachment{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSweepSkipsOpenTasks(t *testing.T) {
	db := setupTestDB(t)
	store := storage.NewMemoryStorage()

	creator := uuid.Must(uuid.NewV4())
	task := models.Task{
		ID:        uuid.Must(uuid.NewV4()),
		Title:     "Still open",
		Status:    models.StatusInProgress,
		CreatorID: creator,
		Area:      "engineering",
	}
	require.NoError(t, db.Create(&task).Error)

	fileID, err := store.Put([]byte("wip"), "notes.txt", "text/plain")
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Attachment{
		ID:         uuid.Must(uuid.NewV4()),
		TaskID:     task.ID,
		FileID:     fileID,
		Name:       "notes.txt",
		UploadedBy: creator,
	}).Error)

	sweeper := cleanup.NewSweeper(db, store, 72*time.Hour)
	result, err := sweeper.Run()
	require.NoError(t, err)

	assert.Zero(t, result.Candidates)
	assert.Equal(t, 1, store.Len())
}

// A blob failure is counted and the run continues; the metadata row stays
// so a later run can retry.
func TestSweepBestEffort(t *testing.T) {
	db := setupTestDB(t)
	store := &failingStorage{MemoryStorage: storage.NewMemoryStorage(), failOn: "gone"}

	attachment := seedCompletedTask(t, db, store.MemoryStorage, time.Now().Add(-96*time.Hour))
	require.NoError(t, db.Model(&models.Attachment{}).Where("id = ?", attachment.ID).
		Update("file_id", "gone").Error)

	ok := seedCompletedTask(t, db, store.MemoryStorage, time.Now().Add(-96*time.Hour))

	sweeper := cleanup.NewSweeper(db, store, 72*time.Hour)
	result, err := sweeper.Run()
	require.NoError(t, err)

	assert.Equal(t, 2, result.Candidates)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 1, result.Failed)

	_, err = store.Get(ok.FileID)
	assert.ErrorIs(t, err, storage.ErrFileNotFound)
}

type failingStorage struct {
	*storage.MemoryStorage
	failOn string
}

func (s *failingStorage) Delete(fileID string) error {
	if fileID == s.failOn {
		return assert.AnError
	}
	return s.MemoryStorage.Delete(fileID)
}

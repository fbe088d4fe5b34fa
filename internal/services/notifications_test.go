package services_test

import (
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse-board/backend/internal/models"
	"pulse-board/backend/internal/services"
)

func TestNotificationListAndUnreadCount(t *testing.T) {
	db := setupTestDB(t)
	taskSvc := services.NewTaskService(nil)
	notificationSvc := services.NewNotificationService()

	creator := uuid.Must(uuid.NewV4())
	assignee := uuid.Must(uuid.NewV4())

	for i := 0; i < 3; i++ {
		_, err := taskSvc.CreateTask(db, services.CreateTaskInput{
			Title:      "Task",
			AssigneeID: &assignee,
		}, creator, "engineering")
		require.NoError(t, err)
	}

	count, err := notificationSvc.UnreadCount(db, assignee)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	notifications, err := notificationSvc.ListByRecipient(db, assignee, true)
	require.NoError(t, err)
	require.Len(t, notifications, 3)

	// Creator gets nothing.
	count, err = notificationSvc.UnreadCount(db, creator)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMarkReadRecipientOnly(t *testing.T) {
	db := setupTestDB(t)
	taskSvc := services.NewTaskService(nil)
	notificationSvc := services.NewNotificationService()

	creator := uuid.Must(uuid.NewV4())
	assignee := uuid.Must(uuid.NewV4())
	intruder := uuid.Must(uuid.NewV4())

	_, err := taskSvc.CreateTask(db, services.CreateTaskInput{
		Title:      "Task",
		AssigneeID: &assignee,
	}, creator, "engineering")
	require.NoError(t, err)

	notifications, err := notificationSvc.ListByRecipient(db, assignee, false)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	target := notifications[0]

	// Someone else's mark-read reads as not-found.
	err = notificationSvc.MarkRead(db, target.ID, intruder)
	assert.ErrorIs(t, err, services.ErrNotFound)

	var reloaded models.Notification
	require.NoError(t, db.First(&reloaded, "id = ?", target.ID).Error)
	assert.False(t, reloaded.IsRead)

	require.NoError(t, notificationSvc.MarkRead(db, target.ID, assignee))
	require.NoError(t, db.First(&reloaded, "id = ?", target.ID).Error)
	assert.True(t, reloaded.IsRead)

	count, err := notificationSvc.UnreadCount(db, assignee)
	require.NoError(t, err)
	assert.Zero(t, count)
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofrs/uuid"
)

// Workflow statuses, in board column order.
const (
	StatusBacklog    = "backlog"
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

// Statuses lists the workflow statuses in board column order.
var Statuses = []string{StatusBacklog, StatusTodo, StatusInProgress, StatusDone}

func IsValidStatus(status string) bool {
	switch status {
	case StatusBacklog, StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// StringList is stored as a JSON array in a single text column so the same
// model works against sqlite and postgres.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	}
	return errors.New("unsupported type for StringList")
}

type Task struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description"`
	Status      string    `json:"status" gorm:"not null;default:'backlog';index"`

	CreatorID  uuid.UUID  `json:"creator_id" gorm:"type:uuid;not null;index"`
	AssigneeID *uuid.UUID `json:"assignee_id" gorm:"type:uuid;index"`

	IsCritical    bool       `json:"is_critical" gorm:"not null;default:false"`
	Progress      int        `json:"progress" gorm:"not null;default:0"`
	BlockerReason *string    `json:"blocker_reason"`
	DueDate       *time.Time `json:"due_date"`

	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CompletionNotes string     `json:"completion_notes"`
	CompletionLinks StringList `json:"completion_links" gorm:"type:text"`
	Mentions        StringList `json:"mentions" gorm:"type:text"`

	ParentTaskID *uuid.UUID `json:"parent_task_id" gorm:"type:uuid"`

	Area string `json:"area" gorm:"not null;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Task) IsDone() bool {
	return t.Status == StatusDone
}

func (t *Task) IsBlocked() bool {
	return t.BlockerReason != nil && *t.BlockerReason != ""
}

// OwnedBy reports whether userID is the assignee or the creator. Blocker,
// progress and completion-date edits are restricted to these two.
func (t *Task) OwnedBy(userID uuid.UUID) bool {
	if t.CreatorID == userID {
		return true
	}
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

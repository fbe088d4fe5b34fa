package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofrs/uuid"
)

// Activity event types. One immutable fact about a task per row.
const (
	EventCreated       = "created"
	EventStatusChanged = "status_changed"
	EventAssigned      = "assigned"
	EventUpdated       = "updated"
	EventDeleted       = "deleted"
	EventCompleted     = "completed"
	EventMentioned     = "mentioned"
)

// Metadata holds the freeform old/new-value payload of an activity event,
// stored as a JSON object in a text column.
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	}
	return errors.New("unsupported type for Metadata")
}

// ActivityEvent is append-only. TaskID is nullable so events survive task
// deletion; UserID is the actor, except for mentioned events where it is
// the recipient.
type ActivityEvent struct {
	ID       uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	TaskID   *uuid.UUID `json:"task_id" gorm:"type:uuid;index;constraint:OnDelete:SET NULL"`
	UserID   uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Type     string     `json:"type" gorm:"not null;index"`
	Metadata Metadata   `json:"metadata" gorm:"type:text"`
	Area     string     `json:"area" gorm:"not null;index"`

	CreatedAt time.Time `json:"created_at"`
}

package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// Notification types.
const (
	NotificationAssigned  = "assigned"
	NotificationMentioned = "mentioned"
)

// Notification is a per-recipient unread/read record created as a side
// effect of assignment or mention. Never created when actor == recipient.
type Notification struct {
	ID          uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	RecipientID uuid.UUID  `json:"recipient_id" gorm:"type:uuid;not null;index"`
	ActorID     uuid.UUID  `json:"actor_id" gorm:"type:uuid;not null"`
	TaskID      *uuid.UUID `json:"task_id" gorm:"type:uuid;index"`
	Type        string     `json:"type" gorm:"not null"`
	IsRead      bool       `json:"is_read" gorm:"not null;default:false;index"`

	CreatedAt time.Time `json:"created_at"`
}

package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// Attachment links a task to a blob held by the object-storage service.
// FileID is the storage service's handle, not a local path.
type Attachment struct {
	ID         uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	TaskID     uuid.UUID `json:"task_id" gorm:"type:uuid;not null;index"`
	FileID     string    `json:"file_id" gorm:"not null"`
	Name       string    `json:"name" gorm:"not null"`
	MimeType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	UploadedBy uuid.UUID `json:"uploaded_by" gorm:"type:uuid;not null"`

	CreatedAt time.Time `json:"created_at"`
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// AttachmentStatus represents the status of an attachment
type AttachmentStatus string

const (
	AttachmentStatusTemp      AttachmentStatus = "TEMP"      // uploaded, not yet linked
	AttachmentStatusConfirmed AttachmentStatus = "CONFIRMED" // linked to a task
)

// Attachment is a file stored in object storage and linked to a task.
// Only the object key is stored here; the bytes live in S3.
type Attachment struct {
	BaseModel
	TaskID      *uuid.UUID       `gorm:"type:uuid;index:idx_attachments_task_id" json:"task_id"`
	Status      AttachmentStatus `gorm:"type:varchar(20);not null;default:'TEMP';index:idx_attachments_status" json:"status"`
	FileName    string           `gorm:"type:varchar(255);not null" json:"file_name"`
	ObjectKey   string           `gorm:"type:text;not null" json:"object_key"`
	FileSize    int64            `gorm:"not null" json:"file_size"`
	ContentType string           `gorm:"type:varchar(100);not null" json:"content_type"`
	UploadedBy  uuid.UUID        `gorm:"type:uuid;not null" json:"uploaded_by"`
	ExpiresAt   *time.Time       `gorm:"type:timestamp;index:idx_attachments_expires_at" json:"expires_at"`
}

// TableName specifies the table name for Attachment
func (Attachment) TableName() string {
	return "attachments"
}

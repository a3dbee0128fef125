package domain

import "github.com/google/uuid"

// Comment represents a comment on a task
type Comment struct {
	BaseModel
	TaskID   uuid.UUID `gorm:"type:uuid;not null;index:idx_comments_task_id" json:"task_id"`
	AuthorID uuid.UUID `gorm:"type:uuid;not null;index:idx_comments_author_id" json:"author_id"`
	Content  string    `gorm:"type:text;not null" json:"content"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "comments"
}

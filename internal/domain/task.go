package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the workflow state of a task
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

// IsValid reports whether s is a known task status
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// TaskPriority represents the priority of a task
type TaskPriority string

const (
	TaskPriorityLow     TaskPriority = "LOW"
	TaskPriorityMedium  TaskPriority = "MEDIUM"
	TaskPriorityHigh    TaskPriority = "HIGH"
	TaskPriorityHighest TaskPriority = "HIGHEST"
)

// IsValid reports whether p is a known priority
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityHighest:
		return true
	}
	return false
}

// Task is a unit of work. A task without a sprint sits in the backlog.
// Position is the task's index inside its column and is kept dense (0..n-1).
type Task struct {
	BaseModel
	Title       string       `gorm:"type:varchar(255);not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	Priority    TaskPriority `gorm:"type:varchar(20);not null;default:'MEDIUM'" json:"priority"`
	Status      TaskStatus   `gorm:"type:varchar(20);not null;default:'TODO';index:idx_tasks_status" json:"status"`
	Position    int          `gorm:"not null;default:0" json:"position"`
	SprintID    *uuid.UUID   `gorm:"type:uuid;index:idx_tasks_sprint_id" json:"sprint_id"`
	ColumnID    *uuid.UUID   `gorm:"type:uuid;index:idx_tasks_column_id" json:"column_id"`
	AssigneeID  *uuid.UUID   `gorm:"type:uuid;index:idx_tasks_assignee_id" json:"assignee_id"`
	ReporterID  uuid.UUID    `gorm:"type:uuid;not null" json:"reporter_id"`
	StartedAt   *time.Time   `gorm:"type:timestamp" json:"started_at,omitempty"`
	CompletedAt *time.Time   `gorm:"type:timestamp" json:"completed_at,omitempty"`
}

// TableName specifies the table name for Task
func (Task) TableName() string {
	return "tasks"
}

// GetID implements ordering.Item
func (t *Task) GetID() uuid.UUID { return t.ID }

// GetPosition implements ordering.Item
func (t *Task) GetPosition() int { return t.Position }

// SetPosition implements ordering.Item
func (t *Task) SetPosition(p int) { t.Position = p }

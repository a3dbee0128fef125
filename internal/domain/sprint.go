package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SprintStatus represents the lifecycle state of a sprint
type SprintStatus string

const (
	SprintStatusPlanning  SprintStatus = "PLANNING"
	SprintStatusActive    SprintStatus = "ACTIVE"
	SprintStatusCompleted SprintStatus = "COMPLETED"
)

// IsValid reports whether s is a known sprint status
func (s SprintStatus) IsValid() bool {
	switch s {
	case SprintStatusPlanning, SprintStatusActive, SprintStatusCompleted:
		return true
	}
	return false
}

// AcceptsTasks reports whether tasks may be created in or moved into a sprint with this status
func (s SprintStatus) AcceptsTasks() bool {
	return s == SprintStatusPlanning || s == SprintStatusActive
}

// CompletionReason records which path moved a sprint to COMPLETED
type CompletionReason string

const (
	CompletionReasonManual    CompletionReason = "MANUAL"
	CompletionReasonExpired   CompletionReason = "EXPIRED"
	CompletionReasonCancelled CompletionReason = "CANCELLED"
)

// Sprint is a time-boxed iteration of a board.
// Only one sprint may be ACTIVE at a time; see uq_sprints_single_active in database.AutoMigrate.
type Sprint struct {
	BaseModel
	Name             string            `gorm:"type:varchar(255);not null;uniqueIndex:uq_sprints_name" json:"name"`
	Goal             string            `gorm:"type:text" json:"goal"`
	StartDate        datatypes.Date    `gorm:"type:date;not null" json:"start_date"`
	EndDate          datatypes.Date    `gorm:"type:date;not null;index:idx_sprints_end_date" json:"end_date"`
	Status           SprintStatus      `gorm:"type:varchar(20);not null;default:'PLANNING';index:idx_sprints_status" json:"status"`
	BoardID          uuid.UUID         `gorm:"type:uuid;not null;index:idx_sprints_board_id" json:"board_id"`
	CreatedBy        uuid.UUID         `gorm:"type:uuid;not null" json:"created_by"`
	CompletedAt      *time.Time        `gorm:"type:timestamp" json:"completed_at,omitempty"`
	CompletionReason *CompletionReason `gorm:"type:varchar(20)" json:"completion_reason,omitempty"`
}

// TableName specifies the table name for Sprint
func (Sprint) TableName() string {
	return "sprints"
}

// Start returns the start date as a time value (midnight UTC)
func (s *Sprint) Start() time.Time {
	return time.Time(s.StartDate)
}

// End returns the end date as a time value (midnight UTC)
func (s *Sprint) End() time.Time {
	return time.Time(s.EndDate)
}

// IsExpired reports whether the sprint's end date lies strictly before today
func (s *Sprint) IsExpired(today time.Time) bool {
	return s.End().Before(today)
}

// SprintStats summarizes the tasks of a sprint
type SprintStats struct {
	SprintID        uuid.UUID `json:"sprint_id"`
	TotalTasks      int64     `json:"total_tasks"`
	TodoTasks       int64     `json:"todo_tasks"`
	InProgressTasks int64     `json:"in_progress_tasks"`
	DoneTasks       int64     `json:"done_tasks"`
	CompletionRate  float64   `json:"completion_rate"`
}

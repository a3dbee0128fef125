package domain

import (
	"github.com/google/uuid"
)

// BoardStatus represents whether a board is in use
type BoardStatus string

const (
	BoardStatusActive   BoardStatus = "ACTIVE"
	BoardStatusArchived BoardStatus = "ARCHIVED"
)

// Board groups columns and sprints.
// IsDesignated marks the single "active board"; uq_boards_single_designated keeps it unique.
type Board struct {
	BaseModel
	Name         string        `gorm:"type:varchar(255);not null;uniqueIndex:uq_boards_name" json:"name"`
	Description  string        `gorm:"type:text" json:"description"`
	Status       BoardStatus   `gorm:"type:varchar(20);not null;default:'ACTIVE';index:idx_boards_status" json:"status"`
	IsDesignated bool          `gorm:"not null;default:false" json:"is_designated"`
	CreatedBy    uuid.UUID     `gorm:"type:uuid;not null" json:"created_by"`
	Columns      []BoardColumn `gorm:"-" json:"columns,omitempty"`
}

// TableName specifies the table name for Board
func (Board) TableName() string {
	return "boards"
}

// BoardColumn is an ordered lane of a board. Position is dense per board.
type BoardColumn struct {
	BaseModel
	BoardID     uuid.UUID `gorm:"type:uuid;not null;index:idx_board_columns_board_id" json:"board_id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Position    int       `gorm:"not null;default:0" json:"position"`
}

// TableName specifies the table name for BoardColumn
func (BoardColumn) TableName() string {
	return "board_columns"
}

// GetID implements ordering.Item
func (c *BoardColumn) GetID() uuid.UUID { return c.ID }

// GetPosition implements ordering.Item
func (c *BoardColumn) GetPosition() int { return c.Position }

// SetPosition implements ordering.Item
func (c *BoardColumn) SetPosition(p int) { c.Position = p }

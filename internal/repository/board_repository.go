package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"project-workflow-api/internal/domain"
)

// BoardRepository defines the interface for board data access
type BoardRepository interface {
	Create(ctx context.Context, board *domain.Board) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Board, error)
	FindAll(ctx context.Context, status *domain.BoardStatus) ([]*domain.Board, error)
	FindDesignated(ctx context.Context) (*domain.Board, error)
	FindOldestActive(ctx context.Context) (*domain.Board, error)
	UpdateDetails(ctx context.Context, board *domain.Board) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.BoardStatus) (bool, error)
	ClearDesignation(ctx context.Context) error
	Designate(ctx context.Context, id uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// boardRepositoryImpl is the GORM implementation of BoardRepository
type boardRepositoryImpl struct {
	db *gorm.DB
}

// NewBoardRepository creates a new instance of BoardRepository
func NewBoardRepository(db *gorm.DB) BoardRepository {
	return &boardRepositoryImpl{db: db}
}

// Create inserts a board; a taken name yields ErrDuplicateKey
func (r *boardRepositoryImpl) Create(ctx context.Context, board *domain.Board) error {
	return translateError(conn(ctx, r.db).Create(board).Error)
}

func (r *boardRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	var board domain.Board
	if err := conn(ctx, r.db).Where("id = ?", id).First(&board).Error; err != nil {
		return nil, err
	}
	return &board, nil
}

func (r *boardRepositoryImpl) FindAll(ctx context.Context, status *domain.BoardStatus) ([]*domain.Board, error) {
	var boards []*domain.Board
	query := conn(ctx, r.db).Order("created_at ASC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if err := query.Find(&boards).Error; err != nil {
		return nil, err
	}
	return boards, nil
}

func (r *boardRepositoryImpl) FindDesignated(ctx context.Context) (*domain.Board, error) {
	var board domain.Board
	if err := conn(ctx, r.db).Where("is_designated = ?", true).First(&board).Error; err != nil {
		return nil, err
	}
	return &board, nil
}

func (r *boardRepositoryImpl) FindOldestActive(ctx context.Context) (*domain.Board, error) {
	var board domain.Board
	if err := conn(ctx, r.db).
		Where("status = ?", domain.BoardStatusActive).
		Order("created_at ASC").
		First(&board).Error; err != nil {
		return nil, err
	}
	return &board, nil
}

// UpdateDetails writes name and description; a taken name yields ErrDuplicateKey
func (r *boardRepositoryImpl) UpdateDetails(ctx context.Context, board *domain.Board) error {
	return translateError(conn(ctx, r.db).
		Model(&domain.Board{}).
		Where("id = ?", board.ID).
		Updates(map[string]interface{}{
			"name":        board.Name,
			"description": board.Description,
		}).Error)
}

// UpdateStatus moves a board from one status to another. Archiving also drops the designation.
func (r *boardRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.BoardStatus) (bool, error) {
	updates := map[string]interface{}{"status": to}
	if to == domain.BoardStatusArchived {
		updates["is_designated"] = false
	}
	result := conn(ctx, r.db).
		Model(&domain.Board{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ClearDesignation unsets the designated flag on every board
func (r *boardRepositoryImpl) ClearDesignation(ctx context.Context) error {
	return conn(ctx, r.db).
		Model(&domain.Board{}).
		Where("is_designated = ?", true).
		Update("is_designated", false).Error
}

// Designate flags an ACTIVE board as designated
func (r *boardRepositoryImpl) Designate(ctx context.Context, id uuid.UUID) (bool, error) {
	result := conn(ctx, r.db).
		Model(&domain.Board{}).
		Where("id = ? AND status = ?", id, domain.BoardStatusActive).
		Update("is_designated", true)
	if result.Error != nil {
		return false, translateError(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *boardRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Where("id = ?", id).Delete(&domain.Board{}).Error
}

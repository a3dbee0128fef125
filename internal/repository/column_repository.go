package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"project-workflow-api/internal/domain"
)

// ColumnRepository defines the interface for board column data access
type ColumnRepository interface {
	Create(ctx context.Context, column *domain.BoardColumn) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.BoardColumn, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.BoardColumn, error)
	FindByBoardID(ctx context.Context, boardID uuid.UUID) ([]*domain.BoardColumn, error)
	CountByBoardID(ctx context.Context, boardID uuid.UUID) (int64, error)
	UpdateDetails(ctx context.Context, column *domain.BoardColumn) error
	UpdatePositions(ctx context.Context, columns []*domain.BoardColumn) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByBoardID(ctx context.Context, boardID uuid.UUID) error
}

// columnRepositoryImpl is the GORM implementation of ColumnRepository
type columnRepositoryImpl struct {
	db *gorm.DB
}

// NewColumnRepository creates a new instance of ColumnRepository
func NewColumnRepository(db *gorm.DB) ColumnRepository {
	return &columnRepositoryImpl{db: db}
}

func (r *columnRepositoryImpl) Create(ctx context.Context, column *domain.BoardColumn) error {
	return conn(ctx, r.db).Create(column).Error
}

func (r *columnRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.BoardColumn, error) {
	var column domain.BoardColumn
	if err := conn(ctx, r.db).Where("id = ?", id).First(&column).Error; err != nil {
		return nil, err
	}
	return &column, nil
}

func (r *columnRepositoryImpl) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.BoardColumn, error) {
	if len(ids) == 0 {
		return []*domain.BoardColumn{}, nil
	}

	var columns []*domain.BoardColumn
	if err := conn(ctx, r.db).Where("id IN ?", ids).Find(&columns).Error; err != nil {
		return nil, err
	}
	return columns, nil
}

// FindByBoardID returns a board's columns in position order
func (r *columnRepositoryImpl) FindByBoardID(ctx context.Context, boardID uuid.UUID) ([]*domain.BoardColumn, error) {
	var columns []*domain.BoardColumn
	if err := conn(ctx, r.db).
		Where("board_id = ?", boardID).
		Order("position ASC").
		Order("created_at ASC").
		Find(&columns).Error; err != nil {
		return nil, err
	}
	return columns, nil
}

func (r *columnRepositoryImpl) CountByBoardID(ctx context.Context, boardID uuid.UUID) (int64, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&domain.BoardColumn{}).Where("board_id = ?", boardID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateDetails writes name and description; positions belong to UpdatePositions
func (r *columnRepositoryImpl) UpdateDetails(ctx context.Context, column *domain.BoardColumn) error {
	return conn(ctx, r.db).
		Model(&domain.BoardColumn{}).
		Where("id = ?", column.ID).
		Updates(map[string]interface{}{
			"name":        column.Name,
			"description": column.Description,
		}).Error
}

// UpdatePositions persists the position of each column
func (r *columnRepositoryImpl) UpdatePositions(ctx context.Context, columns []*domain.BoardColumn) error {
	db := conn(ctx, r.db)
	for _, column := range columns {
		if err := db.Model(&domain.BoardColumn{}).
			Where("id = ?", column.ID).
			Update("position", column.Position).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *columnRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Where("id = ?", id).Delete(&domain.BoardColumn{}).Error
}

func (r *columnRepositoryImpl) DeleteByBoardID(ctx context.Context, boardID uuid.UUID) error {
	return conn(ctx, r.db).Where("board_id = ?", boardID).Delete(&domain.BoardColumn{}).Error
}

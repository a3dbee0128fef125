package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"project-workflow-api/internal/domain"
)

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	FindByTaskID(ctx context.Context, taskID uuid.UUID) ([]*domain.Comment, error)
	DeleteByTaskID(ctx context.Context, taskID uuid.UUID) error
}

type commentRepositoryImpl struct {
	db *gorm.DB
}

// NewCommentRepository creates a new instance of CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepositoryImpl{db: db}
}

func (r *commentRepositoryImpl) Create(ctx context.Context, comment *domain.Comment) error {
	return conn(ctx, r.db).Create(comment).Error
}

func (r *commentRepositoryImpl) FindByTaskID(ctx context.Context, taskID uuid.UUID) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	if err := conn(ctx, r.db).
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepositoryImpl) DeleteByTaskID(ctx context.Context, taskID uuid.UUID) error {
	return conn(ctx, r.db).Where("task_id = ?", taskID).Delete(&domain.Comment{}).Error
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"project-workflow-api/internal/domain"
)

// AttachmentRepository defines the interface for attachment data access
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Attachment, error)
	FindByTaskID(ctx context.Context, taskID uuid.UUID) ([]*domain.Attachment, error)
	FindExpiredTempAttachments(ctx context.Context, now time.Time) ([]*domain.Attachment, error)
	ConfirmAttachments(ctx context.Context, attachmentIDs []uuid.UUID, taskID uuid.UUID) error
	DeleteByTaskID(ctx context.Context, taskID uuid.UUID) error
	DeleteBatch(ctx context.Context, attachmentIDs []uuid.UUID) error
}

// attachmentRepositoryImpl is the GORM implementation of AttachmentRepository
type attachmentRepositoryImpl struct {
	db *gorm.DB
}

// NewAttachmentRepository creates a new instance of AttachmentRepository
func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepositoryImpl{db: db}
}

// Create creates a new attachment
func (r *attachmentRepositoryImpl) Create(ctx context.Context, attachment *domain.Attachment) error {
	return conn(ctx, r.db).Create(attachment).Error
}

// FindByID finds an attachment by its ID
func (r *attachmentRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.Attachment, error) {
	var attachment domain.Attachment
	if err := conn(ctx, r.db).Where("id = ?", id).First(&attachment).Error; err != nil {
		return nil, err
	}
	return &attachment, nil
}

// FindByTaskID finds all attachments of a task, newest first
func (r *attachmentRepositoryImpl) FindByTaskID(ctx context.Context, taskID uuid.UUID) ([]*domain.Attachment, error) {
	var attachments []*domain.Attachment
	if err := conn(ctx, r.db).
		Where("task_id = ?", taskID).
		Order("created_at DESC").
		Find(&attachments).Error; err != nil {
		return nil, err
	}
	return attachments, nil
}

// FindExpiredTempAttachments finds temporary attachments past their expiry
func (r *attachmentRepositoryImpl) FindExpiredTempAttachments(ctx context.Context, now time.Time) ([]*domain.Attachment, error) {
	var attachments []*domain.Attachment
	if err := conn(ctx, r.db).
		Where("status = ? AND expires_at < ?", domain.AttachmentStatusTemp, now).
		Find(&attachments).Error; err != nil {
		return nil, err
	}
	return attachments, nil
}

// ConfirmAttachments links TEMP attachments to a task; every ID must be confirmed
func (r *attachmentRepositoryImpl) ConfirmAttachments(ctx context.Context, attachmentIDs []uuid.UUID, taskID uuid.UUID) error {
	if len(attachmentIDs) == 0 {
		return nil
	}

	result := conn(ctx, r.db).
		Model(&domain.Attachment{}).
		Where("id IN ? AND status = ?", attachmentIDs, domain.AttachmentStatusTemp).
		Updates(map[string]interface{}{
			"status":     domain.AttachmentStatusConfirmed,
			"task_id":    taskID,
			"expires_at": nil,
		})

	if result.Error != nil {
		return result.Error
	}

	// ✅ 업데이트된 행 수 검증
	if result.RowsAffected != int64(len(attachmentIDs)) {
		return fmt.Errorf("expected to confirm %d attachment(s) but only confirmed %d",
			len(attachmentIDs), result.RowsAffected)
	}

	return nil
}

// DeleteByTaskID removes every attachment row of a task
func (r *attachmentRepositoryImpl) DeleteByTaskID(ctx context.Context, taskID uuid.UUID) error {
	return conn(ctx, r.db).Where("task_id = ?", taskID).Delete(&domain.Attachment{}).Error
}

// DeleteBatch deletes multiple attachments by their IDs
func (r *attachmentRepositoryImpl) DeleteBatch(ctx context.Context, attachmentIDs []uuid.UUID) error {
	if len(attachmentIDs) == 0 {
		return nil
	}
	return conn(ctx, r.db).Where("id IN ?", attachmentIDs).Delete(&domain.Attachment{}).Error
}

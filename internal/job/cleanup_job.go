package job

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"project-workflow-api/internal/client"
	"project-workflow-api/internal/clock"
	"project-workflow-api/internal/repository"
)

// CleanupJob removes TEMP attachments that were never linked to a task before expiring
type CleanupJob struct {
	attachmentRepo repository.AttachmentRepository
	store          client.ObjectStore
	clock          clock.Clock
	timeout        time.Duration
	logger         *zap.Logger
}

// NewCleanupJob creates a new CleanupJob instance
func NewCleanupJob(
	attachmentRepo repository.AttachmentRepository,
	store client.ObjectStore,
	clk clock.Clock,
	timeout time.Duration,
	logger *zap.Logger,
) *CleanupJob {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &CleanupJob{
		attachmentRepo: attachmentRepo,
		store:          store,
		clock:          clk,
		timeout:        timeout,
		logger:         logger,
	}
}

// Run implements cron.Job
func (j *CleanupJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	j.Cleanup(ctx)
}

// Cleanup deletes expired objects first and then their rows.
// A row whose object could not be deleted is kept for the next run.
func (j *CleanupJob) Cleanup(ctx context.Context) (deleted, failed int) {
	expired, err := j.attachmentRepo.FindExpiredTempAttachments(ctx, j.clock.Now())
	if err != nil {
		j.logger.Error("Failed to find expired temporary attachments", zap.Error(err))
		return 0, 0
	}
	if len(expired) == 0 {
		j.logger.Debug("No expired temporary attachments found")
		return 0, 0
	}

	var removable []uuid.UUID
	for _, attachment := range expired {
		if attachment.ObjectKey == "" {
			j.logger.Warn("Attachment has no object key",
				zap.String("attachment_id", attachment.ID.String()))
			failed++
			continue
		}

		if err := j.store.DeleteFile(ctx, attachment.ObjectKey); err != nil {
			j.logger.Error("Failed to delete object",
				zap.String("attachment_id", attachment.ID.String()),
				zap.String("object_key", attachment.ObjectKey),
				zap.Error(err))
			failed++
			continue
		}
		removable = append(removable, attachment.ID)
	}

	if len(removable) > 0 {
		if err := j.attachmentRepo.DeleteBatch(ctx, removable); err != nil {
			j.logger.Error("Failed to delete attachment rows",
				zap.Int("count", len(removable)),
				zap.Error(err))
			return 0, len(expired)
		}
	}

	j.logger.Info("Attachment cleanup completed",
		zap.Int("expired", len(expired)),
		zap.Int("deleted", len(removable)),
		zap.Int("failed", failed))
	return len(removable), failed
}

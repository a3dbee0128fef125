package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"project-workflow-api/internal/client"
	"project-workflow-api/internal/ordering"
	"project-workflow-api/internal/repository"
	"project-workflow-api/internal/response"
)

// lookupError converts a repository lookup failure into NOT_FOUND or INTERNAL_ERROR
func lookupError(err error, what string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return response.NewNotFoundError(what+" not found", id.String())
	}
	return response.NewInternalError("Failed to load "+strings.ToLower(what), err)
}

// passThrough keeps AppErrors produced inside a transaction and wraps everything else
func passThrough(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *response.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return response.NewInternalError(message, err)
}

// requireUser fails with NOT_FOUND when id does not name a known user
func requireUser(ctx context.Context, users repository.UserRepository, id uuid.UUID) error {
	exists, err := users.Exists(ctx, id)
	if err != nil {
		return response.NewInternalError("Failed to verify user", err)
	}
	if !exists {
		return response.NewNotFoundError("User not found", id.String())
	}
	return nil
}

// orderingError maps ordering engine failures onto the error taxonomy
func orderingError(err error, what string) error {
	var unknown *ordering.UnknownItemError
	switch {
	case errors.As(err, &unknown):
		return response.NewNotFoundError(what+" not found", err.Error())
	case errors.Is(err, ordering.ErrDuplicateItem):
		return response.NewAppError(response.ErrCodeInvalidArgument, "Duplicate id in order list", err.Error())
	}
	return response.NewInternalError("Failed to reorder", err)
}

// removeDuplicateUUIDs removes duplicate UUIDs from a slice
func removeDuplicateUUIDs(uuids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	result := make([]uuid.UUID, 0, len(uuids))

	for _, id := range uuids {
		if !seen[id] {
			seen[id] = true
			result = append(result, id)
		}
	}

	return result
}

// notify delivers an event after the owning transaction committed; failures are only logged
func notify(ctx context.Context, notifier client.NotificationClient, logger *zap.Logger, event client.NotificationEvent) {
	if notifier == nil {
		return
	}
	if err := notifier.SendNotification(ctx, event); err != nil {
		logger.Warn("Failed to send notification",
			zap.String("type", string(event.Type)),
			zap.String("resource_id", event.ResourceID.String()),
			zap.Error(err))
	}
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"project-workflow-api/internal/domain"
)

// SprintRepository defines the interface for sprint data access.
// Status-changing methods are conditional updates and report whether a row changed.
type SprintRepository interface {
	Create(ctx context.Context, sprint *domain.Sprint) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Sprint, error)
	FindAll(ctx context.Context, boardID *uuid.UUID) ([]*domain.Sprint, error)
	FindActive(ctx context.Context) (*domain.Sprint, error)
	FindExpiredActive(ctx context.Context, today time.Time) ([]*domain.Sprint, error)
	UpdatePlanning(ctx context.Context, sprint *domain.Sprint, now time.Time) (bool, error)
	Activate(ctx context.Context, id uuid.UUID, startDate time.Time, now time.Time) (bool, error)
	Complete(ctx context.Context, id uuid.UUID, from []domain.SprintStatus, reason domain.CompletionReason, now time.Time) (bool, error)
	CompleteIfFinished(ctx context.Context, id uuid.UUID, reason domain.CompletionReason, now time.Time) (bool, error)
	CountByStatus(ctx context.Context) (map[domain.SprintStatus]int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// sprintRepositoryImpl is the GORM implementation of SprintRepository
type sprintRepositoryImpl struct {
	db *gorm.DB
}

// NewSprintRepository creates a new instance of SprintRepository
func NewSprintRepository(db *gorm.DB) SprintRepository {
	return &sprintRepositoryImpl{db: db}
}

// Create inserts a sprint; a taken name yields ErrDuplicateKey
func (r *sprintRepositoryImpl) Create(ctx context.Context, sprint *domain.Sprint) error {
	return translateError(conn(ctx, r.db).Create(sprint).Error)
}

// FindByID finds a sprint by its ID
func (r *sprintRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.Sprint, error) {
	var sprint domain.Sprint
	if err := conn(ctx, r.db).Where("id = ?", id).First(&sprint).Error; err != nil {
		return nil, err
	}
	return &sprint, nil
}

// FindAll lists sprints, optionally limited to one board, oldest start first
func (r *sprintRepositoryImpl) FindAll(ctx context.Context, boardID *uuid.UUID) ([]*domain.Sprint, error) {
	var sprints []*domain.Sprint
	query := conn(ctx, r.db).Order("start_date ASC").Order("created_at ASC")
	if boardID != nil {
		query = query.Where("board_id = ?", *boardID)
	}
	if err := query.Find(&sprints).Error; err != nil {
		return nil, err
	}
	return sprints, nil
}

// FindActive returns the ACTIVE sprint, or gorm.ErrRecordNotFound
func (r *sprintRepositoryImpl) FindActive(ctx context.Context) (*domain.Sprint, error) {
	var sprint domain.Sprint
	if err := conn(ctx, r.db).Where("status = ?", domain.SprintStatusActive).First(&sprint).Error; err != nil {
		return nil, err
	}
	return &sprint, nil
}

// FindExpiredActive returns ACTIVE sprints whose end date is before today
func (r *sprintRepositoryImpl) FindExpiredActive(ctx context.Context, today time.Time) ([]*domain.Sprint, error) {
	var sprints []*domain.Sprint
	if err := conn(ctx, r.db).
		Where("status = ? AND end_date < ?", domain.SprintStatusActive, datatypes.Date(today)).
		Order("end_date ASC").
		Find(&sprints).Error; err != nil {
		return nil, err
	}
	return sprints, nil
}

// UpdatePlanning writes the editable fields only while the sprint is still PLANNING
func (r *sprintRepositoryImpl) UpdatePlanning(ctx context.Context, sprint *domain.Sprint, now time.Time) (bool, error) {
	result := conn(ctx, r.db).
		Model(&domain.Sprint{}).
		Where("id = ? AND status = ?", sprint.ID, domain.SprintStatusPlanning).
		Updates(map[string]interface{}{
			"name":       sprint.Name,
			"goal":       sprint.Goal,
			"start_date": sprint.StartDate,
			"end_date":   sprint.EndDate,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, translateError(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Activate moves a PLANNING sprint to ACTIVE if no other sprint is ACTIVE.
// The check and the write are one statement; uq_sprints_single_active rejects any race loser.
func (r *sprintRepositoryImpl) Activate(ctx context.Context, id uuid.UUID, startDate time.Time, now time.Time) (bool, error) {
	result := conn(ctx, r.db).
		Model(&domain.Sprint{}).
		Where("id = ? AND status = ?", id, domain.SprintStatusPlanning).
		Where("NOT EXISTS (SELECT 1 FROM sprints AS other WHERE other.status = ?)", domain.SprintStatusActive).
		Updates(map[string]interface{}{
			"status":     domain.SprintStatusActive,
			"start_date": datatypes.Date(startDate),
			"updated_at": now,
		})
	if result.Error != nil {
		return false, translateError(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Complete moves a sprint whose status is one of from to COMPLETED
func (r *sprintRepositoryImpl) Complete(ctx context.Context, id uuid.UUID, from []domain.SprintStatus, reason domain.CompletionReason, now time.Time) (bool, error) {
	result := conn(ctx, r.db).
		Model(&domain.Sprint{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{
			"status":            domain.SprintStatusCompleted,
			"completed_at":      now,
			"completion_reason": reason,
			"updated_at":        now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CompleteIfFinished moves an ACTIVE sprint to COMPLETED only while none of its tasks is IN_PROGRESS.
// The task check and the write are one statement.
func (r *sprintRepositoryImpl) CompleteIfFinished(ctx context.Context, id uuid.UUID, reason domain.CompletionReason, now time.Time) (bool, error) {
	result := conn(ctx, r.db).
		Model(&domain.Sprint{}).
		Where("id = ? AND status = ?", id, domain.SprintStatusActive).
		Where("NOT EXISTS (SELECT 1 FROM tasks WHERE tasks.sprint_id = ? AND tasks.status = ?)", id, domain.TaskStatusInProgress).
		Updates(map[string]interface{}{
			"status":            domain.SprintStatusCompleted,
			"completed_at":      now,
			"completion_reason": reason,
			"updated_at":        now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CountByStatus counts sprints grouped by status
func (r *sprintRepositoryImpl) CountByStatus(ctx context.Context) (map[domain.SprintStatus]int64, error) {
	var rows []struct {
		Status domain.SprintStatus
		Count  int64
	}
	if err := conn(ctx, r.db).
		Model(&domain.Sprint{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[domain.SprintStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Delete removes a sprint by ID
func (r *sprintRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Where("id = ?", id).Delete(&domain.Sprint{}).Error
}

package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"project-workflow-api/internal/domain"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Task, error)
	FindBySprintID(ctx context.Context, sprintID uuid.UUID) ([]*domain.Task, error)
	FindBacklog(ctx context.Context) ([]*domain.Task, error)
	FindByColumnID(ctx context.Context, columnID uuid.UUID) ([]*domain.Task, error)
	CountByColumnID(ctx context.Context, columnID uuid.UUID) (int64, error)
	CountBySprintAndStatus(ctx context.Context, sprintID uuid.UUID) (map[domain.TaskStatus]int64, error)
	CountByStatus(ctx context.Context) (map[domain.TaskStatus]int64, error)
	UpdateDetails(ctx context.Context, task *domain.Task) error
	UpdateSprint(ctx context.Context, id uuid.UUID, sprintID *uuid.UUID) error
	UpdateStatus(ctx context.Context, task *domain.Task, from domain.TaskStatus) (bool, error)
	UpdatePlacements(ctx context.Context, tasks []*domain.Task) error
	DetachFromSprint(ctx context.Context, sprintID uuid.UUID) error
	DetachFromColumn(ctx context.Context, columnID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// taskRepositoryImpl is the GORM implementation of TaskRepository
type taskRepositoryImpl struct {
	db *gorm.DB
}

// NewTaskRepository creates a new instance of TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepositoryImpl{db: db}
}

// Create creates a new task
func (r *taskRepositoryImpl) Create(ctx context.Context, task *domain.Task) error {
	return conn(ctx, r.db).Create(task).Error
}

// FindByID finds a task by its ID
func (r *taskRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var task domain.Task
	if err := conn(ctx, r.db).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindByIDs finds tasks by their IDs; missing IDs are simply absent from the result
func (r *taskRepositoryImpl) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Task, error) {
	if len(ids) == 0 {
		return []*domain.Task{}, nil
	}

	var tasks []*domain.Task
	if err := conn(ctx, r.db).Where("id IN ?", ids).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// FindBySprintID finds all tasks of a sprint
func (r *taskRepositoryImpl) FindBySprintID(ctx context.Context, sprintID uuid.UUID) ([]*domain.Task, error) {
	var tasks []*domain.Task
	if err := conn(ctx, r.db).
		Where("sprint_id = ?", sprintID).
		Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// FindBacklog finds tasks that belong to no sprint
func (r *taskRepositoryImpl) FindBacklog(ctx context.Context) ([]*domain.Task, error) {
	var tasks []*domain.Task
	if err := conn(ctx, r.db).
		Where("sprint_id IS NULL").
		Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// FindByColumnID finds the tasks of a column in position order
func (r *taskRepositoryImpl) FindByColumnID(ctx context.Context, columnID uuid.UUID) ([]*domain.Task, error) {
	var tasks []*domain.Task
	if err := conn(ctx, r.db).
		Where("column_id = ?", columnID).
		Order("position ASC").
		Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// CountByColumnID counts the tasks of a column
func (r *taskRepositoryImpl) CountByColumnID(ctx context.Context, columnID uuid.UUID) (int64, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&domain.Task{}).Where("column_id = ?", columnID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountBySprintAndStatus counts a sprint's tasks grouped by status
func (r *taskRepositoryImpl) CountBySprintAndStatus(ctx context.Context, sprintID uuid.UUID) (map[domain.TaskStatus]int64, error) {
	return r.countByStatus(conn(ctx, r.db).Model(&domain.Task{}).Where("sprint_id = ?", sprintID))
}

// CountByStatus counts all tasks grouped by status
func (r *taskRepositoryImpl) CountByStatus(ctx context.Context) (map[domain.TaskStatus]int64, error) {
	return r.countByStatus(conn(ctx, r.db).Model(&domain.Task{}))
}

func (r *taskRepositoryImpl) countByStatus(query *gorm.DB) (map[domain.TaskStatus]int64, error) {
	var rows []struct {
		Status domain.TaskStatus
		Count  int64
	}
	if err := query.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[domain.TaskStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// UpdateDetails writes the descriptive fields only; status and placement have their own writers
func (r *taskRepositoryImpl) UpdateDetails(ctx context.Context, task *domain.Task) error {
	return conn(ctx, r.db).
		Model(&domain.Task{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"title":       task.Title,
			"description": task.Description,
			"priority":    task.Priority,
			"assignee_id": task.AssigneeID,
		}).Error
}

// UpdateSprint moves a task to sprintID; nil sends it to the backlog
func (r *taskRepositoryImpl) UpdateSprint(ctx context.Context, id uuid.UUID, sprintID *uuid.UUID) error {
	return conn(ctx, r.db).
		Model(&domain.Task{}).
		Where("id = ?", id).
		Update("sprint_id", sprintID).Error
}

// UpdateStatus writes the task's status and timestamps only if the stored status is still from
func (r *taskRepositoryImpl) UpdateStatus(ctx context.Context, task *domain.Task, from domain.TaskStatus) (bool, error) {
	result := conn(ctx, r.db).
		Model(&domain.Task{}).
		Where("id = ? AND status = ?", task.ID, from).
		Updates(map[string]interface{}{
			"status":       task.Status,
			"started_at":   task.StartedAt,
			"completed_at": task.CompletedAt,
			"updated_at":   task.UpdatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// UpdatePlacements persists column and position for each task.
// Callers run it inside a transaction so a batch is all-or-nothing.
func (r *taskRepositoryImpl) UpdatePlacements(ctx context.Context, tasks []*domain.Task) error {
	db := conn(ctx, r.db)
	for _, task := range tasks {
		if err := db.Model(&domain.Task{}).
			Where("id = ?", task.ID).
			Updates(map[string]interface{}{
				"column_id": task.ColumnID,
				"position":  task.Position,
			}).Error; err != nil {
			return err
		}
	}
	return nil
}

// DetachFromSprint moves every task of a sprint to the backlog
func (r *taskRepositoryImpl) DetachFromSprint(ctx context.Context, sprintID uuid.UUID) error {
	return conn(ctx, r.db).
		Model(&domain.Task{}).
		Where("sprint_id = ?", sprintID).
		Update("sprint_id", nil).Error
}

// DetachFromColumn clears the column of every task in it
func (r *taskRepositoryImpl) DetachFromColumn(ctx context.Context, columnID uuid.UUID) error {
	return conn(ctx, r.db).
		Model(&domain.Task{}).
		Where("column_id = ?", columnID).
		Updates(map[string]interface{}{
			"column_id": nil,
			"position":  0,
		}).Error
}

// Delete removes a task by ID
func (r *taskRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Where("id = ?", id).Delete(&domain.Task{}).Error
}

package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"project-workflow-api/internal/domain"
	"project-workflow-api/internal/metrics"
	"project-workflow-api/internal/ordering"
	"project-workflow-api/internal/repository"
	"project-workflow-api/internal/response"
)

// UpdateColumnInput is a partial update; nil fields are left unchanged
type UpdateColumnInput struct {
	Name        *string
	Description *string
}

// ColumnService owns board columns and the order of tasks inside them.
// Every write that touches more than one row commits atomically.
type ColumnService interface {
	CreateColumn(ctx context.Context, boardID uuid.UUID, name, description string) (*domain.BoardColumn, error)
	UpdateColumn(ctx context.Context, id uuid.UUID, in UpdateColumnInput) (*domain.BoardColumn, error)
	DeleteColumn(ctx context.Context, id uuid.UUID) error
	ReorderColumns(ctx context.Context, boardID uuid.UUID, columnIDs []uuid.UUID) ([]*domain.BoardColumn, error)
	ListColumns(ctx context.Context, boardID uuid.UUID) ([]*domain.BoardColumn, error)
	ListColumnTasks(ctx context.Context, columnID uuid.UUID) ([]*domain.Task, error)
	UpdateTasksOrder(ctx context.Context, columnID uuid.UUID, taskIDs []uuid.UUID) ([]*domain.Task, error)
	MoveTask(ctx context.Context, taskID, columnID uuid.UUID, index int) (*domain.Task, error)
}

type columnServiceImpl struct {
	tx         repository.Transactor
	columnRepo repository.ColumnRepository
	boardRepo  repository.BoardRepository
	taskRepo   repository.TaskRepository
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewColumnService creates a new instance of ColumnService
func NewColumnService(
	tx repository.Transactor,
	columnRepo repository.ColumnRepository,
	boardRepo repository.BoardRepository,
	taskRepo repository.TaskRepository,
	m *metrics.Metrics,
	logger *zap.Logger,
) ColumnService {
	return &columnServiceImpl{
		tx:         tx,
		columnRepo: columnRepo,
		boardRepo:  boardRepo,
		taskRepo:   taskRepo,
		metrics:    m,
		logger:     logger,
	}
}

// CreateColumn appends a column to the end of a board
func (s *columnServiceImpl) CreateColumn(ctx context.Context, boardID uuid.UUID, name, description string) (*domain.BoardColumn, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, response.NewAppError(response.ErrCodeInvalidArgument, "Column name is required", "")
	}

	column := &domain.BoardColumn{BoardID: boardID, Name: name, Description: description}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		board, err := s.boardRepo.FindByID(ctx, boardID)
		if err != nil {
			return lookupError(err, "Board", boardID)
		}
		if board.Status != domain.BoardStatusActive {
			return response.NewInvalidStateError("cannot add column to archived board", string(board.Status))
		}

		count, err := s.columnRepo.CountByBoardID(ctx, boardID)
		if err != nil {
			return response.NewInternalError("Failed to count columns", err)
		}
		column.Position = ordering.Append(int(count))

		if err := s.columnRepo.Create(ctx, column); err != nil {
			return response.NewInternalError("Failed to create column", err)
		}
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "Failed to create column")
	}

	s.logger.Info("Column created",
		zap.String("column_id", column.ID.String()),
		zap.String("board_id", boardID.String()),
		zap.Int("position", column.Position))
	return column, nil
}

func (s *columnServiceImpl) UpdateColumn(ctx context.Context, id uuid.UUID, in UpdateColumnInput) (*domain.BoardColumn, error) {
	column, err := s.columnRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Column", id)
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, response.NewAppError(response.ErrCodeInvalidArgument, "Column name is required", "")
		}
		column.Name = name
	}
	if in.Description != nil {
		column.Description = *in.Description
	}

	if err := s.columnRepo.UpdateDetails(ctx, column); err != nil {
		return nil, response.NewInternalError("Failed to update column", err)
	}
	if fresh, err := s.columnRepo.FindByID(ctx, id); err == nil {
		column = fresh
	}
	return column, nil
}

// DeleteColumn removes a column, detaches its tasks and shifts the columns after it
func (s *columnServiceImpl) DeleteColumn(ctx context.Context, id uuid.UUID) error {
	var shifted []*domain.BoardColumn
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		column, err := s.columnRepo.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "Column", id)
		}
		siblings, err := s.columnRepo.FindByBoardID(ctx, column.BoardID)
		if err != nil {
			return response.NewInternalError("Failed to load columns", err)
		}

		if err := s.taskRepo.DetachFromColumn(ctx, id); err != nil {
			return response.NewInternalError("Failed to detach column tasks", err)
		}
		if err := s.columnRepo.Delete(ctx, id); err != nil {
			return response.NewInternalError("Failed to delete column", err)
		}

		shifted = ordering.Remove(siblings, column)
		if err := s.columnRepo.UpdatePositions(ctx, shifted); err != nil {
			return response.NewInternalError("Failed to shift columns", err)
		}
		return nil
	})
	if err != nil {
		return passThrough(err, "Failed to delete column")
	}

	s.metrics.RecordPositionUpdates("columns", len(shifted))
	s.logger.Info("Column deleted",
		zap.String("column_id", id.String()),
		zap.Int("shifted", len(shifted)))
	return nil
}

// ReorderColumns sets the board's column order from columnIDs.
// An ID that is not a column of the board fails with NOT_FOUND and nothing is written.
func (s *columnServiceImpl) ReorderColumns(ctx context.Context, boardID uuid.UUID, columnIDs []uuid.UUID) ([]*domain.BoardColumn, error) {
	var ordered []*domain.BoardColumn
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.boardRepo.FindByID(ctx, boardID); err != nil {
			return lookupError(err, "Board", boardID)
		}
		columns, err := s.columnRepo.FindByBoardID(ctx, boardID)
		if err != nil {
			return response.NewInternalError("Failed to load columns", err)
		}

		ordered, err = ordering.Reorder(columns, columnIDs)
		if err != nil {
			return orderingError(err, "Column")
		}
		if err := s.columnRepo.UpdatePositions(ctx, ordered); err != nil {
			return response.NewInternalError("Failed to update column positions", err)
		}
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "Failed to reorder columns")
	}

	s.metrics.RecordPositionUpdates("columns", len(ordered))
	return ordered, nil
}

func (s *columnServiceImpl) ListColumns(ctx context.Context, boardID uuid.UUID) ([]*domain.BoardColumn, error) {
	if _, err := s.boardRepo.FindByID(ctx, boardID); err != nil {
		return nil, lookupError(err, "Board", boardID)
	}
	columns, err := s.columnRepo.FindByBoardID(ctx, boardID)
	if err != nil {
		return nil, response.NewInternalError("Failed to list columns", err)
	}
	return columns, nil
}

func (s *columnServiceImpl) ListColumnTasks(ctx context.Context, columnID uuid.UUID) ([]*domain.Task, error) {
	if _, err := s.columnRepo.FindByID(ctx, columnID); err != nil {
		return nil, lookupError(err, "Column", columnID)
	}
	tasks, err := s.taskRepo.FindByColumnID(ctx, columnID)
	if err != nil {
		return nil, response.NewInternalError("Failed to list column tasks", err)
	}
	return tasks, nil
}

// UpdateTasksOrder places the listed tasks in the column in list order, wherever they were before.
// Tasks already in the column but not listed follow them. Every column that lost a task is compacted.
func (s *columnServiceImpl) UpdateTasksOrder(ctx context.Context, columnID uuid.UUID, taskIDs []uuid.UUID) ([]*domain.Task, error) {
	var ordered []*domain.Task
	written := 0
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.columnRepo.FindByID(ctx, columnID); err != nil {
			return lookupError(err, "Column", columnID)
		}
		if len(removeDuplicateUUIDs(taskIDs)) != len(taskIDs) {
			return response.NewAppError(response.ErrCodeInvalidArgument, "Duplicate id in order list", "")
		}

		listed, err := s.taskRepo.FindByIDs(ctx, taskIDs)
		if err != nil {
			return response.NewInternalError("Failed to load tasks", err)
		}
		if len(listed) != len(taskIDs) {
			found := make(map[uuid.UUID]bool, len(listed))
			for _, task := range listed {
				found[task.ID] = true
			}
			for _, id := range taskIDs {
				if !found[id] {
					return response.NewNotFoundError("Task not found", id.String())
				}
			}
		}

		current, err := s.taskRepo.FindByColumnID(ctx, columnID)
		if err != nil {
			return response.NewInternalError("Failed to load column tasks", err)
		}

		children := append([]*domain.Task(nil), current...)
		inColumn := make(map[uuid.UUID]bool, len(current))
		for _, task := range current {
			inColumn[task.ID] = true
		}
		moved := make(map[uuid.UUID]bool)
		var sources []uuid.UUID
		for _, task := range listed {
			if inColumn[task.ID] {
				continue
			}
			if task.ColumnID != nil && !containsUUID(sources, *task.ColumnID) {
				sources = append(sources, *task.ColumnID)
			}
			moved[task.ID] = true
			target := columnID
			task.ColumnID = &target
			children = append(children, task)
		}

		ordered, err = ordering.Reorder(children, taskIDs)
		if err != nil {
			return orderingError(err, "Task")
		}
		changes := append([]*domain.Task(nil), ordered...)

		for _, source := range sources {
			remaining, err := s.taskRepo.FindByColumnID(ctx, source)
			if err != nil {
				return response.NewInternalError("Failed to load source column tasks", err)
			}
			kept := remaining[:0]
			for _, task := range remaining {
				if !moved[task.ID] {
					kept = append(kept, task)
				}
			}
			changes = append(changes, ordering.Compact(kept)...)
		}

		if err := s.taskRepo.UpdatePlacements(ctx, changes); err != nil {
			return response.NewInternalError("Failed to update task positions", err)
		}
		written = len(changes)
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "Failed to update task order")
	}

	s.metrics.RecordPositionUpdates("tasks", written)
	return ordered, nil
}

// MoveTask puts a task at index in a column (clamped), leaving both source and target dense
func (s *columnServiceImpl) MoveTask(ctx context.Context, taskID, columnID uuid.UUID, index int) (*domain.Task, error) {
	var task *domain.Task
	written := 0
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		task, err = s.taskRepo.FindByID(ctx, taskID)
		if err != nil {
			return lookupError(err, "Task", taskID)
		}
		if _, err := s.columnRepo.FindByID(ctx, columnID); err != nil {
			return lookupError(err, "Column", columnID)
		}

		var changes []*domain.Task
		if task.ColumnID != nil && *task.ColumnID != columnID {
			source, err := s.taskRepo.FindByColumnID(ctx, *task.ColumnID)
			if err != nil {
				return response.NewInternalError("Failed to load source column tasks", err)
			}
			changes = append(changes, ordering.Remove(source, task)...)
		}

		target, err := s.taskRepo.FindByColumnID(ctx, columnID)
		if err != nil {
			return response.NewInternalError("Failed to load column tasks", err)
		}
		task.ColumnID = &columnID
		changes = append(changes, ordering.Insert(target, task, index)...)

		if err := s.taskRepo.UpdatePlacements(ctx, changes); err != nil {
			return response.NewInternalError("Failed to move task", err)
		}
		written = len(changes)
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "Failed to move task")
	}

	s.metrics.RecordPositionUpdates("tasks", written)
	s.logger.Info("Task moved",
		zap.String("task_id", taskID.String()),
		zap.String("column_id", columnID.String()),
		zap.Int("position", task.Position))
	return task, nil
}

func containsUUID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

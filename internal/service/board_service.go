package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"project-workflow-api/internal/domain"
	"project-workflow-api/internal/metrics"
	"project-workflow-api/internal/repository"
	"project-workflow-api/internal/response"
)

const msgBoardNameTaken = "board name already exists"

// CreateBoardInput carries the fields of a new board
type CreateBoardInput struct {
	Name        string
	Description string
}

// UpdateBoardInput is a partial update; nil fields are left unchanged
type UpdateBoardInput struct {
	Name        *string
	Description *string
}

// BoardService defines the interface for board business logic
type BoardService interface {
	CreateBoard(ctx context.Context, in CreateBoardInput, actorID uuid.UUID) (*domain.Board, error)
	GetBoard(ctx context.Context, id uuid.UUID) (*domain.Board, error)
	ListBoards(ctx context.Context, status *domain.BoardStatus) ([]*domain.Board, error)
	UpdateBoard(ctx context.Context, id uuid.UUID, in UpdateBoardInput) (*domain.Board, error)
	ArchiveBoard(ctx context.Context, id uuid.UUID) (*domain.Board, error)
	UnarchiveBoard(ctx context.Context, id uuid.UUID) (*domain.Board, error)
	DeleteBoard(ctx context.Context, id uuid.UUID) error
	SetActiveBoard(ctx context.Context, id uuid.UUID) (*domain.Board, error)
	GetActiveBoard(ctx context.Context) (*domain.Board, error)
}

// boardServiceImpl is the implementation of BoardService
type boardServiceImpl struct {
	tx         repository.Transactor
	boardRepo  repository.BoardRepository
	columnRepo repository.ColumnRepository
	taskRepo   repository.TaskRepository
	sprintRepo repository.SprintRepository
	userRepo   repository.UserRepository
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewBoardService creates a new instance of BoardService
func NewBoardService(
	tx repository.Transactor,
	boardRepo repository.BoardRepository,
	columnRepo repository.ColumnRepository,
	taskRepo repository.TaskRepository,
	sprintRepo repository.SprintRepository,
	userRepo repository.UserRepository,
	m *metrics.Metrics,
	logger *zap.Logger,
) BoardService {
	return &boardServiceImpl{
		tx:         tx,
		boardRepo:  boardRepo,
		columnRepo: columnRepo,
		taskRepo:   taskRepo,
		sprintRepo: sprintRepo,
		userRepo:   userRepo,
		metrics:    m,
		logger:     logger,
	}
}

// CreateBoard creates a new board
func (s *boardServiceImpl) CreateBoard(ctx context.Context, in CreateBoardInput, actorID uuid.UUID) (*domain.Board, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, response.NewAppError(response.ErrCodeInvalidArgument, "Board name is required", "")
	}
	if err := requireUser(ctx, s.userRepo, actorID); err != nil {
		return nil, err
	}

	board := &domain.Board{
		Name:        name,
		Description: in.Description,
		Status:      domain.BoardStatusActive,
		CreatedBy:   actorID,
	}
	if err := s.boardRepo.Create(ctx, board); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, response.NewConflictError(msgBoardNameTaken, name)
		}
		return nil, response.NewInternalError("Failed to create board", err)
	}

	s.metrics.IncrementBoardCreated()
	s.logger.Info("Board created", zap.String("board_id", board.ID.String()))
	return board, nil
}

// GetBoard returns a board with its columns in position order
func (s *boardServiceImpl) GetBoard(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	board, err := s.boardRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Board", id)
	}

	columns, err := s.columnRepo.FindByBoardID(ctx, id)
	if err != nil {
		return nil, response.NewInternalError("Failed to load columns", err)
	}
	board.Columns = make([]domain.BoardColumn, 0, len(columns))
	for _, column := range columns {
		board.Columns = append(board.Columns, *column)
	}
	return board, nil
}

func (s *boardServiceImpl) ListBoards(ctx context.Context, status *domain.BoardStatus) ([]*domain.Board, error) {
	boards, err := s.boardRepo.FindAll(ctx, status)
	if err != nil {
		return nil, response.NewInternalError("Failed to list boards", err)
	}
	return boards, nil
}

func (s *boardServiceImpl) UpdateBoard(ctx context.Context, id uuid.UUID, in UpdateBoardInput) (*domain.Board, error) {
	board, err := s.boardRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Board", id)
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, response.NewAppError(response.ErrCodeInvalidArgument, "Board name is required", "")
		}
		board.Name = name
	}
	if in.Description != nil {
		board.Description = *in.Description
	}

	if err := s.boardRepo.UpdateDetails(ctx, board); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, response.NewConflictError(msgBoardNameTaken, board.Name)
		}
		return nil, response.NewInternalError("Failed to update board", err)
	}
	if fresh, err := s.boardRepo.FindByID(ctx, id); err == nil {
		board = fresh
	}
	return board, nil
}

// ArchiveBoard archives a board; an archived board cannot stay designated
func (s *boardServiceImpl) ArchiveBoard(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	return s.setStatus(ctx, id, domain.BoardStatusArchived)
}

func (s *boardServiceImpl) UnarchiveBoard(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	return s.setStatus(ctx, id, domain.BoardStatusActive)
}

func (s *boardServiceImpl) setStatus(ctx context.Context, id uuid.UUID, status domain.BoardStatus) (*domain.Board, error) {
	board, err := s.boardRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Board", id)
	}
	if board.Status == status {
		return board, nil
	}

	updated, err := s.boardRepo.UpdateStatus(ctx, id, board.Status, status)
	if err != nil {
		return nil, response.NewInternalError("Failed to update board status", err)
	}
	if board, err = s.boardRepo.FindByID(ctx, id); err != nil {
		return nil, lookupError(err, "Board", id)
	}
	if !updated && board.Status != status {
		return nil, response.NewConflictError("board status changed concurrently", id.String())
	}

	if updated {
		s.logger.Info("Board status changed",
			zap.String("board_id", id.String()),
			zap.String("status", string(status)))
	}
	return board, nil
}

// DeleteBoard removes a board and its columns; tasks in those columns are detached.
// A board that still has sprints cannot be deleted.
func (s *boardServiceImpl) DeleteBoard(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.boardRepo.FindByID(ctx, id); err != nil {
			return lookupError(err, "Board", id)
		}

		sprints, err := s.sprintRepo.FindAll(ctx, &id)
		if err != nil {
			return response.NewInternalError("Failed to load board sprints", err)
		}
		if len(sprints) > 0 {
			return response.NewInvalidStateError("board still has sprints", "")
		}

		columns, err := s.columnRepo.FindByBoardID(ctx, id)
		if err != nil {
			return response.NewInternalError("Failed to load columns", err)
		}
		for _, column := range columns {
			if err := s.taskRepo.DetachFromColumn(ctx, column.ID); err != nil {
				return response.NewInternalError("Failed to detach column tasks", err)
			}
		}
		if err := s.columnRepo.DeleteByBoardID(ctx, id); err != nil {
			return response.NewInternalError("Failed to delete columns", err)
		}
		if err := s.boardRepo.Delete(ctx, id); err != nil {
			return response.NewInternalError("Failed to delete board", err)
		}
		return nil
	})
	if err != nil {
		return passThrough(err, "Failed to delete board")
	}

	s.logger.Info("Board deleted", zap.String("board_id", id.String()))
	return nil
}

// SetActiveBoard designates an ACTIVE board, replacing any previous designation
func (s *boardServiceImpl) SetActiveBoard(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		board, err := s.boardRepo.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "Board", id)
		}
		if board.Status != domain.BoardStatusActive {
			return response.NewInvalidStateError("only an active board can be designated", string(board.Status))
		}

		if err := s.boardRepo.ClearDesignation(ctx); err != nil {
			return response.NewInternalError("Failed to clear board designation", err)
		}
		designated, err := s.boardRepo.Designate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return response.NewConflictError("another board was designated concurrently", "")
			}
			return response.NewInternalError("Failed to designate board", err)
		}
		if !designated {
			return response.NewInvalidStateError("only an active board can be designated", "")
		}
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "Failed to set active board")
	}

	s.logger.Info("Active board set", zap.String("board_id", id.String()))
	return s.GetBoard(ctx, id)
}

// GetActiveBoard returns the designated board, falling back to the oldest ACTIVE board
func (s *boardServiceImpl) GetActiveBoard(ctx context.Context) (*domain.Board, error) {
	board, err := s.boardRepo.FindDesignated(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		board, err = s.boardRepo.FindOldestActive(ctx)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFoundError("No active board", "")
		}
		return nil, response.NewInternalError("Failed to load active board", err)
	}
	return s.GetBoard(ctx, board.ID)
}

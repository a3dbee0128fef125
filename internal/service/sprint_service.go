package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"project-workflow-api/internal/client"
	"project-workflow-api/internal/clock"
	"project-workflow-api/internal/domain"
	"project-workflow-api/internal/metrics"
	"project-workflow-api/internal/repository"
	"project-workflow-api/internal/response"
)

const (
	msgStartAfterEnd    = "sprint start date must not be after end date"
	msgStartInPast      = "sprint start date must not be in the past"
	msgSprintEnded      = "sprint end date has already passed"
	msgOnlyPlanning     = "only a planning sprint can be started"
	msgActiveExists     = "an active sprint already exists"
	msgOnlyActive       = "only an active sprint can be completed"
	msgUnfinishedTasks  = "sprint has unfinished tasks"
	msgOnlyPlanningEdit = "only a planning sprint can be updated"
	msgSprintNameTaken  = "sprint name already exists"
)

// CreateSprintInput carries the fields of a new sprint
type CreateSprintInput struct {
	Name      string
	Goal      string
	StartDate time.Time
	EndDate   time.Time
	BoardID   uuid.UUID
}

// UpdateSprintInput is a partial update; nil fields are left unchanged
type UpdateSprintInput struct {
	Name      *string
	Goal      *string
	StartDate *time.Time
	EndDate   *time.Time
}

// SweepResult summarizes one CompleteExpiredSprints run
type SweepResult struct {
	Scanned   int
	Completed int
	Failed    int
	FailedIDs []uuid.UUID
}

// SprintService defines the sprint lifecycle operations
type SprintService interface {
	CreateSprint(ctx context.Context, in CreateSprintInput, actorID uuid.UUID) (*domain.Sprint, error)
	GetSprint(ctx context.Context, id uuid.UUID) (*domain.Sprint, error)
	ListSprints(ctx context.Context, boardID *uuid.UUID) ([]*domain.Sprint, error)
	GetActiveSprint(ctx context.Context) (*domain.Sprint, error)
	UpdateSprint(ctx context.Context, id uuid.UUID, in UpdateSprintInput) (*domain.Sprint, error)
	StartSprint(ctx context.Context, id uuid.UUID) (*domain.Sprint, error)
	CompleteSprint(ctx context.Context, id uuid.UUID) (*domain.Sprint, error)
	CancelSprint(ctx context.Context, id uuid.UUID) (*domain.Sprint, error)
	DeleteSprint(ctx context.Context, id uuid.UUID) error
	GetSprintStats(ctx context.Context, id uuid.UUID) (*domain.SprintStats, error)
	CompleteExpiredSprints(ctx context.Context) (*SweepResult, error)
}

type sprintServiceImpl struct {
	tx         repository.Transactor
	sprintRepo repository.SprintRepository
	taskRepo   repository.TaskRepository
	boardRepo  repository.BoardRepository
	userRepo   repository.UserRepository
	clock      clock.Clock
	notifier   client.NotificationClient
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewSprintService creates a new instance of SprintService
func NewSprintService(
	tx repository.Transactor,
	sprintRepo repository.SprintRepository,
	taskRepo repository.TaskRepository,
	boardRepo repository.BoardRepository,
	userRepo repository.UserRepository,
	clk clock.Clock,
	notifier client.NotificationClient,
	m *metrics.Metrics,
	logger *zap.Logger,
) SprintService {
	return &sprintServiceImpl{
		tx:         tx,
		sprintRepo: sprintRepo,
		taskRepo:   taskRepo,
		boardRepo:  boardRepo,
		userRepo:   userRepo,
		clock:      clk,
		notifier:   notifier,
		metrics:    m,
		logger:     logger,
	}
}

// CreateSprint creates a PLANNING sprint.
// Name uniqueness is left to uq_sprints_name so concurrent creators cannot both win.
func (s *sprintServiceImpl) CreateSprint(ctx context.Context, in CreateSprintInput, actorID uuid.UUID) (*domain.Sprint, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, response.NewAppError(response.ErrCodeInvalidArgument, "Sprint name is required", "")
	}

	start := clock.DateOf(in.StartDate)
	end := clock.DateOf(in.EndDate)
	if err := s.validateDates(start, end, true); err != nil {
		return nil, err
	}

	if _, err := s.boardRepo.FindByID(ctx, in.BoardID); err != nil {
		return nil, lookupError(err, "Board", in.BoardID)
	}
	if err := requireUser(ctx, s.userRepo, actorID); err != nil {
		return nil, err
	}

	sprint := &domain.Sprint{
		Name:      name,
		Goal:      in.Goal,
		StartDate: datatypes.Date(start),
		EndDate:   datatypes.Date(end),
		Status:    domain.SprintStatusPlanning,
		BoardID:   in.BoardID,
		CreatedBy: actorID,
	}
	if err := s.sprintRepo.Create(ctx, sprint); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, response.NewConflictError(msgSprintNameTaken, name)
		}
		return nil, response.NewInternalError("Failed to create sprint", err)
	}

	s.metrics.IncrementSprintCreated()
	s.logger.Info("Sprint created",
		zap.String("sprint_id", sprint.ID.String()),
		zap.String("board_id", sprint.BoardID.String()),
		zap.Time("start_date", start),
		zap.Time("end_date", end))

	return sprint, nil
}

// validateDates checks the range and, when checkPast is set, that start is not before today
func (s *sprintServiceImpl) validateDates(start, end time.Time, checkPast bool) error {
	if start.After(end) {
		return response.NewAppError(response.ErrCodeInvalidDateRange, msgStartAfterEnd, "")
	}
	if checkPast && start.Before(s.clock.Today()) {
		return response.NewAppError(response.ErrCodeInvalidDateRange, msgStartInPast, "")
	}
	return nil
}

func (s *sprintServiceImpl) GetSprint(ctx context.Context, id uuid.UUID) (*domain.Sprint, error) {
	sprint, err := s.sprintRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Sprint", id)
	}
	return sprint, nil
}

func (s *sprintServiceImpl) ListSprints(ctx context.Context, boardID *uuid.UUID) ([]*domain.Sprint, error) {
	sprints, err := s.sprintRepo.FindAll(ctx, boardID)
	if err != nil {
		return nil, response.NewInternalError("Failed to list sprints", err)
	}
	return sprints, nil
}

// GetActiveSprint returns the ACTIVE sprint or NOT_FOUND
func (s *sprintServiceImpl) GetActiveSprint(ctx context.Context) (*domain.Sprint, error) {
	sprint, err := s.sprintRepo.FindActive(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFoundError("No active sprint", "")
		}
		return nil, response.NewInternalError("Failed to load active sprint", err)
	}
	return sprint, nil
}

// UpdateSprint edits a PLANNING sprint
func (s *sprintServiceImpl) UpdateSprint(ctx context.Context, id uuid.UUID, in UpdateSprintInput) (*domain.Sprint, error) {
	sprint, err := s.sprintRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Sprint", id)
	}
	if sprint.Status != domain.SprintStatusPlanning {
		return nil, response.NewInvalidStateError(msgOnlyPlanningEdit, string(sprint.Status))
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, response.NewAppError(response.ErrCodeInvalidArgument, "Sprint name is required", "")
		}
		sprint.Name = name
	}
	if in.Goal != nil {
		sprint.Goal = *in.Goal
	}
	if in.StartDate != nil {
		sprint.StartDate = datatypes.Date(clock.DateOf(*in.StartDate))
	}
	if in.EndDate != nil {
		sprint.EndDate = datatypes.Date(clock.DateOf(*in.EndDate))
	}

	// a stored start date that has since slipped into the past is not re-checked
	if err := s.validateDates(sprint.Start(), sprint.End(), in.StartDate != nil); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	updated, err := s.sprintRepo.UpdatePlanning(ctx, sprint, now)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, response.NewConflictError(msgSprintNameTaken, sprint.Name)
		}
		return nil, response.NewInternalError("Failed to update sprint", err)
	}
	if !updated {
		return nil, response.NewInvalidStateError(msgOnlyPlanningEdit, "sprint status changed concurrently")
	}

	return s.GetSprint(ctx, id)
}

// StartSprint activates a PLANNING sprint.
// ACTIVE sprints that already ended are completed first, in the same transaction.
func (s *sprintServiceImpl) StartSprint(ctx context.Context, id uuid.UUID) (*domain.Sprint, error) {
	now := s.clock.Now()
	today := s.clock.Today()

	var expired *domain.Sprint
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		sprint, err := s.sprintRepo.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "Sprint", id)
		}
		if !sprint.Status.CanTransitionTo(domain.SprintStatusActive, domain.TransitionUser) {
			return response.NewInvalidStateError(msgOnlyPlanning, string(sprint.Status))
		}
		if sprint.IsExpired(today) {
			return response.NewAppError(response.ErrCodeInvalidDateRange, msgSprintEnded, sprint.End().Format("2006-01-02"))
		}

		active, err := s.sprintRepo.FindActive(ctx)
		switch {
		case err == nil:
			if !active.IsExpired(today) {
				return response.NewConflictError(msgActiveExists, active.ID.String())
			}
			completed, err := s.sprintRepo.Complete(ctx, active.ID,
				[]domain.SprintStatus{domain.SprintStatusActive}, domain.CompletionReasonExpired, now)
			if err != nil {
				return response.NewInternalError("Failed to complete expired sprint", err)
			}
			if completed {
				expired = active
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return response.NewInternalError("Failed to load active sprint", err)
		}

		start := sprint.Start()
		if start.Before(today) {
			start = today
		}

		activated, err := s.sprintRepo.Activate(ctx, id, start, now)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return response.NewConflictError(msgActiveExists, "")
			}
			return response.NewInternalError("Failed to start sprint", err)
		}
		if activated {
			return nil
		}

		// lost a race: either this sprint left PLANNING or another sprint became ACTIVE
		current, err := s.sprintRepo.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "Sprint", id)
		}
		if current.Status != domain.SprintStatusPlanning {
			return response.NewInvalidStateError(msgOnlyPlanning, string(current.Status))
		}
		return response.NewConflictError(msgActiveExists, "")
	})
	if err != nil {
		return nil, passThrough(err, "Failed to start sprint")
	}

	if expired != nil {
		s.recordCompletion(ctx, expired, domain.SprintStatusActive, domain.CompletionReasonExpired)
	}

	sprint, err := s.GetSprint(ctx, id)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordSprintTransition(string(domain.SprintStatusPlanning), string(domain.SprintStatusActive), string(domain.TransitionUser))
	s.logger.Info("Sprint started",
		zap.String("sprint_id", id.String()),
		zap.Time("start_date", sprint.Start()))
	notify(ctx, s.notifier, s.logger, client.NotificationEvent{
		Type:         client.NotificationSprintStarted,
		TargetUserID: sprint.CreatedBy,
		ResourceType: "sprint",
		ResourceID:   sprint.ID,
		ResourceName: sprint.Name,
	})

	return sprint, nil
}

// CompleteSprint completes an ACTIVE sprint that has no IN_PROGRESS task.
// Task rows are left as they are.
func (s *sprintServiceImpl) CompleteSprint(ctx context.Context, id uuid.UUID) (*domain.Sprint, error) {
	now := s.clock.Now()

	var sprint *domain.Sprint
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		sprint, err = s.sprintRepo.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "Sprint", id)
		}
		if !sprint.Status.CanTransitionTo(domain.SprintStatusCompleted, domain.TransitionUser) {
			return response.NewInvalidStateError(msgOnlyActive, string(sprint.Status))
		}

		counts, err := s.taskRepo.CountBySprintAndStatus(ctx, id)
		if err != nil {
			return response.NewInternalError("Failed to count sprint tasks", err)
		}
		if n := counts[domain.TaskStatusInProgress]; n > 0 {
			return response.NewInvalidStateError(msgUnfinishedTasks, "")
		}

		// a task may have started since the count; the update re-checks it
		completed, err := s.sprintRepo.CompleteIfFinished(ctx, id, domain.CompletionReasonManual, now)
		if err != nil {
			return response.NewInternalError("Failed to complete sprint", err)
		}
		if !completed {
			current, err := s.sprintRepo.FindByID(ctx, id)
			if err == nil && current.Status == domain.SprintStatusActive {
				return response.NewInvalidStateError(msgUnfinishedTasks, "")
			}
			return response.NewInvalidStateError(msgOnlyActive, "sprint status changed concurrently")
		}
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "Failed to complete sprint")
	}

	s.recordCompletion(ctx, sprint, domain.SprintStatusActive, domain.CompletionReasonManual)
	return s.GetSprint(ctx, id)
}

// CancelSprint force-completes a sprint from any status. A COMPLETED sprint is returned unchanged.
func (s *sprintServiceImpl) CancelSprint(ctx context.Context, id uuid.UUID) (*domain.Sprint, error) {
	sprint, err := s.sprintRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Sprint", id)
	}
	if !sprint.Status.CanTransitionTo(domain.SprintStatusCompleted, domain.TransitionOverride) {
		return nil, response.NewInvalidStateError("sprint cannot be cancelled", string(sprint.Status))
	}
	if sprint.Status == domain.SprintStatusCompleted {
		return sprint, nil
	}

	completed, err := s.sprintRepo.Complete(ctx, id,
		[]domain.SprintStatus{domain.SprintStatusPlanning, domain.SprintStatusActive},
		domain.CompletionReasonCancelled, s.clock.Now())
	if err != nil {
		return nil, response.NewInternalError("Failed to cancel sprint", err)
	}
	if completed {
		s.recordCompletion(ctx, sprint, sprint.Status, domain.CompletionReasonCancelled)
	}

	return s.GetSprint(ctx, id)
}

// DeleteSprint moves the sprint's tasks to the backlog and removes the sprint
func (s *sprintServiceImpl) DeleteSprint(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.sprintRepo.FindByID(ctx, id); err != nil {
			return lookupError(err, "Sprint", id)
		}
		if err := s.taskRepo.DetachFromSprint(ctx, id); err != nil {
			return response.NewInternalError("Failed to move sprint tasks to backlog", err)
		}
		if err := s.sprintRepo.Delete(ctx, id); err != nil {
			return response.NewInternalError("Failed to delete sprint", err)
		}
		return nil
	})
	if err != nil {
		return passThrough(err, "Failed to delete sprint")
	}

	s.logger.Info("Sprint deleted", zap.String("sprint_id", id.String()))
	return nil
}

// GetSprintStats counts the sprint's tasks per status; CompletionRate is a percentage
func (s *sprintServiceImpl) GetSprintStats(ctx context.Context, id uuid.UUID) (*domain.SprintStats, error) {
	if _, err := s.sprintRepo.FindByID(ctx, id); err != nil {
		return nil, lookupError(err, "Sprint", id)
	}

	counts, err := s.taskRepo.CountBySprintAndStatus(ctx, id)
	if err != nil {
		return nil, response.NewInternalError("Failed to count sprint tasks", err)
	}

	stats := &domain.SprintStats{
		SprintID:        id,
		TodoTasks:       counts[domain.TaskStatusTodo],
		InProgressTasks: counts[domain.TaskStatusInProgress],
		DoneTasks:       counts[domain.TaskStatusDone],
	}
	stats.TotalTasks = stats.TodoTasks + stats.InProgressTasks + stats.DoneTasks
	if stats.TotalTasks > 0 {
		stats.CompletionRate = float64(stats.DoneTasks) / float64(stats.TotalTasks) * 100
	}
	return stats, nil
}

// CompleteExpiredSprints completes every ACTIVE sprint whose end date is before today.
// Unfinished tasks do not block it. Each sprint commits on its own; a failure is recorded and the sweep moves on.
func (s *sprintServiceImpl) CompleteExpiredSprints(ctx context.Context) (*SweepResult, error) {
	today := s.clock.Today()

	sprints, err := s.sprintRepo.FindExpiredActive(ctx, today)
	if err != nil {
		return nil, response.NewInternalError("Failed to find expired sprints", err)
	}

	result := &SweepResult{Scanned: len(sprints)}
	var events []client.NotificationEvent
	for _, sprint := range sprints {
		var completed bool
		err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			var err error
			completed, err = s.sprintRepo.Complete(ctx, sprint.ID,
				[]domain.SprintStatus{domain.SprintStatusActive}, domain.CompletionReasonExpired, s.clock.Now())
			return err
		})
		if err != nil {
			result.Failed++
			result.FailedIDs = append(result.FailedIDs, sprint.ID)
			s.logger.Error("Failed to complete expired sprint",
				zap.String("sprint_id", sprint.ID.String()),
				zap.Error(err))
			continue
		}
		if !completed {
			// completed by someone else since the scan
			continue
		}

		result.Completed++
		s.metrics.RecordSprintTransition(string(domain.SprintStatusActive), string(domain.SprintStatusCompleted), string(domain.CompletionReasonExpired))
		s.logger.Info("Expired sprint completed",
			zap.String("sprint_id", sprint.ID.String()),
			zap.Time("end_date", sprint.End()))
		events = append(events, sprintCompletedEvent(sprint, domain.CompletionReasonExpired))
	}

	if len(events) > 0 && s.notifier != nil {
		if err := s.notifier.SendBulkNotifications(ctx, events); err != nil {
			s.logger.Warn("Failed to send sprint completion notifications", zap.Error(err))
		}
	}

	return result, nil
}

func (s *sprintServiceImpl) recordCompletion(ctx context.Context, sprint *domain.Sprint, from domain.SprintStatus, reason domain.CompletionReason) {
	s.metrics.RecordSprintTransition(string(from), string(domain.SprintStatusCompleted), string(reason))
	s.logger.Info("Sprint completed",
		zap.String("sprint_id", sprint.ID.String()),
		zap.String("reason", string(reason)))
	notify(ctx, s.notifier, s.logger, sprintCompletedEvent(sprint, reason))
}

func sprintCompletedEvent(sprint *domain.Sprint, reason domain.CompletionReason) client.NotificationEvent {
	return client.NotificationEvent{
		Type:         client.NotificationSprintCompleted,
		TargetUserID: sprint.CreatedBy,
		ResourceType: "sprint",
		ResourceID:   sprint.ID,
		ResourceName: sprint.Name,
		Metadata:     map[string]interface{}{"reason": string(reason)},
	}
}

package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"project-workflow-api/internal/client"
	"project-workflow-api/internal/clock"
	"project-workflow-api/internal/domain"
	"project-workflow-api/internal/metrics"
	"project-workflow-api/internal/ordering"
	"project-workflow-api/internal/repository"
	"project-workflow-api/internal/response"
)

const (
	msgTaskNeedsSprint    = "task must be created within a sprint"
	msgSprintClosed       = "can only create task in planning or active sprint"
	msgMoveIntoClosed     = "can only move task into planning or active sprint"
	msgInvalidTransition  = "invalid status change"
	msgTaskTitleRequired  = "Task title is required"
	msgTaskStatusConflict = "task status changed concurrently"
)

// CreateTaskInput carries the fields of a new task
type CreateTaskInput struct {
	Title         string
	Description   string
	Priority      domain.TaskPriority
	SprintID      *uuid.UUID
	ColumnID      *uuid.UUID
	AssigneeID    *uuid.UUID
	AttachmentIDs []uuid.UUID
}

// UpdateTaskInput is a partial update; nil fields are left unchanged.
// AssigneeID set to uuid.Nil clears the assignee.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Priority    *domain.TaskPriority
	AssigneeID  *uuid.UUID
}

// TaskService defines the task lifecycle operations
type TaskService interface {
	CreateTask(ctx context.Context, in CreateTaskInput, actorID uuid.UUID) (*domain.Task, error)
	GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	ListSprintTasks(ctx context.Context, sprintID uuid.UUID) ([]*domain.Task, error)
	ListBacklog(ctx context.Context) ([]*domain.Task, error)
	UpdateTask(ctx context.Context, id uuid.UUID, in UpdateTaskInput, actorID uuid.UUID) (*domain.Task, error)
	UpdateTaskStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus) (*domain.Task, error)
	MoveTaskToSprint(ctx context.Context, id, sprintID uuid.UUID) (*domain.Task, error)
	MoveTaskToBacklog(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID) error
	AddComment(ctx context.Context, taskID uuid.UUID, content string, actorID uuid.UUID) (*domain.Comment, error)
	ListComments(ctx context.Context, taskID uuid.UUID) ([]*domain.Comment, error)
}

type taskServiceImpl struct {
	tx             repository.Transactor
	taskRepo       repository.TaskRepository
	sprintRepo     repository.SprintRepository
	columnRepo     repository.ColumnRepository
	userRepo       repository.UserRepository
	commentRepo    repository.CommentRepository
	attachmentRepo repository.AttachmentRepository
	objectStore    client.ObjectStore
	clock          clock.Clock
	notifier       client.NotificationClient
	metrics        *metrics.Metrics
	logger         *zap.Logger
}

// NewTaskService creates a new instance of TaskService.
// objectStore may be nil when object storage is not configured.
func NewTaskService(
	tx repository.Transactor,
	taskRepo repository.TaskRepository,
	sprintRepo repository.SprintRepository,
	columnRepo repository.ColumnRepository,
	userRepo repository.UserRepository,
	commentRepo repository.CommentRepository,
	attachmentRepo repository.AttachmentRepository,
	objectStore client.ObjectStore,
	clk clock.Clock,
	notifier client.NotificationClient,
	m *metrics.Metrics,
	logger *zap.Logger,
) TaskService {
	return &taskServiceImpl{
		tx:             tx,
		taskRepo:       taskRepo,
		sprintRepo:     sprintRepo,
		columnRepo:     columnRepo,
		userRepo:       userRepo,
		commentRepo:    commentRepo,
		attachmentRepo: attachmentRepo,
		objectStore:    objectStore,
		clock:          clk,
		notifier:       notifier,
		metrics:        m,
		logger:         logger,
	}
}

// CreateTask creates a TODO task inside a PLANNING or ACTIVE sprint, reported by the actor
func (s *taskServiceImpl) CreateTask(ctx context.Context, in CreateTaskInput, actorID uuid.UUID) (*domain.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, response.NewAppError(response.ErrCodeInvalidArgument, msgTaskTitleRequired, "")
	}
	if in.SprintID == nil {
		return nil, response.NewAppError(response.ErrCodeInvalidArgument, msgTaskNeedsSprint, "")
	}

	priority := in.Priority
	if priority == "" {
		priority = domain.TaskPriorityMedium
	}

	task := &domain.Task{
		Title:       title,
		Description: in.Description,
		Priority:    priority,
		Status:      domain.TaskStatusTodo,
		SprintID:    in.SprintID,
		AssigneeID:  in.AssigneeID,
		ReporterID:  actorID,
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		sprint, err := s.sprintRepo.FindByID(ctx, *in.SprintID)
		if err != nil {
			return lookupError(err, "Sprint", *in.SprintID)
		}
		if !sprint.Status.AcceptsTasks() {
			return response.NewInvalidStateError(msgSprintClosed, string(sprint.Status))
		}
		if !priority.IsValid() {
			return response.NewAppError(response.ErrCodeInvalidArgument, "Invalid task priority", string(priority))
		}
		if err := requireUser(ctx, s.userRepo, actorID); err != nil {
			return err
		}
		if in.AssigneeID != nil {
			if err := requireUser(ctx, s.userRepo, *in.AssigneeID); err != nil {
				return err
			}
		}

		if in.ColumnID != nil {
			if _, err := s.columnRepo.FindByID(ctx, *in.ColumnID); err != nil {
				return lookupError(err, "Column", *in.ColumnID)
			}
			count, err := s.taskRepo.CountByColumnID(ctx, *in.ColumnID)
			if err != nil {
				return response.NewInternalError("Failed to count column tasks", err)
			}
			task.ColumnID = in.ColumnID
			task.Position = ordering.Append(int(count))
		}

		if err := s.taskRepo.Create(ctx, task); err != nil {
			return response.NewInternalError("Failed to create task", err)
		}

		if len(in.AttachmentIDs) > 0 {
			ids := removeDuplicateUUIDs(in.AttachmentIDs)
			if err := s.attachmentRepo.ConfirmAttachments(ctx, ids, task.ID); err != nil {
				return response.NewAppError(response.ErrCodeInvalidArgument,
					"Failed to confirm attachments", err.Error())
			}
		}
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "Failed to create task")
	}

	s.metrics.IncrementTaskCreated()
	s.logger.Info("Task created",
		zap.String("task_id", task.ID.String()),
		zap.String("sprint_id", in.SprintID.String()))

	if task.AssigneeID != nil && *task.AssigneeID != actorID {
		notify(ctx, s.notifier, s.logger, taskAssignedEvent(task, actorID))
	}

	return task, nil
}

func (s *taskServiceImpl) GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Task", id)
	}
	return task, nil
}

func (s *taskServiceImpl) ListSprintTasks(ctx context.Context, sprintID uuid.UUID) ([]*domain.Task, error) {
	if _, err := s.sprintRepo.FindByID(ctx, sprintID); err != nil {
		return nil, lookupError(err, "Sprint", sprintID)
	}
	tasks, err := s.taskRepo.FindBySprintID(ctx, sprintID)
	if err != nil {
		return nil, response.NewInternalError("Failed to list sprint tasks", err)
	}
	return tasks, nil
}

// ListBacklog returns the tasks that belong to no sprint
func (s *taskServiceImpl) ListBacklog(ctx context.Context) ([]*domain.Task, error) {
	tasks, err := s.taskRepo.FindBacklog(ctx)
	if err != nil {
		return nil, response.NewInternalError("Failed to list backlog", err)
	}
	return tasks, nil
}

// UpdateTask edits the descriptive fields of a task. Status is changed only through UpdateTaskStatus.
func (s *taskServiceImpl) UpdateTask(ctx context.Context, id uuid.UUID, in UpdateTaskInput, actorID uuid.UUID) (*domain.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Task", id)
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, response.NewAppError(response.ErrCodeInvalidArgument, msgTaskTitleRequired, "")
		}
		task.Title = title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.Priority != nil {
		if !in.Priority.IsValid() {
			return nil, response.NewAppError(response.ErrCodeInvalidArgument, "Invalid task priority", string(*in.Priority))
		}
		task.Priority = *in.Priority
	}

	reassigned := false
	if in.AssigneeID != nil {
		if *in.AssigneeID == uuid.Nil {
			task.AssigneeID = nil
		} else {
			if err := requireUser(ctx, s.userRepo, *in.AssigneeID); err != nil {
				return nil, err
			}
			assignee := *in.AssigneeID
			reassigned = task.AssigneeID == nil || *task.AssigneeID != assignee
			task.AssigneeID = &assignee
		}
	}

	if err := s.taskRepo.UpdateDetails(ctx, task); err != nil {
		return nil, response.NewInternalError("Failed to update task", err)
	}
	// status and placement may have moved since the read
	if fresh, err := s.taskRepo.FindByID(ctx, id); err == nil {
		task = fresh
	}

	if reassigned && *task.AssigneeID != actorID {
		notify(ctx, s.notifier, s.logger, taskAssignedEvent(task, actorID))
	}
	return task, nil
}

// UpdateTaskStatus moves a task along TODO -> IN_PROGRESS -> DONE (or back to TODO from IN_PROGRESS).
// Requesting the current status is a no-op.
func (s *taskServiceImpl) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus) (*domain.Task, error) {
	if !status.IsValid() {
		return nil, response.NewAppError(response.ErrCodeInvalidArgument, "Invalid task status", string(status))
	}

	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Task", id)
	}

	from := task.Status
	if from == status {
		return task, nil
	}
	if !from.CanTransitionTo(status) {
		return nil, response.NewAppError(response.ErrCodeInvalidTransition, msgInvalidTransition,
			string(from)+" -> "+string(status))
	}

	now := s.clock.Now()
	task.Status = status
	task.UpdatedAt = now
	switch status {
	case domain.TaskStatusInProgress:
		if task.StartedAt == nil {
			task.StartedAt = &now
		}
		task.CompletedAt = nil
	case domain.TaskStatusDone:
		task.CompletedAt = &now
	case domain.TaskStatusTodo:
		task.StartedAt = nil
		task.CompletedAt = nil
	}

	updated, err := s.taskRepo.UpdateStatus(ctx, task, from)
	if err != nil {
		return nil, response.NewInternalError("Failed to update task status", err)
	}
	if !updated {
		return nil, response.NewConflictError(msgTaskStatusConflict, task.ID.String())
	}

	s.metrics.RecordTaskTransition(string(from), string(status))
	s.logger.Info("Task status changed",
		zap.String("task_id", task.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(status)))

	return task, nil
}

// MoveTaskToSprint reassigns a task to a PLANNING or ACTIVE sprint; column placement is kept
func (s *taskServiceImpl) MoveTaskToSprint(ctx context.Context, id, sprintID uuid.UUID) (*domain.Task, error) {
	var task *domain.Task
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		task, err = s.taskRepo.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "Task", id)
		}
		sprint, err := s.sprintRepo.FindByID(ctx, sprintID)
		if err != nil {
			return lookupError(err, "Sprint", sprintID)
		}
		if !sprint.Status.AcceptsTasks() {
			return response.NewInvalidStateError(msgMoveIntoClosed, string(sprint.Status))
		}

		task.SprintID = &sprintID
		if err := s.taskRepo.UpdateSprint(ctx, id, &sprintID); err != nil {
			return response.NewInternalError("Failed to move task", err)
		}
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "Failed to move task")
	}
	return task, nil
}

// MoveTaskToBacklog detaches a task from its sprint
func (s *taskServiceImpl) MoveTaskToBacklog(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Task", id)
	}
	if task.SprintID == nil {
		return task, nil
	}

	task.SprintID = nil
	if err := s.taskRepo.UpdateSprint(ctx, id, nil); err != nil {
		return nil, response.NewInternalError("Failed to move task to backlog", err)
	}
	return task, nil
}

// DeleteTask removes a task with its comments and attachments and closes the gap in its column.
// Attachment objects are deleted from object storage after commit, best effort.
func (s *taskServiceImpl) DeleteTask(ctx context.Context, id uuid.UUID) error {
	var objectKeys []string
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		task, err := s.taskRepo.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "Task", id)
		}

		attachments, err := s.attachmentRepo.FindByTaskID(ctx, id)
		if err != nil {
			return response.NewInternalError("Failed to load attachments", err)
		}
		for _, attachment := range attachments {
			objectKeys = append(objectKeys, attachment.ObjectKey)
		}

		if err := s.commentRepo.DeleteByTaskID(ctx, id); err != nil {
			return response.NewInternalError("Failed to delete comments", err)
		}
		if err := s.attachmentRepo.DeleteByTaskID(ctx, id); err != nil {
			return response.NewInternalError("Failed to delete attachments", err)
		}
		if err := s.taskRepo.Delete(ctx, id); err != nil {
			return response.NewInternalError("Failed to delete task", err)
		}

		if task.ColumnID == nil {
			return nil
		}
		siblings, err := s.taskRepo.FindByColumnID(ctx, *task.ColumnID)
		if err != nil {
			return response.NewInternalError("Failed to load column tasks", err)
		}
		shifted := ordering.Remove(siblings, task)
		if err := s.taskRepo.UpdatePlacements(ctx, shifted); err != nil {
			return response.NewInternalError("Failed to compact column", err)
		}
		s.metrics.RecordPositionUpdates("tasks", len(shifted))
		return nil
	})
	if err != nil {
		return passThrough(err, "Failed to delete task")
	}

	s.logger.Info("Task deleted",
		zap.String("task_id", id.String()),
		zap.Int("attachments", len(objectKeys)))

	if s.objectStore == nil {
		return nil
	}
	for _, key := range objectKeys {
		if err := s.objectStore.DeleteFile(ctx, key); err != nil {
			s.logger.Warn("Failed to delete attachment object",
				zap.String("task_id", id.String()),
				zap.String("object_key", key),
				zap.Error(err))
		}
	}
	return nil
}

// AddComment adds a comment by the actor to a task
func (s *taskServiceImpl) AddComment(ctx context.Context, taskID uuid.UUID, content string, actorID uuid.UUID) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, response.NewAppError(response.ErrCodeInvalidArgument, "Comment content is required", "")
	}
	if _, err := s.taskRepo.FindByID(ctx, taskID); err != nil {
		return nil, lookupError(err, "Task", taskID)
	}
	if err := requireUser(ctx, s.userRepo, actorID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{TaskID: taskID, AuthorID: actorID, Content: content}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, response.NewInternalError("Failed to create comment", err)
	}
	return comment, nil
}

func (s *taskServiceImpl) ListComments(ctx context.Context, taskID uuid.UUID) ([]*domain.Comment, error) {
	if _, err := s.taskRepo.FindByID(ctx, taskID); err != nil {
		return nil, lookupError(err, "Task", taskID)
	}
	comments, err := s.commentRepo.FindByTaskID(ctx, taskID)
	if err != nil {
		return nil, response.NewInternalError("Failed to list comments", err)
	}
	return comments, nil
}

func taskAssignedEvent(task *domain.Task, actorID uuid.UUID) client.NotificationEvent {
	return client.NotificationEvent{
		Type:         client.NotificationTaskAssigned,
		ActorID:      actorID,
		TargetUserID: *task.AssigneeID,
		ResourceType: "task",
		ResourceID:   task.ID,
		ResourceName: task.Title,
	}
}

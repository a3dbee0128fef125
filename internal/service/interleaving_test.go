package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"project-workflow-api/internal/domain"
	"project-workflow-api/internal/repository"
	"project-workflow-api/internal/response"
)

// The repositories below let a test commit a competing write between a service's read and its write.

type taskRepoAfterRead struct {
	repository.TaskRepository
	once      sync.Once
	afterRead func()
}

func (r *taskRepoAfterRead) FindByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := r.TaskRepository.FindByID(ctx, id)
	r.once.Do(r.afterRead)
	return task, err
}

type columnRepoAfterRead struct {
	repository.ColumnRepository
	once      sync.Once
	afterRead func()
}

func (r *columnRepoAfterRead) FindByID(ctx context.Context, id uuid.UUID) (*domain.BoardColumn, error) {
	column, err := r.ColumnRepository.FindByID(ctx, id)
	r.once.Do(r.afterRead)
	return column, err
}

type boardRepoAfterRead struct {
	repository.BoardRepository
	once      sync.Once
	afterRead func()
}

func (r *boardRepoAfterRead) FindByID(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	board, err := r.BoardRepository.FindByID(ctx, id)
	r.once.Do(r.afterRead)
	return board, err
}

// staleTaskCounts reports no tasks for any sprint, as a count taken before a task started would
type staleTaskCounts struct {
	repository.TaskRepository
}

func (r *staleTaskCounts) CountBySprintAndStatus(ctx context.Context, sprintID uuid.UUID) (map[domain.TaskStatus]int64, error) {
	return map[domain.TaskStatus]int64{}, nil
}

// sweepWithFailingSprint lists an extra sprint first and fails to complete it
type sweepWithFailingSprint struct {
	repository.SprintRepository
	failing *domain.Sprint
}

func (r *sweepWithFailingSprint) FindExpiredActive(ctx context.Context, today time.Time) ([]*domain.Sprint, error) {
	sprints, err := r.SprintRepository.FindExpiredActive(ctx, today)
	if err != nil {
		return nil, err
	}
	return append([]*domain.Sprint{r.failing}, sprints...), nil
}

func (r *sweepWithFailingSprint) Complete(ctx context.Context, id uuid.UUID, from []domain.SprintStatus, reason domain.CompletionReason, now time.Time) (bool, error) {
	if id == r.failing.ID {
		return false, errors.New("deadlock detected")
	}
	return r.SprintRepository.Complete(ctx, id, from, reason, now)
}

func TestTaskService_UpdateTask_KeepsConcurrentStatusChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sprint := env.startedSprint(t, "Active", 0, 7)
	column := env.createColumn(t, "Doing")
	task := env.createTask(t, "ship it", sprint.ID, &column.ID)
	_, err := env.tasks.UpdateTaskStatus(ctx, task.ID, domain.TaskStatusInProgress)
	require.NoError(t, err)

	repo := &taskRepoAfterRead{TaskRepository: env.taskRepo, afterRead: func() {
		_, err := env.tasks.UpdateTaskStatus(ctx, task.ID, domain.TaskStatusDone)
		require.NoError(t, err)
	}}
	tasks := NewTaskService(repository.NewTransactor(env.db), repo, env.sprintRepo, env.columnRepo, env.userRepo,
		env.commentRepo, env.attachmentRepo, env.store, env.clock, env.notifier, env.metrics, zap.NewNop())

	title := "ship it today"
	updated, err := tasks.UpdateTask(ctx, task.ID, UpdateTaskInput{Title: &title}, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusDone, updated.Status)

	stored := env.reloadTask(t, task.ID)
	assert.Equal(t, "ship it today", stored.Title)
	assert.Equal(t, domain.TaskStatusDone, stored.Status, "DONE must survive a concurrent edit")
	assert.NotNil(t, stored.CompletedAt)
	require.NotNil(t, stored.ColumnID)
	assert.Equal(t, column.ID, *stored.ColumnID)
}

func TestTaskService_MoveTaskToBacklog_KeepsConcurrentStatusChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sprint := env.startedSprint(t, "Active", 0, 7)
	task := env.createTask(t, "ship it", sprint.ID, nil)

	repo := &taskRepoAfterRead{TaskRepository: env.taskRepo, afterRead: func() {
		_, err := env.tasks.UpdateTaskStatus(ctx, task.ID, domain.TaskStatusInProgress)
		require.NoError(t, err)
	}}
	tasks := NewTaskService(repository.NewTransactor(env.db), repo, env.sprintRepo, env.columnRepo, env.userRepo,
		env.commentRepo, env.attachmentRepo, env.store, env.clock, env.notifier, env.metrics, zap.NewNop())

	_, err := tasks.MoveTaskToBacklog(ctx, task.ID)
	require.NoError(t, err)

	stored := env.reloadTask(t, task.ID)
	assert.Nil(t, stored.SprintID)
	assert.Equal(t, domain.TaskStatusInProgress, stored.Status)
	assert.NotNil(t, stored.StartedAt)
}

func TestColumnService_UpdateColumn_KeepsConcurrentReorder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.createColumn(t, "A")
	b := env.createColumn(t, "B")
	c := env.createColumn(t, "C")

	repo := &columnRepoAfterRead{ColumnRepository: env.columnRepo, afterRead: func() {
		_, err := env.columns.ReorderColumns(ctx, env.board.ID, []uuid.UUID{c.ID, b.ID, a.ID})
		require.NoError(t, err)
	}}
	columns := NewColumnService(repository.NewTransactor(env.db), repo, env.boardRepo, env.taskRepo, env.metrics, zap.NewNop())

	name := "Renamed"
	updated, err := columns.UpdateColumn(ctx, a.ID, UpdateColumnInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Position)

	assert.Equal(t, []uuid.UUID{c.ID, b.ID, a.ID}, columnIDs(t, env))
	stored, err := env.columnRepo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Name)
}

func TestBoardService_UpdateBoard_KeepsConcurrentDesignation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.boards.SetActiveBoard(ctx, env.board.ID)
	require.NoError(t, err)
	second, err := env.boards.CreateBoard(ctx, CreateBoardInput{Name: "Second"}, env.user.ID)
	require.NoError(t, err)

	repo := &boardRepoAfterRead{BoardRepository: env.boardRepo, afterRead: func() {
		_, err := env.boards.SetActiveBoard(ctx, second.ID)
		require.NoError(t, err)
	}}
	boards := NewBoardService(repository.NewTransactor(env.db), repo, env.columnRepo, env.taskRepo, env.sprintRepo,
		env.userRepo, env.metrics, zap.NewNop())

	description := "main board"
	updated, err := boards.UpdateBoard(ctx, env.board.ID, UpdateBoardInput{Description: &description})
	require.NoError(t, err, "a stale designation flag must not be written back")
	assert.False(t, updated.IsDesignated)

	active, err := env.boards.GetActiveBoard(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
}

func TestBoardService_ArchiveBoard_KeepsConcurrentRename(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	repo := &boardRepoAfterRead{BoardRepository: env.boardRepo, afterRead: func() {
		name := "Renamed"
		_, err := env.boards.UpdateBoard(ctx, env.board.ID, UpdateBoardInput{Name: &name})
		require.NoError(t, err)
	}}
	boards := NewBoardService(repository.NewTransactor(env.db), repo, env.columnRepo, env.taskRepo, env.sprintRepo,
		env.userRepo, env.metrics, zap.NewNop())

	archived, err := boards.ArchiveBoard(ctx, env.board.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BoardStatusArchived, archived.Status)
	assert.Equal(t, "Renamed", archived.Name)
}

func TestSprintService_CompleteSprint_RechecksTasksOnWrite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sprint := env.startedSprint(t, "Active", 0, 7)
	task := env.createTask(t, "started late", sprint.ID, nil)
	_, err := env.tasks.UpdateTaskStatus(ctx, task.ID, domain.TaskStatusInProgress)
	require.NoError(t, err)

	sprints := NewSprintService(repository.NewTransactor(env.db), env.sprintRepo, &staleTaskCounts{env.taskRepo},
		env.boardRepo, env.userRepo, env.clock, env.notifier, env.metrics, zap.NewNop())

	_, err = sprints.CompleteSprint(ctx, sprint.ID)
	assertMessage(t, err, response.ErrCodeInvalidState, "sprint has unfinished tasks")
	assert.Equal(t, domain.SprintStatusActive, env.reloadSprint(t, sprint.ID).Status)
}

func TestSprintService_CompleteExpiredSprints_FailureDoesNotStopSweep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	expired := env.startedSprint(t, "Expired", 0, 1)
	// uq_sprints_single_active allows one ACTIVE row, so the failing entry is injected into the scan
	failing := env.createSprint(t, "Failing", 0, 1)

	repo := &sweepWithFailingSprint{SprintRepository: env.sprintRepo, failing: failing}
	sprints := NewSprintService(repository.NewTransactor(env.db), repo, env.taskRepo, env.boardRepo, env.userRepo,
		env.clock, env.notifier, env.metrics, zap.NewNop())

	env.clock.Advance(48 * time.Hour)
	result, err := sprints.CompleteExpiredSprints(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 1, result.Completed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []uuid.UUID{failing.ID}, result.FailedIDs)
	assert.Equal(t, domain.SprintStatusCompleted, env.reloadSprint(t, expired.ID).Status)
	assert.Equal(t, domain.SprintStatusPlanning, env.reloadSprint(t, failing.ID).Status)
}

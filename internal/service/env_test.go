package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"project-workflow-api/internal/client"
	"project-workflow-api/internal/clock"
	"project-workflow-api/internal/domain"
	"project-workflow-api/internal/metrics"
	"project-workflow-api/internal/repository"
	"project-workflow-api/internal/response"
	"project-workflow-api/internal/testutil"
)

// 2025-03-10 (Mon) 09:30 UTC
var testNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

// MockNotificationClient is a mock implementation of client.NotificationClient
type MockNotificationClient struct {
	mock.Mock
}

func (m *MockNotificationClient) SendNotification(ctx context.Context, event client.NotificationEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockNotificationClient) SendBulkNotifications(ctx context.Context, events []client.NotificationEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockObjectStore is a mock implementation of client.ObjectStore
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) DeleteFile(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type testEnv struct {
	db       *gorm.DB
	clock    *clock.Fixed
	notifier *MockNotificationClient
	store    *MockObjectStore
	metrics  *metrics.Metrics

	sprintRepo     repository.SprintRepository
	taskRepo       repository.TaskRepository
	columnRepo     repository.ColumnRepository
	boardRepo      repository.BoardRepository
	userRepo       repository.UserRepository
	commentRepo    repository.CommentRepository
	attachmentRepo repository.AttachmentRepository

	sprints SprintService
	tasks   TaskService
	columns ColumnService
	boards  BoardService

	user  *domain.User
	board *domain.Board
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	env := &testEnv{
		db:             db,
		clock:          clock.NewFixed(testNow),
		notifier:       &MockNotificationClient{},
		store:          &MockObjectStore{},
		metrics:        metrics.NewWithRegistry(prometheus.NewRegistry(), zap.NewNop()),
		sprintRepo:     repository.NewSprintRepository(db),
		taskRepo:       repository.NewTaskRepository(db),
		columnRepo:     repository.NewColumnRepository(db),
		boardRepo:      repository.NewBoardRepository(db),
		userRepo:       repository.NewUserRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		attachmentRepo: repository.NewAttachmentRepository(db),
	}
	env.notifier.On("SendNotification", mock.Anything, mock.Anything).Return(nil).Maybe()
	env.notifier.On("SendBulkNotifications", mock.Anything, mock.Anything).Return(nil).Maybe()

	tx := repository.NewTransactor(db)
	logger := zap.NewNop()
	env.sprints = NewSprintService(tx, env.sprintRepo, env.taskRepo, env.boardRepo, env.userRepo,
		env.clock, env.notifier, env.metrics, logger)
	env.tasks = NewTaskService(tx, env.taskRepo, env.sprintRepo, env.columnRepo, env.userRepo,
		env.commentRepo, env.attachmentRepo, env.store, env.clock, env.notifier, env.metrics, logger)
	env.columns = NewColumnService(tx, env.columnRepo, env.boardRepo, env.taskRepo, env.metrics, logger)
	env.boards = NewBoardService(tx, env.boardRepo, env.columnRepo, env.taskRepo, env.sprintRepo,
		env.userRepo, env.metrics, logger)

	env.user = env.createUser(t, "alice")
	env.board = &domain.Board{Name: "Main", Status: domain.BoardStatusActive, CreatedBy: env.user.ID}
	require.NoError(t, env.boardRepo.Create(context.Background(), env.board))

	return env
}

func (e *testEnv) createUser(t *testing.T, username string) *domain.User {
	t.Helper()
	user := &domain.User{Username: username, Email: username + "@example.com"}
	require.NoError(t, e.userRepo.Create(context.Background(), user))
	return user
}

// today returns the fixed clock's date shifted by days
func (e *testEnv) today(days int) time.Time {
	return e.clock.Today().AddDate(0, 0, days)
}

func (e *testEnv) createSprint(t *testing.T, name string, startOffset, endOffset int) *domain.Sprint {
	t.Helper()
	sprint, err := e.sprints.CreateSprint(context.Background(), CreateSprintInput{
		Name:      name,
		StartDate: e.today(startOffset),
		EndDate:   e.today(endOffset),
		BoardID:   e.board.ID,
	}, e.user.ID)
	require.NoError(t, err)
	return sprint
}

func (e *testEnv) startedSprint(t *testing.T, name string, startOffset, endOffset int) *domain.Sprint {
	t.Helper()
	sprint := e.createSprint(t, name, startOffset, endOffset)
	started, err := e.sprints.StartSprint(context.Background(), sprint.ID)
	require.NoError(t, err)
	return started
}

func (e *testEnv) createTask(t *testing.T, title string, sprintID uuid.UUID, columnID *uuid.UUID) *domain.Task {
	t.Helper()
	task, err := e.tasks.CreateTask(context.Background(), CreateTaskInput{
		Title:    title,
		SprintID: &sprintID,
		ColumnID: columnID,
	}, e.user.ID)
	require.NoError(t, err)
	return task
}

func (e *testEnv) createColumn(t *testing.T, name string) *domain.BoardColumn {
	t.Helper()
	column, err := e.columns.CreateColumn(context.Background(), e.board.ID, name, "")
	require.NoError(t, err)
	return column
}

func (e *testEnv) reloadSprint(t *testing.T, id uuid.UUID) *domain.Sprint {
	t.Helper()
	sprint, err := e.sprintRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return sprint
}

func (e *testEnv) reloadTask(t *testing.T, id uuid.UUID) *domain.Task {
	t.Helper()
	task, err := e.taskRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return task
}

// columnOrder returns the task IDs of a column in position order and checks density
func (e *testEnv) columnOrder(t *testing.T, columnID uuid.UUID) []uuid.UUID {
	t.Helper()
	tasks, err := e.taskRepo.FindByColumnID(context.Background(), columnID)
	require.NoError(t, err)
	ids := make([]uuid.UUID, len(tasks))
	for i, task := range tasks {
		assert.Equal(t, i, task.Position, "positions in column %s must be dense", columnID)
		ids[i] = task.ID
	}
	return ids
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, response.CodeOf(err), "unexpected error: %v", err)
}

func assertMessage(t *testing.T, err error, code, message string) {
	t.Helper()
	assertCode(t, err, code)
	var appErr *response.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, message, appErr.Message)
}

func idsOf(items ...interface{ GetID() uuid.UUID }) []uuid.UUID {
	out := make([]uuid.UUID, len(items))
	for i, item := range items {
		out[i] = item.GetID()
	}
	return out
}

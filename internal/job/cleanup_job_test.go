package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"project-workflow-api/internal/clock"
	"project-workflow-api/internal/domain"
)

// MockAttachmentRepository is a mock implementation of AttachmentRepository
type MockAttachmentRepository struct {
	mock.Mock
}

func (m *MockAttachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	args := m.Called(ctx, attachment)
	return args.Error(0)
}

func (m *MockAttachmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Attachment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Attachment), args.Error(1)
}

func (m *MockAttachmentRepository) FindByTaskID(ctx context.Context, taskID uuid.UUID) ([]*domain.Attachment, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Attachment), args.Error(1)
}

func (m *MockAttachmentRepository) FindExpiredTempAttachments(ctx context.Context, now time.Time) ([]*domain.Attachment, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Attachment), args.Error(1)
}

func (m *MockAttachmentRepository) ConfirmAttachments(ctx context.Context, attachmentIDs []uuid.UUID, taskID uuid.UUID) error {
	args := m.Called(ctx, attachmentIDs, taskID)
	return args.Error(0)
}

func (m *MockAttachmentRepository) DeleteByTaskID(ctx context.Context, taskID uuid.UUID) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}

func (m *MockAttachmentRepository) DeleteBatch(ctx context.Context, attachmentIDs []uuid.UUID) error {
	args := m.Called(ctx, attachmentIDs)
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

var cleanupNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func expiredAttachment(key string) *domain.Attachment {
	expiredAt := cleanupNow.Add(-2 * time.Hour)
	return &domain.Attachment{
		BaseModel:   domain.BaseModel{ID: uuid.New()},
		Status:      domain.AttachmentStatusTemp,
		FileName:    "file",
		ObjectKey:   key,
		FileSize:    1024,
		ContentType: "application/octet-stream",
		UploadedBy:  uuid.New(),
		ExpiresAt:   &expiredAt,
	}
}

func newCleanupJob(repo *MockAttachmentRepository, store *MockObjectStore) *CleanupJob {
	return NewCleanupJob(repo, store, clock.NewFixed(cleanupNow), time.Second, zap.NewNop())
}

func TestCleanupJob_Run_ExpiredFilesDeleted(t *testing.T) {
	mockRepo := new(MockAttachmentRepository)
	mockStore := new(MockObjectStore)
	job := newCleanupJob(mockRepo, mockStore)

	a1 := expiredAttachment("attachments/2025/03/a1.jpg")
	a2 := expiredAttachment("attachments/2025/03/a2.pdf")

	mockRepo.On("FindExpiredTempAttachments", mock.Anything, cleanupNow).Return([]*domain.Attachment{a1, a2}, nil)
	mockStore.On("DeleteFile", mock.Anything, "attachments/2025/03/a1.jpg").Return(nil)
	mockStore.On("DeleteFile", mock.Anything, "attachments/2025/03/a2.pdf").Return(nil)
	mockRepo.On("DeleteBatch", mock.Anything, []uuid.UUID{a1.ID, a2.ID}).Return(nil)

	job.Run()

	mockRepo.AssertExpectations(t)
	mockStore.AssertExpectations(t)
}

func TestCleanupJob_Run_NoExpiredFiles(t *testing.T) {
	mockRepo := new(MockAttachmentRepository)
	mockStore := new(MockObjectStore)
	job := newCleanupJob(mockRepo, mockStore)

	mockRepo.On("FindExpiredTempAttachments", mock.Anything, cleanupNow).Return([]*domain.Attachment{}, nil)

	deleted, failed := job.Cleanup(context.Background())

	assert.Zero(t, deleted)
	assert.Zero(t, failed)
	mockRepo.AssertExpectations(t)
	mockStore.AssertNotCalled(t, "DeleteFile", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "DeleteBatch", mock.Anything, mock.Anything)
}

func TestCleanupJob_Run_ObjectDeleteFailureKeepsRow(t *testing.T) {
	mockRepo := new(MockAttachmentRepository)
	mockStore := new(MockObjectStore)
	job := newCleanupJob(mockRepo, mockStore)

	a1 := expiredAttachment("attachments/a1.jpg")
	a2 := expiredAttachment("attachments/a2.pdf")

	mockRepo.On("FindExpiredTempAttachments", mock.Anything, cleanupNow).Return([]*domain.Attachment{a1, a2}, nil)
	mockStore.On("DeleteFile", mock.Anything, "attachments/a1.jpg").Return(errors.New("S3 error"))
	mockStore.On("DeleteFile", mock.Anything, "attachments/a2.pdf").Return(nil)
	// only the second row goes
	mockRepo.On("DeleteBatch", mock.Anything, []uuid.UUID{a2.ID}).Return(nil)

	deleted, failed := job.Cleanup(context.Background())

	assert.Equal(t, 1, deleted)
	assert.Equal(t, 1, failed)
	mockRepo.AssertExpectations(t)
	mockStore.AssertExpectations(t)
}

func TestCleanupJob_Run_MissingObjectKey(t *testing.T) {
	mockRepo := new(MockAttachmentRepository)
	mockStore := new(MockObjectStore)
	job := newCleanupJob(mockRepo, mockStore)

	broken := expiredAttachment("")
	mockRepo.On("FindExpiredTempAttachments", mock.Anything, cleanupNow).Return([]*domain.Attachment{broken}, nil)

	deleted, failed := job.Cleanup(context.Background())

	assert.Zero(t, deleted)
	assert.Equal(t, 1, failed)
	mockStore.AssertNotCalled(t, "DeleteFile", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "DeleteBatch", mock.Anything, mock.Anything)
}

func TestCleanupJob_Run_RepositoryFindError(t *testing.T) {
	mockRepo := new(MockAttachmentRepository)
	mockStore := new(MockObjectStore)
	job := newCleanupJob(mockRepo, mockStore)

	mockRepo.On("FindExpiredTempAttachments", mock.Anything, cleanupNow).Return(nil, errors.New("database error"))

	job.Run()

	mockRepo.AssertExpectations(t)
	mockStore.AssertNotCalled(t, "DeleteFile", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "DeleteBatch", mock.Anything, mock.Anything)
}

func TestCleanupJob_Run_BatchDeleteError(t *testing.T) {
	mockRepo := new(MockAttachmentRepository)
	mockStore := new(MockObjectStore)
	job := newCleanupJob(mockRepo, mockStore)

	a1 := expiredAttachment("attachments/a1.jpg")
	mockRepo.On("FindExpiredTempAttachments", mock.Anything, cleanupNow).Return([]*domain.Attachment{a1}, nil)
	mockStore.On("DeleteFile", mock.Anything, "attachments/a1.jpg").Return(nil)
	mockRepo.On("DeleteBatch", mock.Anything, []uuid.UUID{a1.ID}).Return(errors.New("database error"))

	deleted, failed := job.Cleanup(context.Background())

	assert.Zero(t, deleted)
	assert.Equal(t, 1, failed)
	mockRepo.AssertExpectations(t)
}

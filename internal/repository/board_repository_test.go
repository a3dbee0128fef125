package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project-workflow-api/internal/domain"
	"project-workflow-api/internal/testutil"
)

func TestBoardRepository_Designation(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewBoardRepository(db)
	ctx := context.Background()

	first := &domain.Board{Name: "Alpha", Status: domain.BoardStatusActive, CreatedBy: uuid.New()}
	second := &domain.Board{Name: "Beta", Status: domain.BoardStatusActive, CreatedBy: uuid.New()}
	archived := &domain.Board{Name: "Gamma", Status: domain.BoardStatusArchived, CreatedBy: uuid.New()}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, archived))

	ok, err := repo.Designate(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// only one board may be designated at a time
	_, err = repo.Designate(ctx, second.ID)
	assert.ErrorIs(t, err, ErrDuplicateKey)

	require.NoError(t, repo.ClearDesignation(ctx))
	ok, err = repo.Designate(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	designated, err := repo.FindDesignated(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, designated.ID)

	// archived boards cannot be designated
	require.NoError(t, repo.ClearDesignation(ctx))
	ok, err = repo.Designate(ctx, archived.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBoardRepository_CreateDuplicateName(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewBoardRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Board{Name: "Alpha", Status: domain.BoardStatusActive, CreatedBy: uuid.New()}))
	err := repo.Create(ctx, &domain.Board{Name: "Alpha", Status: domain.BoardStatusActive, CreatedBy: uuid.New()})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestBoardRepository_FindOldestActive(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewBoardRepository(db)
	ctx := context.Background()

	archived := &domain.Board{Name: "Old", Status: domain.BoardStatusArchived, CreatedBy: uuid.New()}
	require.NoError(t, repo.Create(ctx, archived))
	active := &domain.Board{Name: "Live", Status: domain.BoardStatusActive, CreatedBy: uuid.New()}
	require.NoError(t, repo.Create(ctx, active))

	found, err := repo.FindOldestActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, active.ID, found.ID)

	status := domain.BoardStatusArchived
	boards, err := repo.FindAll(ctx, &status)
	require.NoError(t, err)
	require.Len(t, boards, 1)
	assert.Equal(t, archived.ID, boards[0].ID)
}

func TestBoardRepository_UpdateStatusCompareAndSwap(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewBoardRepository(db)
	ctx := context.Background()

	board := &domain.Board{Name: "Alpha", Status: domain.BoardStatusActive, CreatedBy: uuid.New()}
	require.NoError(t, repo.Create(ctx, board))
	ok, err := repo.Designate(ctx, board.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.UpdateStatus(ctx, board.ID, domain.BoardStatusActive, domain.BoardStatusArchived)
	require.NoError(t, err)
	assert.True(t, ok)

	// 이미 보관됨
	ok, err = repo.UpdateStatus(ctx, board.ID, domain.BoardStatusActive, domain.BoardStatusArchived)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByID(ctx, board.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BoardStatusArchived, stored.Status)
	assert.False(t, stored.IsDesignated, "archiving drops the designation")
}

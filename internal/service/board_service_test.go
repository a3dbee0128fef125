package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project-workflow-api/internal/domain"
	"project-workflow-api/internal/response"
)

func TestBoardService_CreateBoard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	board, err := env.boards.CreateBoard(ctx, CreateBoardInput{Name: " Platform ", Description: "infra work"}, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Platform", board.Name)
	assert.Equal(t, domain.BoardStatusActive, board.Status)
	assert.False(t, board.IsDesignated)
	assert.Equal(t, env.user.ID, board.CreatedBy)

	_, err = env.boards.CreateBoard(ctx, CreateBoardInput{Name: "Platform"}, env.user.ID)
	assertMessage(t, err, response.ErrCodeConflict, "board name already exists")

	_, err = env.boards.CreateBoard(ctx, CreateBoardInput{Name: ""}, env.user.ID)
	assertCode(t, err, response.ErrCodeInvalidArgument)

	_, err = env.boards.CreateBoard(ctx, CreateBoardInput{Name: "Ghost"}, uuid.New())
	assertCode(t, err, response.ErrCodeNotFound)
}

func TestBoardService_GetBoard_LoadsColumnsInOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.createColumn(t, "A"), env.createColumn(t, "B")
	_, err := env.columns.ReorderColumns(ctx, env.board.ID, idsOf(b, a))
	require.NoError(t, err)

	board, err := env.boards.GetBoard(ctx, env.board.ID)
	require.NoError(t, err)
	require.Len(t, board.Columns, 2)
	assert.Equal(t, b.ID, board.Columns[0].ID)
	assert.Equal(t, a.ID, board.Columns[1].ID)

	_, err = env.boards.GetBoard(ctx, uuid.New())
	assertCode(t, err, response.ErrCodeNotFound)
}

func TestBoardService_ListBoards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	other, err := env.boards.CreateBoard(ctx, CreateBoardInput{Name: "Other"}, env.user.ID)
	require.NoError(t, err)
	_, err = env.boards.ArchiveBoard(ctx, other.ID)
	require.NoError(t, err)

	all, err := env.boards.ListBoards(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	archived := domain.BoardStatusArchived
	onlyArchived, err := env.boards.ListBoards(ctx, &archived)
	require.NoError(t, err)
	require.Len(t, onlyArchived, 1)
	assert.Equal(t, other.ID, onlyArchived[0].ID)
}

func TestBoardService_UpdateBoard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.boards.CreateBoard(ctx, CreateBoardInput{Name: "Taken"}, env.user.ID)
	require.NoError(t, err)

	desc := "renamed"
	name := "Renamed"
	updated, err := env.boards.UpdateBoard(ctx, env.board.ID, UpdateBoardInput{Name: &name, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "renamed", updated.Description)

	taken := "Taken"
	_, err = env.boards.UpdateBoard(ctx, env.board.ID, UpdateBoardInput{Name: &taken})
	assertCode(t, err, response.ErrCodeConflict)
}

func TestBoardService_ArchiveBoard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.boards.SetActiveBoard(ctx, env.board.ID)
	require.NoError(t, err)

	archived, err := env.boards.ArchiveBoard(ctx, env.board.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BoardStatusArchived, archived.Status)
	assert.False(t, archived.IsDesignated, "an archived board loses its designation")

	_, err = env.boards.GetActiveBoard(ctx)
	assertMessage(t, err, response.ErrCodeNotFound, "No active board")

	restored, err := env.boards.UnarchiveBoard(ctx, env.board.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BoardStatusActive, restored.Status)
	assert.False(t, restored.IsDesignated)
}

func TestBoardService_SetActiveBoard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	second, err := env.boards.CreateBoard(ctx, CreateBoardInput{Name: "Second"}, env.user.ID)
	require.NoError(t, err)

	active, err := env.boards.GetActiveBoard(ctx)
	require.NoError(t, err)
	assert.Equal(t, env.board.ID, active.ID, "oldest active board is the fallback")

	designated, err := env.boards.SetActiveBoard(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, designated.IsDesignated)

	active, err = env.boards.GetActiveBoard(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	_, err = env.boards.SetActiveBoard(ctx, env.board.ID)
	require.NoError(t, err)
	previous, err := env.boardRepo.FindByID(ctx, second.ID)
	require.NoError(t, err)
	assert.False(t, previous.IsDesignated, "only one board is designated at a time")

	_, err = env.boards.ArchiveBoard(ctx, second.ID)
	require.NoError(t, err)
	_, err = env.boards.SetActiveBoard(ctx, second.ID)
	assertCode(t, err, response.ErrCodeInvalidState)

	_, err = env.boards.SetActiveBoard(ctx, uuid.New())
	assertCode(t, err, response.ErrCodeNotFound)
}

func TestBoardService_DeleteBoard(t *testing.T) {
	t.Run("Board with sprints is kept", func(t *testing.T) {
		env := newTestEnv(t)
		env.createSprint(t, "S", 0, 7)

		err := env.boards.DeleteBoard(context.Background(), env.board.ID)
		assertMessage(t, err, response.ErrCodeInvalidState, "board still has sprints")

		_, err = env.boards.GetBoard(context.Background(), env.board.ID)
		assert.NoError(t, err)
	})

	t.Run("Columns go, tasks are detached", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		other, err := env.boards.CreateBoard(ctx, CreateBoardInput{Name: "Scratch"}, env.user.ID)
		require.NoError(t, err)
		column, err := env.columns.CreateColumn(ctx, other.ID, "Todo", "")
		require.NoError(t, err)

		sprint := env.createSprint(t, "S", 0, 7)
		task := env.createTask(t, "parked", sprint.ID, &column.ID)

		require.NoError(t, env.boards.DeleteBoard(ctx, other.ID))

		_, err = env.boards.GetBoard(ctx, other.ID)
		assertCode(t, err, response.ErrCodeNotFound)
		_, err = env.columnRepo.FindByID(ctx, column.ID)
		assert.Error(t, err)
		assert.Nil(t, env.reloadTask(t, task.ID).ColumnID)
	})

	t.Run("Unknown board", func(t *testing.T) {
		env := newTestEnv(t)
		assertCode(t, env.boards.DeleteBoard(context.Background(), uuid.New()), response.ErrCodeNotFound)
	})
}

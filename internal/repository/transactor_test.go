package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project-workflow-api/internal/domain"
	"project-workflow-api/internal/testutil"
)

func TestTransactor_RollsBackOnError(t *testing.T) {
	db := testutil.NewTestDB(t)
	tx := NewTransactor(db)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &domain.User{Username: "alice", Email: "alice@example.com"}
	boom := errors.New("boom")

	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, user); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	exists, err := repo.Exists(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTransactor_NestedCallsJoinOuterTransaction(t *testing.T) {
	db := testutil.NewTestDB(t)
	tx := NewTransactor(db)
	repo := NewUserRepository(db)
	ctx := context.Background()

	inner := &domain.User{Username: "bob", Email: "bob@example.com"}

	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
			return repo.Create(ctx, inner)
		}); err != nil {
			return err
		}
		return errors.New("outer failure")
	})
	require.Error(t, err)

	exists, err := repo.Exists(ctx, inner.ID)
	require.NoError(t, err)
	assert.False(t, exists, "inner write must roll back with the outer transaction")
}

func TestTransactor_Commits(t *testing.T) {
	db := testutil.NewTestDB(t)
	tx := NewTransactor(db)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &domain.User{Username: "carol", Email: "carol@example.com"}
	require.NoError(t, tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return repo.Create(ctx, user)
	}))

	found, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol", found.Username)

	exists, err := repo.Exists(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: sprints.name")))
	assert.True(t, isUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "uq_sprints_name"`)))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
	assert.Nil(t, translateError(nil))
}

// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"project-workflow-api/internal/database"
)

// NewTestDB opens a migrated in-memory sqlite database.
// The pool is pinned to one connection: every ":memory:" connection is a separate database,
// and a single connection also serializes concurrent transactions.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(sqlite.Open(":memory:"), database.Config{MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err, "Failed to open test database")
	require.NoError(t, database.AutoMigrate(db), "Failed to migrate test database")

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}

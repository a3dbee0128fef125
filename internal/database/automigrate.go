package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"project-workflow-api/internal/domain"
)

// modelInfo holds information about a domain model and its table name
type modelInfo struct {
	model     interface{}
	tableName string
}

func models() []modelInfo {
	return []modelInfo{
		{&domain.User{}, "users"},
		{&domain.Board{}, "boards"},
		{&domain.BoardColumn{}, "board_columns"},
		{&domain.Sprint{}, "sprints"},
		{&domain.Task{}, "tasks"},
		{&domain.Comment{}, "comments"},
		{&domain.Attachment{}, "attachments"},
	}
}

// Partial unique indexes cannot be expressed in gorm tags.
// Both statements are valid on postgres and sqlite.
var invariantIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_sprints_single_active ON sprints (status) WHERE status = 'ACTIVE'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_boards_single_designated ON boards (is_designated) WHERE is_designated = true`,
}

// AutoMigrate runs GORM auto-migration for all domain models and creates the invariant indexes
func AutoMigrate(db *gorm.DB) error {
	for _, m := range models() {
		if err := db.AutoMigrate(m.model); err != nil {
			return fmt.Errorf("failed to run auto-migration for %s: %w", m.tableName, err)
		}
	}
	return createInvariantIndexes(db)
}

func createInvariantIndexes(db *gorm.DB) error {
	for _, stmt := range invariantIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// SafeAutoMigrate migrates table by table and logs whether each table already existed
func SafeAutoMigrate(db *gorm.DB, logger *zap.Logger) error {
	migrator := db.Migrator()
	all := models()

	logger.Info("Starting safe auto-migration",
		zap.Int("total_models", len(all)),
	)

	for _, m := range all {
		tableExists := migrator.HasTable(m.model)

		if err := db.AutoMigrate(m.model); err != nil {
			logger.Error("Failed to migrate table",
				zap.String("table", m.tableName),
				zap.Bool("table_existed", tableExists),
				zap.Error(err),
			)
			return fmt.Errorf("failed to migrate table %s: %w", m.tableName, err)
		}

		logger.Debug("Migrated table",
			zap.String("table", m.tableName),
			zap.Bool("was_existing", tableExists),
		)
	}

	if err := createInvariantIndexes(db); err != nil {
		logger.Error("Failed to create invariant indexes", zap.Error(err))
		return err
	}

	logger.Info("Safe auto-migration completed successfully",
		zap.Int("tables_migrated", len(all)),
	)

	return nil
}

// SafeAutoMigrateWithRetry runs SafeAutoMigrate with linear backoff
func SafeAutoMigrateWithRetry(db *gorm.DB, logger *zap.Logger, maxRetries int) error {
	var err error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = SafeAutoMigrate(db, logger)
		if err == nil {
			return nil
		}

		if attempt < maxRetries {
			backoffDuration := time.Duration(attempt) * time.Second
			logger.Warn("Migration attempt failed, retrying...",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", maxRetries),
				zap.Duration("backoff", backoffDuration),
				zap.Error(err),
			)
			time.Sleep(backoffDuration)
		}
	}

	return fmt.Errorf("migration failed after %d attempts: %w", maxRetries, err)
}

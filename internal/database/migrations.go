package database

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// Migrate brings the schema up to the newest goose migration in
// migrationsDir and logs which versions it moved between.
func Migrate(db *sql.DB, migrationsDir string, logger *zap.Logger) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	before, err := goose.EnsureDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if err := goose.Up(db, migrationsDir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	after, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if after == before {
		logger.Info("Schema already up to date", zap.Int64("version", after))
	} else {
		logger.Info("Applied schema migrations",
			zap.Int64("from_version", before),
			zap.Int64("to_version", after),
		)
	}

	return nil
}

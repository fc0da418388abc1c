package postgres

import (
	"context"
	"embed"
	"fmt"

	"github.com/flexprice/planshift/internal/logger"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsTable = "planshift_schema_migrations"

// Migrate applies the embedded schema migrations with goose
func (db *DB) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(&gooseLogger{log: db.logger})
	goose.SetTableName(migrationsTable)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db.DB.DB, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// MigrationStatus logs the applied state of every migration
func (db *DB) MigrationStatus(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(&gooseLogger{log: db.logger})
	goose.SetTableName(migrationsTable)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.StatusContext(ctx, db.DB.DB, "migrations")
}

// gooseLogger routes goose output through the service logger
type gooseLogger struct {
	log *logger.Logger
}

func (g *gooseLogger) Fatalf(format string, v ...interface{}) {
	g.log.Errorf(format, v...)
}

func (g *gooseLogger) Printf(format string, v ...interface{}) {
	g.log.Infof(format, v...)
}

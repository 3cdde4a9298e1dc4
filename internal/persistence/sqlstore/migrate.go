package sqlstore

import (
	"context"
	"embed"
	"log/slog"

	"github.com/example/yescount/internal/persistence/sqlstore/migration"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFiles embed.FS

// Migrate applies the embedded schema migrations for the pool's dialect.
func Migrate(ctx context.Context, pool *ConnectionPool, logger *slog.Logger) error {
	placeholder := migration.QuestionPlaceholders
	if pool.dialect.numbered {
		placeholder = migration.DollarPlaceholders
	}

	manager := migration.NewMigrationManager(
		migration.NewFileScanner(migrationFiles),
		migration.NewSQLExecutor(pool.db, placeholder),
		"migrations/"+pool.dialect.name,
		logger,
	)
	return manager.RunMigrations(ctx)
}

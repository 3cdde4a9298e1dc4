// Package migration applies versioned schema changes to the yescount store.
//
// Migration files live in an fs.FS (normally embedded into the binary) and
// follow the naming convention {version}_{description}.sql, for example
// "001_create_events.sql". Each file runs inside its own transaction and is
// recorded in the schema_migrations table together with its checksum, so a
// file edited after it was applied is reported instead of silently skipped.
//
// Example usage:
//
//	scanner := migration.NewFileScanner(migrationsFS)
//	executor := migration.NewSQLExecutor(db, migration.QuestionPlaceholders)
//	manager := migration.NewMigrationManager(scanner, executor, "sqlite", logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration

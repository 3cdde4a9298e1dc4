package migration

import (
	"context"
	"time"
)

// Migration is one numbered schema file. Files are named
// "<version>_<description>.sql", for example "004_create_votes.sql".
type Migration struct {
	Version     string
	Description string
	SQL         string
	FilePath    string
	Checksum    string // hex SHA-256 of SQL
}

// MigrationManager brings a store schema up to date.
type MigrationManager interface {
	RunMigrations(ctx context.Context) error
	GetPendingMigrations(ctx context.Context) ([]Migration, error)
	GetMigrationStatus(ctx context.Context) (*MigrationStatus, error)
}

// FileScanner lists the migrations of one dialect directory.
type FileScanner interface {
	ScanMigrations(migrationDir string) ([]Migration, error)
	ValidateFileName(filename string) error
}

// Executor applies migrations and reads the schema_migrations table.
// ExecuteMigration runs the file and records it in a single transaction.
type Executor interface {
	ExecuteMigration(ctx context.Context, migration Migration) error
	InitializeVersionTable(ctx context.Context) error
	GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error)
}

type MigrationStatus struct {
	CurrentVersion    string
	PendingCount      int
	AppliedMigrations []AppliedMigration
	PendingMigrations []Migration
}

// AppliedMigration is one row of schema_migrations.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

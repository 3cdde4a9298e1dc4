package migration

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMigrationFailed      = errors.New("migration execution failed")
	ErrInvalidMigrationFile = errors.New("invalid migration file format")
	ErrVersionConflict      = errors.New("migration version conflict")
	ErrInvalidVersion       = errors.New("invalid migration version")
	ErrDuplicateVersion     = errors.New("duplicate migration version")
	// ErrChecksumMismatch means an applied file was edited afterwards.
	ErrChecksumMismatch = errors.New("migration checksum mismatch")
)

// Error attaches the migration, file and step to a failure. Database marks
// failures reported by the driver rather than by file validation.
type Error struct {
	Version  string
	Source   string
	Query    string
	Step     string
	Database bool
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Database {
		b.WriteString("database error")
	} else {
		b.WriteString("migration error")
	}
	if e.Version != "" {
		fmt.Fprintf(&b, " in %s", e.Version)
	}
	if e.Source != "" {
		fmt.Fprintf(&b, " (%s)", e.Source)
	}
	fmt.Fprintf(&b, " during %s: %v", e.Step, e.Err)
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewMigrationError reports a problem with one migration file.
func NewMigrationError(version, source, step string, err error) *Error {
	return &Error{Version: version, Source: source, Step: step, Err: err}
}

// NewDatabaseError reports a driver failure while applying or recording migrations.
func NewDatabaseError(version, query, step string, err error) *Error {
	return &Error{Version: version, Query: query, Step: step, Database: true, Err: err}
}

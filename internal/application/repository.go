package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/yescount/internal/cache"
	"github.com/example/yescount/internal/persistence"
)

// mapRepoError translates persistence failures into application errors.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, trimPersistencePrefix(err))
	case errors.Is(err, persistence.ErrCapacityReached):
		return ErrCapacityExceeded
	case errors.Is(err, persistence.ErrBusy):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	case errors.Is(err, persistence.ErrConstraintViolation), errors.Is(err, persistence.ErrDuplicate):
		return newValidationError("input", "the request conflicts with stored data")
	}
	return err
}

func mapSessionLookupError(err error, sessionID string) error {
	if errors.Is(err, persistence.ErrNotFound) {
		return fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	return mapRepoError(err)
}

func trimPersistencePrefix(err error) string {
	msg := err.Error()
	const prefix = "persistence: not found: "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}

// resolveWriteError re-reads the session after the store refused a write
// because the session was no longer open, so callers see the precise reason.
func resolveWriteError(ctx context.Context, sessions persistence.SessionRepository, now func() time.Time, sessionID string, err error) error {
	if !errors.Is(err, persistence.ErrSessionClosed) {
		return mapRepoError(err)
	}
	record, getErr := sessions.GetSession(ctx, sessionID)
	if getErr != nil {
		return mapSessionLookupError(getErr, sessionID)
	}
	if gateErr := AssertWritable(record, now()); gateErr != nil {
		return gateErr
	}
	// The store clock ran ahead of ours at the expiry boundary.
	return ErrSessionExpired
}

// loadWritableSession fetches the session and applies the write gate.
func loadWritableSession(ctx context.Context, sessions persistence.SessionRepository, sessionID string, now time.Time) (persistence.Session, error) {
	record, err := sessions.GetSession(ctx, sessionID)
	if err != nil {
		return persistence.Session{}, mapSessionLookupError(err, sessionID)
	}
	if err := AssertWritable(record, now); err != nil {
		return persistence.Session{}, err
	}
	return record, nil
}

func invalidate(ctx context.Context, derived cache.DerivedCache, logger *slog.Logger, sessionID string) {
	if err := derived.Invalidate(ctx, sessionID); err != nil {
		logger.WarnContext(ctx, "failed to invalidate derived values", "session_id", sessionID, "error", err)
	}
}

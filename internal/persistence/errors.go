package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a uniqueness constraint rejects a write.
	ErrDuplicate = errors.New("persistence: duplicate")
	// ErrConstraintViolation is returned when a check or foreign key constraint rejects a write.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrSessionClosed is returned when a session scoped write finds the session
	// no longer open or already past its expiry.
	ErrSessionClosed = errors.New("persistence: session closed")
	// ErrCapacityReached is returned when a join would exceed the participant cap.
	ErrCapacityReached = errors.New("persistence: capacity reached")
	// ErrBusy is returned when the store is temporarily unable to serve the write.
	ErrBusy = errors.New("persistence: busy")
)

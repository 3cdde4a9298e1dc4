package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/example/yescount/internal/logging"
)

// Kind classifies failures surfaced to callers.
type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindSessionLocked     Kind = "session_locked"
	KindSessionArchived   Kind = "session_archived"
	KindSessionExpired    Kind = "session_expired"
	KindInvalidTransition Kind = "invalid_transition"
	KindNotFound          Kind = "not_found"
	KindCapacityExceeded  Kind = "capacity_exceeded"
	KindForbidden         Kind = "forbidden"
	KindInternal          Kind = "internal"
)

var (
	// ErrSessionLocked is returned when a write targets a locked session.
	ErrSessionLocked = errors.New("application: session is locked")
	// ErrSessionArchived is returned when a write targets an archived session.
	ErrSessionArchived = errors.New("application: session is archived")
	// ErrSessionExpired is returned when a write targets a session past its expiry.
	ErrSessionExpired = errors.New("application: session has expired")
	// ErrInvalidTransition is returned for lifecycle changes the state machine forbids.
	ErrInvalidTransition = errors.New("application: invalid status transition")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrCapacityExceeded is returned when a join would exceed the participant cap.
	ErrCapacityExceeded = errors.New("application: participant limit reached")
	// ErrForbidden is returned when the actor is not the session organizer.
	ErrForbidden = errors.New("application: forbidden")
	// ErrUnavailable is returned when the store is temporarily unable to serve a request.
	ErrUnavailable = errors.New("application: store unavailable")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v.FieldErrors[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

func newValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.add(field, message)
	return v
}

// Error is the structured failure returned by every service operation.
type Error struct {
	Kind          Kind
	Message       string
	Retryable     bool
	CorrelationID string
	Fields        map[string]string
	Err           error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind, so errors.Is works on errors
// built without a wrapped cause.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return e.Retryable
	case ErrSessionLocked:
		return e.Kind == KindSessionLocked
	case ErrSessionArchived:
		return e.Kind == KindSessionArchived
	case ErrSessionExpired:
		return e.Kind == KindSessionExpired
	case ErrInvalidTransition:
		return e.Kind == KindInvalidTransition
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrCapacityExceeded:
		return e.Kind == KindCapacityExceeded
	case ErrForbidden:
		return e.Kind == KindForbidden
	}
	return false
}

// KindOf reports the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return classify(err)
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, ErrSessionLocked):
		return KindSessionLocked
	case errors.Is(err, ErrSessionArchived):
		return KindSessionArchived
	case errors.Is(err, ErrSessionExpired):
		return KindSessionExpired
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrCapacityExceeded):
		return KindCapacityExceeded
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return KindInvalidInput
	}
	return KindInternal
}

var kindMessages = map[Kind]string{
	KindSessionLocked:     "session is locked and no longer accepts changes",
	KindSessionArchived:   "session is archived and read-only",
	KindSessionExpired:    "session has expired and is read-only",
	KindInvalidTransition: "session cannot move to the requested status",
	KindCapacityExceeded:  "session has reached its participant limit",
	KindForbidden:         "only the session organizer can do that",
	KindInternal:          "internal error",
}

// finalizeError converts err into an *Error carrying a kind, message and the
// request correlation identifier. A nil err stays nil.
func finalizeError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	kind := classify(err)
	out := &Error{
		Kind:          kind,
		Retryable:     errors.Is(err, ErrUnavailable),
		CorrelationID: logging.CorrelationIDFromContext(ctx),
		Err:           err,
	}
	if out.CorrelationID == "" {
		out.CorrelationID = uuid.NewString()
	}

	switch kind {
	case KindInvalidInput:
		var vErr *ValidationError
		errors.As(err, &vErr)
		out.Message = vErr.Error()
		out.Fields = vErr.FieldErrors
	case KindNotFound:
		out.Message = strings.TrimPrefix(err.Error(), "application: ")
	default:
		out.Message = kindMessages[kind]
		if out.Retryable {
			out.Message = "store is busy, try again"
		}
	}
	return out
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/example/yescount/internal/application"
	"github.com/example/yescount/internal/logging"
)

var (
	errBadRequestBody   = errors.New("request body is not valid JSON")
	errMissingSessionID = errors.New("session id is required")
	errInvalidEventID   = errors.New("event id must be a positive integer")
	errInvalidPartID    = errors.New("participant id must be a positive integer")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeBadRequest answers requests the handler could not parse. They carry
// the invalid_input kind so clients see one error shape.
func (r responder) writeBadRequest(ctx context.Context, w http.ResponseWriter, err error) {
	message := http.StatusText(http.StatusBadRequest)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
	}
	r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", http.StatusBadRequest, "error", err)
	r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
		ErrorKind:     string(application.KindInvalidInput),
		Message:       message,
		CorrelationID: correlationID(ctx),
	})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	var appErr *application.Error
	if !errors.As(err, &appErr) {
		appErr = &application.Error{
			Kind:          application.KindOf(err),
			Message:       http.StatusText(http.StatusInternalServerError),
			CorrelationID: correlationID(ctx),
			Err:           err,
		}
	}

	status := statusFor(appErr)
	if status >= http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err, "error_kind", appErr.Kind)
	}

	r.writeJSON(ctx, w, status, errorResponse{
		ErrorKind:     string(appErr.Kind),
		Message:       appErr.Message,
		Retryable:     appErr.Retryable,
		CorrelationID: appErr.CorrelationID,
		Errors:        appErr.Fields,
	})
}

func statusFor(err *application.Error) int {
	switch err.Kind {
	case application.KindInvalidInput:
		return http.StatusUnprocessableEntity
	case application.KindNotFound:
		return http.StatusNotFound
	case application.KindForbidden:
		return http.StatusForbidden
	case application.KindSessionLocked,
		application.KindSessionArchived,
		application.KindSessionExpired,
		application.KindInvalidTransition,
		application.KindCapacityExceeded:
		return http.StatusConflict
	}
	if err.Retryable {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func correlationID(ctx context.Context) string {
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

type errorResponse struct {
	ErrorKind     string            `json:"error_kind"`
	Message       string            `json:"message"`
	Retryable     bool              `json:"retryable"`
	CorrelationID string            `json:"correlation_id"`
	Errors        map[string]string `json:"errors,omitempty"`
}

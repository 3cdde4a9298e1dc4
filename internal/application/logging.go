package application

import (
	"context"
	"log/slog"

	"github.com/example/yescount/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		pairs = append(pairs, "correlation_id", id)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	return string(KindOf(err))
}

// logResult logs the outcome of an operation; expected domain failures log at
// warn, everything else at error.
func logResult(ctx context.Context, logger *slog.Logger, err error, failure, success string, attrs ...any) {
	if err == nil {
		logger.With(attrs...).InfoContext(ctx, success)
		return
	}
	kind := KindOf(err)
	if kind == KindInternal {
		logger.ErrorContext(ctx, failure, "error", err, "error_kind", string(kind))
		return
	}
	logger.WarnContext(ctx, failure, "error", err, "error_kind", string(kind))
}

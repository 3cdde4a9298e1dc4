package http

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

// handlerLogger prefers the request logger installed by RequestLogger. Without
// one it falls back to the handler's logger and stamps the correlation ID itself.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	pairs := []any{"handler", handlerName}
	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
		if id := logging.CorrelationIDFromContext(ctx); id != "" {
			pairs = append(pairs, "correlation_id", id)
		}
	}

	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	return logger.With(append(pairs, attrs...)...)
}

package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/yescount/internal/persistence"
)

// ImportResult summarizes one import run.
type ImportResult struct {
	Upserted int
	IDs      []int64
}

// Importer writes normalized events into the event store.
type Importer struct {
	events persistence.EventRepository
	logger *slog.Logger
}

// NewImporter constructs an importer backed by the event repository.
func NewImporter(events persistence.EventRepository, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{events: events, logger: logger.With("component", "catalog.Importer")}
}

// Import upserts every event by (source, source_id). It stops at the first
// failure and reports how many events were written before it.
func (i *Importer) Import(ctx context.Context, events []persistence.Event) (ImportResult, error) {
	result := ImportResult{IDs: make([]int64, 0, len(events))}
	for idx, event := range events {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		stored, err := i.events.UpsertEvent(ctx, event)
		if err != nil {
			i.logger.ErrorContext(ctx, "failed to import event",
				"index", idx, "source", event.Source, "source_id", event.SourceID, "error", err)
			return result, fmt.Errorf("catalog: import %s/%s: %w", event.Source, event.SourceID, err)
		}
		result.Upserted++
		result.IDs = append(result.IDs, stored.ID)
	}
	i.logger.InfoContext(ctx, "catalog imported", "upserted", result.Upserted)
	return result, nil
}

package testfixtures

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/yescount/internal/engine"
	"github.com/example/yescount/internal/persistence"
)

var eventCounter uint64

var referenceTime = time.Date(2026, time.March, 2, 15, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures. It
// falls on a Monday so the following Friday and weekend are in the same week.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Event fixtures -----------------------------

// EventOption configures the generated event fixture.
type EventOption func(*persistence.Event)

// NewEventFixture returns a deterministic catalog event with optional overrides.
// Generated events start on consecutive days after ReferenceTime at 19:00 UTC.
func NewEventFixture(opts ...EventOption) persistence.Event {
	idx := atomic.AddUint64(&eventCounter, 1)
	day := time.Date(referenceTime.Year(), referenceTime.Month(), referenceTime.Day(), 19, 0, 0, 0, time.UTC)
	event := persistence.Event{
		Title:     fmt.Sprintf("Event %03d", idx),
		DateStart: day.AddDate(0, 0, int(idx%28)+1),
		Location:  "Downtown",
		Source:    "fixtures",
		SourceID:  fmt.Sprintf("event-%03d", idx),
		VibeTags:  []string{},
	}
	for _, opt := range opts {
		opt(&event)
	}
	return event
}

// WithEventTitle overrides the generated title.
func WithEventTitle(title string) EventOption {
	return func(e *persistence.Event) {
		e.Title = title
	}
}

// WithEventSourceID overrides the upsert key within the fixture source.
func WithEventSourceID(sourceID string) EventOption {
	return func(e *persistence.Event) {
		e.SourceID = sourceID
	}
}

// WithEventSource overrides the catalog source.
func WithEventSource(source string) EventOption {
	return func(e *persistence.Event) {
		e.Source = source
	}
}

// WithEventStart sets the start instant and clears any end.
func WithEventStart(start time.Time) EventOption {
	return func(e *persistence.Event) {
		e.DateStart = start.UTC()
		e.DateEnd = nil
	}
}

// WithEventWindow sets both start and end instants.
func WithEventWindow(start, end time.Time) EventOption {
	return func(e *persistence.Event) {
		e.DateStart = start.UTC()
		endUTC := end.UTC()
		e.DateEnd = &endUTC
	}
}

// WithEventPrice sets the minimum price; the maximum mirrors it.
func WithEventPrice(amount float64) EventOption {
	return func(e *persistence.Event) {
		lo, hi := amount, amount
		e.PriceMin = &lo
		e.PriceMax = &hi
	}
}

// WithEventTags sets the vibe tags.
func WithEventTags(tags ...string) EventOption {
	return func(e *persistence.Event) {
		e.VibeTags = append([]string{}, tags...)
	}
}

// SeedEvents upserts the fixtures and returns them with their assigned IDs.
func SeedEvents(ctx context.Context, repo persistence.EventRepository, events ...persistence.Event) ([]persistence.Event, error) {
	stored := make([]persistence.Event, 0, len(events))
	for _, event := range events {
		saved, err := repo.UpsertEvent(ctx, event)
		if err != nil {
			return nil, fmt.Errorf("seed event %q: %w", event.SourceID, err)
		}
		stored = append(stored, saved)
	}
	return stored, nil
}

// ----------------------------- Slot fixtures -----------------------------

// Slot builds an availability slot.
func Slot(date, start, end string) engine.Slot {
	return engine.Slot{Date: date, Start: start, End: end}
}

// WeekendSlots returns the Friday evening, Saturday midday and Sunday brunch
// slots that follow ReferenceTime.
func WeekendSlots() []engine.Slot {
	return []engine.Slot{
		Slot("2026-03-06", "19:00", "21:00"),
		Slot("2026-03-07", "12:00", "14:00"),
		Slot("2026-03-08", "10:00", "12:00"),
	}
}

// ParticipantNames returns n distinct display names.
func ParticipantNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("Guest %02d", i+1)
	}
	return names
}

package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/yescount/internal/catalog"
	"github.com/example/yescount/internal/persistence"
	"github.com/example/yescount/internal/votingwindow"
)

const maxEventListLimit = 500

// EventSettings configures catalog reads.
type EventSettings struct {
	// BallotSource keeps only events of one source on the ballot when set.
	BallotSource string
	BallotSize   int
	Location     *time.Location
}

// Ballot is the curated voting list for the current voting window.
type Ballot struct {
	Window votingwindow.Window `json:"window"`
	Events []Event             `json:"events"`
}

// EventService exposes the event catalog.
type EventService struct {
	events   persistence.EventRepository
	settings EventSettings
	now      func() time.Time
	logger   *slog.Logger
}

// NewEventService constructs an event service with the provided dependencies.
func NewEventService(events persistence.EventRepository, settings EventSettings, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(events, settings, now, nil)
}

// NewEventServiceWithLogger constructs an event service with a specified logger.
func NewEventServiceWithLogger(events persistence.EventRepository, settings EventSettings, now func() time.Time, logger *slog.Logger) *EventService {
	if settings.BallotSize <= 0 {
		settings.BallotSize = catalog.DefaultBallotSize
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{events: events, settings: settings, now: now, logger: defaultLogger(logger)}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// GetEvent returns one catalog event.
func (s *EventService) GetEvent(ctx context.Context, id int64) (Event, error) {
	record, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return Event{}, finalizeError(ctx, mapRepoError(err))
	}
	return toEvent(record), nil
}

// ListEvents returns catalog events ordered by start time.
func (s *EventService) ListEvents(ctx context.Context, params EventListParams) ([]Event, error) {
	vErr := &ValidationError{}
	if params.Limit < 0 || params.Limit > maxEventListLimit {
		vErr.add("limit", "limit must be between 0 and 500")
	}
	if params.StartsAfter != nil && params.StartsBefore != nil && !params.StartsAfter.Before(*params.StartsBefore) {
		vErr.add("starts_before", "starts_before must be after starts_after")
	}
	if vErr.HasErrors() {
		return nil, finalizeError(ctx, vErr)
	}

	records, err := s.events.ListEvents(ctx, persistence.EventFilter{
		StartsAfter:  params.StartsAfter,
		StartsBefore: params.StartsBefore,
		Source:       params.Source,
		Limit:        params.Limit,
	})
	if err != nil {
		return nil, finalizeError(ctx, mapRepoError(err))
	}
	out := make([]Event, 0, len(records))
	for _, record := range records {
		out = append(out, toEvent(record))
	}
	return out, nil
}

// VotingBallot curates the catalog for the month the current voting window targets.
func (s *EventService) VotingBallot(ctx context.Context) (ballot Ballot, err error) {
	logger := s.loggerWith(ctx, "VotingBallot")
	defer func() {
		if err != nil {
			logResult(ctx, logger, err, "failed to build voting ballot", "")
		}
		err = finalizeError(ctx, err)
	}()

	now := s.now()
	window := votingwindow.Current(now)
	records, err := s.events.ListEvents(ctx, persistence.EventFilter{})
	if err != nil {
		err = mapRepoError(err)
		return
	}

	curated := catalog.Curate(records, catalog.CurateOptions{
		TargetYear:  window.TargetYear,
		TargetMonth: window.TargetMonth,
		Source:      s.settings.BallotSource,
		Now:         now,
		Limit:       s.settings.BallotSize,
		Location:    s.settings.Location,
	})
	events := make([]Event, 0, len(curated))
	for _, record := range curated {
		events = append(events, toEvent(record))
	}
	logger.DebugContext(ctx, "voting ballot curated", "candidates", len(records), "selected", len(events))
	ballot = Ballot{Window: window, Events: events}
	return
}

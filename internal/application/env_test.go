package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/example/yescount/internal/cache"
	"github.com/example/yescount/internal/persistence"
	"github.com/example/yescount/internal/persistence/sqlstore"
)

var testStart = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	store           *sqlstore.Store
	repos           Repositories
	clock           *testClock
	cache           *cache.Memory
	sessions        *SessionService
	votes           *VoteService
	availability    *AvailabilityService
	recommendations *RecommendationService
	events          *EventService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlstore.Open(context.Background(), sqlstore.SQLiteConfig(filepath.Join(t.TempDir(), "app.db")), discardLogger())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	repos := Repositories{
		Events:       store.Events,
		Sessions:     store.Sessions,
		Participants: store.Participants,
		Votes:        store.Votes,
		Availability: store.Availability,
	}
	clock := &testClock{now: testStart}
	derived := cache.NewMemory(time.Minute, 64, clock.Now)
	logger := discardLogger()

	var mu sync.Mutex
	seq := 0
	nextID := func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("session-%d", seq)
	}

	settings := DefaultSessionSettings()
	settings.BaseURL = "https://yescount.test/app"

	return &testEnv{
		store:           store,
		repos:           repos,
		clock:           clock,
		cache:           derived,
		sessions:        NewSessionServiceWithLogger(repos, derived, settings, nextID, clock.Now, logger),
		votes:           NewVoteServiceWithLogger(repos, derived, clock.Now, logger),
		availability:    NewAvailabilityServiceWithLogger(repos, derived, clock.Now, logger),
		recommendations: NewRecommendationServiceWithLogger(repos, derived, DefaultRecommendationSettings(), logger),
		events:          NewEventServiceWithLogger(store.Events, EventSettings{}, clock.Now, logger),
	}
}

func (e *testEnv) createSession(t *testing.T, organizer string, prefs string) Session {
	t.Helper()
	session, err := e.sessions.CreateSession(context.Background(), CreateSessionParams{
		Name:        "Weekend plans",
		Organizer:   organizer,
		Preferences: []byte(prefs),
	})
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	return session
}

func (e *testEnv) join(t *testing.T, sessionID, name string) Participant {
	t.Helper()
	result, err := e.sessions.Join(context.Background(), sessionID, name)
	if err != nil {
		t.Fatalf("Join(%q) returned error: %v", name, err)
	}
	return result.Participant
}

func (e *testEnv) addEvent(t *testing.T, sourceID, title string, start time.Time, priceMin *float64, tags ...string) int64 {
	t.Helper()
	event, err := e.store.Events.UpsertEvent(context.Background(), persistence.Event{
		Title:     title,
		DateStart: start,
		PriceMin:  priceMin,
		PriceMax:  priceMin,
		Source:    "test",
		SourceID:  sourceID,
		VibeTags:  tags,
	})
	if err != nil {
		t.Fatalf("UpsertEvent returned error: %v", err)
	}
	return event.ID
}

func (e *testEnv) vote(t *testing.T, sessionID string, participantID, eventID int64, interested bool) {
	t.Helper()
	err := e.votes.CastVote(context.Background(), CastVoteParams{
		SessionID:     sessionID,
		ParticipantID: participantID,
		EventID:       eventID,
		Interested:    interested,
	})
	if err != nil {
		t.Fatalf("CastVote returned error: %v", err)
	}
}

func price(v float64) *float64 { return &v }

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := KindOf(err); got != want {
		t.Fatalf("expected %s error, got %s (%v)", want, got, err)
	}
	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if appErr.CorrelationID == "" {
		t.Fatalf("expected a correlation id on %v", err)
	}
}

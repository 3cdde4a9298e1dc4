package sqlstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/yescount/internal/persistence"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	config := SQLiteConfig(filepath.Join(t.TempDir(), "yescount.db"))
	store, err := Open(context.Background(), config, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createSession(t *testing.T, store *Store, id string) persistence.Session {
	t.Helper()

	session := persistence.Session{
		ID:        id,
		Name:      "Friday plans",
		CreatedBy: "Ana",
		Status:    persistence.SessionStatusOpen,
		CreatedAt: testNow,
		ExpiresAt: testNow.Add(7 * 24 * time.Hour),
	}
	if err := store.Sessions.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	return session
}

func join(t *testing.T, store *Store, sessionID, name string) persistence.Participant {
	t.Helper()

	p, _, err := store.Participants.JoinParticipant(context.Background(), persistence.Participant{
		SessionID:      sessionID,
		Name:           name,
		NameNormalized: name,
	}, 10, testNow)
	if err != nil {
		t.Fatalf("JoinParticipant(%s) failed: %v", name, err)
	}
	return p
}

func upsertEvent(t *testing.T, store *Store, sourceID string) persistence.Event {
	t.Helper()

	price := 25.0
	event, err := store.Events.UpsertEvent(context.Background(), persistence.Event{
		Title:     "Gallery night " + sourceID,
		DateStart: testNow.Add(48 * time.Hour),
		PriceMin:  &price,
		Source:    "test",
		SourceID:  sourceID,
		VibeTags:  []string{"Artsy", "artsy", "nightlife"},
	})
	if err != nil {
		t.Fatalf("UpsertEvent failed: %v", err)
	}
	return event
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	if err := Migrate(context.Background(), store.Pool, nil); err != nil {
		t.Fatalf("second migration run failed: %v", err)
	}
}

func TestEventRepository(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	first := upsertEvent(t, store, "a")
	if first.ID == 0 {
		t.Fatal("expected generated ID")
	}
	if len(first.VibeTags) != 2 || first.VibeTags[0] != "artsy" {
		t.Fatalf("expected normalized tags, got %v", first.VibeTags)
	}
	if first.PriceMin == nil || *first.PriceMin != 25 || first.PriceMax != nil {
		t.Fatalf("unexpected prices %v %v", first.PriceMin, first.PriceMax)
	}

	again, err := store.Events.UpsertEvent(ctx, persistence.Event{
		Title:     "Renamed",
		DateStart: first.DateStart,
		Source:    "test",
		SourceID:  "a",
	})
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if again.ID != first.ID || again.Title != "Renamed" {
		t.Fatalf("expected update in place, got %+v", again)
	}

	second := upsertEvent(t, store, "b")

	all, err := store.Events.ListEvents(ctx, persistence.EventFilter{})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 events, got %d", len(all))
	}

	byID, err := store.Events.ListEvents(ctx, persistence.EventFilter{IDs: []int64{second.ID}})
	if err != nil || len(byID) != 1 || byID[0].ID != second.ID {
		t.Fatalf("unexpected ID filter result %v, %v", byID, err)
	}

	after := testNow.Add(72 * time.Hour)
	none, err := store.Events.ListEvents(ctx, persistence.EventFilter{StartsAfter: &after})
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no events after %v, got %v, %v", after, none, err)
	}

	if _, err := store.Events.GetEvent(ctx, 9999); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepository_StatusAndDelete(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	createSession(t, store, "s1")

	if err := store.Sessions.CreateSession(ctx, persistence.Session{ID: "s1", CreatedAt: testNow, ExpiresAt: testNow.Add(time.Hour)}); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	changed, err := store.Sessions.UpdateSessionStatus(ctx, "s1", []string{persistence.SessionStatusOpen}, persistence.SessionStatusLocked)
	if err != nil || !changed {
		t.Fatalf("expected lock to change the row, got %v, %v", changed, err)
	}
	changed, err = store.Sessions.UpdateSessionStatus(ctx, "s1", []string{persistence.SessionStatusOpen}, persistence.SessionStatusLocked)
	if err != nil || changed {
		t.Fatalf("expected conditional update to skip, got %v, %v", changed, err)
	}

	if err := store.Sessions.UpdateAdminPreferences(ctx, "s1", []byte(`{"min_attendees":2}`), testNow); !errors.Is(err, persistence.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed on locked session, got %v", err)
	}

	alice := join(t, store, mustOpen(t, store, "s2"), "alice")
	event := upsertEvent(t, store, "e")
	if err := store.Votes.UpsertVote(ctx, persistence.Vote{SessionID: "s2", ParticipantID: alice.ID, EventID: event.ID, Interested: true}, testNow); err != nil {
		t.Fatalf("UpsertVote failed: %v", err)
	}
	if err := store.Sessions.DeleteSession(ctx, "s2"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	votes, err := store.Votes.ListVotes(ctx, "s2")
	if err != nil || len(votes) != 0 {
		t.Fatalf("expected cascade to remove votes, got %v, %v", votes, err)
	}
	if err := store.Sessions.DeleteSession(ctx, "s2"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	removed, err := store.Sessions.DeleteExpiredSessions(ctx, testNow.Add(30*24*time.Hour))
	if err != nil || removed != 1 {
		t.Fatalf("expected 1 purged session, got %d, %v", removed, err)
	}
}

func mustOpen(t *testing.T, store *Store, id string) string {
	t.Helper()
	createSession(t, store, id)
	return id
}

func TestParticipantRepository_Join(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	createSession(t, store, "s1")

	first, created, err := store.Participants.JoinParticipant(ctx, persistence.Participant{SessionID: "s1", Name: "Ana", NameNormalized: "ana"}, 2, testNow)
	if err != nil || !created {
		t.Fatalf("expected creation, got %v, %v", created, err)
	}
	if _, _, err := store.Participants.JoinParticipant(ctx, persistence.Participant{SessionID: "s1", Name: "Ben", NameNormalized: "ben"}, 2, testNow); err != nil {
		t.Fatalf("second join failed: %v", err)
	}

	again, created, err := store.Participants.JoinParticipant(ctx, persistence.Participant{SessionID: "s1", Name: "ANA", NameNormalized: "ana"}, 2, testNow)
	if err != nil || created || again.ID != first.ID || again.Name != "Ana" {
		t.Fatalf("expected existing participant at capacity, got %+v, %v, %v", again, created, err)
	}

	if _, _, err := store.Participants.JoinParticipant(ctx, persistence.Participant{SessionID: "s1", Name: "Cy", NameNormalized: "cy"}, 2, testNow); !errors.Is(err, persistence.ErrCapacityReached) {
		t.Fatalf("expected ErrCapacityReached, got %v", err)
	}

	count, err := store.Participants.CountParticipants(ctx, "s1")
	if err != nil || count != 2 {
		t.Fatalf("expected 2 participants, got %d, %v", count, err)
	}

	expired := testNow.Add(8 * 24 * time.Hour)
	if _, _, err := store.Participants.JoinParticipant(ctx, persistence.Participant{SessionID: "s1", Name: "Dee", NameNormalized: "dee"}, 10, expired); !errors.Is(err, persistence.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed after expiry, got %v", err)
	}

	if _, _, err := store.Participants.JoinParticipant(ctx, persistence.Participant{SessionID: "missing", Name: "Dee", NameNormalized: "dee"}, 10, testNow); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVoteRepository_Upsert(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	createSession(t, store, "s1")
	ana := join(t, store, "s1", "ana")
	event := upsertEvent(t, store, "e1")

	vote := persistence.Vote{SessionID: "s1", ParticipantID: ana.ID, EventID: event.ID, Interested: true}
	if err := store.Votes.UpsertVote(ctx, vote, testNow); err != nil {
		t.Fatalf("UpsertVote failed: %v", err)
	}
	vote.Interested = false
	if err := store.Votes.UpsertVote(ctx, vote, testNow.Add(time.Minute)); err != nil {
		t.Fatalf("UpsertVote overwrite failed: %v", err)
	}

	votes, err := store.Votes.ListParticipantVotes(ctx, "s1", ana.ID)
	if err != nil {
		t.Fatalf("ListParticipantVotes failed: %v", err)
	}
	if len(votes) != 1 || votes[0].Interested {
		t.Fatalf("expected a single withdrawn vote, got %+v", votes)
	}

	vote.EventID = 424242
	if err := store.Votes.UpsertVote(ctx, vote, testNow); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown event, got %v", err)
	}
	vote.EventID = event.ID
	vote.ParticipantID = 999
	if err := store.Votes.UpsertVote(ctx, vote, testNow); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown participant, got %v", err)
	}
}

func TestAvailabilityRepository_Replace(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	createSession(t, store, "s1")
	ana := join(t, store, "s1", "ana")

	slot := func(date, start, end string) persistence.AvailabilitySlot {
		return persistence.AvailabilitySlot{SessionID: "s1", ParticipantID: ana.ID, Date: date, TimeStart: start, TimeEnd: end}
	}

	result, err := store.Availability.ReplaceAvailability(ctx, "s1", ana.ID, []persistence.AvailabilitySlot{
		slot("2026-03-06", "19:00", "21:00"),
		slot("2026-03-07", "12:00", "14:00"),
		slot("2026-03-07", "12:00", "14:00"),
	}, testNow)
	if err != nil {
		t.Fatalf("ReplaceAvailability failed: %v", err)
	}
	if result != (persistence.ReplaceResult{Inserted: 2}) {
		t.Fatalf("unexpected first result %+v", result)
	}

	result, err = store.Availability.ReplaceAvailability(ctx, "s1", ana.ID, []persistence.AvailabilitySlot{
		slot("2026-03-07", "12:00", "14:00"),
		slot("2026-03-08", "10:00", "11:00"),
	}, testNow)
	if err != nil {
		t.Fatalf("second ReplaceAvailability failed: %v", err)
	}
	if result != (persistence.ReplaceResult{Inserted: 1, Removed: 1, Unchanged: 1}) {
		t.Fatalf("unexpected diff %+v", result)
	}

	slots, err := store.Availability.ListAvailability(ctx, "s1")
	if err != nil {
		t.Fatalf("ListAvailability failed: %v", err)
	}
	if len(slots) != 2 || slots[0].Date != "2026-03-07" || slots[1].Date != "2026-03-08" {
		t.Fatalf("unexpected stored slots %+v", slots)
	}

	if _, err := store.Availability.ReplaceAvailability(ctx, "s1", ana.ID, nil, testNow); err != nil {
		t.Fatalf("clearing availability failed: %v", err)
	}
	slots, _ = store.Availability.ListParticipantAvailability(ctx, "s1", ana.ID)
	if len(slots) != 0 {
		t.Fatalf("expected empty availability, got %+v", slots)
	}
}

func TestDialect_Rebind(t *testing.T) {
	t.Parallel()

	query := `SELECT * FROM t WHERE a = ? AND b = '?' AND c IN (?, ?)`
	if got := SQLite.Rebind(query); got != query {
		t.Fatalf("sqlite rebind changed query: %s", got)
	}
	want := `SELECT * FROM t WHERE a = $1 AND b = '?' AND c IN ($2, $3)`
	if got := Postgres.Rebind(query); got != want {
		t.Fatalf("postgres rebind = %s, want %s", got, want)
	}
	if got := placeholders(3); got != "?, ?, ?" {
		t.Fatalf("placeholders(3) = %q", got)
	}
}

func TestConfig_DriverDSN(t *testing.T) {
	t.Parallel()

	dsn := SQLiteConfig("data/app.db").driverDSN()
	for _, want := range []string{"file:data/app.db?", "_txlock=immediate", "foreign_keys%281%29"} {
		if !contains(dsn, want) {
			t.Fatalf("dsn %q missing %q", dsn, want)
		}
	}
	if got := PostgresConfig("postgres://localhost/db").driverDSN(); got != "postgres://localhost/db" {
		t.Fatalf("postgres dsn rewritten: %s", got)
	}
	if err := (Config{Dialect: SQLite}).Validate(); err == nil {
		t.Fatal("expected empty DSN to be rejected")
	}
}

func contains(s, sub string) bool {
	return containsAny(s, sub)
}

func TestErrorMapper_MapError(t *testing.T) {
	t.Parallel()

	mapper := NewErrorMapper()
	cases := []struct {
		in   error
		want error
	}{
		{errors.New("UNIQUE constraint failed: sessions.id"), persistence.ErrDuplicate},
		{errors.New("CHECK constraint failed: status"), persistence.ErrConstraintViolation},
		{errors.New("database is locked"), persistence.ErrBusy},
		{persistence.ErrSessionClosed, persistence.ErrSessionClosed},
	}
	for _, tc := range cases {
		if got := mapper.MapError(tc.in); !errors.Is(got, tc.want) {
			t.Errorf("MapError(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if mapper.MapError(nil) != nil {
		t.Error("MapError(nil) should be nil")
	}
}

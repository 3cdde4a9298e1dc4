package persistence

import (
	"context"
	"time"
)

// EventRepository exposes the event catalog.
type EventRepository interface {
	UpsertEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id int64) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
}

// SessionRepository exposes session lifecycle storage.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	// UpdateSessionStatus changes the status only when the current status is one
	// of from. It reports whether a row changed.
	UpdateSessionStatus(ctx context.Context, id string, from []string, to string) (bool, error)
	// UpdateAdminPreferences replaces the preference record of an open, unexpired session.
	UpdateAdminPreferences(ctx context.Context, id string, prefs []byte, now time.Time) error
	DeleteSession(ctx context.Context, id string) error
	// DeleteExpiredSessions removes sessions whose expiry is before cutoff and
	// returns how many were removed.
	DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

// ParticipantRepository exposes session membership storage.
type ParticipantRepository interface {
	// JoinParticipant returns the participant with the normalized name, creating
	// it when absent and the session holds fewer than limit participants.
	JoinParticipant(ctx context.Context, participant Participant, limit int, now time.Time) (Participant, bool, error)
	GetParticipant(ctx context.Context, sessionID string, id int64) (Participant, error)
	ListParticipants(ctx context.Context, sessionID string) ([]Participant, error)
	CountParticipants(ctx context.Context, sessionID string) (int, error)
}

// VoteRepository exposes interest vote storage.
type VoteRepository interface {
	UpsertVote(ctx context.Context, vote Vote, now time.Time) error
	ListVotes(ctx context.Context, sessionID string) ([]Vote, error)
	ListParticipantVotes(ctx context.Context, sessionID string, participantID int64) ([]Vote, error)
}

// AvailabilityRepository exposes availability storage.
type AvailabilityRepository interface {
	// ReplaceAvailability makes the participant's stored slots equal to slots in
	// a single transaction.
	ReplaceAvailability(ctx context.Context, sessionID string, participantID int64, slots []AvailabilitySlot, now time.Time) (ReplaceResult, error)
	ListAvailability(ctx context.Context, sessionID string) ([]AvailabilitySlot, error)
	ListParticipantAvailability(ctx context.Context, sessionID string, participantID int64) ([]AvailabilitySlot, error)
}

package application

import (
	"encoding/json"
	"time"

	"github.com/example/yescount/internal/engine"
	"github.com/example/yescount/internal/persistence"
)

// Session status values.
const (
	StatusOpen     = persistence.SessionStatusOpen
	StatusLocked   = persistence.SessionStatusLocked
	StatusArchived = persistence.SessionStatusArchived
)

// Repositories bundles the stores the services depend on.
type Repositories struct {
	Events       persistence.EventRepository
	Sessions     persistence.SessionRepository
	Participants persistence.ParticipantRepository
	Votes        persistence.VoteRepository
	Availability persistence.AvailabilityRepository
}

// Session is the caller facing view of a planning session.
type Session struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	CreatedBy   string             `json:"created_by"`
	Status      string             `json:"status"`
	Expired     bool               `json:"expired"`
	Preferences engine.Preferences `json:"preferences"`
	CreatedAt   time.Time          `json:"created_at"`
	ExpiresAt   time.Time          `json:"expires_at"`
}

// CreateSessionParams captures caller provided session fields.
type CreateSessionParams struct {
	Name      string
	Organizer string
	// Preferences is the raw preference record; empty means defaults.
	Preferences json.RawMessage
}

// UpdatePreferencesParams replaces the organizer preferences of a session.
type UpdatePreferencesParams struct {
	SessionID   string
	Actor       string
	Preferences json.RawMessage
}

// Participant is a member of one session.
type Participant struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Name      string    `json:"name"`
	JoinedAt  time.Time `json:"joined_at"`
}

// JoinResult reports the participant a join resolved to.
type JoinResult struct {
	Participant Participant `json:"participant"`
	Created     bool        `json:"created"`
}

// Preview is the read-only aggregate shown before joining.
type Preview struct {
	Session      Session        `json:"session"`
	Participants []string       `json:"participants"`
	TopEvents    []EventSummary `json:"top_events"`
}

// EventSummary pairs an event with its interest count.
type EventSummary struct {
	EventID   int64     `json:"event_id"`
	Title     string    `json:"title"`
	DateStart time.Time `json:"date_start"`
	YesVotes  int       `json:"yes_votes"`
}

// Event is a catalog entry.
type Event struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DateStart   time.Time  `json:"date_start"`
	DateEnd     *time.Time `json:"date_end,omitempty"`
	Location    string     `json:"location"`
	PriceMin    *float64   `json:"price_min,omitempty"`
	PriceMax    *float64   `json:"price_max,omitempty"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	VibeTags    []string   `json:"vibe_tags"`
}

// EventListParams narrows event listings.
type EventListParams struct {
	StartsAfter  *time.Time
	StartsBefore *time.Time
	Source       string
	Limit        int
}

// CastVoteParams records one interest signal.
type CastVoteParams struct {
	SessionID     string
	ParticipantID int64
	EventID       int64
	Interested    bool
}

// Vote is a stored interest signal.
type Vote struct {
	EventID    int64     `json:"event_id"`
	Interested bool      `json:"interested"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// EventTally aggregates the votes cast on one event.
type EventTally struct {
	EventID                  int64   `json:"event_id"`
	YesVotes                 int     `json:"yes_votes"`
	TotalVotes               int     `json:"total_votes"`
	InterestedParticipantIDs []int64 `json:"interested_participant_ids"`
}

// Tally aggregates a session's votes per event, ordered by event ID.
type Tally struct {
	SessionID string       `json:"session_id"`
	Events    []EventTally `json:"events"`
}

// YesVotes returns the interested count per event.
func (t Tally) YesVotes() map[int64]int {
	out := make(map[int64]int, len(t.Events))
	for _, e := range t.Events {
		out[e.EventID] = e.YesVotes
	}
	return out
}

// SetAvailabilityParams replaces a participant's availability.
type SetAvailabilityParams struct {
	SessionID     string
	ParticipantID int64
	Slots         []engine.Slot
}

// AvailabilityResult reports how a replacement changed the stored set.
type AvailabilityResult struct {
	Inserted  int `json:"inserted"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
}

// SlotAvailability lists who is free in one slot.
type SlotAvailability struct {
	Slot           engine.Slot `json:"slot"`
	ParticipantIDs []int64     `json:"participant_ids"`
}

// DateAvailability groups slots by date.
type DateAvailability struct {
	Date  string             `json:"date"`
	Slots []SlotAvailability `json:"slots"`
}

// OverlapMatrix is the scored set of occupied slots.
type OverlapMatrix struct {
	SessionID        string               `json:"session_id"`
	ParticipantCount int                  `json:"participant_count"`
	Cells            []engine.OverlapCell `json:"cells"`
}

// Recommendations is the ranked (event, slot) list of a session.
type Recommendations struct {
	SessionID        string                  `json:"session_id"`
	ParticipantCount int                     `json:"participant_count"`
	Items            []engine.Recommendation `json:"items"`
}

// EventRanking is the interest-only ranking used before availability exists.
type EventRanking struct {
	SessionID        string             `json:"session_id"`
	ParticipantCount int                `json:"participant_count"`
	Items            []engine.EventRank `json:"items"`
}

func toEvent(e persistence.Event) Event {
	return Event{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		DateStart:   e.DateStart,
		DateEnd:     e.DateEnd,
		Location:    e.Location,
		PriceMin:    e.PriceMin,
		PriceMax:    e.PriceMax,
		URL:         e.URL,
		Source:      e.Source,
		VibeTags:    e.VibeTags,
	}
}

func toEngineEvent(e persistence.Event) engine.Event {
	return engine.Event{
		ID:        e.ID,
		Title:     e.Title,
		PriceMin:  e.PriceMin,
		PriceMax:  e.PriceMax,
		DateStart: e.DateStart,
		DateEnd:   e.DateEnd,
		VibeTags:  e.VibeTags,
	}
}

func toParticipant(p persistence.Participant) Participant {
	return Participant{ID: p.ID, SessionID: p.SessionID, Name: p.Name, JoinedAt: p.JoinedAt}
}

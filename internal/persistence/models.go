package persistence

import "time"

// Session status values stored in the sessions table.
const (
	SessionStatusOpen     = "open"
	SessionStatusLocked   = "locked"
	SessionStatusArchived = "archived"
)

// Event represents a catalog entry that sessions vote on.
type Event struct {
	ID          int64
	Title       string
	Description string
	DateStart   time.Time
	DateEnd     *time.Time
	Location    string
	PriceMin    *float64
	PriceMax    *float64
	URL         string
	Source      string
	SourceID    string
	VibeTags    []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EventFilter narrows catalog listings. Zero values leave a bound open.
type EventFilter struct {
	StartsAfter  *time.Time
	StartsBefore *time.Time
	Source       string
	IDs          []int64
	Limit        int
}

// Session represents a group planning workspace.
type Session struct {
	ID               string
	Name             string
	CreatedBy        string
	AdminPreferences []byte
	Status           string
	CreatedAt        time.Time
	ExpiresAt        time.Time
}

// Participant represents a member of a single session.
type Participant struct {
	ID             int64
	SessionID      string
	Name           string
	NameNormalized string
	JoinedAt       time.Time
}

// Vote represents a participant's interest signal on one event.
type Vote struct {
	SessionID     string
	ParticipantID int64
	EventID       int64
	Interested    bool
	UpdatedAt     time.Time
}

// AvailabilitySlot represents one window a participant marked as free.
type AvailabilitySlot struct {
	SessionID     string
	ParticipantID int64
	Date          string
	TimeStart     string
	TimeEnd       string
}

// ReplaceResult reports what an availability replacement changed.
type ReplaceResult struct {
	Inserted  int
	Removed   int
	Unchanged int
}

package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/yescount/internal/persistence"
)

// Store bundles the repositories backed by one connection pool.
type Store struct {
	Pool         *ConnectionPool
	Events       *EventRepository
	Sessions     *SessionRepository
	Participants *ParticipantRepository
	Votes        *VoteRepository
	Availability *AvailabilityRepository
}

// Open connects to the database described by config, applies migrations and
// returns the repositories.
func Open(ctx context.Context, config Config, logger *slog.Logger) (*Store, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate %s database: %w", config.Dialect.Name(), err)
	}
	return NewStore(pool), nil
}

// NewStore wires the repositories around an existing pool.
func NewStore(pool *ConnectionPool) *Store {
	return &Store{
		Pool:         pool,
		Events:       NewEventRepository(pool),
		Sessions:     NewSessionRepository(pool),
		Participants: NewParticipantRepository(pool),
		Votes:        NewVoteRepository(pool),
		Availability: NewAvailabilityRepository(pool),
	}
}

// Close releases the underlying pool.
func (s *Store) Close() error {
	return s.Pool.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

// lockOpenSession loads the session row inside tx, taking a row lock where the
// dialect supports it, and fails unless the session is open and unexpired.
func lockOpenSession(ctx context.Context, helper *QueryHelper, tx *sql.Tx, sessionID string, now time.Time) error {
	query := `SELECT status, expires_at FROM sessions WHERE id = ?` + helper.pool.dialect.ForUpdate()

	var status string
	var expiresAt int64
	if err := helper.QueryRowTx(ctx, tx, query, sessionID).Scan(&status, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: session %s", persistence.ErrNotFound, sessionID)
		}
		return err
	}

	if status != persistence.SessionStatusOpen || toMillis(now) >= expiresAt {
		return persistence.ErrSessionClosed
	}
	return nil
}

// ensureParticipant fails with ErrNotFound unless the participant belongs to the session.
func ensureParticipant(ctx context.Context, helper *QueryHelper, tx *sql.Tx, sessionID string, participantID int64) error {
	var one int
	err := helper.QueryRowTx(ctx, tx,
		`SELECT 1 FROM participants WHERE id = ? AND session_id = ?`, participantID, sessionID).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: participant %d", persistence.ErrNotFound, participantID)
	}
	return err
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}

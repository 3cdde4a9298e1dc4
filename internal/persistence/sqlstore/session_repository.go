package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/yescount/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository
type SessionRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateSession inserts a new session
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) error {
	if session.ID == "" || !session.ExpiresAt.After(session.CreatedAt) {
		return persistence.ErrConstraintViolation
	}
	if session.Status == "" {
		session.Status = persistence.SessionStatusOpen
	}
	prefs := string(session.AdminPreferences)
	if prefs == "" {
		prefs = "{}"
	}

	query := `
		INSERT INTO sessions (id, name, created_by, admin_preferences, status, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query,
		session.ID,
		session.Name,
		session.CreatedBy,
		prefs,
		session.Status,
		toMillis(session.CreatedAt),
		toMillis(session.ExpiresAt),
	)
	return r.mapper.MapError(err)
}

// GetSession retrieves a session by ID
func (r *SessionRepository) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	query := `
		SELECT id, name, created_by, admin_preferences, status, created_at, expires_at
		FROM sessions
		WHERE id = ?
	`

	var (
		session              persistence.Session
		prefs                string
		createdAt, expiresAt int64
	)
	err := r.helper.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.Name,
		&session.CreatedBy,
		&prefs,
		&session.Status,
		&createdAt,
		&expiresAt,
	)
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}

	session.AdminPreferences = []byte(prefs)
	session.CreatedAt = fromMillis(createdAt)
	session.ExpiresAt = fromMillis(expiresAt)
	return session, nil
}

// UpdateSessionStatus moves the session to status to when its current status is one of from.
func (r *SessionRepository) UpdateSessionStatus(ctx context.Context, id string, from []string, to string) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}

	args := []interface{}{to, id}
	for _, status := range from {
		args = append(args, status)
	}
	query := `UPDATE sessions SET status = ? WHERE id = ? AND status IN (` + placeholders(len(from)) + `)`

	result, err := r.helper.Exec(ctx, query, args...)
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// UpdateAdminPreferences replaces the preference record of an open, unexpired session
func (r *SessionRepository) UpdateAdminPreferences(ctx context.Context, id string, prefs []byte, now time.Time) error {
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := lockOpenSession(ctx, r.helper, tx, id, now); err != nil {
			return err
		}
		_, err := r.helper.ExecTx(ctx, tx, `UPDATE sessions SET admin_preferences = ? WHERE id = ?`, string(prefs), id)
		return err
	})
	return r.mapper.MapError(err)
}

// DeleteSession removes the session together with its participants, votes and availability
func (r *SessionRepository) DeleteSession(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired before cutoff
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.helper.Exec(ctx, `DELETE FROM sessions WHERE expires_at < ?`, toMillis(cutoff))
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return result.RowsAffected()
}

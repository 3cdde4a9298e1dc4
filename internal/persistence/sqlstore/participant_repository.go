package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/yescount/internal/persistence"
)

// ParticipantRepository implements persistence.ParticipantRepository
type ParticipantRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewParticipantRepository creates a new participant repository
func NewParticipantRepository(pool *ConnectionPool) *ParticipantRepository {
	return &ParticipantRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// JoinParticipant returns the participant registered under the normalized
// name, inserting it when absent and the session is below limit. The bool
// result reports whether a row was created.
func (r *ParticipantRepository) JoinParticipant(ctx context.Context, participant persistence.Participant, limit int, now time.Time) (persistence.Participant, bool, error) {
	if participant.NameNormalized == "" || participant.Name == "" {
		return persistence.Participant{}, false, persistence.ErrConstraintViolation
	}

	var (
		stored  persistence.Participant
		created bool
	)
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := lockOpenSession(ctx, r.helper, tx, participant.SessionID, now); err != nil {
			return err
		}

		row := r.helper.QueryRowTx(ctx, tx, `
			SELECT id, session_id, name, name_normalized, joined_at
			FROM participants
			WHERE session_id = ? AND name_normalized = ?
		`, participant.SessionID, participant.NameNormalized)
		existing, err := scanParticipant(row)
		if err == nil {
			stored = existing
			return nil
		}
		if err != sql.ErrNoRows {
			return err
		}

		var count int
		if err := r.helper.QueryRowTx(ctx, tx,
			`SELECT COUNT(*) FROM participants WHERE session_id = ?`, participant.SessionID).Scan(&count); err != nil {
			return err
		}
		if count >= limit {
			return persistence.ErrCapacityReached
		}

		joinedAt := toMillis(now)
		row = r.helper.QueryRowTx(ctx, tx, `
			INSERT INTO participants (session_id, name, name_normalized, joined_at)
			VALUES (?, ?, ?, ?)
			RETURNING id, session_id, name, name_normalized, joined_at
		`, participant.SessionID, participant.Name, participant.NameNormalized, joinedAt)
		stored, err = scanParticipant(row)
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return persistence.Participant{}, false, r.mapper.MapError(err)
	}
	return stored, created, nil
}

// GetParticipant retrieves a participant of the session by ID
func (r *ParticipantRepository) GetParticipant(ctx context.Context, sessionID string, id int64) (persistence.Participant, error) {
	row := r.helper.QueryRow(ctx, `
		SELECT id, session_id, name, name_normalized, joined_at
		FROM participants
		WHERE session_id = ? AND id = ?
	`, sessionID, id)
	participant, err := scanParticipant(row)
	if err != nil {
		return persistence.Participant{}, r.mapper.MapError(err)
	}
	return participant, nil
}

// ListParticipants returns the session's participants in join order
func (r *ParticipantRepository) ListParticipants(ctx context.Context, sessionID string) ([]persistence.Participant, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, session_id, name, name_normalized, joined_at
		FROM participants
		WHERE session_id = ?
		ORDER BY joined_at ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	participants := []persistence.Participant{}
	for rows.Next() {
		participant, err := scanParticipant(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		participants = append(participants, participant)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return participants, nil
}

// CountParticipants returns how many participants joined the session
func (r *ParticipantRepository) CountParticipants(ctx context.Context, sessionID string) (int, error) {
	var count int
	if err := r.helper.QueryRow(ctx, `SELECT COUNT(*) FROM participants WHERE session_id = ?`, sessionID).Scan(&count); err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

func scanParticipant(row rowScanner) (persistence.Participant, error) {
	var (
		participant persistence.Participant
		joinedAt    int64
	)
	if err := row.Scan(
		&participant.ID,
		&participant.SessionID,
		&participant.Name,
		&participant.NameNormalized,
		&joinedAt,
	); err != nil {
		return persistence.Participant{}, err
	}
	participant.JoinedAt = fromMillis(joinedAt)
	return participant, nil
}

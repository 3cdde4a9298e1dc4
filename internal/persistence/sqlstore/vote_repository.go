package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/yescount/internal/persistence"
)

// VoteRepository implements persistence.VoteRepository
type VoteRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewVoteRepository creates a new vote repository
func NewVoteRepository(pool *ConnectionPool) *VoteRepository {
	return &VoteRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// UpsertVote records the participant's interest in the event, replacing any earlier vote
func (r *VoteRepository) UpsertVote(ctx context.Context, vote persistence.Vote, now time.Time) error {
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := lockOpenSession(ctx, r.helper, tx, vote.SessionID, now); err != nil {
			return err
		}
		if err := ensureParticipant(ctx, r.helper, tx, vote.SessionID, vote.ParticipantID); err != nil {
			return err
		}

		var one int
		err := r.helper.QueryRowTx(ctx, tx, `SELECT 1 FROM events WHERE id = ?`, vote.EventID).Scan(&one)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: event %d", persistence.ErrNotFound, vote.EventID)
		}
		if err != nil {
			return err
		}

		_, err = r.helper.ExecTx(ctx, tx, `
			INSERT INTO votes (session_id, participant_id, event_id, interested, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (session_id, participant_id, event_id) DO UPDATE SET
				interested = excluded.interested,
				updated_at = excluded.updated_at
		`, vote.SessionID, vote.ParticipantID, vote.EventID, vote.Interested, toMillis(now))
		return err
	})
	return r.mapper.MapError(err)
}

// ListVotes returns every vote cast in the session
func (r *VoteRepository) ListVotes(ctx context.Context, sessionID string) ([]persistence.Vote, error) {
	return r.list(ctx, `
		SELECT session_id, participant_id, event_id, interested, updated_at
		FROM votes
		WHERE session_id = ?
		ORDER BY event_id ASC, participant_id ASC
	`, sessionID)
}

// ListParticipantVotes returns the votes a single participant cast in the session
func (r *VoteRepository) ListParticipantVotes(ctx context.Context, sessionID string, participantID int64) ([]persistence.Vote, error) {
	return r.list(ctx, `
		SELECT session_id, participant_id, event_id, interested, updated_at
		FROM votes
		WHERE session_id = ? AND participant_id = ?
		ORDER BY event_id ASC
	`, sessionID, participantID)
}

func (r *VoteRepository) list(ctx context.Context, query string, args ...interface{}) ([]persistence.Vote, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	votes := []persistence.Vote{}
	for rows.Next() {
		var (
			vote      persistence.Vote
			updatedAt int64
		)
		if err := rows.Scan(&vote.SessionID, &vote.ParticipantID, &vote.EventID, &vote.Interested, &updatedAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		vote.UpdatedAt = fromMillis(updatedAt)
		votes = append(votes, vote)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return votes, nil
}

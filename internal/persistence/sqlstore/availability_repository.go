package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/yescount/internal/persistence"
)

// AvailabilityRepository implements persistence.AvailabilityRepository
type AvailabilityRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAvailabilityRepository creates a new availability repository
func NewAvailabilityRepository(pool *ConnectionPool) *AvailabilityRepository {
	return &AvailabilityRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

type slotKey struct {
	date, start, end string
}

func keyOf(slot persistence.AvailabilitySlot) slotKey {
	return slotKey{date: slot.Date, start: slot.TimeStart, end: slot.TimeEnd}
}

// ReplaceAvailability makes the participant's stored slots equal to slots.
// Only the difference is written, all inside one transaction.
func (r *AvailabilityRepository) ReplaceAvailability(ctx context.Context, sessionID string, participantID int64, slots []persistence.AvailabilitySlot, now time.Time) (persistence.ReplaceResult, error) {
	desired := make(map[slotKey]bool, len(slots))
	var ordered []slotKey
	for _, slot := range slots {
		key := keyOf(slot)
		if !desired[key] {
			desired[key] = true
			ordered = append(ordered, key)
		}
	}

	var result persistence.ReplaceResult
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := lockOpenSession(ctx, r.helper, tx, sessionID, now); err != nil {
			return err
		}
		if err := ensureParticipant(ctx, r.helper, tx, sessionID, participantID); err != nil {
			return err
		}

		existing, err := r.queryTx(ctx, tx, sessionID, participantID)
		if err != nil {
			return err
		}
		current := make(map[slotKey]bool, len(existing))
		for _, slot := range existing {
			key := keyOf(slot)
			current[key] = true
			if desired[key] {
				result.Unchanged++
				continue
			}
			if _, err := r.helper.ExecTx(ctx, tx, `
				DELETE FROM availability_slots
				WHERE session_id = ? AND participant_id = ? AND slot_date = ? AND time_start = ? AND time_end = ?
			`, sessionID, participantID, key.date, key.start, key.end); err != nil {
				return err
			}
			result.Removed++
		}

		for _, key := range ordered {
			if current[key] {
				continue
			}
			if _, err := r.helper.ExecTx(ctx, tx, `
				INSERT INTO availability_slots (session_id, participant_id, slot_date, time_start, time_end, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, sessionID, participantID, key.date, key.start, key.end, toMillis(now)); err != nil {
				return err
			}
			result.Inserted++
		}
		return nil
	})
	if err != nil {
		return persistence.ReplaceResult{}, r.mapper.MapError(err)
	}
	return result, nil
}

// ListAvailability returns every slot marked in the session
func (r *AvailabilityRepository) ListAvailability(ctx context.Context, sessionID string) ([]persistence.AvailabilitySlot, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT session_id, participant_id, slot_date, time_start, time_end
		FROM availability_slots
		WHERE session_id = ?
		ORDER BY slot_date ASC, time_start ASC, time_end ASC, participant_id ASC
	`, sessionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	slots, err := scanSlots(rows)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	return slots, nil
}

// ListParticipantAvailability returns the slots of one participant
func (r *AvailabilityRepository) ListParticipantAvailability(ctx context.Context, sessionID string, participantID int64) ([]persistence.AvailabilitySlot, error) {
	rows, err := r.helper.Query(ctx, participantSlotsQuery, sessionID, participantID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	slots, err := scanSlots(rows)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	return slots, nil
}

const participantSlotsQuery = `
	SELECT session_id, participant_id, slot_date, time_start, time_end
	FROM availability_slots
	WHERE session_id = ? AND participant_id = ?
	ORDER BY slot_date ASC, time_start ASC, time_end ASC
`

func (r *AvailabilityRepository) queryTx(ctx context.Context, tx *sql.Tx, sessionID string, participantID int64) ([]persistence.AvailabilitySlot, error) {
	rows, err := r.helper.QueryTx(ctx, tx, participantSlotsQuery, sessionID, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSlots(rows)
}

func scanSlots(rows *sql.Rows) ([]persistence.AvailabilitySlot, error) {
	slots := []persistence.AvailabilitySlot{}
	for rows.Next() {
		var slot persistence.AvailabilitySlot
		if err := rows.Scan(&slot.SessionID, &slot.ParticipantID, &slot.Date, &slot.TimeStart, &slot.TimeEnd); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

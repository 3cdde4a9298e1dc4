package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/yescount/internal/cache"
	"github.com/example/yescount/internal/engine"
	"github.com/example/yescount/internal/persistence"
)

// maxSlotsPerSubmission bounds one availability replacement.
const maxSlotsPerSubmission = 200

// AvailabilityService records availability and computes slot overlap.
type AvailabilityService struct {
	repos  Repositories
	cache  cache.DerivedCache
	now    func() time.Time
	logger *slog.Logger
}

// NewAvailabilityService constructs an availability service with the provided dependencies.
func NewAvailabilityService(repos Repositories, derived cache.DerivedCache, now func() time.Time) *AvailabilityService {
	return NewAvailabilityServiceWithLogger(repos, derived, now, nil)
}

// NewAvailabilityServiceWithLogger constructs an availability service with a specified logger.
func NewAvailabilityServiceWithLogger(repos Repositories, derived cache.DerivedCache, now func() time.Time, logger *slog.Logger) *AvailabilityService {
	if derived == nil {
		derived = cache.Nop{}
	}
	if now == nil {
		now = time.Now
	}
	return &AvailabilityService{repos: repos, cache: derived, now: now, logger: defaultLogger(logger)}
}

func (s *AvailabilityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AvailabilityService", operation, attrs...)
}

// SetAvailability replaces the participant's full slot set atomically.
func (s *AvailabilityService) SetAvailability(ctx context.Context, params SetAvailabilityParams) (result AvailabilityResult, err error) {
	logger := s.loggerWith(ctx, "SetAvailability",
		"session_id", params.SessionID,
		"participant_id", params.ParticipantID,
	)
	defer func() {
		logResult(ctx, logger, err, "failed to set availability", "availability replaced",
			"inserted", result.Inserted, "removed", result.Removed, "unchanged", result.Unchanged)
		err = finalizeError(ctx, err)
	}()

	if vErr := validateSlots(params.Slots); vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	if _, err = loadWritableSession(ctx, s.repos.Sessions, params.SessionID, now); err != nil {
		return
	}

	slots := make([]persistence.AvailabilitySlot, 0, len(params.Slots))
	for _, slot := range params.Slots {
		slots = append(slots, persistence.AvailabilitySlot{
			SessionID:     params.SessionID,
			ParticipantID: params.ParticipantID,
			Date:          slot.Date,
			TimeStart:     slot.Start,
			TimeEnd:       slot.End,
		})
	}

	replaced, err := s.repos.Availability.ReplaceAvailability(ctx, params.SessionID, params.ParticipantID, slots, now.UTC())
	if err != nil {
		err = resolveWriteError(ctx, s.repos.Sessions, s.now, params.SessionID, err)
		return
	}

	if replaced.Inserted > 0 || replaced.Removed > 0 {
		invalidate(ctx, s.cache, logger, params.SessionID)
	}
	result = AvailabilityResult(replaced)
	return
}

func validateSlots(slots []engine.Slot) *ValidationError {
	vErr := &ValidationError{}
	if len(slots) > maxSlotsPerSubmission {
		vErr.add("slots", fmt.Sprintf("at most %d slots can be submitted at once", maxSlotsPerSubmission))
		return vErr
	}
	for i, slot := range slots {
		if err := slot.Validate(); err != nil {
			vErr.add(fmt.Sprintf("slots[%d]", i), err.Error())
		}
	}
	return vErr
}

// GroupAvailability lists, per date and slot, who is available.
func (s *AvailabilityService) GroupAvailability(ctx context.Context, sessionID string) ([]DateAvailability, error) {
	if _, err := s.repos.Sessions.GetSession(ctx, sessionID); err != nil {
		return nil, finalizeError(ctx, mapSessionLookupError(err, sessionID))
	}
	slots, err := s.repos.Availability.ListAvailability(ctx, sessionID)
	if err != nil {
		return nil, finalizeError(ctx, mapRepoError(err))
	}
	return groupByDate(slotGroups(slots)), nil
}

// OverlapMatrix scores every occupied slot by the fraction of participants available.
func (s *AvailabilityService) OverlapMatrix(ctx context.Context, sessionID string) (OverlapMatrix, error) {
	matrix, err := cachedValue(ctx, s.cache, sessionID, kindOverlap, "", func(ctx context.Context) (OverlapMatrix, error) {
		return computeOverlap(ctx, s.repos, sessionID)
	})
	return matrix, finalizeError(ctx, err)
}

func computeOverlap(ctx context.Context, repos Repositories, sessionID string) (OverlapMatrix, error) {
	snapshot, err := loadSnapshot(ctx, repos, sessionID)
	if err != nil {
		return OverlapMatrix{}, err
	}
	slots, err := repos.Availability.ListAvailability(ctx, sessionID)
	if err != nil {
		return OverlapMatrix{}, mapRepoError(err)
	}
	cells := engine.BuildOverlap(slotGroups(slots), snapshot.participantCount)
	if cells == nil {
		cells = []engine.OverlapCell{}
	}
	return OverlapMatrix{SessionID: sessionID, ParticipantCount: snapshot.participantCount, Cells: cells}, nil
}

// ParticipantAvailability returns the slots one participant marked.
func (s *AvailabilityService) ParticipantAvailability(ctx context.Context, sessionID string, participantID int64) ([]engine.Slot, error) {
	if _, err := s.repos.Participants.GetParticipant(ctx, sessionID, participantID); err != nil {
		return nil, finalizeError(ctx, mapRepoError(err))
	}
	stored, err := s.repos.Availability.ListParticipantAvailability(ctx, sessionID, participantID)
	if err != nil {
		return nil, finalizeError(ctx, mapRepoError(err))
	}
	out := make([]engine.Slot, 0, len(stored))
	for _, slot := range stored {
		out = append(out, engine.Slot{Date: slot.Date, Start: slot.TimeStart, End: slot.TimeEnd})
	}
	return out, nil
}

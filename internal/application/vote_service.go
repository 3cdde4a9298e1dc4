package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/yescount/internal/cache"
	"github.com/example/yescount/internal/persistence"
)

// VoteService records interest votes and tallies them.
type VoteService struct {
	repos  Repositories
	cache  cache.DerivedCache
	now    func() time.Time
	logger *slog.Logger
}

// NewVoteService constructs a vote service with the provided dependencies.
func NewVoteService(repos Repositories, derived cache.DerivedCache, now func() time.Time) *VoteService {
	return NewVoteServiceWithLogger(repos, derived, now, nil)
}

// NewVoteServiceWithLogger constructs a vote service with a specified logger.
func NewVoteServiceWithLogger(repos Repositories, derived cache.DerivedCache, now func() time.Time, logger *slog.Logger) *VoteService {
	if derived == nil {
		derived = cache.Nop{}
	}
	if now == nil {
		now = time.Now
	}
	return &VoteService{repos: repos, cache: derived, now: now, logger: defaultLogger(logger)}
}

func (s *VoteService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "VoteService", operation, attrs...)
}

// CastVote upserts the participant's vote on the event.
func (s *VoteService) CastVote(ctx context.Context, params CastVoteParams) (err error) {
	logger := s.loggerWith(ctx, "CastVote",
		"session_id", params.SessionID,
		"participant_id", params.ParticipantID,
		"event_id", params.EventID,
	)
	defer func() {
		logResult(ctx, logger, err, "failed to cast vote", "vote recorded", "interested", params.Interested)
		err = finalizeError(ctx, err)
	}()

	now := s.now()
	if _, err = loadWritableSession(ctx, s.repos.Sessions, params.SessionID, now); err != nil {
		return
	}

	err = s.repos.Votes.UpsertVote(ctx, persistence.Vote{
		SessionID:     params.SessionID,
		ParticipantID: params.ParticipantID,
		EventID:       params.EventID,
		Interested:    params.Interested,
	}, now.UTC())
	if err != nil {
		err = resolveWriteError(ctx, s.repos.Sessions, s.now, params.SessionID, err)
		return
	}

	invalidate(ctx, s.cache, logger, params.SessionID)
	return
}

// Tally returns per event interest counts for the session.
func (s *VoteService) Tally(ctx context.Context, sessionID string) (Tally, error) {
	if _, err := s.repos.Sessions.GetSession(ctx, sessionID); err != nil {
		return Tally{}, finalizeError(ctx, mapSessionLookupError(err, sessionID))
	}

	tally, err := cachedValue(ctx, s.cache, sessionID, kindTally, "", func(ctx context.Context) (Tally, error) {
		votes, err := s.repos.Votes.ListVotes(ctx, sessionID)
		if err != nil {
			return Tally{}, mapRepoError(err)
		}
		return buildTally(sessionID, votes), nil
	})
	return tally, finalizeError(ctx, err)
}

// ParticipantVotes returns the votes one participant cast in the session.
func (s *VoteService) ParticipantVotes(ctx context.Context, sessionID string, participantID int64) ([]Vote, error) {
	if _, err := s.repos.Participants.GetParticipant(ctx, sessionID, participantID); err != nil {
		return nil, finalizeError(ctx, mapRepoError(err))
	}
	votes, err := s.repos.Votes.ListParticipantVotes(ctx, sessionID, participantID)
	if err != nil {
		return nil, finalizeError(ctx, mapRepoError(err))
	}
	out := make([]Vote, 0, len(votes))
	for _, v := range votes {
		out = append(out, Vote{EventID: v.EventID, Interested: v.Interested, UpdatedAt: v.UpdatedAt})
	}
	return out, nil
}

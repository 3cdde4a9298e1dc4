package application

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/example/yescount/internal/cache"
	"github.com/example/yescount/internal/engine"
	"github.com/example/yescount/internal/persistence"
)

// maxTopN bounds how many recommendations one request may ask for.
const maxTopN = 50

// RecommendationSettings configures ranking.
type RecommendationSettings struct {
	Weights     engine.Weights
	DefaultTopN int
	Location    *time.Location
}

// DefaultRecommendationSettings returns the default weights, top 5 and UTC.
func DefaultRecommendationSettings() RecommendationSettings {
	return RecommendationSettings{Weights: engine.DefaultWeights(), DefaultTopN: 5, Location: time.UTC}
}

// RecommendationService ranks (event, slot) candidates for a session.
type RecommendationService struct {
	repos    Repositories
	cache    cache.DerivedCache
	settings RecommendationSettings
	logger   *slog.Logger
}

// NewRecommendationService constructs a recommendation service with the provided dependencies.
func NewRecommendationService(repos Repositories, derived cache.DerivedCache, settings RecommendationSettings) *RecommendationService {
	return NewRecommendationServiceWithLogger(repos, derived, settings, nil)
}

// NewRecommendationServiceWithLogger constructs a recommendation service with a specified logger.
func NewRecommendationServiceWithLogger(repos Repositories, derived cache.DerivedCache, settings RecommendationSettings, logger *slog.Logger) *RecommendationService {
	defaults := DefaultRecommendationSettings()
	if settings.Weights == (engine.Weights{}) {
		settings.Weights = defaults.Weights
	}
	if settings.DefaultTopN <= 0 {
		settings.DefaultTopN = defaults.DefaultTopN
	}
	if settings.Location == nil {
		settings.Location = defaults.Location
	}
	if derived == nil {
		derived = cache.Nop{}
	}
	return &RecommendationService{repos: repos, cache: derived, settings: settings, logger: defaultLogger(logger)}
}

func (s *RecommendationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RecommendationService", operation, attrs...)
}

// ComputeRecommendations returns the top ranked (event, slot) pairs. A topN of
// zero selects the configured default.
func (s *RecommendationService) ComputeRecommendations(ctx context.Context, sessionID string, topN int) (result Recommendations, err error) {
	logger := s.loggerWith(ctx, "ComputeRecommendations", "session_id", sessionID)
	defer func() {
		if err != nil {
			logResult(ctx, logger, err, "failed to compute recommendations", "")
		} else {
			logger.DebugContext(ctx, "recommendations computed", "count", len(result.Items))
		}
		err = finalizeError(ctx, err)
	}()

	switch {
	case topN < 0 || topN > maxTopN:
		err = newValidationError("top", "top must be between 1 and "+strconv.Itoa(maxTopN))
		return
	case topN == 0:
		topN = s.settings.DefaultTopN
	}

	result, err = cachedValue(ctx, s.cache, sessionID, kindRecommendations, strconv.Itoa(topN), func(ctx context.Context) (Recommendations, error) {
		return s.compute(ctx, sessionID, topN)
	})
	return
}

func (s *RecommendationService) compute(ctx context.Context, sessionID string, topN int) (Recommendations, error) {
	input, err := s.rankInput(ctx, sessionID)
	if err != nil {
		return Recommendations{}, err
	}
	out := Recommendations{SessionID: sessionID, ParticipantCount: input.ParticipantCount, Items: []engine.Recommendation{}}
	if input.ParticipantCount == 0 {
		return out, nil
	}

	slots, err := s.repos.Availability.ListAvailability(ctx, sessionID)
	if err != nil {
		return Recommendations{}, mapRepoError(err)
	}
	input.Cells = engine.BuildOverlap(slotGroups(slots), input.ParticipantCount)
	input.TopN = topN
	if ranked := engine.Rank(input); len(ranked) > 0 {
		out.Items = ranked
	}
	return out, nil
}

// RankEventsOnly orders catalog events by interest alone, for sessions where
// nobody has entered availability yet.
func (s *RecommendationService) RankEventsOnly(ctx context.Context, sessionID string) (ranking EventRanking, err error) {
	defer func() { err = finalizeError(ctx, err) }()

	ranking, err = cachedValue(ctx, s.cache, sessionID, kindRanking, "", func(ctx context.Context) (EventRanking, error) {
		input, err := s.rankInput(ctx, sessionID)
		if err != nil {
			return EventRanking{}, err
		}
		items := engine.RankEventsOnly(input)
		if items == nil {
			items = []engine.EventRank{}
		}
		return EventRanking{SessionID: sessionID, ParticipantCount: input.ParticipantCount, Items: items}, nil
	})
	return
}

// rankInput gathers everything but the overlap cells.
func (s *RecommendationService) rankInput(ctx context.Context, sessionID string) (engine.RankInput, error) {
	snapshot, err := loadSnapshot(ctx, s.repos, sessionID)
	if err != nil {
		return engine.RankInput{}, err
	}
	votes, err := s.repos.Votes.ListVotes(ctx, sessionID)
	if err != nil {
		return engine.RankInput{}, mapRepoError(err)
	}
	records, err := s.repos.Events.ListEvents(ctx, persistence.EventFilter{})
	if err != nil {
		return engine.RankInput{}, mapRepoError(err)
	}
	events := make([]engine.Event, 0, len(records))
	for _, record := range records {
		events = append(events, toEngineEvent(record))
	}

	return engine.RankInput{
		Events:           events,
		YesVotes:         buildTally(sessionID, votes).YesVotes(),
		ParticipantCount: snapshot.participantCount,
		Preferences:      snapshot.preferences,
		Weights:          s.settings.Weights,
		Location:         s.settings.Location,
	}, nil
}

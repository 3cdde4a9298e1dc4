package application

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/example/yescount/internal/cache"
	"github.com/example/yescount/internal/engine"
	"github.com/example/yescount/internal/persistence"
)

// Derived value kinds used as cache key components.
const (
	kindTally           = "tally"
	kindOverlap         = "overlap"
	kindRecommendations = "recommendations"
	kindRanking         = "ranking"
)

// cachedValue returns the cached value for the session or computes and stores
// it. The generation is read before computing, so a value built from data
// older than a concurrent write is filed under a generation nobody reads.
func cachedValue[T any](ctx context.Context, derived cache.DerivedCache, sessionID, kind, variant string, compute func(context.Context) (T, error)) (T, error) {
	gen, genErr := derived.Generation(ctx, sessionID)
	key := cache.Key{SessionID: sessionID, Generation: gen, Kind: kind, Variant: variant}
	if genErr == nil {
		if data, ok := derived.Get(ctx, key); ok {
			var value T
			if err := json.Unmarshal(data, &value); err == nil {
				return value, nil
			}
		}
	}

	value, err := compute(ctx)
	if err != nil {
		return value, err
	}
	if genErr == nil {
		if data, err := json.Marshal(value); err == nil {
			derived.Store(ctx, key, data)
		}
	}
	return value, nil
}

// buildTally aggregates votes per event. Every stored vote row counts once.
func buildTally(sessionID string, votes []persistence.Vote) Tally {
	byEvent := make(map[int64]*EventTally)
	for _, v := range votes {
		t, ok := byEvent[v.EventID]
		if !ok {
			t = &EventTally{EventID: v.EventID, InterestedParticipantIDs: []int64{}}
			byEvent[v.EventID] = t
		}
		t.TotalVotes++
		if v.Interested {
			t.YesVotes++
			t.InterestedParticipantIDs = append(t.InterestedParticipantIDs, v.ParticipantID)
		}
	}

	events := make([]EventTally, 0, len(byEvent))
	for _, t := range byEvent {
		sort.Slice(t.InterestedParticipantIDs, func(i, j int) bool {
			return t.InterestedParticipantIDs[i] < t.InterestedParticipantIDs[j]
		})
		events = append(events, *t)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].EventID < events[j].EventID })
	return Tally{SessionID: sessionID, Events: events}
}

func slotGroups(slots []persistence.AvailabilitySlot) []engine.SlotGroup {
	entries := make([]engine.SlotEntry, 0, len(slots))
	for _, s := range slots {
		entries = append(entries, engine.SlotEntry{
			Slot:          engine.Slot{Date: s.Date, Start: s.TimeStart, End: s.TimeEnd},
			ParticipantID: s.ParticipantID,
		})
	}
	return engine.GroupSlots(entries)
}

// groupByDate nests slot groups under their dates, both ascending.
func groupByDate(groups []engine.SlotGroup) []DateAvailability {
	out := []DateAvailability{}
	for _, g := range groups {
		if len(out) == 0 || out[len(out)-1].Date != g.Slot.Date {
			out = append(out, DateAvailability{Date: g.Slot.Date})
		}
		last := &out[len(out)-1]
		last.Slots = append(last.Slots, SlotAvailability{Slot: g.Slot, ParticipantIDs: g.ParticipantIDs})
	}
	return out
}

// sessionSnapshot loads the inputs shared by the derived computations.
type sessionSnapshot struct {
	session          persistence.Session
	preferences      engine.Preferences
	participantCount int
}

func loadSnapshot(ctx context.Context, repos Repositories, sessionID string) (sessionSnapshot, error) {
	record, err := repos.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return sessionSnapshot{}, mapSessionLookupError(err, sessionID)
	}
	prefs, err := storedPreferences(record)
	if err != nil {
		return sessionSnapshot{}, err
	}
	count, err := repos.Participants.CountParticipants(ctx, sessionID)
	if err != nil {
		return sessionSnapshot{}, mapRepoError(err)
	}
	return sessionSnapshot{session: record, preferences: prefs, participantCount: count}, nil
}

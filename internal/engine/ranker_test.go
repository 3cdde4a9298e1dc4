package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cellsFor(groups []SlotGroup, participants int) []OverlapCell {
	return BuildOverlap(groups, participants)
}

func TestRank(t *testing.T) {
	t.Parallel()

	saturday := Slot{Date: "2026-03-07", Start: "12:00", End: "14:00"}

	t.Run("zero participants yields an empty list", func(t *testing.T) {
		t.Parallel()

		got := Rank(RankInput{
			Events:  []Event{{ID: 1}},
			Weights: DefaultWeights(),
		})
		assert.Empty(t, got)
	})

	t.Run("no availability yields an empty list", func(t *testing.T) {
		t.Parallel()

		got := Rank(RankInput{
			Events:           []Event{{ID: 1}},
			ParticipantCount: 3,
			Weights:          DefaultWeights(),
		})
		assert.Empty(t, got)
	})

	t.Run("over budget event is excluded even with the most votes", func(t *testing.T) {
		t.Parallel()

		got := Rank(RankInput{
			Events: []Event{
				{ID: 1, PriceMin: price(60), DateStart: at("2026-03-06T12:00:00Z")},
				{ID: 2, PriceMin: price(20), DateStart: at("2026-03-06T12:00:00Z")},
			},
			YesVotes:         map[int64]int{1: 3, 2: 1},
			ParticipantCount: 3,
			Cells:            cellsFor([]SlotGroup{{Slot: fridayEvening, ParticipantIDs: []int64{1, 2, 3}}}, 3),
			Preferences:      Preferences{BudgetCap: price(50)},
			Weights:          DefaultWeights(),
			Location:         time.UTC,
		})
		require.Len(t, got, 1)
		assert.Equal(t, int64(2), got[0].Event.ID)
	})

	t.Run("composite formula and breakdown", func(t *testing.T) {
		t.Parallel()

		got := Rank(RankInput{
			Events:           []Event{{ID: 7, VibeTags: []string{"artsy"}, DateStart: at("2026-03-06T12:00:00Z")}},
			YesVotes:         map[int64]int{7: 2},
			ParticipantCount: 4,
			Cells:            cellsFor([]SlotGroup{{Slot: fridayEvening, ParticipantIDs: []int64{1, 2, 3}}}, 4),
			Preferences:      Preferences{VibeTags: []string{"artsy", "outdoor"}, MinAttendees: 4},
			Weights:          DefaultWeights(),
		})
		require.Len(t, got, 1)
		assert.InDelta(t, 0.5, got[0].Breakdown.Interest, 1e-12)
		assert.InDelta(t, 0.75, got[0].Breakdown.Overlap, 1e-12)
		assert.InDelta(t, 0.5, got[0].Breakdown.Admin, 1e-12)
		assert.InDelta(t, 0.4*0.5+0.4*0.75+0.2*0.5, got[0].Composite, 1e-12)
		assert.Equal(t, []int64{1, 2, 3}, got[0].Attendees)
		assert.False(t, got[0].MeetsMinAttendees)
	})

	t.Run("equal composite prefers higher overlap", func(t *testing.T) {
		t.Parallel()

		got := Rank(RankInput{
			Events: []Event{
				{ID: 1, DateStart: at("2026-03-06T12:00:00Z")},
				{ID: 2, DateStart: at("2026-03-06T12:00:00Z")},
			},
			YesVotes:         map[int64]int{1: 2, 2: 1},
			ParticipantCount: 2,
			Cells: cellsFor([]SlotGroup{
				{Slot: fridayEvening, ParticipantIDs: []int64{1}},
				{Slot: saturday, ParticipantIDs: []int64{1, 2}},
			}, 2),
			Weights: Weights{Interest: 1, Overlap: 1},
		})

		require.Len(t, got, 4)
		assert.Equal(t, int64(1), got[0].Event.ID)
		assert.Equal(t, saturday, got[0].Slot)
		// Event 1 on Friday and event 2 on Saturday both score 1.5.
		assert.Equal(t, int64(2), got[1].Event.ID)
		assert.Equal(t, saturday, got[1].Slot)
		assert.Equal(t, int64(1), got[2].Event.ID)
		assert.Equal(t, fridayEvening, got[2].Slot)
		assert.Equal(t, int64(2), got[3].Event.ID)
	})

	t.Run("equal overlap prefers lower price then earlier start", func(t *testing.T) {
		t.Parallel()

		got := Rank(RankInput{
			Events: []Event{
				{ID: 1, PriceMin: price(20), DateStart: at("2026-03-01T12:00:00Z")},
				{ID: 2, PriceMin: price(10), DateStart: at("2026-03-05T12:00:00Z")},
				{ID: 3, PriceMin: price(10), DateStart: at("2026-03-02T12:00:00Z")},
				{ID: 4, DateStart: at("2026-03-09T12:00:00Z")},
			},
			ParticipantCount: 1,
			Cells:            cellsFor([]SlotGroup{{Slot: fridayEvening, ParticipantIDs: []int64{1}}}, 1),
			Weights:          DefaultWeights(),
		})

		require.Len(t, got, 4)
		ids := []int64{got[0].Event.ID, got[1].Event.ID, got[2].Event.ID, got[3].Event.ID}
		assert.Equal(t, []int64{4, 3, 2, 1}, ids)
	})

	t.Run("ordering is total and deterministic", func(t *testing.T) {
		t.Parallel()

		input := RankInput{
			Events: []Event{
				{ID: 5, DateStart: at("2026-03-01T12:00:00Z")},
				{ID: 3, DateStart: at("2026-03-01T12:00:00Z")},
			},
			ParticipantCount: 2,
			Cells: cellsFor([]SlotGroup{
				{Slot: saturday, ParticipantIDs: []int64{1}},
				{Slot: fridayEvening, ParticipantIDs: []int64{2}},
			}, 2),
			Weights: DefaultWeights(),
		}

		first := Rank(input)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, Rank(input))
		}
		require.Len(t, first, 4)
		assert.Equal(t, int64(3), first[0].Event.ID)
		assert.Equal(t, fridayEvening, first[0].Slot)
		assert.Equal(t, int64(3), first[1].Event.ID)
		assert.Equal(t, saturday, first[1].Slot)
		assert.Equal(t, int64(5), first[2].Event.ID)
		assert.Equal(t, fridayEvening, first[2].Slot)
	})

	t.Run("event start breaks ties before slot date", func(t *testing.T) {
		t.Parallel()

		got := Rank(RankInput{
			Events: []Event{
				{ID: 1, DateStart: at("2026-03-04T12:00:00Z")},
				{ID: 2, DateStart: at("2026-03-02T12:00:00Z")},
			},
			ParticipantCount: 1,
			Cells: cellsFor([]SlotGroup{
				{Slot: fridayEvening, ParticipantIDs: []int64{1}},
				{Slot: saturday, ParticipantIDs: []int64{1}},
			}, 1),
			Weights: DefaultWeights(),
		})

		require.Len(t, got, 4)
		assert.Equal(t, int64(2), got[0].Event.ID)
		assert.Equal(t, int64(2), got[1].Event.ID)
		assert.Equal(t, saturday, got[1].Slot)
		assert.Equal(t, int64(1), got[2].Event.ID)
		assert.Equal(t, fridayEvening, got[2].Slot)
	})

	t.Run("windowed events only pair with overlapping slots", func(t *testing.T) {
		t.Parallel()

		ny, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)
		showEnd := time.Date(2026, 3, 6, 22, 0, 0, 0, ny)
		got := Rank(RankInput{
			Events: []Event{{
				ID:        9,
				DateStart: time.Date(2026, 3, 6, 19, 30, 0, 0, ny),
				DateEnd:   &showEnd,
			}},
			ParticipantCount: 2,
			Cells: cellsFor([]SlotGroup{
				{Slot: fridayEvening, ParticipantIDs: []int64{1, 2}},
				{Slot: saturday, ParticipantIDs: []int64{1, 2}},
			}, 2),
			Weights:  DefaultWeights(),
			Location: ny,
		})

		require.Len(t, got, 1)
		assert.Equal(t, fridayEvening, got[0].Slot)
	})

	t.Run("open ended events respect range and blackout for slots", func(t *testing.T) {
		t.Parallel()

		start, end := "2026-03-01", "2026-03-06"
		got := Rank(RankInput{
			Events:           []Event{{ID: 1, DateStart: at("2026-03-02T12:00:00Z")}},
			ParticipantCount: 1,
			Cells: cellsFor([]SlotGroup{
				{Slot: fridayEvening, ParticipantIDs: []int64{1}},
				{Slot: saturday, ParticipantIDs: []int64{1}},
				{Slot: Slot{Date: "2026-03-04", Start: "18:00", End: "20:00"}, ParticipantIDs: []int64{1}},
			}, 1),
			Preferences: Preferences{DateRangeStart: &start, DateRangeEnd: &end, BlackoutDates: []string{"2026-03-04"}},
			Weights:     DefaultWeights(),
		})

		require.Len(t, got, 1)
		assert.Equal(t, fridayEvening, got[0].Slot)
	})

	t.Run("top N truncates and fewer candidates return all", func(t *testing.T) {
		t.Parallel()

		input := RankInput{
			Events:           []Event{{ID: 1}, {ID: 2}, {ID: 3}},
			ParticipantCount: 1,
			Cells:            cellsFor([]SlotGroup{{Slot: fridayEvening, ParticipantIDs: []int64{1}}}, 1),
			Weights:          DefaultWeights(),
			TopN:             2,
		}
		assert.Len(t, Rank(input), 2)

		input.TopN = 10
		assert.Len(t, Rank(input), 3)
	})
}

func TestRankEventsOnly(t *testing.T) {
	t.Parallel()

	t.Run("orders by interest then price then date", func(t *testing.T) {
		t.Parallel()

		got := RankEventsOnly(RankInput{
			Events: []Event{
				{ID: 1, PriceMin: price(30), DateStart: at("2026-03-01T12:00:00Z")},
				{ID: 2, PriceMin: price(10), DateStart: at("2026-03-03T12:00:00Z")},
				{ID: 3, PriceMin: price(10), DateStart: at("2026-03-02T12:00:00Z")},
				{ID: 4, PriceMin: price(99), DateStart: at("2026-03-02T12:00:00Z")},
			},
			YesVotes:         map[int64]int{4: 2},
			ParticipantCount: 2,
		})

		require.Len(t, got, 4)
		assert.Equal(t, int64(4), got[0].Event.ID)
		assert.Equal(t, 1.0, got[0].InterestScore)
		assert.Equal(t, int64(3), got[1].Event.ID)
		assert.Equal(t, int64(2), got[2].Event.ID)
		assert.Equal(t, int64(1), got[3].Event.ID)
	})

	t.Run("zero participants produce neutral scores", func(t *testing.T) {
		t.Parallel()

		got := RankEventsOnly(RankInput{Events: []Event{{ID: 1}, {ID: 2}}})
		require.Len(t, got, 2)
		for _, rank := range got {
			assert.Equal(t, 0.0, rank.InterestScore)
		}
	})

	t.Run("hard filters still apply", func(t *testing.T) {
		t.Parallel()

		got := RankEventsOnly(RankInput{
			Events:      []Event{{ID: 1, PriceMin: price(60)}, {ID: 2, PriceMin: price(5)}},
			YesVotes:    map[int64]int{1: 5},
			Preferences: Preferences{BudgetCap: price(50)},
		})
		require.Len(t, got, 1)
		assert.Equal(t, int64(2), got[0].Event.ID)
	})
}

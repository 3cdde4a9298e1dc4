package engine

import (
	"math"
	"sort"
	"time"
)

// Weights are the composite score coefficients.
type Weights struct {
	Interest float64
	Overlap  float64
	Admin    float64
}

// DefaultWeights returns 0.4 interest, 0.4 overlap and 0.2 admin.
func DefaultWeights() Weights {
	return Weights{Interest: 0.4, Overlap: 0.4, Admin: 0.2}
}

// RankInput carries everything a ranking pass needs.
type RankInput struct {
	Events           []Event
	YesVotes         map[int64]int
	ParticipantCount int
	Cells            []OverlapCell
	Preferences      Preferences
	Weights          Weights
	Location         *time.Location
	// TopN limits the result. Zero or negative returns every candidate.
	TopN int
}

// ScoreBreakdown holds the individual component scores.
type ScoreBreakdown struct {
	Interest float64 `json:"interest"`
	Overlap  float64 `json:"overlap"`
	Admin    float64 `json:"admin"`
}

// Recommendation is one ranked event and slot proposal.
type Recommendation struct {
	Event             Event          `json:"event"`
	Slot              Slot           `json:"slot"`
	Composite         float64        `json:"composite"`
	Breakdown         ScoreBreakdown `json:"breakdown"`
	Attendees         []int64        `json:"attendees"`
	YesVotes          int            `json:"yes_votes"`
	MeetsMinAttendees bool           `json:"meets_min_attendees"`
}

// EventRank is an event ranked by interest alone.
type EventRank struct {
	Event         Event   `json:"event"`
	YesVotes      int     `json:"yes_votes"`
	InterestScore float64 `json:"interest_score"`
	AdminScore    float64 `json:"admin_score"`
}

// Rank pairs filtered events with occupied slots and orders the pairs.
func Rank(in RankInput) []Recommendation {
	if in.ParticipantCount <= 0 || len(in.Cells) == 0 {
		return nil
	}

	loc := location(in.Location)
	candidates := ApplyHardFilters(in.Events, in.Preferences, loc)
	minAttendees := in.Preferences.MinAttendees
	if minAttendees <= 0 {
		minAttendees = 1
	}

	var out []Recommendation
	for _, event := range candidates {
		yes := in.YesVotes[event.ID]
		interest := interestScore(yes, in.ParticipantCount)
		admin := AdminScore(event, in.Preferences)

		for _, cell := range in.Cells {
			if !slotFitsEvent(cell.Slot, event, in.Preferences, loc) {
				continue
			}
			attendees := make([]int64, len(cell.ParticipantIDs))
			copy(attendees, cell.ParticipantIDs)
			out = append(out, Recommendation{
				Event:     event,
				Slot:      cell.Slot,
				Composite: in.Weights.Interest*interest + in.Weights.Overlap*cell.Score + in.Weights.Admin*admin,
				Breakdown: ScoreBreakdown{
					Interest: interest,
					Overlap:  cell.Score,
					Admin:    admin,
				},
				Attendees:         attendees,
				YesVotes:          yes,
				MeetsMinAttendees: len(attendees) >= minAttendees,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return recommendationLess(out[i], out[j]) })
	if in.TopN > 0 && len(out) > in.TopN {
		out = out[:in.TopN]
	}
	return out
}

// RankEventsOnly orders the filtered events by interest alone.
func RankEventsOnly(in RankInput) []EventRank {
	loc := location(in.Location)
	candidates := ApplyHardFilters(in.Events, in.Preferences, loc)

	out := make([]EventRank, 0, len(candidates))
	for _, event := range candidates {
		yes := in.YesVotes[event.ID]
		out = append(out, EventRank{
			Event:         event,
			YesVotes:      yes,
			InterestScore: interestScore(yes, in.ParticipantCount),
			AdminScore:    AdminScore(event, in.Preferences),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if sa, sb := roundScore(a.InterestScore), roundScore(b.InterestScore); sa != sb {
			return sa > sb
		}
		if pa, pb := a.Event.MinPrice(), b.Event.MinPrice(); pa != pb {
			return pa < pb
		}
		if !a.Event.DateStart.Equal(b.Event.DateStart) {
			return a.Event.DateStart.Before(b.Event.DateStart)
		}
		return a.Event.ID < b.Event.ID
	})
	if in.TopN > 0 && len(out) > in.TopN {
		out = out[:in.TopN]
	}
	return out
}

func recommendationLess(a, b Recommendation) bool {
	if ca, cb := roundScore(a.Composite), roundScore(b.Composite); ca != cb {
		return ca > cb
	}
	if oa, ob := roundScore(a.Breakdown.Overlap), roundScore(b.Breakdown.Overlap); oa != ob {
		return oa > ob
	}
	if pa, pb := a.Event.MinPrice(), b.Event.MinPrice(); pa != pb {
		return pa < pb
	}
	if !a.Event.DateStart.Equal(b.Event.DateStart) {
		return a.Event.DateStart.Before(b.Event.DateStart)
	}
	if a.Event.ID != b.Event.ID {
		return a.Event.ID < b.Event.ID
	}
	return a.Slot.Less(b.Slot)
}

// slotFitsEvent decides whether a slot can host the event. Events with an end
// time need the slot to overlap their window; open-ended events accept any
// slot inside the admin date range. Blackout dates never host anything.
func slotFitsEvent(slot Slot, event Event, prefs Preferences, loc *time.Location) bool {
	if prefs.IsBlackout(slot.Date) {
		return false
	}
	if !event.HasWindow() {
		return prefs.InDateRange(slot.Date)
	}
	start, end, err := slot.Interval(loc)
	if err != nil {
		return false
	}
	return start.Before(*event.DateEnd) && end.After(event.DateStart)
}

func interestScore(yes, participants int) float64 {
	if participants <= 0 {
		return 0
	}
	return clamp01(float64(yes) / float64(participants))
}

// roundScore removes floating point noise so arithmetically equal sums tie.
func roundScore(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}

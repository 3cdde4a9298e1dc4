package engine

import (
	"fmt"
	"sort"
	"time"
)

// TimeLayout is the layout used for slot start and end times.
const TimeLayout = "15:04"

// Slot is a date plus a start and end time in the session's local zone.
type Slot struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// Less orders slots by date, start, then end.
func (s Slot) Less(other Slot) bool {
	if s.Date != other.Date {
		return s.Date < other.Date
	}
	if s.Start != other.Start {
		return s.Start < other.Start
	}
	return s.End < other.End
}

// Validate checks the date and time formats and that the slot is not empty.
func (s Slot) Validate() error {
	if !validDate(s.Date) {
		return fmt.Errorf("date %q must use YYYY-MM-DD", s.Date)
	}
	start, err := time.Parse(TimeLayout, s.Start)
	if err != nil || start.Format(TimeLayout) != s.Start {
		return fmt.Errorf("start %q must use HH:MM", s.Start)
	}
	end, err := time.Parse(TimeLayout, s.End)
	if err != nil || end.Format(TimeLayout) != s.End {
		return fmt.Errorf("end %q must use HH:MM", s.End)
	}
	if !start.Before(end) {
		return fmt.Errorf("start %s must be before end %s", s.Start, s.End)
	}
	return nil
}

// Interval resolves the slot to absolute instants in loc.
func (s Slot) Interval(loc *time.Location) (time.Time, time.Time, error) {
	loc = location(loc)
	start, err := time.ParseInLocation(DateLayout+" "+TimeLayout, s.Date+" "+s.Start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.ParseInLocation(DateLayout+" "+TimeLayout, s.Date+" "+s.End, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// SlotEntry records one participant being available in one slot.
type SlotEntry struct {
	Slot          Slot
	ParticipantID int64
}

// SlotGroup lists the participants available in a slot.
type SlotGroup struct {
	Slot           Slot
	ParticipantIDs []int64
}

// OverlapCell is the overlap score of one occupied slot.
type OverlapCell struct {
	Slot           Slot    `json:"slot"`
	ParticipantIDs []int64 `json:"participant_ids"`
	Available      int     `json:"available"`
	Total          int     `json:"total"`
	Score          float64 `json:"score"`
}

// GroupSlots aggregates entries per slot. Groups are ordered by slot and
// participant identifiers ascending, without duplicates.
func GroupSlots(entries []SlotEntry) []SlotGroup {
	if len(entries) == 0 {
		return nil
	}

	bySlot := make(map[Slot]map[int64]struct{})
	for _, entry := range entries {
		members, ok := bySlot[entry.Slot]
		if !ok {
			members = make(map[int64]struct{})
			bySlot[entry.Slot] = members
		}
		members[entry.ParticipantID] = struct{}{}
	}

	groups := make([]SlotGroup, 0, len(bySlot))
	for slot, members := range bySlot {
		ids := make([]int64, 0, len(members))
		for id := range members {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		groups = append(groups, SlotGroup{Slot: slot, ParticipantIDs: ids})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Slot.Less(groups[j].Slot) })
	return groups
}

// BuildOverlap scores each occupied slot as available/participantCount.
//
// Cells are sorted by score descending, then by slot. Without participants no
// cells are produced.
func BuildOverlap(groups []SlotGroup, participantCount int) []OverlapCell {
	if participantCount <= 0 || len(groups) == 0 {
		return nil
	}

	cells := make([]OverlapCell, 0, len(groups))
	for _, group := range groups {
		if len(group.ParticipantIDs) == 0 {
			continue
		}
		ids := make([]int64, len(group.ParticipantIDs))
		copy(ids, group.ParticipantIDs)
		cells = append(cells, OverlapCell{
			Slot:           group.Slot,
			ParticipantIDs: ids,
			Available:      len(ids),
			Total:          participantCount,
			Score:          clamp01(float64(len(ids)) / float64(participantCount)),
		})
	}

	sort.SliceStable(cells, func(i, j int) bool {
		if cells[i].Score != cells[j].Score {
			return cells[i].Score > cells[j].Score
		}
		return cells[i].Slot.Less(cells[j].Slot)
	})
	return cells
}

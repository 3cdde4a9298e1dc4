package engine

import (
	"strings"
	"time"
)

// Event is the subset of catalog data the ranking rules need.
type Event struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	PriceMin  *float64   `json:"price_min,omitempty"`
	PriceMax  *float64   `json:"price_max,omitempty"`
	DateStart time.Time  `json:"date_start"`
	DateEnd   *time.Time `json:"date_end,omitempty"`
	VibeTags  []string   `json:"vibe_tags"`
}

// LocalDate returns the calendar date the event starts on in loc.
func (e Event) LocalDate(loc *time.Location) string {
	return e.DateStart.In(location(loc)).Format(DateLayout)
}

// HasWindow reports whether the event has a usable end time.
func (e Event) HasWindow() bool {
	return e.DateEnd != nil && e.DateEnd.After(e.DateStart)
}

// MinPrice returns the minimum price, treating an unknown price as free.
func (e Event) MinPrice() float64 {
	if e.PriceMin == nil {
		return 0
	}
	return *e.PriceMin
}

// PassesHardFilters applies the budget, blackout and date range rules.
func PassesHardFilters(event Event, prefs Preferences, loc *time.Location) bool {
	if prefs.BudgetCap != nil && event.PriceMin != nil && *event.PriceMin > *prefs.BudgetCap {
		return false
	}
	date := event.LocalDate(loc)
	if prefs.IsBlackout(date) {
		return false
	}
	return prefs.InDateRange(date)
}

// ApplyHardFilters returns the events that pass every hard filter, in input order.
func ApplyHardFilters(events []Event, prefs Preferences, loc *time.Location) []Event {
	out := make([]Event, 0, len(events))
	for _, event := range events {
		if PassesHardFilters(event, prefs, loc) {
			out = append(out, event)
		}
	}
	return out
}

// AdminScore is the fraction of preferred vibe tags carried by the event.
// With no preferred tags the score is 1.
func AdminScore(event Event, prefs Preferences) float64 {
	preferred := normalizeTags(prefs.VibeTags)
	if len(preferred) == 0 {
		return 1.0
	}

	tags := make(map[string]struct{}, len(event.VibeTags))
	for _, tag := range event.VibeTags {
		tags[strings.ToLower(strings.TrimSpace(tag))] = struct{}{}
	}

	matches := 0
	for _, tag := range preferred {
		if _, ok := tags[tag]; ok {
			matches++
		}
	}
	return clamp01(float64(matches) / float64(len(preferred)))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"
)

// DateLayout is the layout used for calendar dates throughout the engine.
const DateLayout = "2006-01-02"

// Preferences is the organizer-authored constraint bundle attached to a session.
//
// A nil BudgetCap means no limit, empty VibeTags is neutral, and nil range
// bounds leave that side of the range open.
type Preferences struct {
	BudgetCap      *float64 `json:"budget_cap,omitempty"`
	VibeTags       []string `json:"vibe_tags,omitempty"`
	MinAttendees   int      `json:"min_attendees,omitempty"`
	BlackoutDates  []string `json:"blackout_dates,omitempty"`
	DateRangeStart *string  `json:"date_range_start,omitempty"`
	DateRangeEnd   *string  `json:"date_range_end,omitempty"`
}

// PreferenceErrors maps preference fields to validation messages.
type PreferenceErrors map[string]string

// Error implements the error interface.
func (e PreferenceErrors) Error() string {
	if len(e) == 0 {
		return "invalid preferences"
	}
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e[field])
	}
	return "invalid preferences: " + strings.Join(parts, "; ")
}

// DefaultPreferences returns preferences with every optional field at its default.
func DefaultPreferences() Preferences {
	return Preferences{MinAttendees: 1}
}

// ParsePreferences decodes, normalizes and validates a serialized preference record.
// Empty input yields the defaults. Unknown fields are rejected.
func ParsePreferences(raw []byte) (Preferences, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return DefaultPreferences(), nil
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.DisallowUnknownFields()

	var prefs Preferences
	if err := decoder.Decode(&prefs); err != nil {
		return Preferences{}, PreferenceErrors{"preferences": fmt.Sprintf("malformed preferences: %v", err)}
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Preferences{}, PreferenceErrors{"preferences": "malformed preferences: unexpected data after the preference object"}
	}

	prefs = prefs.Normalize()
	if err := prefs.Validate(); err != nil {
		return Preferences{}, err
	}
	return prefs, nil
}

// Normalize trims and deduplicates list fields and applies defaults.
func (p Preferences) Normalize() Preferences {
	out := Preferences{
		MinAttendees: p.MinAttendees,
	}
	if out.MinAttendees == 0 {
		out.MinAttendees = 1
	}
	if p.BudgetCap != nil {
		budget := *p.BudgetCap
		out.BudgetCap = &budget
	}
	out.VibeTags = normalizeTags(p.VibeTags)

	if len(p.BlackoutDates) > 0 {
		seen := make(map[string]struct{}, len(p.BlackoutDates))
		for _, date := range p.BlackoutDates {
			date = strings.TrimSpace(date)
			if date == "" {
				continue
			}
			if _, ok := seen[date]; ok {
				continue
			}
			seen[date] = struct{}{}
			out.BlackoutDates = append(out.BlackoutDates, date)
		}
		sort.Strings(out.BlackoutDates)
	}

	out.DateRangeStart = trimmedOptional(p.DateRangeStart)
	out.DateRangeEnd = trimmedOptional(p.DateRangeEnd)
	return out
}

// Validate reports every invalid field.
func (p Preferences) Validate() error {
	errs := PreferenceErrors{}

	if p.BudgetCap != nil {
		if math.IsNaN(*p.BudgetCap) || math.IsInf(*p.BudgetCap, 0) || *p.BudgetCap < 0 {
			errs["budget_cap"] = "budget cap must be a non-negative number"
		}
	}
	if p.MinAttendees < 0 {
		errs["min_attendees"] = "minimum attendees must be at least 1"
	}
	for _, date := range p.BlackoutDates {
		if !validDate(date) {
			errs["blackout_dates"] = fmt.Sprintf("blackout date %q must use YYYY-MM-DD", date)
			break
		}
	}
	if p.DateRangeStart != nil && !validDate(*p.DateRangeStart) {
		errs["date_range_start"] = "date range start must use YYYY-MM-DD"
	}
	if p.DateRangeEnd != nil && !validDate(*p.DateRangeEnd) {
		errs["date_range_end"] = "date range end must use YYYY-MM-DD"
	}
	if _, startErr := errs["date_range_start"]; !startErr && p.DateRangeStart != nil && p.DateRangeEnd != nil {
		if _, endErr := errs["date_range_end"]; !endErr && *p.DateRangeStart > *p.DateRangeEnd {
			errs["date_range_end"] = "date range end must not be before start"
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Marshal serializes the preferences for storage.
func (p Preferences) Marshal() ([]byte, error) {
	return json.Marshal(p.Normalize())
}

// IsBlackout reports whether the date is a blackout date.
func (p Preferences) IsBlackout(date string) bool {
	for _, blackout := range p.BlackoutDates {
		if blackout == date {
			return true
		}
	}
	return false
}

// InDateRange reports whether the date lies within the inclusive range bounds.
func (p Preferences) InDateRange(date string) bool {
	if p.DateRangeStart != nil && date < *p.DateRangeStart {
		return false
	}
	if p.DateRangeEnd != nil && date > *p.DateRangeEnd {
		return false
	}
	return true
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func trimmedOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func validDate(value string) bool {
	parsed, err := time.Parse(DateLayout, value)
	return err == nil && parsed.Format(DateLayout) == value
}

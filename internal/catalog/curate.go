package catalog

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/example/yescount/internal/persistence"
)

// DefaultBallotSize caps the curated voting list.
const DefaultBallotSize = 30

var priorityKeywords = []string{"immersive", "theater", "theatre", "pop-up", "popup", "exhibit", "festival"}

// nonEventKeywords mark records that describe news, guides or closures rather
// than something a group can attend.
var nonEventKeywords = []string{
	"cheapest", "closure", "closed", "closing", "permanently closed", "news",
	"article", "report", "roundup", "guide to", "best bakery", "best restaurant",
	"best bars", "best things", "permanently shut", "shut down",
	"going out of business", "list of", "top 10", "top 15", "top 20", "things to know",
}

// CurateOptions narrows the voting list.
type CurateOptions struct {
	// TargetYear and TargetMonth restrict events to one month when set.
	TargetYear  int
	TargetMonth time.Month
	// Source keeps only events from one source when set.
	Source string
	// Now anchors the upcoming-events fallback.
	Now   time.Time
	Limit int
	// Location decides which month an event starts in.
	Location *time.Location
}

// Curate filters events down to a voting ballot ordered by quality, then ID,
// then start. When the month filter leaves nothing, upcoming events are used,
// and when there are none of those either, every plausible event is.
func Curate(events []persistence.Event, opts CurateOptions) []persistence.Event {
	if opts.Limit <= 0 {
		opts.Limit = DefaultBallotSize
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	candidates := make([]persistence.Event, 0, len(events))
	for _, e := range events {
		if opts.Source != "" && e.Source != opts.Source {
			continue
		}
		if !LooksLikeEvent(e) {
			continue
		}
		candidates = append(candidates, e)
	}

	filtered := candidates
	if opts.TargetYear != 0 || opts.TargetMonth != 0 {
		filtered = keep(candidates, func(e persistence.Event) bool {
			start := e.DateStart.In(loc)
			if opts.TargetYear != 0 && start.Year() != opts.TargetYear {
				return false
			}
			return opts.TargetMonth == 0 || start.Month() == opts.TargetMonth
		})
		if len(filtered) == 0 {
			today := truncateDay(opts.Now.In(loc))
			filtered = keep(candidates, func(e persistence.Event) bool {
				return !truncateDay(e.DateStart.In(loc)).Before(today)
			})
			if len(filtered) == 0 {
				filtered = candidates
			}
		}
	}

	out := append([]persistence.Event(nil), filtered...)
	sort.SliceStable(out, func(i, j int) bool {
		qi, qj := QualityScore(out[i]), QualityScore(out[j])
		if qi != qj {
			return qi > qj
		}
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].DateStart.Before(out[j].DateStart)
	})
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

// QualityScore rewards descriptive text and priority keywords.
func QualityScore(e persistence.Event) float64 {
	title := strings.TrimSpace(e.Title)
	description := strings.TrimSpace(e.Description)
	richness := math.Min(float64(len(title))*0.5+float64(len(description))*0.3, 50)

	text := strings.ToLower(title + " " + description)
	hits := 0
	for _, keyword := range priorityKeywords {
		if strings.Contains(text, keyword) {
			hits++
		}
	}
	return richness + math.Min(float64(hits)*10, 30)
}

// LooksLikeEvent rejects news, guides, closures and listicles.
func LooksLikeEvent(e persistence.Event) bool {
	title := strings.ToLower(e.Title)
	text := title + " " + strings.ToLower(e.Description)
	for _, keyword := range nonEventKeywords {
		if strings.Contains(text, keyword) {
			return false
		}
	}
	if strings.Contains(title, "things to do") || strings.Contains(title, "happenings") || strings.Contains(title, "you can't miss") {
		return false
	}
	hasDigit := strings.IndexFunc(title, unicode.IsDigit) >= 0
	if hasDigit && (strings.Contains(title, "top ") || strings.Contains(title, "best ")) {
		return false
	}
	return true
}

func keep(events []persistence.Event, pred func(persistence.Event) bool) []persistence.Event {
	out := make([]persistence.Event, 0, len(events))
	for _, e := range events {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Package catalog loads, normalizes and curates the event catalog that
// sessions vote on.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/yescount/internal/persistence"
)

// DefaultSource labels entries that do not name their source.
const DefaultSource = "catalog"

// ErrEmptyCatalog is returned when a catalog payload holds no data.
var ErrEmptyCatalog = errors.New("catalog: payload is empty")

// File models a YAML catalog document.
type File struct {
	Events []Entry `yaml:"events"`
}

// Entry is one raw catalog record as written by editors or scrapers.
type Entry struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Start       string   `yaml:"start"`
	End         string   `yaml:"end"`
	Location    string   `yaml:"location"`
	Price       string   `yaml:"price"`
	PriceMin    *float64 `yaml:"price_min"`
	PriceMax    *float64 `yaml:"price_max"`
	Free        bool     `yaml:"free"`
	URL         string   `yaml:"url"`
	Source      string   `yaml:"source"`
	SourceID    string   `yaml:"source_id"`
	Tags        []string `yaml:"tags"`
}

// Parse decodes a catalog from YAML bytes.
func Parse(data []byte) (File, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return File{}, ErrEmptyCatalog
	}
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return File{}, fmt.Errorf("catalog: decode: %w", err)
	}
	return file, nil
}

// Decode reads a catalog from r.
func Decode(r io.Reader) (File, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return File{}, fmt.Errorf("catalog: read: %w", err)
	}
	return Parse(content)
}

// LoadFile reads a catalog from the file at path.
func LoadFile(path string) (File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	file, err := Parse(content)
	if err != nil {
		return File{}, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return file, nil
}

// Normalize converts every entry, reporting the index of the first entry that
// cannot be converted.
func (f File) Normalize(loc *time.Location) ([]persistence.Event, error) {
	events := make([]persistence.Event, 0, len(f.Events))
	for i, entry := range f.Events {
		event, err := entry.Normalize(loc)
		if err != nil {
			return nil, fmt.Errorf("catalog: events[%d]: %w", i, err)
		}
		events = append(events, event)
	}
	return events, nil
}

// Normalize converts the entry into a storable event. Times without a zone
// are read in loc.
func (e Entry) Normalize(loc *time.Location) (persistence.Event, error) {
	if loc == nil {
		loc = time.UTC
	}

	title := strings.TrimSpace(e.Title)
	if title == "" {
		title = "Untitled Event"
	}
	description := strings.TrimSpace(e.Description)

	start, err := ParseTime(e.Start, loc)
	if err != nil {
		return persistence.Event{}, fmt.Errorf("start: %w", err)
	}
	var end *time.Time
	if strings.TrimSpace(e.End) != "" {
		t, err := ParseTime(e.End, loc)
		if err != nil {
			return persistence.Event{}, fmt.Errorf("end: %w", err)
		}
		if !t.After(start) {
			return persistence.Event{}, fmt.Errorf("end must be after start")
		}
		end = &t
	}

	priceMin, priceMax := e.PriceMin, e.PriceMax
	switch {
	case e.Free:
		zero := 0.0
		priceMin, priceMax = &zero, &zero
	case priceMin == nil && priceMax == nil:
		priceMin, priceMax = ParsePrice(e.Price)
	}
	if priceMin != nil && priceMax != nil && *priceMin > *priceMax {
		return persistence.Event{}, fmt.Errorf("price_min exceeds price_max")
	}
	if (priceMin != nil && *priceMin < 0) || (priceMax != nil && *priceMax < 0) {
		return persistence.Event{}, fmt.Errorf("prices cannot be negative")
	}

	source := strings.TrimSpace(e.Source)
	if source == "" {
		source = DefaultSource
	}
	sourceID := strings.TrimSpace(e.SourceID)
	if sourceID == "" {
		sourceID = title
	}

	return persistence.Event{
		Title:       title,
		Description: description,
		DateStart:   start.UTC(),
		DateEnd:     utcPtr(end),
		Location:    strings.TrimSpace(e.Location),
		PriceMin:    priceMin,
		PriceMax:    priceMax,
		URL:         strings.TrimSpace(e.URL),
		Source:      source,
		SourceID:    sourceID,
		VibeTags:    mergeTags(e.Tags, ExtractVibeTags(title+" "+description)),
	}, nil
}

var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime accepts RFC 3339 timestamps and zone-less date or date-time
// values, which are read in loc.
func ParseTime(raw string, loc *time.Location) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("time is required")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", value)
}

func mergeTags(explicit, extracted []string) []string {
	seen := make(map[string]struct{}, len(explicit)+len(extracted))
	out := make([]string, 0, len(explicit)+len(extracted))
	for _, tag := range append(append([]string{}, explicit...), extracted...) {
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
	sort.Strings(out)
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

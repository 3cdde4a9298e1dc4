package catalog

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var priceNumber = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ParsePrice reads a free form price. "Free" anywhere in the text is zero,
// one number is both bounds, several numbers give their minimum and maximum.
// Text without numbers leaves both bounds unknown.
func ParsePrice(text string) (*float64, *float64) {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return nil, nil
	}
	if strings.Contains(lowered, "free") {
		zero := 0.0
		return &zero, &zero
	}

	matches := priceNumber.FindAllString(lowered, -1)
	if len(matches) == 0 {
		return nil, nil
	}
	lo, hi := -1.0, -1.0
	for _, m := range matches {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		if lo < 0 || v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo < 0 {
		return nil, nil
	}
	return &lo, &hi
}

// vibeKeywords maps each vibe tag to the words that suggest it.
var vibeKeywords = map[string][]string{
	"immersive": {"immersive", "interactive"},
	"artsy":     {"gallery", "art", "museum"},
	"outdoor":   {"park", "outdoor", "garden", "rooftop"},
	"nightlife": {"club", "bar", "dj", "nightlife"},
	"family":    {"family", "kids", "children"},
}

// ExtractVibeTags returns the sorted vibe tags whose keywords occur in text.
// Matching is by substring, so "party" counts as "art".
func ExtractVibeTags(text string) []string {
	lowered := strings.ToLower(text)
	tags := []string{}
	for tag, keywords := range vibeKeywords {
		for _, keyword := range keywords {
			if strings.Contains(lowered, keyword) {
				tags = append(tags, tag)
				break
			}
		}
	}
	sort.Strings(tags)
	return tags
}

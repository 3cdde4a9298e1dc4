// Package identity canonicalizes participant display names so that equivalent
// spellings resolve to the same participant within a session.
package identity

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// MaxNameLength is the longest accepted display name, counted in runes after
// whitespace has been collapsed.
const MaxNameLength = 50

var (
	// ErrEmptyName is returned when a name is blank after trimming.
	ErrEmptyName = errors.New("identity: name is required")
	// ErrNameTooLong is returned when a name exceeds MaxNameLength.
	ErrNameTooLong = errors.New("identity: name must be at most 50 characters")
	// ErrInvalidCharacters is returned when a name contains anything other than
	// letters, digits, spaces, apostrophes or hyphens.
	ErrInvalidCharacters = errors.New("identity: name may only contain letters, digits, spaces, apostrophes and hyphens")
)

// DisplayName trims the name and collapses internal whitespace runs to a single
// space. Casing is preserved.
func DisplayName(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// Normalize returns the comparison key for a display name.
func Normalize(raw string) string {
	// cases.Caser is stateful, so each call gets its own.
	return cases.Fold().String(DisplayName(raw))
}

// Equal reports whether two raw names resolve to the same key.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Validate checks a raw display name.
func Validate(raw string) error {
	name := DisplayName(raw)
	if name == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return ErrNameTooLong
	}
	for _, r := range name {
		if !allowedRune(r) {
			return ErrInvalidCharacters
		}
	}
	return nil
}

func allowedRune(r rune) bool {
	switch {
	case r == ' ', r == '\'', r == '-':
		return true
	case unicode.IsLetter(r), unicode.IsDigit(r):
		return true
	}
	return false
}

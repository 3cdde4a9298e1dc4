// Package cache holds derived per-session values (tallies, overlap matrices,
// recommendation lists) keyed by a session generation number. Writers bump
// the generation after committing, which makes every entry computed from
// older data unreachable.
package cache

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// minGenerationTTL keeps generation counters far longer than entries, so a
// counter that restarts at zero cannot make an old entry reachable again.
const minGenerationTTL = 24 * time.Hour

func generationRetention(ttl time.Duration) time.Duration {
	if retention := 100 * ttl; retention > minGenerationTTL {
		return retention
	}
	return minGenerationTTL
}

// Key identifies one derived value of a session at a given generation.
type Key struct {
	SessionID  string
	Generation uint64
	Kind       string
	Variant    string
}

func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.SessionID)
	b.WriteByte(':')
	b.WriteString(strconv.FormatUint(k.Generation, 10))
	b.WriteByte(':')
	b.WriteString(k.Kind)
	if k.Variant != "" {
		b.WriteByte(':')
		b.WriteString(k.Variant)
	}
	return b.String()
}

// DerivedCache stores serialized derived values.
type DerivedCache interface {
	// Generation returns the current generation of the session.
	Generation(ctx context.Context, sessionID string) (uint64, error)
	// Get returns a copy of the value stored under key.
	Get(ctx context.Context, key Key) ([]byte, bool)
	// Store saves value under key. Failures are swallowed; a later Get misses.
	Store(ctx context.Context, key Key, value []byte)
	// Invalidate advances the session generation.
	Invalidate(ctx context.Context, sessionID string) error
}

// Nop is a DerivedCache that never hits.
type Nop struct{}

func (Nop) Generation(context.Context, string) (uint64, error) { return 0, nil }
func (Nop) Get(context.Context, Key) ([]byte, bool)             { return nil, false }
func (Nop) Store(context.Context, Key, []byte)                  {}
func (Nop) Invalidate(context.Context, string) error            { return nil }

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process DerivedCache with a TTL and an entry cap.
type Memory struct {
	mu          sync.RWMutex
	now         func() time.Time
	ttl         time.Duration
	maxEntries  int
	entries     map[Key]memoryEntry
	generations map[string]memoryGeneration

	generationTTL time.Duration
	lastSweep     time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// memoryGeneration is dropped generationTTL after its last bump, by which
// time no entry of an older generation can still be stored.
type memoryGeneration struct {
	value  uint64
	bumped time.Time
}

// NewMemory creates a Memory cache. Non-positive ttl or maxEntries fall back
// to 30 seconds and 256 entries.
func NewMemory(ttl time.Duration, maxEntries int, now func() time.Time) *Memory {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if now == nil {
		now = time.Now
	}
	return &Memory{
		now:           now,
		ttl:           ttl,
		maxEntries:    maxEntries,
		entries:       make(map[Key]memoryEntry),
		generations:   make(map[string]memoryGeneration),
		generationTTL: generationRetention(ttl),
	}
}

func (c *Memory) Generation(_ context.Context, sessionID string) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generations[sessionID].value, nil
}

func (c *Memory) Get(_ context.Context, key Key) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	current := c.generations[key.SessionID].value
	c.mu.RUnlock()
	if !ok || key.Generation != current {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneBytes(entry.value), true
}

func (c *Memory) Store(_ context.Context, key Key, value []byte) {
	cloned := cloneBytes(value)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	// A value computed before the last invalidation is never stored.
	if key.Generation != c.generations[key.SessionID].value {
		return
	}
	c.cleanupLocked()
	c.sweepGenerationsLocked()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = memoryEntry{value: cloned, expiresAt: expiry}
}

func (c *Memory) Invalidate(_ context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generations[sessionID] = memoryGeneration{
		value:  c.generations[sessionID].value + 1,
		bumped: c.now(),
	}
	c.sweepGenerationsLocked()
	for key := range c.entries {
		if key.SessionID == sessionID {
			delete(c.entries, key)
		}
	}
	return nil
}

// Len reports the number of stored entries.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sessions reports how many sessions carry a generation counter.
func (c *Memory) Sessions() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.generations)
}

// sweepGenerationsLocked runs at most once per entry TTL.
func (c *Memory) sweepGenerationsLocked() {
	now := c.now()
	if now.Sub(c.lastSweep) < c.ttl {
		return
	}
	c.lastSweep = now
	for sessionID, gen := range c.generations {
		if now.Sub(gen.bumped) >= c.generationTTL {
			delete(c.generations, sessionID)
		}
	}
}

func (c *Memory) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// evictOneLocked drops the entry closest to expiry.
func (c *Memory) evictOneLocked() {
	var (
		victim Key
		found  bool
		oldest time.Time
	)
	for key, entry := range c.entries {
		if !found || entry.expiresAt.Before(oldest) {
			victim, oldest, found = key, entry.expiresAt, true
		}
	}
	if found {
		delete(c.entries, victim)
	}
}

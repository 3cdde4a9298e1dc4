package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator hands out predictable session identifiers ("session-1",
// "session-2", ...) in place of random UUIDs.
type IDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter uint64
}

// NewIDGenerator uses "session" when prefix is empty.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "session"
	}
	return &IDGenerator{prefix: prefix}
}

func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return g.format()
}

// NextFunc returns Next for injection. A nil generator yields empty IDs.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Last returns the most recently issued identifier, or "" before the first Next.
func (g *IDGenerator) Last() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.counter == 0 {
		return ""
	}
	return g.format()
}

// Reset restarts the sequence under a new prefix; an empty prefix keeps the current one.
func (g *IDGenerator) Reset(prefix string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if prefix != "" {
		g.prefix = prefix
	}
	g.counter = 0
}

func (g *IDGenerator) format() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.counter)
}

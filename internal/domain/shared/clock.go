package shared

import (
	"sync"
	"time"
)

// Clock abstracts time retrieval so promotion expiry and weekday pricing are
// deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the actual current time.
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock returns a manually controlled instant.
type FixedClock struct {
	mu sync.Mutex
	at time.Time
}

// NewFixedClock creates a clock frozen at the given instant
func NewFixedClock(at time.Time) *FixedClock {
	return &FixedClock{at: at}
}

// Now returns the current fixed instant
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

// Advance moves the clock forward by d
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = c.at.Add(d)
}

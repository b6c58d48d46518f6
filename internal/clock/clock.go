package clock

import (
	"sync"
	"time"
)

// Clock abstracts time operations for testability.
// Token expiry is evaluated against Clock.Now so tests can pin "now".
type Clock interface {
	// Now returns the current time
	Now() time.Time
}

// EpochSeconds returns the clock's current time as Unix seconds, the unit
// token exp/iat claims are expressed in.
func EpochSeconds(c Clock) int64 {
	return c.Now().Unix()
}

// SystemClock uses the real system clock
type SystemClock struct{}

// NewSystemClock creates a clock that uses the real system time
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

// Now returns the current system time
func (c *SystemClock) Now() time.Time {
	return time.Now()
}

// FixtureClock is a controllable clock for tests and for the inspect command's
// --now override. It is safe for concurrent use.
type FixtureClock struct {
	mu          sync.RWMutex
	currentTime time.Time
}

// NewFixtureClock creates a fixture clock starting at the given time
// If zero time is provided, uses time.Now()
func NewFixtureClock(startTime time.Time) *FixtureClock {
	if startTime.IsZero() {
		startTime = time.Now()
	}
	return &FixtureClock{
		currentTime: startTime,
	}
}

// NewEpochClock creates a fixture clock frozen at the given Unix second.
func NewEpochClock(epochSeconds int64) *FixtureClock {
	return NewFixtureClock(time.Unix(epochSeconds, 0).UTC())
}

// Now returns the current fixture time
func (c *FixtureClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentTime
}

// Set sets the fixture clock to a specific time
func (c *FixtureClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = t
}

// Advance moves the fixture clock forward by the given duration
func (c *FixtureClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = c.currentTime.Add(d)
}

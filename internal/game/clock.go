// Package game holds what the game rule packages share.
package game

import (
	"sync"
	"time"
)

// Clock supplies the current time to accrual, retaliation and session expiry.
type Clock interface {
	Now() time.Time
}

// RealClock reads the wall clock.
type RealClock struct{}

// Now returns the wall-clock time.
func (RealClock) Now() time.Time { return time.Now() }

// FakeClock is a manually driven Clock. It only moves when Set or Advance is
// called, so accrual and window checks can be pinned to exact seconds.
type FakeClock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewFakeClock returns a FakeClock stopped at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the time the clock is stopped at.
func (c *FakeClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Set moves the clock to t, which may be in the past.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d and returns the new time.
func (c *FakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// NowUnix returns the clock time in unix seconds, the unit stored for
// collections and attack records. A nil clock reads the wall clock.
func NowUnix(c Clock) int64 {
	if c == nil {
		return time.Now().Unix()
	}
	return c.Now().Unix()
}

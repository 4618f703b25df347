// Package timeutil provides the clock used to stamp project timestamps.
package timeutil

import (
	"sync"
	"time"
)

// Clock provides the current time. Sessions take one so tests can pin
// creation and modification stamps.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// MockClock is a manually driven Clock for tests.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a new MockClock set to the given time.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mocked current time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set sets the mock clock to a specific time.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the mock clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Stamp formats the clock's current time as an RFC 3339 UTC string, the
// representation stored in project timestamps.
func Stamp(c Clock) string {
	return c.Now().UTC().Format(time.RFC3339)
}

// ParseStamp parses a value written by Stamp.
func ParseStamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// Package clock provides the time source used for sprint date rules.
// Sprint dates are calendar days; "today" is computed in a configured location
// and represented as midnight UTC so it compares directly with stored dates.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current instant and the current calendar day
type Clock interface {
	Now() time.Time
	Today() time.Time
}

// System is the wall clock evaluated in a fixed location
type System struct {
	loc *time.Location
}

// NewSystem returns a wall clock. A nil location means UTC.
func NewSystem(loc *time.Location) *System {
	if loc == nil {
		loc = time.UTC
	}
	return &System{loc: loc}
}

func (c *System) Now() time.Time {
	return time.Now().UTC()
}

func (c *System) Today() time.Time {
	return DateOf(time.Now().In(c.loc))
}

// DateOf truncates t to its calendar day, expressed as midnight UTC
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a calendar day
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Fixed is a settable clock for tests
type Fixed struct {
	mu  sync.RWMutex
	now time.Time
}

// NewFixed returns a clock frozen at now
func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now.UTC()}
}

func (c *Fixed) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *Fixed) Today() time.Time {
	return DateOf(c.Now())
}

// Set moves the clock to t
func (c *Fixed) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}

// Advance moves the clock forward by d
func (c *Fixed) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Scheduler arms a one-shot callback at or after a wall-clock time. The
// callback fires at least once; suppressing stale firings is the
// caller's job (the gateway's round-match guard).
type Scheduler interface {
	ScheduleAt(when time.Time, fn func())
}

// Timer is the production scheduler over time.AfterFunc.
type Timer struct{}

// NewTimer creates the wall-clock scheduler
func NewTimer() *Timer {
	return &Timer{}
}

func (t *Timer) ScheduleAt(when time.Time, fn func()) {
	d := time.Until(when)
	if d < 0 {
		d = 0
	}
	time.AfterFunc(d, fn)
}

// Manual is a scheduler for tests: nothing fires until the test says so.
type Manual struct {
	mu      sync.Mutex
	entries []entry
}

type entry struct {
	when time.Time
	fn   func()
}

// NewManual creates a hand-fired scheduler
func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) ScheduleAt(when time.Time, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry{when: when, fn: fn})
}

// Pending reports how many callbacks are armed.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// FireDue runs every callback armed at or before now, earliest first,
// and disarms them. Callbacks run outside the scheduler lock so they may
// arm new deadlines.
func (m *Manual) FireDue(now time.Time) {
	m.mu.Lock()
	var due, rest []entry
	for _, e := range m.entries {
		if !e.when.After(now) {
			due = append(due, e)
		} else {
			rest = append(rest, e)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].when.Before(due[j].when) })
	m.entries = rest
	m.mu.Unlock()

	for _, e := range due {
		e.fn()
	}
}

// FireAll runs and disarms every armed callback regardless of time.
func (m *Manual) FireAll() {
	m.mu.Lock()
	due := m.entries
	sort.Slice(due, func(i, j int) bool { return due[i].when.Before(due[j].when) })
	m.entries = nil
	m.mu.Unlock()

	for _, e := range due {
		e.fn()
	}
}

package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimer_FiresOnce(t *testing.T) {
	timer := NewTimer()
	fired := make(chan struct{})

	timer.ScheduleAt(time.Now().Add(10*time.Millisecond), func() {
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}
}

func TestTimer_PastDeadlineFiresImmediately(t *testing.T) {
	timer := NewTimer()
	fired := make(chan struct{})

	timer.ScheduleAt(time.Now().Add(-time.Minute), func() {
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("past deadline should fire immediately")
	}
}

func TestManual_FireDue(t *testing.T) {
	m := NewManual()
	base := time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)

	var order []int
	m.ScheduleAt(base.Add(2*time.Second), func() { order = append(order, 2) })
	m.ScheduleAt(base.Add(1*time.Second), func() { order = append(order, 1) })
	m.ScheduleAt(base.Add(time.Hour), func() { order = append(order, 3) })

	m.FireDue(base.Add(5 * time.Second))

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("expected [1 2], got %v", order)
	}
	if m.Pending() != 1 {
		t.Errorf("expected 1 pending callback, got %d", m.Pending())
	}

	// Firing again with the same time is a no-op: due entries disarm.
	m.FireDue(base.Add(5 * time.Second))
	if len(order) != 2 {
		t.Errorf("due callbacks fired twice: %v", order)
	}
}

func TestManual_CallbackMayRearm(t *testing.T) {
	m := NewManual()
	base := time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)

	var count atomic.Int32
	m.ScheduleAt(base, func() {
		count.Add(1)
		m.ScheduleAt(base.Add(time.Minute), func() { count.Add(1) })
	})

	m.FireDue(base)
	if got := count.Load(); got != 1 {
		t.Fatalf("expected 1 firing, got %d", got)
	}
	if m.Pending() != 1 {
		t.Fatalf("re-armed callback missing, pending=%d", m.Pending())
	}

	m.FireAll()
	if got := count.Load(); got != 2 {
		t.Errorf("expected 2 firings, got %d", got)
	}
}

package timers

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic Scheduler for tests. Time only moves when
// Advance is called; due callbacks run synchronously on the advancing
// goroutine, in deadline order.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	nextID  int
	waiting []*manualTimer
}

type manualTimer struct {
	owner   *Manual
	id      int
	due     time.Duration
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// NewManual creates a manual scheduler starting at time zero.
func NewManual() *Manual { return &Manual{} }

func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{owner: m, id: m.nextID, due: m.now + d, fn: fn}
	m.nextID++
	m.waiting = append(m.waiting, t)
	return t
}

// Sleep returns immediately; manual tests drive delays through Advance.
func (m *Manual) Sleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

// Advance moves the clock forward and fires every timer that came due.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	now := m.now

	var due []*manualTimer
	var rest []*manualTimer
	for _, t := range m.waiting {
		if t.stopped {
			continue
		}
		if t.due <= now {
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	m.waiting = rest
	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].id < due[j].id
	})
	m.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

// PendingCount reports how many timers are scheduled and not stopped.
func (m *Manual) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.waiting {
		if !t.stopped {
			n++
		}
	}
	return n
}

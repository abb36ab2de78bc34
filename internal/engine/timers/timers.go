// Package timers owns every delayed action an engine schedules: feedback
// clears, card flip-backs, hint reveals, solution windows. All pending
// timers belonging to one engine are tracked in a Set so teardown can
// cancel them in one call, and the clock itself is injectable so tests
// run without real sleeps.
package timers

import (
	"context"
	"sync"
	"time"
)

// Timer is a cancellable pending action.
type Timer interface {
	// Stop cancels the timer. It reports whether the call prevented the
	// action from running.
	Stop() bool
}

// Scheduler abstracts the clock.
type Scheduler interface {
	// AfterFunc runs fn after d on its own goroutine.
	AfterFunc(d time.Duration, fn func()) Timer
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type realScheduler struct{}

type realTimer struct {
	t *time.Timer
}

func (t *realTimer) Stop() bool { return t.t.Stop() }

func (realScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return &realTimer{t: time.AfterFunc(d, fn)}
}

func (realScheduler) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Real returns the wall-clock scheduler.
func Real() Scheduler { return realScheduler{} }

// Set tracks the pending timers of one owner. After Close, scheduling is
// a no-op; Close cancels pending timers and waits out any callback that
// is already running, so once it returns no callback is running or will
// run. Callbacks must not block on a lock their owner holds across
// Close.
type Set struct {
	sched Scheduler

	mu       sync.Mutex
	closed   bool
	nextID   int
	pending  map[int]Timer
	inflight sync.WaitGroup
}

// NewSet creates a timer set on the given scheduler.
func NewSet(sched Scheduler) *Set {
	return &Set{
		sched:   sched,
		pending: make(map[int]Timer),
	}
}

// After schedules fn to run after d. The closed flag is re-checked right
// before fn runs, swallowing a timer that expired while Close was racing
// it; a callback already past that check is waited out by Close.
func (s *Set) After(d time.Duration, fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	id := s.nextID
	s.nextID++

	timer := s.sched.AfterFunc(d, func() {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		delete(s.pending, id)
		s.inflight.Add(1)
		s.mu.Unlock()
		defer s.inflight.Done()
		fn()
	})
	s.pending[id] = timer
	s.mu.Unlock()
}

// CancelAll stops every pending timer but keeps the set usable.
func (s *Set) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
}

// Close cancels everything, makes further scheduling a no-op, and waits
// for any callback already in flight to finish.
func (s *Set) Close() {
	s.mu.Lock()
	s.closed = true
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
	s.mu.Unlock()
	s.inflight.Wait()
}

// Pending returns the number of timers not yet fired or cancelled.
func (s *Set) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

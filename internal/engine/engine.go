// Package engine defines the contract shared by the four activity
// engines. An engine owns the live state of one activity run, counts
// attempts and successes, and reports them upward through callbacks.
package engine

import (
	"math/rand"
	"time"

	"github.com/aulaplay/aula/internal/domain"
	"github.com/aulaplay/aula/internal/engine/timers"
)

// Callbacks let the session controller observe an engine run. Any field
// may be nil. Engines must invoke callbacks outside their own lock.
type Callbacks struct {
	// OnAttempt fires once per counted attempt, correct or not.
	OnAttempt func()
	// OnHintUsed fires when a hint is consumed, with the zero-based
	// index of the hint shown.
	OnHintUsed func(index int)
	// OnSuccess fires exactly once, when the activity is solved.
	OnSuccess func()
	// OnSolutionShown fires when the solution reveal is triggered.
	OnSolutionShown func()
}

// EmitAttempt invokes OnAttempt if set.
func (c Callbacks) EmitAttempt() {
	if c.OnAttempt != nil {
		c.OnAttempt()
	}
}

// EmitHintUsed invokes OnHintUsed if set.
func (c Callbacks) EmitHintUsed(index int) {
	if c.OnHintUsed != nil {
		c.OnHintUsed(index)
	}
}

// EmitSuccess invokes OnSuccess if set.
func (c Callbacks) EmitSuccess() {
	if c.OnSuccess != nil {
		c.OnSuccess()
	}
}

// EmitSolutionShown invokes OnSolutionShown if set.
func (c Callbacks) EmitSolutionShown() {
	if c.OnSolutionShown != nil {
		c.OnSolutionShown()
	}
}

// Options configure an engine run.
type Options struct {
	// Scheduler drives the engine's delayed actions. Defaults to the
	// wall clock.
	Scheduler timers.Scheduler
	// Rand drives shuffles and random picks. Defaults to a time-seeded
	// source.
	Rand *rand.Rand
}

// Scheduler returns the configured scheduler or the wall clock.
func (o Options) SchedulerOrReal() timers.Scheduler {
	if o.Scheduler != nil {
		return o.Scheduler
	}
	return timers.Real()
}

// RandOrSeeded returns the configured source or a time-seeded one.
func (o Options) RandOrSeeded() *rand.Rand {
	if o.Rand != nil {
		return o.Rand
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Engine is the surface common to all four activity engines. Input
// operations are template-specific and live on the concrete types.
type Engine interface {
	// Template identifies which activity kind this engine runs.
	Template() domain.Template
	// Solved reports whether the activity has been completed.
	Solved() bool
	// ShowSolution reveals the answer without counting an attempt.
	ShowSolution()
	// Teardown cancels every pending timer. The engine accepts no
	// further input afterwards.
	Teardown()
}

// OutcomeReporter is implemented by engines that produce a richer
// outcome than the shared attempt counters.
type OutcomeReporter interface {
	Outcome() *domain.MemoryOutcome
}

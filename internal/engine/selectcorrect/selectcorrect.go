// Package selectcorrect runs a single-question multiple-choice activity.
package selectcorrect

import (
	"sync"
	"time"

	"github.com/aulaplay/aula/internal/domain"
	"github.com/aulaplay/aula/internal/engine"
	"github.com/aulaplay/aula/internal/engine/timers"
)

const (
	feedbackWindow = 1500 * time.Millisecond
	solutionWindow = 2000 * time.Millisecond
)

// Engine evaluates choice selections against the correct answer.
type Engine struct {
	activity *domain.SelectCorrect
	cb       engine.Callbacks
	timers   *timers.Set

	mu sync.Mutex
	// order maps display position to original choice index.
	order          []int
	correctDisplay int
	settling       bool
	completed      bool
	solutionShown  bool
	feedback       string
	torn           bool
}

// New builds an engine for the activity. When the activity asks for a
// shuffle, the display order is a uniform random permutation and the
// correct index is tracked through it, so duplicate labels stay safe.
func New(act *domain.SelectCorrect, cb engine.Callbacks, opts engine.Options) *Engine {
	order := make([]int, len(act.Choices))
	for i := range order {
		order[i] = i
	}
	if act.Shuffle {
		rng := opts.RandOrSeeded()
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}

	correctDisplay := 0
	for pos, orig := range order {
		if orig == act.CorrectIndex {
			correctDisplay = pos
			break
		}
	}

	return &Engine{
		activity:       act,
		cb:             cb,
		timers:         timers.NewSet(opts.SchedulerOrReal()),
		order:          order,
		correctDisplay: correctDisplay,
	}
}

// Template implements engine.Engine.
func (e *Engine) Template() domain.Template { return domain.TemplateSelectCorrect }

// Choices returns the choices in display order.
func (e *Engine) Choices() []domain.Choice {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Choice, len(e.order))
	for pos, orig := range e.order {
		out[pos] = e.activity.Choices[orig]
	}
	return out
}

// Select evaluates the choice at display position i. Input is ignored
// while previous feedback is still settling, after completion, and
// during teardown. Every evaluated selection counts one attempt.
func (e *Engine) Select(i int) {
	e.mu.Lock()
	if e.torn || e.completed || e.settling || i < 0 || i >= len(e.order) {
		e.mu.Unlock()
		return
	}

	correct := i == e.correctDisplay
	if correct {
		e.completed = true
		e.feedback = e.activity.Feedback.PickCorrect()
	} else {
		e.settling = true
		e.feedback = e.activity.Feedback.PickIncorrect()
		e.timers.After(feedbackWindow, func() {
			e.mu.Lock()
			e.settling = false
			e.feedback = ""
			e.mu.Unlock()
		})
	}
	e.mu.Unlock()

	e.cb.EmitAttempt()
	if correct {
		e.cb.EmitSuccess()
	}
}

// Solved implements engine.Engine.
func (e *Engine) Solved() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completed
}

// Feedback returns the currently visible feedback message, if any.
func (e *Engine) Feedback() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.feedback
}

// SolutionIndex returns the display position being highlighted by a
// solution reveal, or -1 when no reveal is active.
func (e *Engine) SolutionIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.solutionShown {
		return -1
	}
	return e.correctDisplay
}

// ShowSolution highlights the correct choice for the reveal window. It
// mutates no selection state and counts no attempt.
func (e *Engine) ShowSolution() {
	e.mu.Lock()
	if e.torn || e.solutionShown {
		e.mu.Unlock()
		return
	}
	e.solutionShown = true
	e.timers.After(solutionWindow, func() {
		e.mu.Lock()
		e.solutionShown = false
		e.mu.Unlock()
	})
	e.mu.Unlock()

	e.cb.EmitSolutionShown()
}

// Teardown implements engine.Engine.
func (e *Engine) Teardown() {
	e.mu.Lock()
	e.torn = true
	e.mu.Unlock()
	e.timers.Close()
}

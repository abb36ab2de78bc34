// Package dragmatch runs the pair-items-onto-targets activity. Pairing
// is by key, never by board position, so items and targets shuffle
// independently.
package dragmatch

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

// Engine tracks which items and targets have been matched.
type Engine struct {
	activity *domain.DragMatch
	cb       engine.Callbacks
	timers   *timers.Set

	mu       sync.Mutex
	items    []domain.MatchEntry // display order
	targets  []domain.MatchEntry // display order
	matched  map[string]bool     // entry id -> matched, items and targets share the namespace
	done     int                 // matched item count
	feedback string
	solution bool
	torn     bool
}

// New builds an engine, shuffling both sides independently when the
// activity rules ask for it.
func New(act *domain.DragMatch, cb engine.Callbacks, opts engine.Options) *Engine {
	items := append([]domain.MatchEntry(nil), act.Items...)
	targets := append([]domain.MatchEntry(nil), act.Targets...)
	if act.Rules.Shuffle {
		rng := opts.RandOrSeeded()
		rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
		rng.Shuffle(len(targets), func(i, j int) { targets[i], targets[j] = targets[j], targets[i] })
	}

	return &Engine{
		activity: act,
		cb:       cb,
		timers:   timers.NewSet(opts.SchedulerOrReal()),
		items:    items,
		targets:  targets,
		matched:  make(map[string]bool),
	}
}

// Template implements engine.Engine.
func (e *Engine) Template() domain.Template { return domain.TemplateDragMatch }

// Items returns the draggable pool in display order. Matched items are
// excluded; they leave the pool permanently.
func (e *Engine) Items() []domain.MatchEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []domain.MatchEntry
	for _, it := range e.items {
		if !e.matched[it.ID] {
			out = append(out, it)
		}
	}
	return out
}

// Targets returns all targets in display order.
func (e *Engine) Targets() []domain.MatchEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.MatchEntry(nil), e.targets...)
}

// Matched reports whether the entry with the given id has been matched.
func (e *Engine) Matched(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.matched[id]
}

// Pair evaluates dropping the item onto the target. A drag release and
// a two-tap selection feed this same entry point. Pairing an entry that
// is already matched is a no-op and counts no attempt; every evaluated
// pairing counts one attempt whether or not the keys agree.
func (e *Engine) Pair(itemID, targetID string) {
	e.mu.Lock()
	if e.torn || e.done == len(e.items) {
		e.mu.Unlock()
		return
	}
	item, okItem := e.findItem(itemID)
	target, okTarget := e.findTarget(targetID)
	if !okItem || !okTarget || e.matched[itemID] || e.matched[targetID] {
		e.mu.Unlock()
		return
	}

	match := item.Key == target.Key
	var completed bool
	if match {
		e.matched[itemID] = true
		e.matched[targetID] = true
		e.done++
		completed = e.done == len(e.items)
		if completed {
			e.feedback = e.activity.Feedback.PickComplete()
		} else {
			e.feedback = e.activity.Feedback.PickPairCorrect()
		}
	} else {
		e.feedback = e.activity.Feedback.PickIncorrect()
	}
	e.timers.After(feedbackWindow, func() {
		e.mu.Lock()
		e.feedback = ""
		e.mu.Unlock()
	})
	e.mu.Unlock()

	e.cb.EmitAttempt()
	if completed {
		e.cb.EmitSuccess()
	}
}

func (e *Engine) findItem(id string) (domain.MatchEntry, bool) {
	for _, it := range e.items {
		if it.ID == id {
			return it, true
		}
	}
	return domain.MatchEntry{}, false
}

func (e *Engine) findTarget(id string) (domain.MatchEntry, bool) {
	for _, t := range e.targets {
		if t.ID == id {
			return t, true
		}
	}
	return domain.MatchEntry{}, false
}

// Solved implements engine.Engine.
func (e *Engine) Solved() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done == len(e.items)
}

// Feedback returns the currently visible feedback message, if any.
func (e *Engine) Feedback() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.feedback
}

// SolutionPairs returns the item-to-target pairing by key while a
// solution reveal is active, and nil otherwise.
func (e *Engine) SolutionPairs() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.solution {
		return nil
	}
	// Greedy key pairing; the validator guarantees a bijection exists.
	used := make(map[string]bool)
	pairs := make(map[string]string)
	for _, it := range e.items {
		for _, t := range e.targets {
			if used[t.ID] || t.Key != it.Key {
				continue
			}
			pairs[it.ID] = t.ID
			used[t.ID] = true
			break
		}
	}
	return pairs
}

// ShowSolution activates a transient pairing highlight. No state other
// than the highlight flag changes and no attempt is counted.
func (e *Engine) ShowSolution() {
	e.mu.Lock()
	if e.torn || e.solution {
		e.mu.Unlock()
		return
	}
	e.solution = true
	e.timers.After(solutionWindow, func() {
		e.mu.Lock()
		e.solution = false
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

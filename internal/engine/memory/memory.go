// Package memory runs the flip-two-cards matching game, including the
// optional preview window, countdown, hint reveals, and star rating.
package memory

import (
	"math/rand"
	"sync"
	"time"

	"github.com/aulaplay/aula/internal/domain"
	"github.com/aulaplay/aula/internal/engine"
	"github.com/aulaplay/aula/internal/engine/timers"
)

const (
	flipBackDelay  = 900 * time.Millisecond
	hintRevealFor  = 1200 * time.Millisecond
	solutionWindow = 2000 * time.Millisecond
	maxHintUses    = 3
)

// Card is the runtime state of one card on the board.
type Card struct {
	domain.MemoryCard
	Flipped bool
	Matched bool
}

// Engine owns the live board of one memory run.
type Engine struct {
	activity *domain.Memory
	cb       engine.Callbacks
	timers   *timers.Set
	rng      *rand.Rand

	mu        sync.Mutex
	cards     []*Card // display order
	pending   []*Card // flipped but unresolved, at most 2
	resolving bool    // mismatch flip-back in flight
	preview   bool
	solution  bool
	hintBusy  bool
	completed bool
	failed    bool
	torn      bool

	focus     int

	attempts  int
	matches   int
	mistakes  int
	hintsUsed int
}

// New builds the board, arms the optional countdown, and enters the
// preview window when one is configured. Input is accepted once the
// preview ends.
func New(act *domain.Memory, cb engine.Callbacks, opts engine.Options) *Engine {
	rng := opts.RandOrSeeded()
	cards := make([]*Card, len(act.Cards))
	for i, c := range act.Cards {
		cards[i] = &Card{MemoryCard: c}
	}
	if act.Rules.Shuffle {
		rng.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
	}

	e := &Engine{
		activity: act,
		cb:       cb,
		timers:   timers.NewSet(opts.SchedulerOrReal()),
		rng:      rng,
		cards:    cards,
	}

	if act.Rules.TimeLimitSeconds > 0 {
		e.timers.After(time.Duration(act.Rules.TimeLimitSeconds)*time.Second, func() {
			e.mu.Lock()
			if !e.completed {
				e.failed = true
			}
			e.mu.Unlock()
		})
	}

	if act.Rules.PreviewMs > 0 {
		e.preview = true
		for _, c := range cards {
			c.Flipped = true
		}
		e.timers.After(time.Duration(act.Rules.PreviewMs)*time.Millisecond, func() {
			e.mu.Lock()
			e.preview = false
			for _, c := range e.cards {
				if !c.Matched {
					c.Flipped = false
				}
			}
			e.mu.Unlock()
		})
	}

	return e
}

// Template implements engine.Engine.
func (e *Engine) Template() domain.Template { return domain.TemplateMemory }

// Cards returns a snapshot of the board in display order.
func (e *Engine) Cards() []Card {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Card, len(e.cards))
	for i, c := range e.cards {
		out[i] = *c
	}
	return out
}

// Flip turns the card with the given id face-up. Clicks are ignored
// while two cards await resolution, during preview, hint, or solution
// reveals, and after the game ends. The second flip of a pair counts
// one attempt.
func (e *Engine) Flip(cardID string) {
	e.mu.Lock()
	if e.torn || e.completed || e.failed || e.preview || e.solution || e.hintBusy || e.resolving || len(e.pending) >= 2 {
		e.mu.Unlock()
		return
	}
	card := e.find(cardID)
	if card == nil || card.Flipped || card.Matched {
		e.mu.Unlock()
		return
	}

	card.Flipped = true
	e.pending = append(e.pending, card)
	if len(e.pending) < 2 {
		e.mu.Unlock()
		return
	}

	first, second := e.pending[0], e.pending[1]
	e.attempts++
	var completed bool
	if first.Key == second.Key {
		first.Matched = true
		second.Matched = true
		e.matches++
		e.pending = nil
		completed = e.allMatched()
		if completed {
			e.completed = true
		}
	} else {
		e.mistakes++
		e.resolving = true
		e.timers.After(flipBackDelay, func() {
			e.mu.Lock()
			first.Flipped = false
			second.Flipped = false
			e.pending = nil
			e.resolving = false
			e.mu.Unlock()
		})
	}
	e.mu.Unlock()

	e.cb.EmitAttempt()
	if completed {
		e.cb.EmitSuccess()
	}
}

func (e *Engine) find(id string) *Card {
	for _, c := range e.cards {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (e *Engine) allMatched() bool {
	for _, c := range e.cards {
		if !c.Matched {
			return false
		}
	}
	return true
}

// Stride is the column count used for vertical focus movement. Without
// a configured grid the board renders four cards per row.
func (e *Engine) Stride() int {
	if g := e.activity.Rules.Grid; g != nil && g.Cols > 0 {
		return g.Cols
	}
	return 4
}

// MoveFocus shifts the keyboard focus by delta positions, wrapping
// around the board. Horizontal moves pass ±1, vertical moves ±Stride().
// The new focus index is returned.
func (e *Engine) MoveFocus(delta int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.cards)
	if n == 0 {
		return 0
	}
	e.focus = ((e.focus+delta)%n + n) % n
	return e.focus
}

// Focus returns the current focus index.
func (e *Engine) Focus() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.focus
}

// FlipFocused flips the focused card, the keyboard equivalent of a
// click. It goes through Flip and obeys all of its input blocks.
func (e *Engine) FlipFocused() {
	e.mu.Lock()
	var id string
	if e.focus >= 0 && e.focus < len(e.cards) {
		id = e.cards[e.focus].ID
	}
	e.mu.Unlock()
	if id != "" {
		e.Flip(id)
	}
}

// RevealHint flips one still-unmatched pair face-up for a short window.
// The pair's key is chosen uniformly among unmatched keys. Reveals count
// no attempt and are capped at three per run. It reports whether the
// reveal fired; a refusal (cards pending, reveal busy, cap reached)
// consumes nothing.
func (e *Engine) RevealHint() bool {
	e.mu.Lock()
	if e.torn || e.completed || e.failed || e.preview || e.solution || e.hintBusy || len(e.pending) > 0 || e.hintsUsed >= maxHintUses {
		e.mu.Unlock()
		return false
	}

	byKey := make(map[string][]*Card)
	var keys []string
	for _, c := range e.cards {
		if c.Matched {
			continue
		}
		if len(byKey[c.Key]) == 0 {
			keys = append(keys, c.Key)
		}
		byKey[c.Key] = append(byKey[c.Key], c)
	}
	if len(keys) == 0 {
		e.mu.Unlock()
		return false
	}

	key := keys[e.rng.Intn(len(keys))]
	revealed := byKey[key]
	if len(revealed) > 2 {
		revealed = revealed[:2]
	}
	for _, c := range revealed {
		c.Flipped = true
	}
	e.hintBusy = true
	used := e.hintsUsed
	e.hintsUsed++
	e.timers.After(hintRevealFor, func() {
		e.mu.Lock()
		for _, c := range revealed {
			if !c.Matched {
				c.Flipped = false
			}
		}
		e.hintBusy = false
		e.mu.Unlock()
	})
	e.mu.Unlock()

	e.cb.EmitHintUsed(used)
	return true
}

// HintsLeft reports how many hint reveals remain.
func (e *Engine) HintsLeft() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maxHintUses - e.hintsUsed
}

// Solved implements engine.Engine.
func (e *Engine) Solved() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completed
}

// Failed reports whether the countdown expired before completion.
func (e *Engine) Failed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failed
}

// ShowSolution flips every unmatched card face-up for the reveal window.
// Input stays blocked while the reveal is active; no attempt is counted.
func (e *Engine) ShowSolution() {
	e.mu.Lock()
	if e.torn || e.solution || e.completed {
		e.mu.Unlock()
		return
	}
	e.solution = true
	for _, c := range e.cards {
		c.Flipped = true
	}
	e.timers.After(solutionWindow, func() {
		e.mu.Lock()
		for _, c := range e.cards {
			if !c.Matched {
				c.Flipped = false
			}
		}
		e.solution = false
		e.mu.Unlock()
	})
	e.mu.Unlock()

	e.cb.EmitSolutionShown()
}

// Outcome reports the memory-specific result counters and the star
// rating earned so far. An unset threshold disqualifies its tier.
func (e *Engine) Outcome() *domain.MemoryOutcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	return &domain.MemoryOutcome{
		Matches:    e.matches,
		Mistakes:   e.mistakes,
		StarRating: starRating(e.attempts, e.activity.Rules.Scoring),
	}
}

func starRating(attempts int, s *domain.StarThresholds) int {
	if s == nil {
		return 1
	}
	if s.ThreeStarsAttempts > 0 && attempts <= s.ThreeStarsAttempts {
		return 3
	}
	if s.TwoStarsAttempts > 0 && attempts <= s.TwoStarsAttempts {
		return 2
	}
	return 1
}

// Teardown implements engine.Engine.
func (e *Engine) Teardown() {
	e.mu.Lock()
	e.torn = true
	e.mu.Unlock()
	e.timers.Close()
}

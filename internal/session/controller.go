// Package session orchestrates one activity run: loading, engine
// selection, attempt and hint counting, the solution gate, and progress
// recording on completion.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aulaplay/aula/internal/activity"
	"github.com/aulaplay/aula/internal/domain"
	"github.com/aulaplay/aula/internal/engine"
	"github.com/aulaplay/aula/internal/engine/dragmatch"
	"github.com/aulaplay/aula/internal/engine/memory"
	"github.com/aulaplay/aula/internal/engine/robotgrid"
	"github.com/aulaplay/aula/internal/engine/selectcorrect"
	"github.com/aulaplay/aula/internal/engine/timers"
	"github.com/aulaplay/aula/internal/gate"
	"github.com/aulaplay/aula/internal/progress"
)

const solutionWindow = 2000 * time.Millisecond

// State is the controller's lifecycle position.
type State string

const (
	StateLoading   State = "loading"
	StateReady     State = "ready"
	StateCompleted State = "completed"
	StateError     State = "error"
)

// Controller runs one activity session end to end.
type Controller struct {
	ID uuid.UUID

	source   activity.Source
	gate     gate.Gate
	progress *progress.Service
	opts     engine.Options
	logger   *slog.Logger
	timers   *timers.Set

	mu           sync.Mutex
	state        State
	act          domain.Activity
	eng          engine.Engine
	attempts     int
	hintsUsed    int
	loadedAt     time.Time
	showSolution bool
	lastErr      error
}

// New creates a controller for one activity source. The progress
// service may be nil when nothing should be persisted.
func New(source activity.Source, g gate.Gate, svc *progress.Service, opts engine.Options, logger *slog.Logger) *Controller {
	if g == nil {
		g = gate.Open{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		ID:       uuid.New(),
		source:   source,
		gate:     g,
		progress: svc,
		opts:     opts,
		logger:   logger,
		timers:   timers.NewSet(opts.SchedulerOrReal()),
		state:    StateLoading,
	}
}

// LoadActivity fetches and validates the source document, then builds
// the matching engine. On failure the controller lands in the error
// state with the cause retrievable via Err.
func (c *Controller) LoadActivity(ctx context.Context) error {
	c.mu.Lock()
	c.state = StateLoading
	c.lastErr = nil
	c.mu.Unlock()

	act, err := c.source.Load(ctx)
	if err != nil {
		c.mu.Lock()
		c.state = StateError
		c.lastErr = err
		c.mu.Unlock()
		c.logger.Error("activity load failed", "ref", c.source.Ref(), "error", err)
		return err
	}

	eng, err := c.buildEngine(act)
	if err != nil {
		c.mu.Lock()
		c.state = StateError
		c.lastErr = err
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.act = act
	c.eng = eng
	c.state = StateReady
	c.loadedAt = time.Now()
	c.mu.Unlock()

	c.logger.Info("activity loaded",
		"session_id", c.ID,
		"activity_id", act.Meta().ID,
		"template", act.Template())
	return nil
}

// buildEngine is the single dispatch point from activity variant to
// engine. No other component branches on the template.
func (c *Controller) buildEngine(act domain.Activity) (engine.Engine, error) {
	cb := engine.Callbacks{
		OnAttempt:       c.noteAttempt,
		OnHintUsed:      c.noteHintUsed,
		OnSuccess:       c.noteSuccess,
		OnSolutionShown: c.noteSolutionShown,
	}
	switch a := act.(type) {
	case *domain.SelectCorrect:
		return selectcorrect.New(a, cb, c.opts), nil
	case *domain.DragMatch:
		return dragmatch.New(a, cb, c.opts), nil
	case *domain.Memory:
		return memory.New(a, cb, c.opts), nil
	case *domain.RobotGrid:
		return robotgrid.New(a, cb, c.opts), nil
	default:
		return nil, fmt.Errorf("no engine for template %s", act.Template())
	}
}

func (c *Controller) noteAttempt() {
	c.mu.Lock()
	c.attempts++
	c.mu.Unlock()
}

func (c *Controller) noteHintUsed(int) {
	c.mu.Lock()
	c.hintsUsed++
	c.mu.Unlock()
}

func (c *Controller) noteSolutionShown() {
	c.mu.Lock()
	c.showSolution = true
	c.mu.Unlock()
	c.timers.After(solutionWindow, func() {
		c.mu.Lock()
		c.showSolution = false
		c.mu.Unlock()
	})
}

// noteSuccess runs when the engine reports completion. The elapsed time
// is measured here, from the load that started the session.
func (c *Controller) noteSuccess() {
	c.mu.Lock()
	if c.state == StateCompleted {
		c.mu.Unlock()
		return
	}
	c.state = StateCompleted
	rec := domain.ProgressRecord{
		ActivityID: c.act.Meta().ID,
		Attempts:   c.attempts,
		HintsUsed:  c.hintsUsed,
		Success:    true,
		ElapsedMs:  time.Since(c.loadedAt).Milliseconds(),
		RecordedAt: time.Now().UTC(),
	}
	if reporter, ok := c.eng.(engine.OutcomeReporter); ok {
		rec.Memory = reporter.Outcome()
	}
	svc := c.progress
	c.mu.Unlock()

	c.logger.Info("session completed",
		"session_id", c.ID,
		"activity_id", rec.ActivityID,
		"attempts", rec.Attempts,
		"elapsed_ms", rec.ElapsedMs)

	if svc != nil {
		if err := svc.Record(context.Background(), rec); err != nil {
			c.logger.Error("progress record failed", "activity_id", rec.ActivityID, "error", err)
		}
	}
}

// Attempt counts one attempt made outside an engine, for callers
// driving the counters directly.
func (c *Controller) Attempt() {
	c.noteAttempt()
}

// RequestHint consumes the next hint. For a memory activity it also
// reveals an unmatched pair on the board; if the board refuses the
// reveal (cards pending resolution, reveal busy, cap reached) nothing is
// consumed and the same hint is served next time. The hint counter
// saturates: past the last hint the call is a no-op, not an error.
func (c *Controller) RequestHint() (string, bool) {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return "", false
	}
	act := c.act
	eng := c.eng
	used := c.hintsUsed

	mem, isMemory := eng.(*memory.Engine)
	hints := act.Meta().Hints
	var text string
	var ok bool
	if used < len(hints) {
		text = hints[used]
		ok = true
	}
	if !isMemory && ok {
		c.hintsUsed++
	}
	c.mu.Unlock()

	if isMemory {
		// The engine enforces its own cap and reports usage through
		// the hint callback.
		if !mem.RevealHint() {
			return "", false
		}
		return text, true
	}
	return text, ok
}

// RequestSolution reveals the answer if the gate authorizes the secret.
// A rejection never touches the attempt or hint counters.
func (c *Controller) RequestSolution(secret string) error {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return domain.ErrSessionNotReady
	}
	eng := c.eng
	c.mu.Unlock()

	if err := c.gate.Authorize(secret); err != nil {
		c.logger.Warn("solution reveal rejected", "session_id", c.ID, "error", err)
		return err
	}

	eng.ShowSolution()
	return nil
}

// SolutionVisible reports whether a solution reveal is active.
func (c *Controller) SolutionVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.showSolution
}

// Restart reloads the same source, zeroing counters and discarding all
// engine runtime state.
func (c *Controller) Restart(ctx context.Context) error {
	c.mu.Lock()
	if c.eng != nil {
		c.eng.Teardown()
		c.eng = nil
	}
	c.timers.CancelAll()
	c.attempts = 0
	c.hintsUsed = 0
	c.showSolution = false
	c.mu.Unlock()

	return c.LoadActivity(ctx)
}

// Close tears the session down; the controller accepts no more input.
func (c *Controller) Close() {
	c.mu.Lock()
	eng := c.eng
	c.eng = nil
	c.mu.Unlock()

	if eng != nil {
		eng.Teardown()
	}
	c.timers.Close()
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the failure that put the controller in the error state.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Activity returns the loaded activity, or nil before a successful load.
func (c *Controller) Activity() domain.Activity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.act
}

// Engine returns the active engine, or nil before a successful load.
// Callers type-assert to the concrete engine for template-specific
// input.
func (c *Controller) Engine() engine.Engine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eng
}

// Attempts returns the attempt count for this session.
func (c *Controller) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// HintsUsed returns the hint count for this session.
func (c *Controller) HintsUsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hintsUsed
}

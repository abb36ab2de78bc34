package robotgrid

import (
	"context"
	"errors"
	"testing"

	"github.com/aulaplay/aula/internal/domain"
	"github.com/aulaplay/aula/internal/engine"
	"github.com/aulaplay/aula/internal/engine/timers"
)

func smallGrid() *domain.RobotGrid {
	return &domain.RobotGrid{
		ActivityMeta: domain.ActivityMeta{ID: "rg-1", Title: "Robot"},
		Grid: domain.Grid{
			Rows:  3,
			Cols:  3,
			Start: domain.StartPosition{Position: domain.Position{R: 0, C: 0}, Dir: domain.DirEast},
			Goal:  domain.Position{R: 0, C: 2},
		},
		Toolbox: []domain.Command{
			domain.CmdMoveForward, domain.CmdTurnLeft, domain.CmdTurnRight,
			domain.CmdRepeat, domain.CmdIfPathAhead, domain.CmdIfCoinHere,
		},
		SuccessCriteria: domain.SuccessCriteria{ReachGoal: true},
	}
}

type counters struct {
	attempts  int
	successes int
}

func hook(c *counters) engine.Callbacks {
	return engine.Callbacks{
		OnAttempt: func() { c.attempts++ },
		OnSuccess: func() { c.successes++ },
	}
}

func newEngine(t *testing.T, act *domain.RobotGrid, c *counters) *Engine {
	t.Helper()
	return New(act, hook(c), engine.Options{Scheduler: timers.NewManual()})
}

func TestStraightRunReachesGoal(t *testing.T) {
	var c counters
	e := newEngine(t, smallGrid(), &c)

	mustAppend(t, e, domain.CmdMoveForward)
	mustAppend(t, e, domain.CmdMoveForward)

	if err := e.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	st := e.State()
	if st.Position != (domain.Position{R: 0, C: 2}) {
		t.Errorf("position = %+v, want {0 2}", st.Position)
	}
	if st.Steps != 2 {
		t.Errorf("steps = %d, want 2", st.Steps)
	}
	if e.Status() != StatusSucceeded {
		t.Errorf("status = %s, want succeeded", e.Status())
	}
	if c.attempts != 1 || c.successes != 1 {
		t.Errorf("attempts = %d, successes = %d, want 1 and 1", c.attempts, c.successes)
	}
}

func TestIllegalMoveAbortsBeforeLaterBlocks(t *testing.T) {
	var c counters
	e := newEngine(t, smallGrid(), &c)

	// Turning left from east faces north; the cell ahead is off-grid.
	mustAppend(t, e, domain.CmdTurnLeft)
	mustAppend(t, e, domain.CmdMoveForward)
	mustAppend(t, e, domain.CmdMoveForward)

	err := e.Execute(context.Background())
	var abort *AbortError
	if !errors.As(err, &abort) {
		t.Fatalf("Execute() = %v, want *AbortError", err)
	}

	st := e.State()
	if st.Steps != 0 {
		t.Errorf("steps = %d after abort, want 0", st.Steps)
	}
	if st.Position != (domain.Position{R: 0, C: 0}) {
		t.Errorf("position = %+v after abort, want start", st.Position)
	}
	if e.Status() != StatusAborted {
		t.Errorf("status = %s, want aborted", e.Status())
	}
	if c.attempts != 1 {
		t.Errorf("attempts = %d, want 1", c.attempts)
	}
	if c.successes != 0 {
		t.Errorf("aborted run emitted success")
	}
}

func TestWallBlocksMovement(t *testing.T) {
	act := smallGrid()
	act.Grid.Walls = []domain.Position{{R: 0, C: 1}}
	var c counters
	e := newEngine(t, act, &c)

	mustAppend(t, e, domain.CmdMoveForward)

	err := e.Execute(context.Background())
	var abort *AbortError
	if !errors.As(err, &abort) {
		t.Fatalf("Execute() = %v, want *AbortError", err)
	}
}

func TestRepeatRunsBodyNTimes(t *testing.T) {
	act := smallGrid()
	act.Grid.Cols = 5
	act.Grid.Goal = domain.Position{R: 0, C: 4}
	var c counters
	e := newEngine(t, act, &c)

	rep, err := e.Append(domain.CmdRepeat)
	if err != nil {
		t.Fatalf("Append(REPEAT) error: %v", err)
	}
	if _, err := e.AppendChild(rep.ID, domain.CmdMoveForward); err != nil {
		t.Fatalf("AppendChild error: %v", err)
	}
	if err := e.SetRepeatCount(rep.ID, 4); err != nil {
		t.Fatalf("SetRepeatCount error: %v", err)
	}

	if err := e.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if st := e.State(); st.Steps != 4 {
		t.Errorf("steps = %d, want 4", st.Steps)
	}
	if c.successes != 1 {
		t.Errorf("successes = %d, want 1", c.successes)
	}
}

func TestRepeatCountClamped(t *testing.T) {
	var c counters
	e := newEngine(t, smallGrid(), &c)

	rep, err := e.Append(domain.CmdRepeat)
	if err != nil {
		t.Fatalf("Append(REPEAT) error: %v", err)
	}
	if rep.Count != 2 {
		t.Errorf("default repeat count = %d, want 2", rep.Count)
	}

	if err := e.SetRepeatCount(rep.ID, 42); err != nil {
		t.Fatalf("SetRepeatCount error: %v", err)
	}
	if rep.Count != 9 {
		t.Errorf("count = %d after over-limit edit, want 9", rep.Count)
	}
	if err := e.SetRepeatCount(rep.ID, 0); err != nil {
		t.Fatalf("SetRepeatCount error: %v", err)
	}
	if rep.Count != 1 {
		t.Errorf("count = %d after under-limit edit, want 1", rep.Count)
	}
}

func TestGuardsEvaluateCurrentState(t *testing.T) {
	act := smallGrid()
	act.Grid.Walls = []domain.Position{{R: 0, C: 1}}
	act.SuccessCriteria = domain.SuccessCriteria{}
	var c counters
	e := newEngine(t, act, &c)

	// The wall is ahead, so the guarded move must not run.
	guard, err := e.Append(domain.CmdIfPathAhead)
	if err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if _, err := e.AppendChild(guard.ID, domain.CmdMoveForward); err != nil {
		t.Fatalf("AppendChild error: %v", err)
	}

	if err := e.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if st := e.State(); st.Steps != 0 {
		t.Errorf("guarded move ran into a wall, steps = %d", st.Steps)
	}
}

func TestCoinsCollectedOnce(t *testing.T) {
	act := smallGrid()
	act.Grid.Coins = []domain.Position{{R: 0, C: 1}}
	act.SuccessCriteria = domain.SuccessCriteria{ReachGoal: true, CollectAllCoins: true}
	var c counters
	e := newEngine(t, act, &c)

	mustAppend(t, e, domain.CmdMoveForward)
	mustAppend(t, e, domain.CmdMoveForward)

	if err := e.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if st := e.State(); st.Coins != 1 {
		t.Errorf("coins = %d, want 1", st.Coins)
	}
	if c.successes != 1 {
		t.Errorf("successes = %d, want 1", c.successes)
	}
}

func TestCleanRunShortOfGoalReturnsToIdle(t *testing.T) {
	var c counters
	e := newEngine(t, smallGrid(), &c)

	mustAppend(t, e, domain.CmdMoveForward)

	if err := e.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if e.Status() != StatusIdle {
		t.Errorf("status = %s, want idle", e.Status())
	}
	if c.attempts != 1 || c.successes != 0 {
		t.Errorf("attempts = %d, successes = %d, want 1 and 0", c.attempts, c.successes)
	}
}

func TestExecuteContinuesFromCurrentState(t *testing.T) {
	var c counters
	e := newEngine(t, smallGrid(), &c)

	mustAppend(t, e, domain.CmdMoveForward)

	if err := e.Execute(context.Background()); err != nil {
		t.Fatalf("first Execute() error: %v", err)
	}
	if st := e.State(); st.Position != (domain.Position{R: 0, C: 1}) || st.Steps != 1 {
		t.Fatalf("after first run: %+v, want position {0 1} steps 1", st)
	}
	if c.successes != 0 {
		t.Fatalf("short run succeeded")
	}

	// The second run picks up where the first left off and reaches the
	// goal with cumulative steps.
	if err := e.Execute(context.Background()); err != nil {
		t.Fatalf("second Execute() error: %v", err)
	}
	st := e.State()
	if st.Position != (domain.Position{R: 0, C: 2}) {
		t.Errorf("position = %+v after second run, want {0 2}", st.Position)
	}
	if st.Steps != 2 {
		t.Errorf("steps = %d after second run, want 2", st.Steps)
	}
	if e.Status() != StatusSucceeded {
		t.Errorf("status = %s, want succeeded", e.Status())
	}
	if c.attempts != 2 || c.successes != 1 {
		t.Errorf("attempts = %d, successes = %d, want 2 and 1", c.attempts, c.successes)
	}

	// Reset is the only way back to the start cell.
	e.Reset()
	if st := e.State(); st.Steps != 0 || st.Position != (domain.Position{R: 0, C: 0}) {
		t.Errorf("reset did not return robot to start: %+v", st)
	}
}

func TestResetKeepsProgramClearRemovesIt(t *testing.T) {
	var c counters
	e := newEngine(t, smallGrid(), &c)

	mustAppend(t, e, domain.CmdMoveForward)
	if err := e.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	e.Reset()
	st := e.State()
	if st.Steps != 0 || st.Position != (domain.Position{R: 0, C: 0}) {
		t.Errorf("reset did not return robot to start: %+v", st)
	}
	if len(e.Program()) != 1 {
		t.Errorf("reset cleared the authored program")
	}

	e.ClearProgram()
	if len(e.Program()) != 0 {
		t.Errorf("clear kept authored blocks")
	}
}

func TestToolboxRestrictsCommands(t *testing.T) {
	act := smallGrid()
	act.Toolbox = []domain.Command{domain.CmdMoveForward}
	var c counters
	e := newEngine(t, act, &c)

	if _, err := e.Append(domain.CmdTurnLeft); err == nil {
		t.Errorf("Append accepted a command outside the toolbox")
	}
	if _, err := e.Append(domain.CmdMoveForward); err != nil {
		t.Errorf("Append rejected a toolbox command: %v", err)
	}
}

func TestMaxStepsCriterion(t *testing.T) {
	act := smallGrid()
	act.SuccessCriteria = domain.SuccessCriteria{ReachGoal: true, MaxSteps: 1}
	var c counters
	e := newEngine(t, act, &c)

	mustAppend(t, e, domain.CmdMoveForward)
	mustAppend(t, e, domain.CmdMoveForward)

	if err := e.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if c.successes != 0 {
		t.Errorf("run over the step limit succeeded")
	}
	if e.Status() != StatusIdle {
		t.Errorf("status = %s, want idle", e.Status())
	}
}

func mustAppend(t *testing.T, e *Engine, cmd domain.Command) {
	t.Helper()
	if _, err := e.Append(cmd); err != nil {
		t.Fatalf("Append(%s) error: %v", cmd, err)
	}
}

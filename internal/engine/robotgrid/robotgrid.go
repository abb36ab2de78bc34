// Package robotgrid runs the block-programming puzzle: the user authors
// a small program from a fixed command vocabulary and executes it
// against a grid world. Execution is an interpreter over the authored
// blocks with a visual pause between atomic steps.
package robotgrid

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aulaplay/aula/internal/domain"
	"github.com/aulaplay/aula/internal/engine"
	"github.com/aulaplay/aula/internal/engine/timers"
)

const (
	stepDelay      = 400 * time.Millisecond
	solutionWindow = 2000 * time.Millisecond
)

// Status describes the interpreter's standing after the last run.
type Status string

const (
	// StatusIdle means no run is in flight; a clean run that missed the
	// success criteria returns here, retryable.
	StatusIdle Status = "idle"
	// StatusRunning means a program execution is in flight.
	StatusRunning Status = "running"
	// StatusAborted means the last run hit an illegal move.
	StatusAborted Status = "aborted"
	// StatusSucceeded means the last run met the success criteria.
	StatusSucceeded Status = "succeeded"
)

// AbortError reports an illegal move during program execution. The
// authored program is untouched; Reset recovers the robot.
type AbortError struct {
	From   domain.Position
	To     domain.Position
	Facing domain.Direction
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("robot cannot move from (%d,%d) facing %s", e.From.R, e.From.C, e.Facing)
}

// RobotState is a snapshot of the robot mid-run or at rest.
type RobotState struct {
	Position domain.Position
	Facing   domain.Direction
	Steps    int
	Coins    int
}

// Engine interprets authored programs against the grid world.
type Engine struct {
	activity *domain.RobotGrid
	cb       engine.Callbacks
	timers   *timers.Set
	sched    timers.Scheduler
	walls    map[domain.Position]bool

	mu        sync.Mutex
	program   *Program
	pos       domain.Position
	facing    domain.Direction
	steps     int
	collected map[domain.Position]bool
	status    Status
	solved    bool // sticky across resets
	solution  bool
	torn      bool
}

// New builds an engine with the robot at the start cell and an empty
// program.
func New(act *domain.RobotGrid, cb engine.Callbacks, opts engine.Options) *Engine {
	walls := make(map[domain.Position]bool, len(act.Grid.Walls))
	for _, w := range act.Grid.Walls {
		walls[w] = true
	}
	return &Engine{
		activity:  act,
		cb:        cb,
		timers:    timers.NewSet(opts.SchedulerOrReal()),
		sched:     opts.SchedulerOrReal(),
		walls:     walls,
		program:   NewProgram(),
		pos:       act.Grid.Start.Position,
		facing:    act.Grid.Start.Dir,
		collected: make(map[domain.Position]bool),
		status:    StatusIdle,
	}
}

// Template implements engine.Engine.
func (e *Engine) Template() domain.Template { return domain.TemplateRobotGrid }

// State returns a snapshot of the robot.
func (e *Engine) State() RobotState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return RobotState{Position: e.pos, Facing: e.facing, Steps: e.steps, Coins: len(e.collected)}
}

// Status returns the interpreter's standing.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Solved implements engine.Engine. It stays true once any run has met
// the success criteria.
func (e *Engine) Solved() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.solved
}

// Append places a top-level program block. Only commands in the
// activity's toolbox are accepted.
func (e *Engine) Append(cmd domain.Command) (*Block, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.editable(cmd); err != nil {
		return nil, err
	}
	return e.program.Append(cmd)
}

// AppendChild places a block inside a container block.
func (e *Engine) AppendChild(parentID string, cmd domain.Command) (*Block, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.editable(cmd); err != nil {
		return nil, err
	}
	return e.program.AppendChild(parentID, cmd)
}

// SetRepeatCount edits a REPEAT block's count, clamped to [1,9].
func (e *Engine) SetRepeatCount(id string, count int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == StatusRunning {
		return fmt.Errorf("program is running")
	}
	return e.program.SetRepeatCount(id, count)
}

// Remove deletes one block from the program.
func (e *Engine) Remove(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == StatusRunning {
		return fmt.Errorf("program is running")
	}
	return e.program.Remove(id)
}

// ClearProgram removes every authored block.
func (e *Engine) ClearProgram() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == StatusRunning {
		return
	}
	e.program.Clear()
}

// Program returns the authored top-level blocks.
func (e *Engine) Program() []*Block {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.program.Blocks()
}

func (e *Engine) editable(cmd domain.Command) error {
	if e.status == StatusRunning {
		return fmt.Errorf("program is running")
	}
	for _, allowed := range e.activity.Toolbox {
		if allowed == cmd {
			return nil
		}
	}
	return fmt.Errorf("command %s is not in the toolbox", cmd)
}

// Execute runs the authored program once, start to finish, from the
// robot's current state; position, steps, and coins carry over from
// earlier runs until Reset. One call is one attempt. The run is not
// cancellable mid-flight; an illegal move aborts it with *AbortError
// and leaves the robot where the abort happened. A clean run that
// misses the success criteria simply returns to idle.
func (e *Engine) Execute(ctx context.Context) error {
	e.mu.Lock()
	if e.torn || e.status == StatusRunning {
		e.mu.Unlock()
		return fmt.Errorf("program is running")
	}
	e.status = StatusRunning
	blocks := e.program.Blocks()
	e.mu.Unlock()

	e.cb.EmitAttempt()

	runErr := e.runBlocks(ctx, blocks)

	e.mu.Lock()
	var succeeded bool
	if runErr != nil {
		e.status = StatusAborted
	} else {
		succeeded = e.criteriaMetLocked()
		if succeeded {
			e.status = StatusSucceeded
			e.solved = true
		} else {
			e.status = StatusIdle
		}
	}
	e.mu.Unlock()

	if succeeded {
		e.cb.EmitSuccess()
	}
	return runErr
}

func (e *Engine) runBlocks(ctx context.Context, blocks []*Block) error {
	for _, b := range blocks {
		if err := e.runBlock(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runBlock(ctx context.Context, b *Block) error {
	switch b.Cmd {
	case domain.CmdMoveForward:
		if err := e.moveForward(); err != nil {
			return err
		}
		return e.pause(ctx)
	case domain.CmdTurnLeft:
		e.turn(-1)
		return e.pause(ctx)
	case domain.CmdTurnRight:
		e.turn(1)
		return e.pause(ctx)
	case domain.CmdRepeat:
		for i := 0; i < b.Count; i++ {
			if err := e.runBlocks(ctx, b.Children); err != nil {
				return err
			}
		}
		return nil
	case domain.CmdIfPathAhead:
		// Guard reads the state at this moment, once.
		if e.pathAhead() {
			return e.runBlocks(ctx, b.Children)
		}
		return nil
	case domain.CmdIfCoinHere:
		if e.coinHere() {
			return e.runBlocks(ctx, b.Children)
		}
		return nil
	}
	return nil
}

// pause is the inter-step visual delay. The run keeps going even if the
// context lapses; the robot run is not user-cancellable.
func (e *Engine) pause(ctx context.Context) error {
	_ = e.sched.Sleep(ctx, stepDelay)
	return nil
}

var deltas = map[domain.Direction]domain.Position{
	domain.DirNorth: {R: -1, C: 0},
	domain.DirEast:  {R: 0, C: 1},
	domain.DirSouth: {R: 1, C: 0},
	domain.DirWest:  {R: 0, C: -1},
}

func (e *Engine) moveForward() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	d := deltas[e.facing]
	target := domain.Position{R: e.pos.R + d.R, C: e.pos.C + d.C}
	if !e.inBounds(target) || e.walls[target] {
		return &AbortError{From: e.pos, To: target, Facing: e.facing}
	}

	e.pos = target
	e.steps++
	if e.coinAt(target) && !e.collected[target] {
		e.collected[target] = true
	}
	return nil
}

var clockwise = []domain.Direction{domain.DirNorth, domain.DirEast, domain.DirSouth, domain.DirWest}

func (e *Engine) turn(dir int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, d := range clockwise {
		if d == e.facing {
			e.facing = clockwise[(i+dir+len(clockwise))%len(clockwise)]
			return
		}
	}
}

func (e *Engine) pathAhead() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := deltas[e.facing]
	target := domain.Position{R: e.pos.R + d.R, C: e.pos.C + d.C}
	return e.inBounds(target) && !e.walls[target]
}

func (e *Engine) coinHere() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coinAt(e.pos) && !e.collected[e.pos]
}

func (e *Engine) inBounds(p domain.Position) bool {
	return p.R >= 0 && p.R < e.activity.Grid.Rows && p.C >= 0 && p.C < e.activity.Grid.Cols
}

func (e *Engine) coinAt(p domain.Position) bool {
	for _, c := range e.activity.Grid.Coins {
		if c == p {
			return true
		}
	}
	return false
}

func (e *Engine) criteriaMetLocked() bool {
	crit := e.activity.SuccessCriteria
	if crit.ReachGoal && e.pos != e.activity.Grid.Goal {
		return false
	}
	if crit.CollectAllCoins && len(e.collected) != len(e.activity.Grid.Coins) {
		return false
	}
	if crit.MaxSteps > 0 && e.steps > crit.MaxSteps {
		return false
	}
	return true
}

// Reset returns the robot to the start cell, drops collected coins, and
// clears the run status. The authored program is kept.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == StatusRunning {
		return
	}
	e.resetRobotLocked()
}

func (e *Engine) resetRobotLocked() {
	e.pos = e.activity.Grid.Start.Position
	e.facing = e.activity.Grid.Start.Dir
	e.steps = 0
	e.collected = make(map[domain.Position]bool)
	e.status = StatusIdle
}

// SolutionActive reports whether a solution highlight is showing.
func (e *Engine) SolutionActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.solution
}

// ShowSolution raises a transient highlight flag. Nothing is auto-solved
// and no attempt is counted.
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

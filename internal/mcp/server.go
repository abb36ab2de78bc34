// Package mcp exposes the activity catalog and sessions as MCP tools,
// so an AI tutor can drive activities on a learner's behalf.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"
	"github.com/google/uuid"

	"github.com/aulaplay/aula/internal/activity"
	"github.com/aulaplay/aula/internal/domain"
	"github.com/aulaplay/aula/internal/engine"
	"github.com/aulaplay/aula/internal/engine/dragmatch"
	"github.com/aulaplay/aula/internal/engine/memory"
	"github.com/aulaplay/aula/internal/engine/robotgrid"
	"github.com/aulaplay/aula/internal/engine/selectcorrect"
	"github.com/aulaplay/aula/internal/gate"
	"github.com/aulaplay/aula/internal/progress"
	"github.com/aulaplay/aula/internal/session"
)

// Server wraps the MCP server with aula functionality.
type Server struct {
	mcpServer *server.Server
	registry  *activity.Registry
	progress  *progress.Service
	gate      gate.Gate

	mu       sync.Mutex
	sessions map[string]*session.Controller
}

// Config contains configuration for the MCP server.
type Config struct {
	Registry *activity.Registry
	Progress *progress.Service
	Gate     gate.Gate
}

// NewServer creates a new MCP server for aula.
func NewServer(cfg Config) *Server {
	s := &Server{
		registry: cfg.Registry,
		progress: cfg.Progress,
		gate:     cfg.Gate,
		sessions: make(map[string]*session.Controller),
	}
	if s.gate == nil {
		s.gate = gate.Open{}
	}

	s.mcpServer = server.New(server.Info{
		Name:    "aula",
		Version: "0.1.0",
	}, server.WithInstructions(`
Aula runs primary-school math activities: multiple choice, pair
matching, memory cards, and a robot programming puzzle.

Available tools:
- aula_list: List the activity catalog
- aula_start: Start a session for one activity
- aula_play: Send a game move to a session
- aula_hint: Request the next hint
- aula_solution: Reveal the solution (requires the parental PIN)
- aula_status: Check session state and counters
- aula_progress: Read stored progress records
- aula_stop: End a session
`))

	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("aula_list").
		Description("List the activity catalog, optionally filtered by template.").
		Handler(s.handleList)

	s.mcpServer.Tool("aula_start").
		Description("Start a session for one activity.").
		Handler(s.handleStart)

	s.mcpServer.Tool("aula_play").
		Description("Send a game move: select a choice, pair an item, flip a card, or edit and execute a robot program.").
		Handler(s.handlePlay)

	s.mcpServer.Tool("aula_hint").
		Description("Request the next hint. Saturates at the activity's hint count.").
		Handler(s.handleHint)

	s.mcpServer.Tool("aula_solution").
		Description("Reveal the solution. Requires the parental PIN.").
		Handler(s.handleSolution)

	s.mcpServer.Tool("aula_status").
		Description("Get session state, attempt count, and hint count.").
		Handler(s.handleStatus)

	s.mcpServer.Tool("aula_progress").
		Description("Read the stored progress record for one activity, or all records.").
		Handler(s.handleProgress)

	s.mcpServer.Tool("aula_stop").
		Description("End a session, discarding its runtime state.").
		Handler(s.handleStop)
}

// Input/Output types for tools

type ListInput struct {
	Template string `json:"template,omitempty" jsonschema:"description=Filter by template: select-correct drag-match memory robot-grid"`
}

type ListEntry struct {
	ID       string `json:"id"`
	Template string `json:"template"`
	Title    string `json:"title"`
}

type ListOutput struct {
	Activities []ListEntry `json:"activities"`
}

type StartInput struct {
	ActivityID string `json:"activity_id" jsonschema:"description=Activity id from aula_list"`
}

type StartOutput struct {
	SessionID    string `json:"session_id"`
	ActivityID   string `json:"activity_id"`
	Template     string `json:"template"`
	Title        string `json:"title"`
	Instructions string `json:"instructions,omitempty"`
}

type PlayInput struct {
	SessionID string `json:"session_id" jsonschema:"description=Session ID from aula_start"`
	Action    string `json:"action" jsonschema:"description=Move kind: select pair flip append append_child set_repeat remove clear reset execute"`
	Index     int    `json:"index,omitempty" jsonschema:"description=Choice index for select"`
	ItemID    string `json:"item_id,omitempty" jsonschema:"description=Item id for pair"`
	TargetID  string `json:"target_id,omitempty" jsonschema:"description=Target id for pair"`
	CardID    string `json:"card_id,omitempty" jsonschema:"description=Card id for flip"`
	Command   string `json:"command,omitempty" jsonschema:"description=Robot command for append/append_child"`
	ParentID  string `json:"parent_id,omitempty" jsonschema:"description=Container block id for append_child"`
	BlockID   string `json:"block_id,omitempty" jsonschema:"description=Block id for set_repeat/remove"`
	Count     int    `json:"count,omitempty" jsonschema:"description=Repeat count for set_repeat"`
}

type PlayOutput struct {
	State    string `json:"state"`
	Solved   bool   `json:"solved"`
	Attempts int    `json:"attempts"`
	Feedback string `json:"feedback,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

type SessionInput struct {
	SessionID string `json:"session_id" jsonschema:"description=Session ID from aula_start"`
}

type HintOutput struct {
	Hint      string `json:"hint,omitempty"`
	Granted   bool   `json:"granted"`
	HintsUsed int    `json:"hints_used"`
}

type SolutionInput struct {
	SessionID string `json:"session_id" jsonschema:"description=Session ID from aula_start"`
	PIN       string `json:"pin,omitempty" jsonschema:"description=Parental PIN"`
}

type SolutionOutput struct {
	Shown bool `json:"shown"`
}

type StatusOutput struct {
	SessionID  string `json:"session_id"`
	ActivityID string `json:"activity_id"`
	State      string `json:"state"`
	Attempts   int    `json:"attempts"`
	HintsUsed  int    `json:"hints_used"`
}

type ProgressInput struct {
	ActivityID string `json:"activity_id,omitempty" jsonschema:"description=Activity id; empty returns all records"`
}

type ProgressOutput struct {
	Records []domain.ProgressRecord `json:"records"`
}

type StopOutput struct {
	Message string `json:"message"`
}

// Tool handlers

func (s *Server) handleList(ctx context.Context, input ListInput) (ListOutput, error) {
	acts := s.registry.List()
	if input.Template != "" {
		acts = s.registry.ListByTemplate(domain.Template(input.Template))
	}
	out := ListOutput{Activities: make([]ListEntry, 0, len(acts))}
	for _, act := range acts {
		out.Activities = append(out.Activities, ListEntry{
			ID:       act.Meta().ID,
			Template: string(act.Template()),
			Title:    act.Meta().Title,
		})
	}
	return out, nil
}

func (s *Server) handleStart(ctx context.Context, input StartInput) (StartOutput, error) {
	source := activity.NewRegistrySource(s.registry, input.ActivityID)
	ctrl := session.New(source, s.gate, s.progress, engine.Options{}, nil)
	if err := ctrl.LoadActivity(ctx); err != nil {
		return StartOutput{}, fmt.Errorf("start session: %w", err)
	}

	s.mu.Lock()
	s.sessions[ctrl.ID.String()] = ctrl
	s.mu.Unlock()

	act := ctrl.Activity()
	meta := act.Meta()
	return StartOutput{
		SessionID:    ctrl.ID.String(),
		ActivityID:   meta.ID,
		Template:     string(act.Template()),
		Title:        meta.Title,
		Instructions: meta.Instructions,
	}, nil
}

func (s *Server) lookup(sessionID string) (*session.Controller, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, fmt.Errorf("invalid session id: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ctrl, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return ctrl, nil
}

func (s *Server) handlePlay(ctx context.Context, input PlayInput) (PlayOutput, error) {
	ctrl, err := s.lookup(input.SessionID)
	if err != nil {
		return PlayOutput{}, err
	}

	out := PlayOutput{}
	switch eng := ctrl.Engine().(type) {
	case *selectcorrect.Engine:
		if input.Action != "select" {
			return out, fmt.Errorf("action %q not valid for select-correct", input.Action)
		}
		eng.Select(input.Index)
		out.Solved = eng.Solved()
		out.Feedback = eng.Feedback()

	case *dragmatch.Engine:
		if input.Action != "pair" {
			return out, fmt.Errorf("action %q not valid for drag-match", input.Action)
		}
		eng.Pair(input.ItemID, input.TargetID)
		out.Solved = eng.Solved()
		out.Feedback = eng.Feedback()
		out.Detail = fmt.Sprintf("%d items left", len(eng.Items()))

	case *memory.Engine:
		if input.Action != "flip" {
			return out, fmt.Errorf("action %q not valid for memory", input.Action)
		}
		eng.Flip(input.CardID)
		out.Solved = eng.Solved()
		if eng.Failed() {
			out.Detail = "time is up"
		}

	case *robotgrid.Engine:
		detail, err := s.robotMove(ctx, eng, input)
		if err != nil {
			return out, err
		}
		out.Solved = eng.Solved()
		out.Detail = detail

	default:
		return out, errors.New("session has no active engine")
	}

	out.State = string(ctrl.State())
	out.Attempts = ctrl.Attempts()
	return out, nil
}

func (s *Server) robotMove(ctx context.Context, eng *robotgrid.Engine, input PlayInput) (string, error) {
	switch input.Action {
	case "append":
		block, err := eng.Append(domain.Command(input.Command))
		if err != nil {
			return "", err
		}
		return "added block " + block.ID, nil
	case "append_child":
		block, err := eng.AppendChild(input.ParentID, domain.Command(input.Command))
		if err != nil {
			return "", err
		}
		return "added block " + block.ID, nil
	case "set_repeat":
		return "", eng.SetRepeatCount(input.BlockID, input.Count)
	case "remove":
		return "", eng.Remove(input.BlockID)
	case "clear":
		eng.ClearProgram()
		return "program cleared", nil
	case "reset":
		eng.Reset()
		return "robot reset", nil
	case "execute":
		err := eng.Execute(ctx)
		var abort *robotgrid.AbortError
		if errors.As(err, &abort) {
			return "run aborted: " + abort.Error(), nil
		}
		if err != nil {
			return "", err
		}
		st := eng.State()
		return fmt.Sprintf("run finished at (%d,%d) after %d steps, status %s",
			st.Position.R, st.Position.C, st.Steps, eng.Status()), nil
	default:
		return "", fmt.Errorf("action %q not valid for robot-grid", input.Action)
	}
}

func (s *Server) handleHint(ctx context.Context, input SessionInput) (HintOutput, error) {
	ctrl, err := s.lookup(input.SessionID)
	if err != nil {
		return HintOutput{}, err
	}
	hint, ok := ctrl.RequestHint()
	return HintOutput{Hint: hint, Granted: ok, HintsUsed: ctrl.HintsUsed()}, nil
}

func (s *Server) handleSolution(ctx context.Context, input SolutionInput) (SolutionOutput, error) {
	ctrl, err := s.lookup(input.SessionID)
	if err != nil {
		return SolutionOutput{}, err
	}
	if err := ctrl.RequestSolution(input.PIN); err != nil {
		return SolutionOutput{}, err
	}
	return SolutionOutput{Shown: true}, nil
}

func (s *Server) handleStatus(ctx context.Context, input SessionInput) (StatusOutput, error) {
	ctrl, err := s.lookup(input.SessionID)
	if err != nil {
		return StatusOutput{}, err
	}
	out := StatusOutput{
		SessionID: input.SessionID,
		State:     string(ctrl.State()),
		Attempts:  ctrl.Attempts(),
		HintsUsed: ctrl.HintsUsed(),
	}
	if act := ctrl.Activity(); act != nil {
		out.ActivityID = act.Meta().ID
	}
	return out, nil
}

func (s *Server) handleProgress(ctx context.Context, input ProgressInput) (ProgressOutput, error) {
	if s.progress == nil {
		return ProgressOutput{}, errors.New("progress store disabled")
	}
	if input.ActivityID != "" {
		rec, err := s.progress.Get(ctx, input.ActivityID)
		if err != nil {
			return ProgressOutput{}, err
		}
		return ProgressOutput{Records: []domain.ProgressRecord{rec}}, nil
	}
	recs, err := s.progress.All(ctx)
	if err != nil {
		return ProgressOutput{}, err
	}
	return ProgressOutput{Records: recs}, nil
}

func (s *Server) handleStop(ctx context.Context, input SessionInput) (StopOutput, error) {
	ctrl, err := s.lookup(input.SessionID)
	if err != nil {
		return StopOutput{}, err
	}
	s.mu.Lock()
	delete(s.sessions, input.SessionID)
	s.mu.Unlock()
	ctrl.Close()
	return StopOutput{Message: "session ended"}, nil
}

// ServeStdio starts the MCP server on stdio.
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server over HTTP.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

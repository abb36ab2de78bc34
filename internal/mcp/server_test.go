package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aulaplay/aula/internal/activity"
	"github.com/aulaplay/aula/internal/gate"
	"github.com/aulaplay/aula/internal/progress"
	"github.com/aulaplay/aula/internal/storage/local"
)

const testActivityYAML = `
id: resta-1
type: game
template: select-correct
title: Resta
question: "5 - 3 = ?"
choices:
  - label: "1"
  - label: "2"
  - label: "3"
correctIndex: 1
hints:
  - usa los dedos
`

// setupTestServer creates a test MCP server over a temp catalog.
func setupTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "resta.yaml"), []byte(testActivityYAML), 0644); err != nil {
		t.Fatalf("write activity: %v", err)
	}
	registry := activity.NewRegistry(dir)
	if err := registry.Load(); err != nil {
		t.Fatalf("registry load: %v", err)
	}

	store, err := local.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	svc := progress.NewService(store, nil, nil)

	return NewServer(Config{
		Registry: registry,
		Progress: svc,
		Gate:     gate.NewPINGate("4321"),
	})
}

func TestNewServer(t *testing.T) {
	server := setupTestServer(t)

	if server == nil {
		t.Fatal("expected non-nil server")
	}
	if server.mcpServer == nil {
		t.Fatal("expected non-nil MCP server")
	}
	if server.registry == nil {
		t.Fatal("expected non-nil registry")
	}
}

func TestServerConfigDefaults(t *testing.T) {
	// Nil gate falls back to an open gate; must not panic.
	server := NewServer(Config{})
	if server == nil {
		t.Fatal("expected non-nil server even with empty config")
	}
	if server.gate == nil {
		t.Fatal("expected a default gate")
	}
}

func TestListAndStart(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()

	list, err := server.handleList(ctx, ListInput{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Activities) != 1 || list.Activities[0].ID != "resta-1" {
		t.Fatalf("activities = %v", list.Activities)
	}

	out, err := server.handleStart(ctx, StartInput{ActivityID: "resta-1"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if out.SessionID == "" || out.Template != "select-correct" {
		t.Errorf("start output = %+v", out)
	}

	status, err := server.handleStatus(ctx, SessionInput{SessionID: out.SessionID})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.State != "ready" || status.Attempts != 0 {
		t.Errorf("status = %+v", status)
	}
}

func TestStartUnknownActivity(t *testing.T) {
	server := setupTestServer(t)

	if _, err := server.handleStart(context.Background(), StartInput{ActivityID: "nope"}); err == nil {
		t.Fatal("expected error for unknown activity")
	}
}

func TestPlayThroughToCompletion(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()

	start, err := server.handleStart(ctx, StartInput{ActivityID: "resta-1"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	in := PlayInput{SessionID: start.SessionID, Action: "select", Index: 1}
	out, err := server.handlePlay(ctx, in)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if !out.Solved || out.State != "completed" || out.Attempts != 1 {
		t.Errorf("play output = %+v", out)
	}

	prog, err := server.handleProgress(ctx, ProgressInput{ActivityID: "resta-1"})
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if len(prog.Records) != 1 || !prog.Records[0].Success {
		t.Errorf("progress records = %+v", prog.Records)
	}
}

func TestHintAndSolutionGate(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()

	start, err := server.handleStart(ctx, StartInput{ActivityID: "resta-1"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	sess := SessionInput{SessionID: start.SessionID}

	hint, err := server.handleHint(ctx, sess)
	if err != nil {
		t.Fatalf("hint: %v", err)
	}
	if !hint.Granted || hint.Hint != "usa los dedos" || hint.HintsUsed != 1 {
		t.Errorf("hint output = %+v", hint)
	}

	// The single hint is exhausted; the next request is a no-op.
	hint, err = server.handleHint(ctx, sess)
	if err != nil {
		t.Fatalf("hint: %v", err)
	}
	if hint.Granted || hint.HintsUsed != 1 {
		t.Errorf("saturated hint output = %+v", hint)
	}

	if _, err := server.handleSolution(ctx, SolutionInput{SessionID: start.SessionID, PIN: "0000"}); err == nil {
		t.Fatal("expected wrong pin to be rejected")
	}
	sol, err := server.handleSolution(ctx, SolutionInput{SessionID: start.SessionID, PIN: "4321"})
	if err != nil {
		t.Fatalf("solution: %v", err)
	}
	if !sol.Shown {
		t.Errorf("solution output = %+v", sol)
	}
}

func TestStopSession(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()

	start, err := server.handleStart(ctx, StartInput{ActivityID: "resta-1"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := server.handleStop(ctx, SessionInput{SessionID: start.SessionID}); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := server.handleStatus(ctx, SessionInput{SessionID: start.SessionID}); err == nil {
		t.Fatal("expected stopped session to be gone")
	}
}

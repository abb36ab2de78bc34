package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aulaplay/aula/internal/activity"
	"github.com/aulaplay/aula/internal/domain"
	"github.com/aulaplay/aula/internal/engine"
	"github.com/aulaplay/aula/internal/engine/dragmatch"
	"github.com/aulaplay/aula/internal/engine/selectcorrect"
	"github.com/aulaplay/aula/internal/engine/timers"
	"github.com/aulaplay/aula/internal/gate"
	"github.com/aulaplay/aula/internal/progress"
)

// memStore is an in-memory progress.Store for controller tests.
type memStore struct {
	mu   sync.Mutex
	recs map[string]domain.ProgressRecord
}

func newMemStore() *memStore {
	return &memStore{recs: make(map[string]domain.ProgressRecord)}
}

func (s *memStore) Put(_ context.Context, rec domain.ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.ActivityID] = rec
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (domain.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return rec, domain.ErrProgressNotFound
	}
	return rec, nil
}

func (s *memStore) All(_ context.Context) ([]domain.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ProgressRecord
	for _, r := range s.recs {
		out = append(out, r)
	}
	return out, nil
}

// staticSource serves a pre-validated activity.
type staticSource struct {
	act domain.Activity
	err error
}

func (s *staticSource) Ref() string { return "test" }

func (s *staticSource) Load(context.Context) (domain.Activity, error) {
	return s.act, s.err
}

func selectActivity() *domain.SelectCorrect {
	return &domain.SelectCorrect{
		ActivityMeta: domain.ActivityMeta{
			ID:    "sc-1",
			Title: "Suma",
			Hints: []string{"piensa en 2+2", "es un número par"},
		},
		Question:     "2 + 2 = ?",
		Choices:      []domain.Choice{{Label: "3"}, {Label: "5"}, {Label: "4"}, {Label: "6"}},
		CorrectIndex: 2,
	}
}

func newController(t *testing.T, act domain.Activity, store progress.Store, g gate.Gate) *Controller {
	t.Helper()
	var svc *progress.Service
	if store != nil {
		svc = progress.NewService(store, nil, nil)
	}
	c := New(&staticSource{act: act}, g, svc, engine.Options{Scheduler: timers.NewManual()}, nil)
	if err := c.LoadActivity(context.Background()); err != nil {
		t.Fatalf("LoadActivity: %v", err)
	}
	return c
}

func TestSelectCorrectEndToEnd(t *testing.T) {
	store := newMemStore()
	c := newController(t, selectActivity(), store, nil)
	defer c.Close()

	if c.State() != StateReady {
		t.Fatalf("state = %s after load, want ready", c.State())
	}

	eng := c.Engine().(*selectcorrect.Engine)
	eng.Select(0) // wrong; feedback settles but the state machine stays ready
	if c.State() != StateReady {
		t.Errorf("state = %s after wrong answer, want ready", c.State())
	}

	// The settle window blocks input; drive it via the manual clock.
	sched := c.opts.Scheduler.(*timers.Manual)
	sched.Advance(1500 * time.Millisecond)

	eng.Select(2)
	if c.State() != StateCompleted {
		t.Fatalf("state = %s after correct answer, want completed", c.State())
	}
	if got := c.Attempts(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}

	rec, err := store.Get(context.Background(), "sc-1")
	if err != nil {
		t.Fatalf("no progress record written: %v", err)
	}
	if !rec.Success || rec.Attempts != 2 {
		t.Errorf("record = %+v, want success with 2 attempts", rec)
	}

	// A second success cannot fire; completion is terminal.
	eng.Select(2)
	if got := c.Attempts(); got != 2 {
		t.Errorf("attempts = %d after completion, want 2", got)
	}
}

func TestLoadFailureEntersErrorState(t *testing.T) {
	doc := &activity.Document{ID: "bad", Type: "game", Template: "select-correct", Title: "x"}
	_, wantErr := activity.Validate(doc)
	if wantErr == nil {
		t.Fatalf("fixture document unexpectedly valid")
	}

	c := New(&staticSource{err: wantErr}, nil, nil, engine.Options{Scheduler: timers.NewManual()}, nil)
	if err := c.LoadActivity(context.Background()); err == nil {
		t.Fatalf("LoadActivity succeeded with failing source")
	}
	if c.State() != StateError {
		t.Errorf("state = %s, want error", c.State())
	}

	var schemaErr *activity.SchemaError
	if !errors.As(c.Err(), &schemaErr) {
		t.Errorf("Err() = %v, want *SchemaError", c.Err())
	}
}

func TestRequestHintSaturates(t *testing.T) {
	c := newController(t, selectActivity(), nil, nil)
	defer c.Close()

	h1, ok := c.RequestHint()
	if !ok || h1 != "piensa en 2+2" {
		t.Errorf("first hint = %q, %v", h1, ok)
	}
	h2, ok := c.RequestHint()
	if !ok || h2 != "es un número par" {
		t.Errorf("second hint = %q, %v", h2, ok)
	}

	// Past the last hint the call is a no-op, not an error.
	if _, ok := c.RequestHint(); ok {
		t.Errorf("hint granted past the end of the list")
	}
	if got := c.HintsUsed(); got != 2 {
		t.Errorf("hints used = %d, want 2", got)
	}
}

func TestSolutionGateRejection(t *testing.T) {
	c := newController(t, selectActivity(), nil, gate.NewPINGate("4321"))
	defer c.Close()

	err := c.RequestSolution("0000")
	var authErr *gate.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("RequestSolution = %v, want *AuthorizationError", err)
	}
	// A rejection touches no counters.
	if c.Attempts() != 0 || c.HintsUsed() != 0 {
		t.Errorf("rejected reveal changed counters: attempts=%d hints=%d", c.Attempts(), c.HintsUsed())
	}

	if err := c.RequestSolution("4321"); err != nil {
		t.Fatalf("RequestSolution with correct pin: %v", err)
	}
	if !c.SolutionVisible() {
		t.Errorf("solution not visible after authorized reveal")
	}
	if c.Attempts() != 0 {
		t.Errorf("authorized reveal counted an attempt")
	}
}

func TestRestartResetsCountersAndEngineState(t *testing.T) {
	act := &domain.DragMatch{
		ActivityMeta: domain.ActivityMeta{ID: "dm-1", Title: "Parejas"},
		Items:        []domain.MatchEntry{{ID: "i1", Key: "a"}, {ID: "i2", Key: "b"}},
		Targets:      []domain.MatchEntry{{ID: "t1", Key: "a"}, {ID: "t2", Key: "b"}},
	}
	c := newController(t, act, newMemStore(), nil)
	defer c.Close()

	eng := c.Engine().(*dragmatch.Engine)
	eng.Pair("i1", "t2")
	eng.Pair("i1", "t1")
	if c.Attempts() != 2 {
		t.Fatalf("attempts = %d, want 2", c.Attempts())
	}

	if err := c.Restart(context.Background()); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if c.Attempts() != 0 || c.HintsUsed() != 0 {
		t.Errorf("counters survived restart: attempts=%d hints=%d", c.Attempts(), c.HintsUsed())
	}

	fresh := c.Engine().(*dragmatch.Engine)
	if fresh == eng {
		t.Errorf("restart kept the old engine instance")
	}
	if fresh.Matched("i1") {
		t.Errorf("engine state survived restart")
	}
	if c.State() != StateReady {
		t.Errorf("state = %s after restart, want ready", c.State())
	}
}

func TestMemoryHintRefusalConsumesNothing(t *testing.T) {
	act := &domain.Memory{
		ActivityMeta: domain.ActivityMeta{
			ID:    "mem-2",
			Title: "Memoria",
			Hints: []string{"busca los cincos"},
		},
		Cards: []domain.MemoryCard{
			{ID: "c1", Key: "x"}, {ID: "c2", Key: "x"},
			{ID: "c3", Key: "y"}, {ID: "c4", Key: "y"},
		},
	}
	c := newController(t, act, nil, nil)
	defer c.Close()

	type flipper interface{ Flip(string) }
	c.Engine().(flipper).Flip("c1")

	// The board refuses a reveal with a card pending; neither the text
	// nor the counter is consumed.
	if h, ok := c.RequestHint(); ok || h != "" {
		t.Errorf("refused hint = %q, %v, want empty and false", h, ok)
	}
	if got := c.HintsUsed(); got != 0 {
		t.Errorf("hints used = %d after refusal, want 0", got)
	}

	c.Engine().(flipper).Flip("c2") // matching pair settles the board

	h, ok := c.RequestHint()
	if !ok || h != "busca los cincos" {
		t.Errorf("hint after refusal = %q, %v, want the first hint", h, ok)
	}
	if got := c.HintsUsed(); got != 1 {
		t.Errorf("hints used = %d, want 1", got)
	}
}

func TestMemoryOutcomeOnRecord(t *testing.T) {
	act := &domain.Memory{
		ActivityMeta: domain.ActivityMeta{ID: "mem-1", Title: "Memoria"},
		Cards: []domain.MemoryCard{
			{ID: "c1", Key: "x"}, {ID: "c2", Key: "x"},
			{ID: "c3", Key: "y"}, {ID: "c4", Key: "y"},
		},
		Rules: domain.MemoryRules{
			Scoring: &domain.StarThresholds{ThreeStarsAttempts: 3, TwoStarsAttempts: 6},
		},
	}
	store := newMemStore()
	c := newController(t, act, store, nil)
	defer c.Close()

	type flipper interface{ Flip(string) }
	eng := c.Engine().(flipper)
	eng.Flip("c1")
	eng.Flip("c2")
	eng.Flip("c3")
	eng.Flip("c4")

	if c.State() != StateCompleted {
		t.Fatalf("state = %s, want completed", c.State())
	}
	rec, err := store.Get(context.Background(), "mem-1")
	if err != nil {
		t.Fatalf("no record written: %v", err)
	}
	if rec.Memory == nil {
		t.Fatalf("record missing memory outcome")
	}
	if rec.Memory.Matches != 2 || rec.Memory.Mistakes != 0 || rec.Memory.StarRating != 3 {
		t.Errorf("memory outcome = %+v, want 2/0/3", rec.Memory)
	}
}

package activity

import (
	"errors"
	"strings"
	"testing"

	"github.com/aulaplay/aula/internal/domain"
)

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

func selectDoc() *Document {
	return &Document{
		ID:           "sc-1",
		Type:         "game",
		Template:     "select-correct",
		Title:        "Suma",
		Question:     "2 + 2 = ?",
		Choices:      []ChoiceDoc{{Label: "3"}, {Label: "4"}, {Label: "5"}},
		CorrectIndex: intp(1),
	}
}

func dragDoc() *Document {
	return &Document{
		ID:       "dm-1",
		Type:     "game",
		Template: "drag-match",
		Title:    "Parejas",
		Items:    []EntryDoc{{ID: "i1", Key: "a"}, {ID: "i2", Key: "b"}},
		Targets:  []EntryDoc{{ID: "t1", Key: "a"}, {ID: "t2", Key: "b"}},
	}
}

func memoryDoc() *Document {
	return &Document{
		ID:       "mem-1",
		Type:     "game",
		Template: "memory",
		Title:    "Memoria",
		Cards: []CardDoc{
			{ID: "c1", Key: "x"}, {ID: "c2", Key: "x"},
			{ID: "c3", Key: "y"}, {ID: "c4", Key: "y"},
		},
	}
}

func robotDoc() *Document {
	return &Document{
		ID:       "rg-1",
		Type:     "game",
		Template: "robot-grid",
		Title:    "Robot",
		Grid: &GridDoc{
			Rows:  intp(3),
			Cols:  intp(3),
			Start: &StartDoc{R: intp(0), C: intp(0), Dir: "E"},
			Goal:  &PosDoc{R: intp(0), C: intp(2)},
		},
		Toolbox: []string{"MOVE_FORWARD", "TURN_LEFT", "TURN_RIGHT"},
	}
}

func wantSchemaError(t *testing.T, doc *Document, pathFragment string) *SchemaError {
	t.Helper()
	_, err := Validate(doc)
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Validate = %v, want *SchemaError", err)
	}
	for _, issue := range schemaErr.Issues {
		if strings.Contains(issue.Path, pathFragment) {
			return schemaErr
		}
	}
	t.Fatalf("no issue at path containing %q, got %v", pathFragment, schemaErr.Issues)
	return nil
}

func TestValidSelectCorrect(t *testing.T) {
	act, err := Validate(selectDoc())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	sc, ok := act.(*domain.SelectCorrect)
	if !ok {
		t.Fatalf("Validate returned %T, want *SelectCorrect", act)
	}
	if sc.CorrectIndex != 1 || len(sc.Choices) != 3 {
		t.Errorf("activity = %+v, want correctIndex 1 with 3 choices", sc)
	}
	if sc.Shuffle {
		t.Errorf("shuffle must default to false")
	}
}

func TestCorrectIndexOutOfRange(t *testing.T) {
	doc := selectDoc()
	doc.CorrectIndex = intp(3) // == len(choices)
	wantSchemaError(t, doc, "correctIndex")
}

func TestDragMatchBijection(t *testing.T) {
	if _, err := Validate(dragDoc()); err != nil {
		t.Fatalf("valid bijection rejected: %v", err)
	}

	doc := dragDoc()
	doc.Targets = []EntryDoc{{ID: "t1", Key: "a"}, {ID: "t2", Key: "a"}}
	wantSchemaError(t, doc, "targets")

	doc = dragDoc()
	doc.Targets = doc.Targets[:1]
	wantSchemaError(t, doc, "targets")
}

func TestDragMatchShuffleDefaultsTrue(t *testing.T) {
	act, err := Validate(dragDoc())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !act.(*domain.DragMatch).Rules.Shuffle {
		t.Errorf("shuffle must default to true")
	}

	doc := dragDoc()
	doc.Rules = &RulesDoc{Shuffle: boolp(false)}
	act, err = Validate(doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if act.(*domain.DragMatch).Rules.Shuffle {
		t.Errorf("explicit shuffle=false ignored")
	}
}

func TestMemoryEvenKeyCounts(t *testing.T) {
	if _, err := Validate(memoryDoc()); err != nil {
		t.Fatalf("valid memory rejected: %v", err)
	}

	doc := memoryDoc()
	doc.Cards = []CardDoc{
		{ID: "c1", Key: "x"}, {ID: "c2", Key: "x"},
		{ID: "c3", Key: "x"}, {ID: "c4", Key: "y"},
	}
	wantSchemaError(t, doc, "cards")
}

func TestMemoryStructuralChecks(t *testing.T) {
	doc := memoryDoc()
	doc.Cards = doc.Cards[:2]
	wantSchemaError(t, doc, "cards")

	doc = memoryDoc()
	doc.Cards[1].ID = "c1"
	wantSchemaError(t, doc, "cards[1].id")
}

func TestRobotGridBounds(t *testing.T) {
	if _, err := Validate(robotDoc()); err != nil {
		t.Fatalf("valid robot grid rejected: %v", err)
	}

	doc := robotDoc()
	doc.Grid.Start.R = intp(3) // == rows
	wantSchemaError(t, doc, "grid.start")

	doc = robotDoc()
	doc.Grid.Goal = &PosDoc{R: intp(0), C: intp(5)}
	wantSchemaError(t, doc, "grid.goal")
}

func TestRobotGridDefaults(t *testing.T) {
	act, err := Validate(robotDoc())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	rg := act.(*domain.RobotGrid)
	if !rg.SuccessCriteria.ReachGoal {
		t.Errorf("reachGoal must default to true")
	}
}

func TestRobotGridUnknownToolboxCommand(t *testing.T) {
	doc := robotDoc()
	doc.Toolbox = append(doc.Toolbox, "FLY")
	wantSchemaError(t, doc, "toolbox[3]")
}

func TestUnknownTemplate(t *testing.T) {
	doc := selectDoc()
	doc.Template = "crossword"
	schemaErr := wantSchemaError(t, doc, "template")
	if len(schemaErr.Issues) != 1 {
		t.Errorf("unknown template produced %d issues, want 1", len(schemaErr.Issues))
	}
}

func TestStructuralFailureShortCircuitsInvariants(t *testing.T) {
	// An empty items list is a structural failure; the bijection check
	// must not run and must not contribute issues.
	doc := dragDoc()
	doc.Items = nil
	schemaErr := wantSchemaError(t, doc, "items")
	for _, issue := range schemaErr.Issues {
		if strings.Contains(issue.Message, "bijection") || strings.Contains(issue.Message, "appears") {
			t.Errorf("invariant issue reported alongside structural failure: %v", issue)
		}
	}
}

func TestHintCap(t *testing.T) {
	doc := selectDoc()
	doc.Hints = []string{"a", "b", "c", "d"}
	wantSchemaError(t, doc, "hints")
}

func TestTooManyChoices(t *testing.T) {
	doc := selectDoc()
	doc.Choices = make([]ChoiceDoc, 10)
	for i := range doc.Choices {
		doc.Choices[i] = ChoiceDoc{Label: "n"}
	}
	wantSchemaError(t, doc, "choices")
}

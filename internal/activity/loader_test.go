package activity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aulaplay/aula/internal/domain"
)

const selectYAML = `
id: sc-yaml
type: game
template: select-correct
title: Suma
question: "2 + 2 = ?"
choices:
  - label: "3"
  - label: "4"
correctIndex: 1
hints:
  - cuenta con los dedos
`

const memoryJSON = `{
  "id": "mem-json",
  "type": "game",
  "template": "memory",
  "title": "Memoria",
  "cards": [
    {"id": "c1", "key": "x", "face": {"label": "5"}},
    {"id": "c2", "key": "x", "face": {"label": "2+3"}},
    {"id": "c3", "key": "y", "face": {"label": "7"}},
    {"id": "c4", "key": "y", "face": {"label": "3+4"}}
  ],
  "rules": {"previewMs": 2000, "scoring": {"threeStarsAttempts": 4, "twoStarsAttempts": 8}}
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "suma.yaml", selectYAML)

	act, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	sc, ok := act.(*domain.SelectCorrect)
	if !ok {
		t.Fatalf("LoadFile returned %T, want *SelectCorrect", act)
	}
	if sc.ID != "sc-yaml" || sc.CorrectIndex != 1 {
		t.Errorf("activity = %+v", sc)
	}
	if len(sc.Hints) != 1 {
		t.Errorf("hints = %v, want one hint", sc.Hints)
	}
}

func TestLoadJSONFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "memoria.json", memoryJSON)

	act, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	mem, ok := act.(*domain.Memory)
	if !ok {
		t.Fatalf("LoadFile returned %T, want *Memory", act)
	}
	if mem.Rules.PreviewMs != 2000 {
		t.Errorf("previewMs = %d, want 2000", mem.Rules.PreviewMs)
	}
	if mem.Rules.Scoring == nil || mem.Rules.Scoring.ThreeStarsAttempts != 4 {
		t.Errorf("scoring = %+v", mem.Rules.Scoring)
	}
}

func TestRegistrySkipsInvalidDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "suma.yaml", selectYAML)
	writeFile(t, dir, "memoria.json", memoryJSON)
	writeFile(t, dir, "broken.yaml", "id: broken\ntype: game\ntemplate: select-correct\n")
	writeFile(t, dir, "notes.txt", "not an activity")

	r := NewRegistry(dir)
	if err := r.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := r.Count(); got != 2 {
		t.Fatalf("Count() = %d, want 2", got)
	}

	if _, err := r.Get("sc-yaml"); err != nil {
		t.Errorf("Get(sc-yaml): %v", err)
	}
	if _, err := r.Get("broken"); err == nil {
		t.Errorf("invalid document entered the catalog")
	}

	memories := r.ListByTemplate(domain.TemplateMemory)
	if len(memories) != 1 || memories[0].Meta().ID != "mem-json" {
		t.Errorf("ListByTemplate(memory) = %v", memories)
	}
}

package activity

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aulaplay/aula/internal/domain"
)

// Registry is the activity catalog: every valid activity document found
// under a directory tree, indexed by id.
type Registry struct {
	basePath string
	byID     map[string]domain.Activity
	order    []string // ids in discovery order
}

// NewRegistry creates an empty registry rooted at basePath.
func NewRegistry(basePath string) *Registry {
	return &Registry{
		basePath: basePath,
		byID:     make(map[string]domain.Activity),
	}
}

// Load walks the base directory and loads every .yaml/.yml/.json activity
// document. Invalid documents are logged and skipped; authoring errors in
// one file must not take the whole catalog down.
func (r *Registry) Load() error {
	err := filepath.WalkDir(r.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml", ".json":
		default:
			return nil
		}

		act, err := LoadFile(path)
		if err != nil {
			slog.Warn("skipping invalid activity document", "path", path, "error", err)
			return nil
		}

		id := act.Meta().ID
		if _, exists := r.byID[id]; exists {
			slog.Warn("skipping duplicate activity id", "path", path, "id", id)
			return nil
		}
		r.byID[id] = act
		r.order = append(r.order, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk activities directory: %w", err)
	}

	sort.Strings(r.order)
	slog.Info("activity catalog loaded", "path", r.basePath, "count", len(r.order))
	return nil
}

// Get returns the activity with the given id.
func (r *Registry) Get(id string) (domain.Activity, error) {
	act, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrActivityNotFound
	}
	return act, nil
}

// List returns all activities ordered by id.
func (r *Registry) List() []domain.Activity {
	out := make([]domain.Activity, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// ListByTemplate returns all activities of one template, ordered by id.
func (r *Registry) ListByTemplate(t domain.Template) []domain.Activity {
	var out []domain.Activity
	for _, id := range r.order {
		if act := r.byID[id]; act.Template() == t {
			out = append(out, act)
		}
	}
	return out
}

// Count returns the number of loaded activities.
func (r *Registry) Count() int { return len(r.byID) }

// Package local stores progress records as one JSON file per activity
// in a directory. It is the default backend for single-machine use.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aulaplay/aula/internal/domain"
)

// Store provides thread-safe JSON file storage of progress records.
type Store struct {
	basePath string
	mu       sync.RWMutex
}

// NewStore creates the store directory if needed.
func NewStore(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

func (s *Store) path(activityID string) string {
	return filepath.Join(s.basePath, activityID+".json")
}

// Put writes one record, replacing any earlier record for the same
// activity. Last write wins.
func (s *Store) Put(_ context.Context, rec domain.ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Create(s.path(rec.ActivityID))
	if err != nil {
		return fmt.Errorf("create progress file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(rec); err != nil {
		return fmt.Errorf("encode progress record: %w", err)
	}
	return nil
}

// Get reads the record for one activity.
func (s *Store) Get(_ context.Context, activityID string) (domain.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(activityID)
}

func (s *Store) read(activityID string) (domain.ProgressRecord, error) {
	var rec domain.ProgressRecord
	file, err := os.Open(s.path(activityID))
	if err != nil {
		if os.IsNotExist(err) {
			return rec, domain.ErrProgressNotFound
		}
		return rec, fmt.Errorf("open progress file: %w", err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&rec); err != nil {
		return rec, fmt.Errorf("decode progress record: %w", err)
	}
	return rec, nil
}

// All returns every stored record.
func (s *Store) All(_ context.Context) ([]domain.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read store directory: %w", err)
	}

	var recs []domain.ProgressRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		rec, err := s.read(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Delete removes the record for one activity.
func (s *Store) Delete(_ context.Context, activityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(activityID)); err != nil {
		if os.IsNotExist(err) {
			return domain.ErrProgressNotFound
		}
		return fmt.Errorf("remove progress file: %w", err)
	}
	return nil
}

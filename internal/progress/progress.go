// Package progress persists the outcome of completed activity sessions.
// One record per activity id; a later completion overwrites the earlier
// one, no history is kept.
package progress

import (
	"context"
	"log/slog"

	"github.com/aulaplay/aula/internal/domain"
)

// Store is the persistence seam. Backends range from a JSON directory
// to SQLite and Postgres; the session controller only sees this.
type Store interface {
	Put(ctx context.Context, rec domain.ProgressRecord) error
	Get(ctx context.Context, activityID string) (domain.ProgressRecord, error)
	All(ctx context.Context) ([]domain.ProgressRecord, error)
}

// Publisher forwards completed records to interested consumers, for
// example a message queue. Best effort; persistence never depends on it.
type Publisher interface {
	PublishProgress(ctx context.Context, rec domain.ProgressRecord) error
}

// Service wraps a Store with logging and optional event publishing.
type Service struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
}

// NewService creates a progress service. publisher may be nil.
func NewService(store Store, publisher Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, publisher: publisher, logger: logger}
}

// Record persists one completed session outcome and announces it.
func (s *Service) Record(ctx context.Context, rec domain.ProgressRecord) error {
	if err := s.store.Put(ctx, rec); err != nil {
		return err
	}
	s.logger.Info("progress recorded",
		"activity_id", rec.ActivityID,
		"attempts", rec.Attempts,
		"hints_used", rec.HintsUsed,
		"elapsed_ms", rec.ElapsedMs)

	if s.publisher != nil {
		if err := s.publisher.PublishProgress(ctx, rec); err != nil {
			s.logger.Warn("progress event publish failed", "activity_id", rec.ActivityID, "error", err)
		}
	}
	return nil
}

// Get returns the record for one activity.
func (s *Service) Get(ctx context.Context, activityID string) (domain.ProgressRecord, error) {
	return s.store.Get(ctx, activityID)
}

// All returns every stored record.
func (s *Service) All(ctx context.Context) ([]domain.ProgressRecord, error) {
	return s.store.All(ctx)
}

// Summary aggregates the stored records.
type Summary struct {
	Completed     int `json:"completed"`
	TotalAttempts int `json:"total_attempts"`
	TotalHints    int `json:"total_hints"`
	TotalStars    int `json:"total_stars"`
}

// Summarize computes totals across every stored record.
func (s *Service) Summarize(ctx context.Context) (Summary, error) {
	recs, err := s.store.All(ctx)
	if err != nil {
		return Summary{}, err
	}
	var sum Summary
	for _, r := range recs {
		if r.Success {
			sum.Completed++
		}
		sum.TotalAttempts += r.Attempts
		sum.TotalHints += r.HintsUsed
		if r.Memory != nil {
			sum.TotalStars += r.Memory.StarRating
		}
	}
	return sum, nil
}

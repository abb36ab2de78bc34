package local

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aulaplay/aula/internal/domain"
)

func TestPutGetOverwrite(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ctx := context.Background()

	rec := domain.ProgressRecord{
		ActivityID: "sc-1",
		Attempts:   3,
		HintsUsed:  1,
		Success:    true,
		ElapsedMs:  4200,
		RecordedAt: time.Now().UTC(),
	}
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "sc-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Attempts != 3 || got.HintsUsed != 1 || !got.Success {
		t.Errorf("got %+v, want stored record", got)
	}

	// Later writes for the same id overwrite, last write wins.
	rec.Attempts = 1
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, err = store.Get(ctx, "sc-1")
	if err != nil {
		t.Fatalf("Get after overwrite: %v", err)
	}
	if got.Attempts != 1 {
		t.Errorf("attempts = %d after overwrite, want 1", got.Attempts)
	}
}

func TestGetMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrProgressNotFound) {
		t.Errorf("Get missing = %v, want ErrProgressNotFound", err)
	}
}

func TestAllAndMemoryOutcome(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, domain.ProgressRecord{ActivityID: "a", Success: true}); err != nil {
		t.Fatalf("Put a: %v", err)
	}
	if err := store.Put(ctx, domain.ProgressRecord{
		ActivityID: "b",
		Success:    true,
		Memory:     &domain.MemoryOutcome{Matches: 4, Mistakes: 2, StarRating: 2},
	}); err != nil {
		t.Fatalf("Put b: %v", err)
	}

	recs, err := store.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("All returned %d records, want 2", len(recs))
	}
	for _, r := range recs {
		if r.ActivityID == "b" {
			if r.Memory == nil || r.Memory.StarRating != 2 {
				t.Errorf("memory outcome lost on round trip: %+v", r.Memory)
			}
		}
	}
}

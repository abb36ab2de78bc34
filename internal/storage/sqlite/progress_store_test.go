package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/aulaplay/aula/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "progress.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestUpsertAndGet(t *testing.T) {
	store := NewProgressStore(openTestDB(t))
	ctx := context.Background()

	rec := domain.ProgressRecord{
		ActivityID: "dm-1",
		Attempts:   5,
		HintsUsed:  2,
		Success:    true,
		ElapsedMs:  9000,
		RecordedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "dm-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Attempts != 5 || got.HintsUsed != 2 || !got.Success || got.ElapsedMs != 9000 {
		t.Errorf("got %+v, want stored record", got)
	}
	if got.Memory != nil {
		t.Errorf("non-memory record carries a memory outcome")
	}

	rec.Attempts = 2
	rec.Memory = &domain.MemoryOutcome{Matches: 3, Mistakes: 1, StarRating: 3}
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put upsert: %v", err)
	}
	got, err = store.Get(ctx, "dm-1")
	if err != nil {
		t.Fatalf("Get after upsert: %v", err)
	}
	if got.Attempts != 2 {
		t.Errorf("attempts = %d after upsert, want 2", got.Attempts)
	}
	if got.Memory == nil || got.Memory.StarRating != 3 {
		t.Errorf("memory outcome lost on upsert: %+v", got.Memory)
	}
}

func TestGetMissing(t *testing.T) {
	store := NewProgressStore(openTestDB(t))
	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrProgressNotFound) {
		t.Errorf("Get missing = %v, want ErrProgressNotFound", err)
	}
}

func TestAllOrdered(t *testing.T) {
	store := NewProgressStore(openTestDB(t))
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		if err := store.Put(ctx, domain.ProgressRecord{ActivityID: id, RecordedAt: time.Now().UTC()}); err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}

	recs, err := store.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(recs) != len(want) {
		t.Fatalf("All returned %d records, want %d", len(recs), len(want))
	}
	for i, id := range want {
		if recs[i].ActivityID != id {
			t.Errorf("recs[%d] = %s, want %s", i, recs[i].ActivityID, id)
		}
	}
}

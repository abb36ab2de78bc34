package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aulaplay/aula/internal/domain"
)

// ProgressStore persists progress records in SQLite.
type ProgressStore struct {
	db *DB
}

// NewProgressStore creates a store over an open, migrated database.
func NewProgressStore(db *DB) *ProgressStore {
	return &ProgressStore{db: db}
}

// Put upserts the record for its activity id.
func (s *ProgressStore) Put(ctx context.Context, rec domain.ProgressRecord) error {
	var matches, mistakes, stars sql.NullInt64
	if rec.Memory != nil {
		matches = sql.NullInt64{Int64: int64(rec.Memory.Matches), Valid: true}
		mistakes = sql.NullInt64{Int64: int64(rec.Memory.Mistakes), Valid: true}
		stars = sql.NullInt64{Int64: int64(rec.Memory.StarRating), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO progress (activity_id, attempts, hints_used, success, elapsed_ms, recorded_at, matches, mistakes, star_rating)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(activity_id) DO UPDATE SET
			attempts    = excluded.attempts,
			hints_used  = excluded.hints_used,
			success     = excluded.success,
			elapsed_ms  = excluded.elapsed_ms,
			recorded_at = excluded.recorded_at,
			matches     = excluded.matches,
			mistakes    = excluded.mistakes,
			star_rating = excluded.star_rating`,
		rec.ActivityID, rec.Attempts, rec.HintsUsed, rec.Success, rec.ElapsedMs, rec.RecordedAt,
		matches, mistakes, stars)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// Get returns the record for one activity.
func (s *ProgressStore) Get(ctx context.Context, activityID string) (domain.ProgressRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT activity_id, attempts, hints_used, success, elapsed_ms, recorded_at, matches, mistakes, star_rating
		FROM progress WHERE activity_id = ?`, activityID)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ProgressRecord{}, domain.ErrProgressNotFound
		}
		return domain.ProgressRecord{}, fmt.Errorf("get progress: %w", err)
	}
	return rec, nil
}

// All returns every stored record ordered by activity id.
func (s *ProgressStore) All(ctx context.Context) ([]domain.ProgressRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT activity_id, attempts, hints_used, success, elapsed_ms, recorded_at, matches, mistakes, star_rating
		FROM progress ORDER BY activity_id`)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var recs []domain.ProgressRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return recs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (domain.ProgressRecord, error) {
	var rec domain.ProgressRecord
	var matches, mistakes, stars sql.NullInt64
	err := s.Scan(&rec.ActivityID, &rec.Attempts, &rec.HintsUsed, &rec.Success,
		&rec.ElapsedMs, &rec.RecordedAt, &matches, &mistakes, &stars)
	if err != nil {
		return rec, err
	}
	if matches.Valid {
		rec.Memory = &domain.MemoryOutcome{
			Matches:    int(matches.Int64),
			Mistakes:   int(mistakes.Int64),
			StarRating: int(stars.Int64),
		}
	}
	return rec, nil
}

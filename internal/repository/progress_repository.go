// Package repository backs the progress store with PostgreSQL, for
// classroom deployments where many devices share one server.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sqlc-dev/pqtype"

	"github.com/aulaplay/aula/internal/domain"
)

// ProgressRepository implements progress.Store using PostgreSQL.
type ProgressRepository struct {
	pool *pgxpool.Pool
}

// NewProgressRepository creates a repository over an existing pool.
func NewProgressRepository(pool *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

// Schema is the DDL the repository expects. Applied by the operator or
// a deployment migration, not by this package.
const Schema = `
CREATE TABLE IF NOT EXISTS progress (
    activity_id TEXT PRIMARY KEY,
    attempts    INTEGER NOT NULL DEFAULT 0,
    hints_used  INTEGER NOT NULL DEFAULT 0,
    success     BOOLEAN NOT NULL DEFAULT FALSE,
    elapsed_ms  BIGINT NOT NULL DEFAULT 0,
    recorded_at TIMESTAMPTZ NOT NULL,
    details     JSONB
)`

// Put upserts the record for its activity id. Template-specific
// counters travel in the details JSON column.
func (r *ProgressRepository) Put(ctx context.Context, rec domain.ProgressRecord) error {
	details := pqtype.NullRawMessage{}
	if rec.Memory != nil {
		data, err := json.Marshal(rec.Memory)
		if err != nil {
			return fmt.Errorf("marshal memory outcome: %w", err)
		}
		details = pqtype.NullRawMessage{RawMessage: data, Valid: true}
	}

	query := `
		INSERT INTO progress (activity_id, attempts, hints_used, success, elapsed_ms, recorded_at, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (activity_id) DO UPDATE SET
			attempts    = EXCLUDED.attempts,
			hints_used  = EXCLUDED.hints_used,
			success     = EXCLUDED.success,
			elapsed_ms  = EXCLUDED.elapsed_ms,
			recorded_at = EXCLUDED.recorded_at,
			details     = EXCLUDED.details
	`
	_, err := r.pool.Exec(ctx, query,
		rec.ActivityID, rec.Attempts, rec.HintsUsed, rec.Success, rec.ElapsedMs, rec.RecordedAt, details,
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// Get retrieves the record for one activity.
func (r *ProgressRepository) Get(ctx context.Context, activityID string) (domain.ProgressRecord, error) {
	query := `
		SELECT activity_id, attempts, hints_used, success, elapsed_ms, recorded_at, details
		FROM progress WHERE activity_id = $1
	`
	rec, err := scanRecord(r.pool.QueryRow(ctx, query, activityID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ProgressRecord{}, domain.ErrProgressNotFound
	}
	if err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("get progress: %w", err)
	}
	return rec, nil
}

// All retrieves every stored record ordered by activity id.
func (r *ProgressRepository) All(ctx context.Context) ([]domain.ProgressRecord, error) {
	query := `
		SELECT activity_id, attempts, hints_used, success, elapsed_ms, recorded_at, details
		FROM progress ORDER BY activity_id
	`
	rows, err := r.pool.Query(ctx, query)
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

type row interface {
	Scan(dest ...any) error
}

func scanRecord(r row) (domain.ProgressRecord, error) {
	var rec domain.ProgressRecord
	var details pqtype.NullRawMessage
	err := r.Scan(&rec.ActivityID, &rec.Attempts, &rec.HintsUsed, &rec.Success,
		&rec.ElapsedMs, &rec.RecordedAt, &details)
	if err != nil {
		return rec, err
	}
	if details.Valid {
		var outcome domain.MemoryOutcome
		if err := json.Unmarshal(details.RawMessage, &outcome); err != nil {
			return rec, fmt.Errorf("unmarshal progress details: %w", err)
		}
		rec.Memory = &outcome
	}
	return rec, nil
}

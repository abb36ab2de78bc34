package domain

import "time"

// ProgressRecord is the persisted outcome of one completed attempt session.
// Records are keyed by activity ID; a later completion for the same
// activity overwrites the earlier one.
type ProgressRecord struct {
	ActivityID string         `json:"activity_id"`
	Attempts   int            `json:"attempts"`
	HintsUsed  int            `json:"hints_used"`
	Success    bool           `json:"success"`
	ElapsedMs  int64          `json:"elapsed_ms"`
	RecordedAt time.Time      `json:"recorded_at"`
	Memory     *MemoryOutcome `json:"memory,omitempty"`
}

// MemoryOutcome carries the extra counters the memory template records.
type MemoryOutcome struct {
	Matches    int `json:"matches"`
	Mistakes   int `json:"mistakes"`
	StarRating int `json:"star_rating"`
}

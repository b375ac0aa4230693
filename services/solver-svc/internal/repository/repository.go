// Package repository stores the history of solved problems.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// SolveRecord is one row of solve history. Paths is only filled by Get.
type SolveRecord struct {
	ID          uuid.UUID
	ProblemHash string
	Islands     int
	Bridges     int
	Soldiers    int
	Feasible    bool
	TotalCost   int
	MeanCost    float64
	DurationMs  float64
	CacheHit    bool
	Paths       [][]int
	CreatedAt   time.Time
}

// SolveRepository persists solve records.
type SolveRepository interface {
	// Save assigns an id when record.ID is zero and fills CreatedAt.
	Save(ctx context.Context, record *SolveRecord) error
	Get(ctx context.Context, id uuid.UUID) (*SolveRecord, error)
	// ListRecent returns the newest records first, without paths.
	ListRecent(ctx context.Context, limit int) ([]*SolveRecord, error)
	// DeleteOlderThan removes records created before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}

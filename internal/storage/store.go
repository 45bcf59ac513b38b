// Package storage persists search runs so they can be listed and inspected
// after the process that ran them is gone.
package storage

import (
	"context"
	"time"
)

// Run states.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// RunRecord is the persisted view of one search run.
type RunRecord struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`

	Points      int    `json:"points"`
	Metric      string `json:"metric"`
	Scale       string `json:"scale"`
	Seeding     string `json:"seeding"`
	Termination string `json:"termination,omitempty"`
	Error       string `json:"error,omitempty"`

	Generations     int           `json:"generations"`
	Evaluations     int           `json:"evaluations"`
	Elapsed         time.Duration `json:"elapsed_ns"`
	BestFitness     float64       `json:"best_fitness"`
	BestDistance    float64       `json:"best_distance"`
	BestUniqueCount int           `json:"best_unique_count"`
	Tour            []int         `json:"tour,omitempty"`
}

// Done reports whether the run reached a final state.
func (r RunRecord) Done() bool {
	return r.Status != StatusRunning && r.Status != ""
}

// Store persists run records. SaveRun replaces any record with the same ID.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run RunRecord) error
	GetRun(ctx context.Context, id string) (RunRecord, bool, error)
	// ListRuns returns the newest runs first; limit <= 0 means no limit.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}

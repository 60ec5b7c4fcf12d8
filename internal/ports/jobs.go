package ports

import (
	"context"
	"time"

	"clipforge/internal/models"
)

// JobStore persists one record per job id across restarts.
type JobStore interface {
	// Create inserts a new record. A duplicate id returns a CONFLICT error.
	Create(ctx context.Context, job models.Job) error
	// Save overwrites the mutable fields of an existing record.
	Save(ctx context.Context, job models.Job) error
	// Get returns NOT_FOUND for unknown ids.
	Get(ctx context.Context, id string) (models.Job, error)
	// ListByStage returns jobs in stage last updated before cutoff.
	ListByStage(ctx context.Context, stage models.Stage, before time.Time) ([]models.Job, error)
	Ping(ctx context.Context) error
}

// JobQueue dispatches job ids to workers.
type JobQueue interface {
	Push(ctx context.Context, jobID string) error
	// Pop blocks until an id is available or ctx ends. An empty id with a nil
	// error means the wait timed out.
	Pop(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
}

package worker

import (
	"context"

	"clipforge/internal/pkg/logger"
	"clipforge/internal/ports"
)

// JobRunner drives one job to a terminal stage. pipeline.Orchestrator
// implements it. ctx is never cancelled by the pool; a closed stop asks the
// runner to end the job before its next stage.
type JobRunner interface {
	Process(ctx context.Context, jobID string, stop <-chan struct{}) error
}

type Deps struct {
	Queue  ports.JobQueue
	Runner JobRunner
	// Count is the number of jobs processed concurrently.
	Count int
	Log   *logger.Logger
}

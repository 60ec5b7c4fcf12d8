// Package worker pops job ids off the queue and hands them to the pipeline.
package worker

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"clipforge/internal/pkg/logger"
)

// popRetryDelay is the pause after a failed queue read.
const popRetryDelay = time.Second

// Run starts d.Count workers and blocks until ctx ends. Ending ctx stops the
// queue reads at once; a job being processed finishes its current stage and
// is then recorded as failed by the runner.
func Run(ctx context.Context, d Deps) error {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("worker")

	n := d.Count
	if n < 1 {
		n = 1
	}
	log.Info("workers starting", "count", n)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		wlog := log.With("worker", i)
		g.Go(func() error {
			return loop(gctx, d, &logger.Logger{Logger: wlog})
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		log.Info("workers stopped")
		return nil
	}
	return err
}

func loop(ctx context.Context, d Deps, log *logger.Logger) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		jobID, err := d.Queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("queue pop error, retrying", "error", err.Error())
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(popRetryDelay):
			}
			continue
		}
		if jobID == "" {
			continue
		}

		jobCtx := logger.ContextWithJobID(context.WithoutCancel(ctx), jobID)
		jobLog := log.WithJobID(jobID)
		jobLog.Info("processing job")
		start := time.Now()

		if err := d.Runner.Process(jobCtx, jobID, ctx.Done()); err != nil {
			jobLog.Error("job failed",
				"error", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
			continue
		}
		jobLog.Info("job completed", "duration_ms", time.Since(start).Milliseconds())
	}
}

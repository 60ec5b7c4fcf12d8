package pipeline

import (
	"context"
	"os"
	"time"

	"clipforge/internal/models"
)

// CleanStale removes the staging directories of jobs that failed more than
// the retention period ago. It returns how many directories it removed.
func (o *Orchestrator) CleanStale(ctx context.Context) (int, error) {
	if o.settings.FailedRetention <= 0 {
		return 0, nil
	}
	cutoff := o.now().Add(-o.settings.FailedRetention)
	failed, err := o.store.ListByStage(ctx, models.StageError, cutoff)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, j := range failed {
		if !o.stillStale(ctx, j.ID, cutoff) {
			continue
		}
		dir := StagingDir(o.storageRoot, j.ID)
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			o.log.Warn("remove stale staging dir", "job_id", j.ID, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		o.log.Info("stale staging dirs removed", "count", removed, "cutoff", cutoff.Format(time.RFC3339))
	}
	return removed, nil
}

// stillStale re-reads id just before removal: a job resubmitted after the
// listing owns its staging directory again.
func (o *Orchestrator) stillStale(ctx context.Context, id string, cutoff time.Time) bool {
	if _, running := o.registry.Get(id); running {
		return false
	}
	cur, err := o.store.Get(ctx, id)
	if err != nil {
		return false
	}
	return cur.Stage == models.StageError && cur.UpdatedAt.Before(cutoff)
}

// RunJanitor calls CleanStale every interval until ctx ends.
func (o *Orchestrator) RunJanitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if _, err := o.CleanStale(ctx); err != nil && ctx.Err() == nil {
			o.log.Warn("janitor sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// Package jobs keeps the in-process view of running jobs. The worker driving
// a job is its only writer; status readers get copies.
package jobs

import (
	"sync"

	"clipforge/internal/models"
)

// Registry is a keyed, lock-guarded job map.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]models.Job
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]models.Job)}
}

// Put stores a snapshot of job.
func (r *Registry) Put(job models.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
}

// Get returns a copy of the job with id.
func (r *Registry) Get(id string) (models.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	return j, ok
}

// Delete forgets id.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

// Active returns the ids of registered jobs that are not terminal.
func (r *Registry) Active() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, j := range r.jobs {
		if !j.Stage.Terminal() {
			ids = append(ids, id)
		}
	}
	return ids
}

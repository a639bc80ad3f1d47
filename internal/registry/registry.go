// Package registry holds the process-wide list of upload jobs so the
// admin UI can display them after the originating form is gone. The
// registry is injected, never ambient, so every test owns an isolated
// instance.
package registry

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/studio-media/internal/model"
)

// DefaultCompletedTTL is how long a completed job stays visible before
// it removes itself. Error jobs persist until dismissed.
const DefaultCompletedTTL = 5 * time.Second

// Registry is the in-memory job store, lifecycle tied to the process
type Registry struct {
	completedTTL time.Duration
	logger       *zap.Logger

	mu   sync.Mutex
	jobs []model.UploadJob
}

// New creates an empty registry. A non-positive ttl falls back to the
// default.
func New(completedTTL time.Duration, logger *zap.Logger) *Registry {
	if completedTTL <= 0 {
		completedTTL = DefaultCompletedTTL
	}
	return &Registry{completedTTL: completedTTL, logger: logger}
}

// Add prepends a job, most recent first
func (r *Registry) Add(job model.UploadJob) {
	r.mu.Lock()
	defer r.mu.Unlock()

	jobs := make([]model.UploadJob, 0, len(r.jobs)+1)
	jobs = append(jobs, job)
	jobs = append(jobs, r.jobs...)
	r.jobs = jobs
}

// Update applies mutate to the job with the given id. A no-op when the
// id is absent (already dismissed). Progress never moves backwards
// unless the job is entering the error state, and a job entering the
// completed state schedules its own removal.
func (r *Registry) Update(id string, mutate func(*model.UploadJob)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.jobs {
		if r.jobs[i].ID != id {
			continue
		}

		// Replace-the-whole-collection so concurrent readers holding a
		// snapshot never observe a partial mutation
		jobs := make([]model.UploadJob, len(r.jobs))
		copy(jobs, r.jobs)

		job := &jobs[i]
		prevProgress := job.Progress
		wasTerminal := job.IsTerminal()

		mutate(job)

		if job.Status != model.JobStatusError && job.Progress < prevProgress {
			job.Progress = prevProgress
		}
		job.UpdatedAt = time.Now()

		r.jobs = jobs

		if job.Status == model.JobStatusCompleted && !wasTerminal {
			r.scheduleRemoval(id)
		}
		return
	}
}

// Remove drops a job from the list; safe to call on an absent id
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	jobs := make([]model.UploadJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		if job.ID != id {
			jobs = append(jobs, job)
		}
	}
	r.jobs = jobs
}

// Jobs returns a snapshot of the list, most recent first
func (r *Registry) Jobs() []model.UploadJob {
	r.mu.Lock()
	defer r.mu.Unlock()

	jobs := make([]model.UploadJob, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}

// Get returns one job by id
func (r *Registry) Get(id string) (model.UploadJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, job := range r.jobs {
		if job.ID == id {
			return job, true
		}
	}
	return model.UploadJob{}, false
}

func (r *Registry) scheduleRemoval(id string) {
	time.AfterFunc(r.completedTTL, func() {
		r.logger.Debug("Expiring completed job", zap.String("job_id", id))
		r.Remove(id)
	})
}

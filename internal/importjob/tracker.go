package importjob

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Tracker is the in-memory registry of import jobs. It is safe for
// concurrent use; readers get copies.
type Tracker struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewTracker creates a tracker that keeps finished jobs for retention
func NewTracker(retention time.Duration, logger *slog.Logger) *Tracker {
	return &Tracker{
		jobs:      make(map[string]*Job),
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

// Create registers a new queued job and returns its id
func (t *Tracker) Create(source string) string {
	now := t.now()
	job := &Job{
		ID:        uuid.NewString(),
		Source:    source,
		Status:    StatusQueued,
		Message:   "Import queued",
		CreatedAt: now,
		UpdatedAt: now,
	}

	t.mu.Lock()
	t.jobs[job.ID] = job
	t.mu.Unlock()

	return job.ID
}

// Update merges u into the job. Unknown ids and finished jobs are left
// alone; the returned flag reports whether anything was applied. Progress
// never goes backwards.
func (t *Tracker) Update(id string, u Update) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[id]
	if !ok || job.Status.Terminal() {
		return Job{}, false
	}

	now := t.now()
	if u.Status != "" {
		job.Status = u.Status
	}
	if u.Progress > job.Progress {
		job.Progress = min(u.Progress, 100)
	}
	if u.Message != "" {
		job.Message = u.Message
	}
	if u.ContainerID != "" {
		job.ContainerID = u.ContainerID
	}
	if u.Result != nil {
		r := *u.Result
		job.Result = &r
	}
	if job.Status.Terminal() {
		job.FinishedAt = &now
		if job.Status == StatusCompleted {
			job.Progress = 100
		}
	}
	job.UpdatedAt = now

	return job.clone(), true
}

// Get returns a copy of the job
func (t *Tracker) Get(id string) (Job, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	job, ok := t.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return job.clone(), nil
}

// Len returns the number of tracked jobs
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.jobs)
}

// Evict drops finished jobs older than the retention window and returns how
// many were removed
func (t *Tracker) Evict(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, job := range t.jobs {
		if job.FinishedAt != nil && now.Sub(*job.FinishedAt) >= t.retention {
			delete(t.jobs, id)
			removed++
		}
	}
	return removed
}

// RunJanitor evicts expired jobs every interval until ctx is done
func (t *Tracker) RunJanitor(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := t.Evict(t.now()); n > 0 {
				t.logger.Debug("Evicted finished import jobs", slog.Int("count", n))
			}
		}
	}
}

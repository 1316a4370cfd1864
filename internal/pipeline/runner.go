package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/seekrai/internal/progress"
	"github.com/jonathan/seekrai/internal/types"
)

// JobStatus is what a polling client sees for one analysis job: live progress
// while running, the result once complete, the error once failed.
type JobStatus struct {
	JobID     string            `json:"job_id"`
	Progress  progress.Snapshot `json:"progress"`
	Result    *types.Result     `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type job struct {
	id        string
	createdAt time.Time

	mu     sync.Mutex
	result *types.Result
	errMsg string
}

// Runner owns analysis job lifecycles: it assigns IDs, runs the pipeline in
// the background, and serves status snapshots. Finished jobs age out with the
// tracker's retention window; callers own the Runner and must Stop it.
type Runner struct {
	pipeline *Pipeline
	tracker  *progress.Tracker
	logger   *zap.Logger

	mu   sync.RWMutex
	jobs map[string]*job

	stopOnce sync.Once
	stop     chan struct{}
}

// NewRunner creates a Runner over an assembled pipeline and starts its
// eviction loop.
func NewRunner(p *Pipeline, tracker *progress.Tracker, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		pipeline: p,
		tracker:  tracker,
		logger:   logger,
		jobs:     make(map[string]*job),
		stop:     make(chan struct{}),
	}
	go r.sweepLoop()
	return r
}

// Stop halts the background eviction of finished jobs.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Submit starts an analysis run in the background and returns its job ID.
func (r *Runner) Submit(ctx context.Context, req Request) string {
	id := uuid.NewString()
	j := &job{id: id, createdAt: time.Now()}

	// Register before the job becomes visible so an immediate poll finds it
	// and the sweep cannot reclaim it between the two writes.
	r.tracker.Register(id)

	r.mu.Lock()
	r.jobs[id] = j
	r.mu.Unlock()

	go func() {
		result, err := r.pipeline.Run(ctx, id, req)
		j.mu.Lock()
		defer j.mu.Unlock()
		if err != nil {
			j.errMsg = err.Error()
			r.logger.Warn("analysis job failed", zap.String("job_id", id), zap.Error(err))
			return
		}
		j.result = result
	}()

	return id
}

// Status returns the current view of a job. The second return is false when
// the job is unknown or already reclaimed.
func (r *Runner) Status(id string) (JobStatus, bool) {
	r.mu.RLock()
	j, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return JobStatus{}, false
	}

	snap, tracked := r.tracker.Get(id)
	if !tracked {
		// The tracker swept this job; drop our record too.
		r.mu.Lock()
		delete(r.jobs, id)
		r.mu.Unlock()
		return JobStatus{}, false
	}

	j.mu.Lock()
	status := JobStatus{
		JobID:     id,
		Progress:  snap,
		Result:    j.result,
		Error:     j.errMsg,
		CreatedAt: j.createdAt,
	}
	j.mu.Unlock()
	return status, true
}

func (r *Runner) sweepLoop() {
	ticker := time.NewTicker(r.tracker.Retention() / 5)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

// sweep drops jobs whose tracker entry has been reclaimed, so results do not
// outlive the retention window even when nobody polls for them.
func (r *Runner) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.jobs {
		if _, ok := r.tracker.Get(id); !ok {
			delete(r.jobs, id)
		}
	}
}

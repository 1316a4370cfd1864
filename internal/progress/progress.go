// Package progress tracks the lifecycle of analysis jobs for polling clients.
// A Tracker is constructed per server or test and injected where needed.
package progress

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Phase is the lifecycle stage of an analysis job.
type Phase string

const (
	PhasePreparing Phase = "preparing"
	PhaseScraping  Phase = "scraping"
	PhaseAnalyzing Phase = "analyzing"
	PhaseComplete  Phase = "complete"
	PhaseFailed    Phase = "failed"
)

// Terminal reports whether the phase admits no further transitions.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseFailed
}

// Percent anchors for each phase. Within scraping and analyzing the percent
// advances linearly between the anchors as work completes.
const (
	percentPreparing     = 0
	percentScrapingStart = 5
	percentScrapingEnd   = 50
	percentAnalyzeStart  = 55
	percentAnalyzeEnd    = 95
	percentComplete      = 100
)

// DefaultRetention is how long terminal entries remain pollable.
const DefaultRetention = 5 * time.Minute

// Snapshot is the externally visible state of one job.
type Snapshot struct {
	JobID   string `json:"job_id"`
	Phase   Phase  `json:"phase"`
	Percent int    `json:"percent"`
	Message string `json:"message,omitempty"`

	// Scraping detail
	Site          string `json:"site,omitempty"`
	PostingsFound int    `json:"postings_found,omitempty"`

	// Analysis detail
	CompletedBatches int `json:"completed_batches,omitempty"`
	TotalBatches     int `json:"total_batches,omitempty"`
	BatchSize        int `json:"batch_size,omitempty"`

	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type entry struct {
	mu         sync.Mutex
	snap       Snapshot
	terminalAt time.Time
}

// Tracker is a registry of job snapshots with bounded retention of finished
// entries.
type Tracker struct {
	mu        sync.RWMutex
	entries   map[string]*entry
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// NewTracker starts the background sweep; callers own the Tracker and must
// Stop it when done. A zero retention uses DefaultRetention.
func NewTracker(retention time.Duration, logger *zap.Logger) *Tracker {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		entries:   make(map[string]*entry),
		retention: retention,
		logger:    logger,
		now:       time.Now,
		stop:      make(chan struct{}),
	}
	go t.sweepLoop()
	return t
}

// Stop halts the retention sweep.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// Retention returns how long terminal entries remain pollable.
func (t *Tracker) Retention() time.Duration {
	return t.retention
}

// Register creates a new entry in the preparing phase. Registering an ID that
// already exists is a no-op, so the first registrant owns the entry.
func (t *Tracker) Register(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[jobID]; ok {
		return
	}
	t.entries[jobID] = &entry{snap: Snapshot{
		JobID:     jobID,
		Phase:     PhasePreparing,
		Percent:   percentPreparing,
		Message:   "preparing resume",
		UpdatedAt: t.now(),
	}}
}

// Get returns the current snapshot for a job.
func (t *Tracker) Get(jobID string) (Snapshot, bool) {
	t.mu.RLock()
	e, ok := t.entries[jobID]
	t.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	e.mu.Lock()
	snap := e.snap
	e.mu.Unlock()
	return snap, true
}

// StartScraping moves a job into the scraping phase.
func (t *Tracker) StartScraping(jobID string) {
	t.update(jobID, func(s *Snapshot) {
		s.Phase = PhaseScraping
		s.Percent = percentScrapingStart
		s.Message = "searching job boards"
	})
}

// Scraping records per-site detail. done/total drives the percent between the
// scraping anchors.
func (t *Tracker) Scraping(jobID, site string, found, done, total int) {
	t.update(jobID, func(s *Snapshot) {
		s.Phase = PhaseScraping
		s.Site = site
		s.PostingsFound += found
		s.Percent = interpolate(percentScrapingStart, percentScrapingEnd, done, total)
		s.Message = "searching " + site
	})
}

// StartAnalyzing moves a job into the analyzing phase with the batch total
// and size.
func (t *Tracker) StartAnalyzing(jobID string, totalBatches, batchSize int) {
	t.update(jobID, func(s *Snapshot) {
		s.Phase = PhaseAnalyzing
		s.Percent = percentAnalyzeStart
		s.TotalBatches = totalBatches
		s.BatchSize = batchSize
		s.CompletedBatches = 0
		s.Message = "analyzing postings"
	})
}

// BatchDone records one completed analysis batch.
func (t *Tracker) BatchDone(jobID string) {
	t.update(jobID, func(s *Snapshot) {
		s.Phase = PhaseAnalyzing
		s.CompletedBatches++
		s.Percent = interpolate(percentAnalyzeStart, percentAnalyzeEnd, s.CompletedBatches, s.TotalBatches)
	})
}

// Complete marks a job finished.
func (t *Tracker) Complete(jobID, message string) {
	t.update(jobID, func(s *Snapshot) {
		s.Phase = PhaseComplete
		s.Percent = percentComplete
		s.Message = message
	})
}

// Fail marks a job failed. Reachable from any non-terminal phase; the percent
// freezes where it was.
func (t *Tracker) Fail(jobID, errMsg string) {
	t.update(jobID, func(s *Snapshot) {
		s.Phase = PhaseFailed
		s.Error = errMsg
		s.Message = "analysis failed"
	})
}

// update applies fn under the entry lock. Terminal entries are immutable and
// the percent never moves backward within a phase.
func (t *Tracker) update(jobID string, fn func(*Snapshot)) {
	t.mu.RLock()
	e, ok := t.entries[jobID]
	t.mu.RUnlock()
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snap.Phase.Terminal() {
		return
	}

	prev := e.snap
	next := prev
	fn(&next)
	if next.Phase == prev.Phase && next.Percent < prev.Percent {
		next.Percent = prev.Percent
	}
	next.UpdatedAt = t.now()
	e.snap = next

	if next.Phase.Terminal() {
		e.terminalAt = next.UpdatedAt
		t.logger.Info("job reached terminal phase",
			zap.String("job_id", jobID),
			zap.String("phase", string(next.Phase)),
		)
	}
}

func (t *Tracker) sweepLoop() {
	ticker := time.NewTicker(t.retention / 5)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.sweep()
		}
	}
}

// sweep drops terminal entries older than the retention window.
func (t *Tracker) sweep() {
	cutoff := t.now().Add(-t.retention)
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, e := range t.entries {
		e.mu.Lock()
		expired := e.snap.Phase.Terminal() && e.terminalAt.Before(cutoff)
		e.mu.Unlock()
		if expired {
			delete(t.entries, id)
		}
	}
}

// interpolate maps done/total onto [start, end]. A zero total pins to start.
func interpolate(start, end, done, total int) int {
	if total <= 0 {
		return start
	}
	if done > total {
		done = total
	}
	return start + (end-start)*done/total
}

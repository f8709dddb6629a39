package report

import (
	"sync/atomic"
	"time"

	"github.com/phrazzld/scry-cardgen/internal/dispatch"
	"github.com/phrazzld/scry-cardgen/internal/domain"
)

var _ dispatch.Observer = (*Progress)(nil)

// Snapshot is a point-in-time view of a run.
type Snapshot struct {
	RunID     string    `json:"run_id,omitempty"`
	Total     int64     `json:"total"`
	Pending   int64     `json:"pending"`
	Succeeded int64     `json:"succeeded"`
	Skipped   int64     `json:"skipped"`
	Failed    int64     `json:"failed"`
	Retries   int64     `json:"retries"`
	Remaining int64     `json:"remaining"`
	Started   bool      `json:"started"`
	Done      bool      `json:"done"`
	StartedAt time.Time `json:"started_at,omitempty"`
	Elapsed   string    `json:"elapsed"`
}

// Progress keeps live counters of a run. All methods are safe for concurrent
// use and never block.
type Progress struct {
	runID     string
	startedAt atomic.Int64 // unix nanos; zero until OnStart
	total     atomic.Int64
	pending   atomic.Int64
	succeeded atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
	retries   atomic.Int64
}

// NewProgress creates an empty Progress tagged with runID.
func NewProgress(runID string) *Progress {
	return &Progress{runID: runID}
}

// OnStart implements dispatch.Observer.
func (p *Progress) OnStart(total, pending int) {
	p.total.Store(int64(total))
	p.pending.Store(int64(pending))
	p.startedAt.Store(time.Now().UnixNano())
}

// OnRetry implements dispatch.Observer.
func (p *Progress) OnRetry(domain.WorkItem, int, time.Duration, error) {
	p.retries.Add(1)
}

// OnOutcome implements dispatch.Observer.
func (p *Progress) OnOutcome(o domain.Outcome) {
	switch o.Status {
	case domain.OutcomeSuccess:
		p.succeeded.Add(1)
	case domain.OutcomeSkipped:
		p.skipped.Add(1)
	case domain.OutcomeFailed:
		p.failed.Add(1)
	}
}

// Snapshot returns the current counters.
func (p *Progress) Snapshot() Snapshot {
	s := Snapshot{
		RunID:     p.runID,
		Total:     p.total.Load(),
		Pending:   p.pending.Load(),
		Succeeded: p.succeeded.Load(),
		Skipped:   p.skipped.Load(),
		Failed:    p.failed.Load(),
		Retries:   p.retries.Load(),
		Elapsed:   "0s",
	}
	s.Remaining = s.Total - s.Succeeded - s.Skipped - s.Failed

	if started := p.startedAt.Load(); started != 0 {
		s.Started = true
		s.StartedAt = time.Unix(0, started).UTC()
		s.Elapsed = time.Since(s.StartedAt).Round(time.Millisecond).String()
		s.Done = s.Remaining <= 0
	}
	return s
}

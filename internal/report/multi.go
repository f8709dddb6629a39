package report

import (
	"time"

	"github.com/phrazzld/scry-cardgen/internal/dispatch"
	"github.com/phrazzld/scry-cardgen/internal/domain"
)

// Multi forwards every event to each observer in order.
type Multi []dispatch.Observer

var _ dispatch.Observer = Multi(nil)

// NewMulti builds a Multi, dropping nil observers.
func NewMulti(observers ...dispatch.Observer) Multi {
	m := make(Multi, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

// OnStart implements dispatch.Observer.
func (m Multi) OnStart(total, pending int) {
	for _, o := range m {
		o.OnStart(total, pending)
	}
}

// OnRetry implements dispatch.Observer.
func (m Multi) OnRetry(item domain.WorkItem, attempt int, delay time.Duration, err error) {
	for _, o := range m {
		o.OnRetry(item, attempt, delay, err)
	}
}

// OnOutcome implements dispatch.Observer.
func (m Multi) OnOutcome(out domain.Outcome) {
	for _, o := range m {
		o.OnOutcome(out)
	}
}

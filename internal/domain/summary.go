package domain

import (
	"fmt"
	"sync"
	"time"
)

// Summary aggregates the outcomes of a run, keyed by identifier.
// Outcomes may be recorded concurrently and in any order; Failed() always
// reports identifiers in input order.
type Summary struct {
	mu       sync.Mutex
	order    []string
	outcomes map[string]Outcome
	started  time.Time
	elapsed  time.Duration
}

// NewSummary creates an empty summary for the given input order.
func NewSummary(order []string) *Summary {
	o := make([]string, len(order))
	copy(o, order)
	return &Summary{
		order:    o,
		outcomes: make(map[string]Outcome, len(order)),
		started:  time.Now(),
	}
}

// Record stores the outcome for its word. Recording a second outcome for the
// same word is an error: every item has exactly one terminal outcome.
func (s *Summary) Record(o Outcome) error {
	if err := o.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.outcomes[o.Word]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateOutcome, o.Word)
	}
	s.outcomes[o.Word] = o
	return nil
}

// Has reports whether an outcome was recorded for the word.
func (s *Summary) Has(word string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.outcomes[word]
	return ok
}

// Outcome returns the recorded outcome for the word.
func (s *Summary) Outcome(word string) (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.outcomes[word]
	return o, ok
}

// Finish freezes the elapsed time of the run.
func (s *Summary) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elapsed = time.Since(s.started)
}

// Elapsed returns the wall-clock duration of the run.
func (s *Summary) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.elapsed == 0 {
		return time.Since(s.started)
	}
	return s.elapsed
}

// Total returns the number of recorded outcomes.
func (s *Summary) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outcomes)
}

// Count returns the number of outcomes with the given status.
func (s *Summary) Count(status OutcomeStatus) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, o := range s.outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Failed returns the failed identifiers in input order.
func (s *Summary) Failed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	failed := make([]string, 0)
	for _, w := range s.order {
		if o, ok := s.outcomes[w]; ok && o.Status == OutcomeFailed {
			failed = append(failed, w)
		}
	}
	return failed
}

// Outcomes returns all recorded outcomes in input order.
func (s *Summary) Outcomes() []Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Outcome, 0, len(s.outcomes))
	for _, w := range s.order {
		if o, ok := s.outcomes[w]; ok {
			out = append(out, o)
		}
	}
	return out
}

// Missing returns the identifiers of the input that have no outcome yet.
func (s *Summary) Missing() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var missing []string
	for _, w := range s.order {
		if _, ok := s.outcomes[w]; !ok {
			missing = append(missing, w)
		}
	}
	return missing
}

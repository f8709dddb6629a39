package dispatch

import (
	"errors"
	"time"

	"github.com/phrazzld/scry-cardgen/internal/domain"
)

// step is the next action of an item's attempt loop.
type step int

const (
	// stepAttempt acquires a rate-limit slot and calls the generator.
	stepAttempt step = iota
	// stepBackoff sleeps before the next attempt.
	stepBackoff
	// stepWrite hands the generated content to the sink.
	stepWrite
	// stepDone means the outcome is final.
	stepDone
)

func (s step) String() string {
	switch s {
	case stepAttempt:
		return "attempt"
	case stepBackoff:
		return "backoff"
	case stepWrite:
		return "write"
	case stepDone:
		return "done"
	default:
		return "unknown"
	}
}

// attemptState is the retry state machine of one item. It performs no I/O:
// the Invoker executes the current step and reports the result back through
// one of the transition methods.
//
//	attempt --generated--> write --written--> done
//	attempt --failed, attempt < max--> backoff --backedOff--> attempt
//	attempt --failed, attempt = max--> done (generate)
//	write --write error--> done (write)
//	attempt|backoff --canceled--> done (canceled)
type attemptState struct {
	item        domain.WorkItem
	maxAttempts int

	// attempt is the 1-based number of the current or last attempt.
	attempt int
	// calls counts the generation calls made so far.
	calls int

	step    step
	content string
	lastErr error
	reason  string
}

func newAttemptState(item domain.WorkItem, maxAttempts int) *attemptState {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &attemptState{
		item:        item,
		maxAttempts: maxAttempts,
		attempt:     1,
		step:        stepAttempt,
	}
}

// generated records a successful generation call.
func (s *attemptState) generated(content string) {
	s.mustBe(stepAttempt)
	s.calls++
	s.content = content
	s.step = stepWrite
}

// generateFailed records a failed generation call.
func (s *attemptState) generateFailed(err error) {
	s.mustBe(stepAttempt)
	s.calls++
	s.lastErr = err
	if s.attempt < s.maxAttempts {
		s.step = stepBackoff
		return
	}
	s.reason = domain.ReasonGenerate
	s.step = stepDone
}

// backedOff moves to the next attempt after the backoff sleep.
func (s *attemptState) backedOff() {
	s.mustBe(stepBackoff)
	s.attempt++
	s.step = stepAttempt
}

// written records the sink result. A write error is final: the content is
// not generated again.
func (s *attemptState) written(err error) {
	s.mustBe(stepWrite)
	if err != nil {
		s.lastErr = err
		s.reason = domain.ReasonWrite
	}
	s.step = stepDone
}

// canceled ends the loop while waiting for a rate-limit slot or a backoff.
func (s *attemptState) canceled(err error) {
	if s.step != stepAttempt && s.step != stepBackoff {
		panic("dispatch: cancel in step " + s.step.String())
	}
	if s.lastErr != nil {
		err = errors.Join(err, s.lastErr)
	}
	s.lastErr = err
	s.reason = domain.ReasonCanceled
	s.step = stepDone
}

func (s *attemptState) done() bool {
	return s.step == stepDone
}

// outcome returns the terminal outcome. It must only be called when done.
func (s *attemptState) outcome(d time.Duration) domain.Outcome {
	s.mustBe(stepDone)
	if s.reason == "" {
		return domain.Succeeded(s.item.Word, s.calls, d)
	}
	return domain.Failed(s.item.Word, s.reason, s.calls, s.lastErr, d)
}

func (s *attemptState) mustBe(want step) {
	if s.step != want {
		panic("dispatch: invalid transition from step " + s.step.String() + ", want " + want.String())
	}
}

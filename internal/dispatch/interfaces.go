package dispatch

import (
	"context"
	"time"

	"github.com/phrazzld/scry-cardgen/internal/domain"
)

// Sink stores one artifact per word.
type Sink interface {
	// Exists reports whether an artifact for word is already stored.
	Exists(ctx context.Context, word string) (bool, error)

	// Write stores content as the artifact for word, replacing any previous
	// artifact.
	Write(ctx context.Context, word, content string) error
}

// WordValidator is implemented by sinks that cannot store every word, such
// as a file store that maps words to file names. Words it rejects fail with
// reason "write" before any generation call is made.
type WordValidator interface {
	ValidateWord(word string) error
}

// RateLimiter blocks until the caller may start an outbound call.
// The only error it returns is the context's.
type RateLimiter interface {
	Acquire(ctx context.Context) error
}

// Observer receives progress events during a run. Calls may come from any
// worker goroutine, so implementations must be safe for concurrent use.
type Observer interface {
	// OnStart is called once, after the skip snapshot and before any work.
	OnStart(total, pending int)

	// OnRetry is called after a failed attempt, before sleeping for delay.
	OnRetry(item domain.WorkItem, attempt int, delay time.Duration, err error)

	// OnOutcome is called exactly once per item with its terminal outcome.
	OnOutcome(o domain.Outcome)
}

// NopObserver ignores all events.
type NopObserver struct{}

// OnStart implements Observer.
func (NopObserver) OnStart(int, int) {}

// OnRetry implements Observer.
func (NopObserver) OnRetry(domain.WorkItem, int, time.Duration, error) {}

// OnOutcome implements Observer.
func (NopObserver) OnOutcome(domain.Outcome) {}

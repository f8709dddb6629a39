package dispatch

import (
	"fmt"
	"time"

	"github.com/phrazzld/scry-cardgen/internal/backoff"
)

// Defaults applied by DefaultRunConfig.
const (
	DefaultMaxAttempts = 3
	DefaultBackoffBase = 5 * time.Second
)

// RunConfig holds the settings of one run. It is passed by value and never
// mutated after New.
type RunConfig struct {
	// Workers is the number of concurrent workers; at least 1.
	Workers int

	// RequestsPerMinute caps generation calls across all workers; 0 is unlimited.
	RequestsPerMinute int

	// MaxAttempts bounds the generation calls per item; at least 1.
	MaxAttempts int

	// BackoffBase is the base delay between attempts.
	BackoffBase time.Duration

	// Backoff computes the delay before the next attempt. Nil selects linear
	// backoff on BackoffBase.
	Backoff backoff.Strategy

	// SkipProcessed skips words whose artifact already exists.
	SkipProcessed bool

	// Model is the generation model used for every item.
	Model string
}

// DefaultRunConfig returns a RunConfig with one worker, no rate cap, three
// attempts with linear 5s backoff, and skipping enabled.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Workers:       1,
		MaxAttempts:   DefaultMaxAttempts,
		BackoffBase:   DefaultBackoffBase,
		SkipProcessed: true,
	}
}

// Validate reports the first invalid field.
func (c RunConfig) Validate() error {
	switch {
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidRunConfig, c.Workers)
	case c.RequestsPerMinute < 0:
		return fmt.Errorf("%w: requests per minute cannot be negative, got %d", ErrInvalidRunConfig, c.RequestsPerMinute)
	case c.MaxAttempts < 1:
		return fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidRunConfig, c.MaxAttempts)
	case c.BackoffBase < 0:
		return fmt.Errorf("%w: backoff base cannot be negative, got %s", ErrInvalidRunConfig, c.BackoffBase)
	}
	return nil
}

func (c RunConfig) strategy() backoff.Strategy {
	if c.Backoff != nil {
		return c.Backoff
	}
	return backoff.NewLinear(c.BackoffBase, 0)
}

package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/scry-cardgen/internal/backoff"
	"github.com/phrazzld/scry-cardgen/internal/domain"
	"github.com/phrazzld/scry-cardgen/internal/generation"
	"github.com/phrazzld/scry-cardgen/internal/platform/logger"
	"github.com/phrazzld/scry-cardgen/internal/redact"
)

// Invoker runs the bounded retry loop for one item at a time. It holds no
// per-item state and is shared by all workers.
type Invoker struct {
	limiter     RateLimiter
	generator   generation.Generator
	sink        Sink
	backoff     backoff.Strategy
	maxAttempts int
	observer    Observer
	logger      *slog.Logger

	// sleep waits for d or until ctx is done.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewInvoker creates an Invoker from the retry settings of cfg.
func NewInvoker(
	limiter RateLimiter,
	generator generation.Generator,
	sink Sink,
	cfg RunConfig,
	observer Observer,
	logger *slog.Logger,
) *Invoker {
	if observer == nil {
		observer = NopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{
		limiter:     limiter,
		generator:   generator,
		sink:        sink,
		backoff:     cfg.strategy(),
		maxAttempts: cfg.MaxAttempts,
		observer:    observer,
		logger:      logger.With(slog.String("component", "invoker")),
		sleep:       sleepContext,
	}
}

// Invoke processes item and returns its terminal outcome. It never returns
// without an outcome and never calls the sink more than once.
//
// Cancelling ctx ends a pending rate-limit wait or backoff sleep. A
// generation call or write that has started runs to completion.
func (inv *Invoker) Invoke(ctx context.Context, item domain.WorkItem) domain.Outcome {
	start := time.Now()
	st := newAttemptState(item, inv.maxAttempts)
	log := inv.logger.With(slog.String("word", item.Word))
	ctx = logger.WithLogger(ctx, log)

	for !st.done() {
		switch st.step {
		case stepAttempt:
			if err := inv.limiter.Acquire(ctx); err != nil {
				st.canceled(err)
				continue
			}

			content, err := inv.generate(ctx, item)
			if err != nil {
				log.WarnContext(ctx, "generation attempt failed",
					slog.Int("attempt", st.attempt),
					slog.Int("max_attempts", st.maxAttempts),
					slog.String("error", redact.Error(err)))
				st.generateFailed(err)
				continue
			}
			st.generated(content)

		case stepBackoff:
			delay := inv.backoff.Delay(st.attempt)
			inv.observer.OnRetry(item, st.attempt, delay, st.lastErr)
			log.DebugContext(ctx, "backing off before retry",
				slog.Int("attempt", st.attempt),
				slog.Duration("delay", delay))
			if err := inv.sleep(ctx, delay); err != nil {
				st.canceled(err)
				continue
			}
			st.backedOff()

		case stepWrite:
			err := inv.sink.Write(context.WithoutCancel(ctx), item.Word, st.content)
			if err != nil {
				err = fmt.Errorf("%w: %w", ErrWrite, err)
				log.ErrorContext(ctx, "failed to write artifact",
					slog.String("error", redact.Error(err)))
			}
			st.written(err)
		}
	}

	return st.outcome(time.Since(start))
}

// generate makes one generation call that is shielded from cancellation.
func (inv *Invoker) generate(ctx context.Context, item domain.WorkItem) (string, error) {
	content, err := inv.generator.Generate(context.WithoutCancel(ctx), item.Word, item.Model)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: %w", generation.ErrGenerationFailed, ErrEmptyResponse)
	}
	return content, nil
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

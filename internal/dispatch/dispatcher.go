package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-cardgen/internal/domain"
	"github.com/phrazzld/scry-cardgen/internal/generation"
	"github.com/phrazzld/scry-cardgen/internal/ratelimit"
	"github.com/phrazzld/scry-cardgen/internal/redact"
)

// Dispatcher runs a list of words through the generator with a worker pool.
type Dispatcher struct {
	cfg       RunConfig
	generator generation.Generator
	sink      Sink
	limiter   RateLimiter
	observer  Observer
	base      *slog.Logger
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithObserver sets the observer that receives progress events.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observer = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithRateLimiter replaces the limiter built from RequestsPerMinute.
func WithRateLimiter(l RateLimiter) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.limiter = l
		}
	}
}

// New creates a Dispatcher. The configuration is validated here so that no
// work starts with an unusable one.
func New(cfg RunConfig, generator generation.Generator, sink Sink, opts ...Option) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if generator == nil {
		return nil, fmt.Errorf("%w: generator cannot be nil", ErrInvalidRunConfig)
	}
	if sink == nil {
		return nil, fmt.Errorf("%w: sink cannot be nil", ErrInvalidRunConfig)
	}

	d := &Dispatcher{
		cfg:       cfg,
		generator: generator,
		sink:      sink,
		observer:  NopObserver{},
		logger:    slog.Default(),
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.limiter == nil {
		d.limiter = ratelimit.New(cfg.RequestsPerMinute)
	}
	d.base = d.logger
	d.logger = d.base.With(slog.String("component", "dispatcher"))
	return d, nil
}

// Run processes words and returns the summary of the run. Every distinct,
// non-blank word gets exactly one outcome in the summary.
//
// Individual failures are recorded as outcomes and never abort the run. The
// returned error is non-nil only when ctx was cancelled; the summary is
// complete in that case too, with the items that never ran reported as
// failed with reason "canceled". Words the sink cannot store fail with reason
// "write" and zero attempts, without a generation call.
func (d *Dispatcher) Run(ctx context.Context, words []string) (*domain.Summary, error) {
	ids := NormalizeIdentifiers(words)
	summary := domain.NewSummary(ids)

	record := func(o domain.Outcome) {
		if err := summary.Record(o); err != nil {
			// Unreachable while the pool hands each item out once.
			d.logger.ErrorContext(ctx, "outcome not recorded",
				slog.String("word", o.Word),
				slog.String("error", err.Error()))
			return
		}
		d.observer.OnOutcome(o)
	}

	ids, rejected := d.screen(ctx, ids)
	processed := d.snapshot(ctx, ids)

	pending := make([]domain.WorkItem, 0, len(ids))
	for _, w := range ids {
		if processed.Contains(w) {
			continue
		}
		item, err := domain.NewWorkItem(w, d.cfg.Model)
		if err != nil {
			continue // blanks were removed by NormalizeIdentifiers
		}
		pending = append(pending, item)
	}

	d.logger.InfoContext(ctx, "starting run",
		slog.Int("total", summary.Total()),
		slog.Int("skipped", processed.Len()),
		slog.Int("rejected", len(rejected)),
		slog.Int("pending", len(pending)),
		slog.Int("workers", d.cfg.Workers),
		slog.Int("requests_per_minute", d.cfg.RequestsPerMinute),
		slog.Int("max_attempts", d.cfg.MaxAttempts))
	d.observer.OnStart(summary.Total(), len(pending))

	for _, w := range ids {
		if processed.Contains(w) {
			record(domain.Skipped(w))
		}
	}
	for _, o := range rejected {
		record(o)
	}

	invoker := NewInvoker(d.limiter, d.generator, d.sink, d.cfg, d.observer, d.base)
	invoker.sleep = d.sleep
	pool := NewWorkerPool(d.cfg.Workers, d.base)
	pool.Run(ctx, pending, invoker.Invoke, record)

	for _, w := range summary.Missing() {
		record(domain.Failed(w, domain.ReasonCanceled, 0, context.Cause(ctx), 0))
	}
	summary.Finish()

	d.logger.InfoContext(ctx, "run finished",
		slog.Int("succeeded", summary.Count(domain.OutcomeSuccess)),
		slog.Int("skipped", summary.Count(domain.OutcomeSkipped)),
		slog.Int("failed", summary.Count(domain.OutcomeFailed)),
		slog.Duration("elapsed", summary.Elapsed()))

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// snapshot returns the words that already have an artifact. It is taken
// once, before any worker starts. A word whose check fails is processed.
func (d *Dispatcher) snapshot(ctx context.Context, ids []string) domain.ProcessedSet {
	if !d.cfg.SkipProcessed {
		return domain.NewProcessedSet()
	}

	var existing []string
	for _, w := range ids {
		ok, err := d.sink.Exists(ctx, w)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
			d.logger.WarnContext(ctx, "could not check for existing artifact, will process",
				slog.String("word", w),
				slog.String("error", redact.Error(err)))
			continue
		}
		if ok {
			existing = append(existing, w)
		}
	}
	return domain.NewProcessedSet(existing...)
}

// screen removes the words the sink reports it cannot store and returns a
// write failure for each of them.
func (d *Dispatcher) screen(ctx context.Context, ids []string) ([]string, []domain.Outcome) {
	v, ok := d.sink.(WordValidator)
	if !ok {
		return ids, nil
	}

	kept := make([]string, 0, len(ids))
	var rejected []domain.Outcome
	for _, w := range ids {
		if err := v.ValidateWord(w); err != nil {
			err = fmt.Errorf("%w: %w", ErrWrite, err)
			d.logger.WarnContext(ctx, "word cannot be stored, not generating",
				slog.String("word", w),
				slog.String("error", err.Error()))
			rejected = append(rejected, domain.Failed(w, domain.ReasonWrite, 0, err, 0))
			continue
		}
		kept = append(kept, w)
	}
	return kept, rejected
}

package dispatch

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/scry-cardgen/internal/domain"
)

// ProcessFunc turns one item into its terminal outcome.
type ProcessFunc func(ctx context.Context, item domain.WorkItem) domain.Outcome

// WorkerPool runs a fixed number of workers over a slice of items.
type WorkerPool struct {
	// workerCount is the number of concurrent workers to start
	workerCount int

	// logger for structured logging
	logger *slog.Logger
}

// NewWorkerPool creates a pool of workerCount workers. A count below 1 is
// raised to 1.
func NewWorkerPool(workerCount int, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	if workerCount < 1 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", workerCount,
			"default_count", 1)
		workerCount = 1
	}
	return &WorkerPool{
		workerCount: workerCount,
		logger:      logger.With(slog.String("component", "worker_pool")),
	}
}

// WorkerCount returns the number of workers the pool starts.
func (p *WorkerPool) WorkerCount() int {
	return p.workerCount
}

// Run hands every item to exactly one worker, which calls process and passes
// the outcome to emit. Items go out over an unbuffered channel, so an item is
// only taken when a worker is free. emit may be called concurrently.
//
// Run returns once every dispatched item's outcome has been emitted. When ctx
// is cancelled no further items are dispatched; Run returns the number of
// items that were.
func (p *WorkerPool) Run(
	ctx context.Context,
	items []domain.WorkItem,
	process ProcessFunc,
	emit func(domain.Outcome),
) int {
	var (
		g          errgroup.Group
		queue      = make(chan domain.WorkItem)
		dispatched int
	)

	g.Go(func() error {
		defer close(queue)
		for _, item := range items {
			if ctx.Err() != nil {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			case queue <- item:
				dispatched++
			}
		}
		return nil
	})

	for i := 0; i < p.workerCount; i++ {
		worker := i + 1
		g.Go(func() error {
			for item := range queue {
				p.logger.DebugContext(ctx, "worker picked up item",
					slog.Int("worker", worker),
					slog.String("word", item.Word))
				emit(process(ctx, item))
			}
			return nil
		})
	}

	_ = g.Wait() // workers report failures as outcomes, never as errors

	if dispatched < len(items) {
		p.logger.WarnContext(ctx, "run interrupted before all items were dispatched",
			slog.Int("dispatched", dispatched),
			slog.Int("total", len(items)))
	}
	return dispatched
}

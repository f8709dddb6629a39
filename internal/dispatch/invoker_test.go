package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-cardgen/internal/backoff"
	"github.com/phrazzld/scry-cardgen/internal/domain"
	"github.com/phrazzld/scry-cardgen/internal/generation"
	"github.com/phrazzld/scry-cardgen/internal/mocks"
	"github.com/phrazzld/scry-cardgen/internal/platform/logger"
	"github.com/phrazzld/scry-cardgen/internal/ratelimit"
)

// recordObserver captures observer events.
type recordObserver struct {
	mu       sync.Mutex
	total    int
	pending  int
	retries  []time.Duration
	outcomes []domain.Outcome
}

func (o *recordObserver) OnStart(total, pending int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.total, o.pending = total, pending
}

func (o *recordObserver) OnRetry(_ domain.WorkItem, _ int, delay time.Duration, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retries = append(o.retries, delay)
}

func (o *recordObserver) OnOutcome(out domain.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, out)
}

// fakeSleep records requested delays and returns immediately.
type fakeSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (f *fakeSleep) sleep(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	f.delays = append(f.delays, d)
	f.mu.Unlock()
	return ctx.Err()
}

func failingGenerator(failures int, err error) *mocks.MockGenerator {
	var (
		mu    sync.Mutex
		calls int
	)
	return &mocks.MockGenerator{
		GenerateFn: func(_ context.Context, word, _ string) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls <= failures {
				return "", err
			}
			return "card for " + word, nil
		},
	}
}

func newTestInvoker(gen generation.Generator, sink Sink, cfg RunConfig, obs Observer) (*Invoker, *fakeSleep) {
	inv := NewInvoker(ratelimit.New(cfg.RequestsPerMinute), gen, sink, cfg, obs, nil)
	fs := &fakeSleep{}
	inv.sleep = fs.sleep
	return inv, fs
}

func testRunConfig() RunConfig {
	cfg := DefaultRunConfig()
	cfg.Model = "test-model"
	return cfg
}

func TestInvoke_SuccessFirstAttempt(t *testing.T) {
	t.Parallel()

	gen := &mocks.MockGenerator{}
	sink := mocks.NewMockSink()
	inv, fs := newTestInvoker(gen, sink, testRunConfig(), nil)

	o := inv.Invoke(context.Background(), domain.WorkItem{Word: "水", Model: "test-model"})

	assert.Equal(t, domain.OutcomeSuccess, o.Status)
	assert.Equal(t, 1, o.Attempts)
	assert.Equal(t, 1, gen.CallCount())
	assert.Equal(t, "test-model", gen.Calls()[0].Model)
	assert.Empty(t, fs.delays)

	content, ok := sink.Artifact("水")
	require.True(t, ok)
	assert.Equal(t, "card for 水", content)
}

func TestInvoke_RetriesWithLinearBackoff(t *testing.T) {
	t.Parallel()

	gen := failingGenerator(2, errors.New("503"))
	sink := mocks.NewMockSink()
	obs := &recordObserver{}
	inv, fs := newTestInvoker(gen, sink, testRunConfig(), obs)

	o := inv.Invoke(context.Background(), domain.WorkItem{Word: "w"})

	assert.Equal(t, domain.OutcomeSuccess, o.Status)
	assert.Equal(t, 3, o.Attempts)
	assert.Equal(t, 3, gen.CallCount())
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, fs.delays, "base·attempt")
	assert.Equal(t, fs.delays, obs.retries)
	assert.Equal(t, []string{"w"}, sink.WriteCalls())
}

func TestInvoke_AttemptBound(t *testing.T) {
	t.Parallel()

	for _, maxAttempts := range []int{1, 2, 3, 4} {
		t.Run(fmt.Sprintf("max_%d", maxAttempts), func(t *testing.T) {
			t.Parallel()

			boom := fmt.Errorf("%w: quota", generation.ErrGenerationFailed)
			gen := mocks.NewMockGeneratorWithError(boom)
			sink := mocks.NewMockSink()
			cfg := testRunConfig()
			cfg.MaxAttempts = maxAttempts
			inv, fs := newTestInvoker(gen, sink, cfg, nil)

			o := inv.Invoke(context.Background(), domain.WorkItem{Word: "x"})

			assert.Equal(t, domain.OutcomeFailed, o.Status)
			assert.Equal(t, domain.ReasonGenerate, o.Reason)
			assert.Equal(t, maxAttempts, o.Attempts)
			assert.Equal(t, maxAttempts, gen.CallCount(), "never more than max attempts")
			assert.Len(t, fs.delays, maxAttempts-1, "one backoff between consecutive attempts")
			assert.ErrorIs(t, o.Err, generation.ErrGenerationFailed)
			assert.Empty(t, sink.WriteCalls())
		})
	}
}

func TestInvoke_WriteFailureDoesNotRegenerate(t *testing.T) {
	t.Parallel()

	gen := &mocks.MockGenerator{}
	diskFull := errors.New("disk full")
	sink := mocks.NewMockSink()
	sink.WriteErr = diskFull
	inv, fs := newTestInvoker(gen, sink, testRunConfig(), nil)

	o := inv.Invoke(context.Background(), domain.WorkItem{Word: "w"})

	assert.Equal(t, domain.OutcomeFailed, o.Status)
	assert.Equal(t, domain.ReasonWrite, o.Reason)
	assert.Equal(t, 1, o.Attempts)
	assert.ErrorIs(t, o.Err, ErrWrite)
	assert.ErrorIs(t, o.Err, diskFull)
	assert.Equal(t, 1, gen.CallCount(), "a write failure must not trigger another generation call")
	assert.Len(t, sink.WriteCalls(), 1)
	assert.Empty(t, fs.delays)
}

func TestInvoke_SinkSeesItemLogger(t *testing.T) {
	t.Parallel()

	buf, log := logger.NewTestLogger(t)
	sink := mocks.NewMockSink()
	sink.WriteFn = func(ctx context.Context, _, _ string) error {
		logger.FromContext(ctx).InfoContext(ctx, "sink write")
		return nil
	}
	inv := NewInvoker(ratelimit.New(0), &mocks.MockGenerator{}, sink, testRunConfig(), nil, log)

	o := inv.Invoke(context.Background(), domain.WorkItem{Word: "apple"})

	require.Equal(t, domain.OutcomeSuccess, o.Status)
	found, ok := buf.Find("sink write")
	require.True(t, ok, "sink did not log through the context logger")
	assert.Equal(t, "apple", found["word"])
	assert.Equal(t, "invoker", found["component"])
}

func TestInvoke_EmptyContentIsRetried(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		calls int
	)
	gen := &mocks.MockGenerator{GenerateFn: func(context.Context, string, string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return "  \n", nil
		}
		return "card", nil
	}}
	sink := mocks.NewMockSink()
	inv, _ := newTestInvoker(gen, sink, testRunConfig(), nil)

	o := inv.Invoke(context.Background(), domain.WorkItem{Word: "w"})
	assert.Equal(t, domain.OutcomeSuccess, o.Status)
	assert.Equal(t, 2, o.Attempts)
}

func TestInvoke_CanceledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &mocks.MockGenerator{}
	inv, _ := newTestInvoker(gen, mocks.NewMockSink(), testRunConfig(), nil)

	o := inv.Invoke(ctx, domain.WorkItem{Word: "w"})

	assert.Equal(t, domain.OutcomeFailed, o.Status)
	assert.Equal(t, domain.ReasonCanceled, o.Reason)
	assert.Equal(t, 0, o.Attempts)
	assert.Zero(t, gen.CallCount())
}

func TestInvoke_CanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boom := errors.New("boom")
	gen := &mocks.MockGenerator{GenerateFn: func(context.Context, string, string) (string, error) {
		cancel()
		return "", boom
	}}
	cfg := testRunConfig()
	cfg.BackoffBase = time.Hour
	inv := NewInvoker(ratelimit.New(0), gen, mocks.NewMockSink(), cfg, nil, nil)

	start := time.Now()
	o := inv.Invoke(ctx, domain.WorkItem{Word: "w"})

	assert.Less(t, time.Since(start), time.Second, "the backoff sleep ends early")
	assert.Equal(t, domain.ReasonCanceled, o.Reason)
	assert.Equal(t, 1, o.Attempts)
	assert.ErrorIs(t, o.Err, boom)
	assert.Equal(t, 1, gen.CallCount())
}

func TestInvoke_InFlightCallFinishesAfterCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var genCtxErr error
	gen := &mocks.MockGenerator{GenerateFn: func(gctx context.Context, word, _ string) (string, error) {
		cancel()
		genCtxErr = gctx.Err()
		return "card for " + word, nil
	}}
	var writeCtxErr error
	sink := mocks.NewMockSink()
	sink.WriteFn = func(wctx context.Context, _, _ string) error {
		writeCtxErr = wctx.Err()
		return nil
	}
	inv, _ := newTestInvoker(gen, sink, testRunConfig(), nil)

	o := inv.Invoke(ctx, domain.WorkItem{Word: "w"})

	assert.Equal(t, domain.OutcomeSuccess, o.Status, "a started call and its write complete")
	assert.NoError(t, genCtxErr)
	assert.NoError(t, writeCtxErr)
	_, ok := sink.Artifact("w")
	assert.True(t, ok)
}

func TestInvoke_CustomBackoffStrategy(t *testing.T) {
	t.Parallel()

	gen := failingGenerator(3, errors.New("boom"))
	cfg := testRunConfig()
	cfg.MaxAttempts = 4
	cfg.Backoff = backoff.NewExponential(time.Second, 3*time.Second)
	inv, fs := newTestInvoker(gen, mocks.NewMockSink(), cfg, nil)

	o := inv.Invoke(context.Background(), domain.WorkItem{Word: "w"})
	require.Equal(t, domain.OutcomeSuccess, o.Status)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, fs.delays)
}

func TestSleepContext(t *testing.T) {
	t.Parallel()

	require.NoError(t, sleepContext(context.Background(), 0))
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, sleepContext(ctx, 0), context.Canceled)
}

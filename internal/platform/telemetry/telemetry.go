// Package telemetry instruments the generation call with OpenTelemetry.
// Without a configured global provider the noop implementations are used and
// the instrumentation is a pass-through.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/phrazzld/scry-cardgen/internal/generation"
	"github.com/phrazzld/scry-cardgen/internal/redact"
)

// instrumentationName is the scope name for cardgen tracing and metrics.
const instrumentationName = "github.com/phrazzld/scry-cardgen"

// Metric names.
const (
	MetricGenerationCalls    = "cardgen.generation.calls"
	MetricGenerationDuration = "cardgen.generation.duration"
)

// instrumentedGenerator wraps a generation.Generator with a span and metrics
// per call.
type instrumentedGenerator struct {
	next     generation.Generator
	tracer   trace.Tracer
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

// ErrInstrumentSetup is returned when a metric instrument cannot be created.
// The generator returned alongside it is still usable and records through a
// noop instrument in place of the failed one.
var ErrInstrumentSetup = errors.New("telemetry: instrument setup failed")

// InstrumentGenerator wraps g using the global tracer and meter providers.
func InstrumentGenerator(g generation.Generator) (generation.Generator, error) {
	return InstrumentGeneratorWith(g, otel.Tracer(instrumentationName), otel.Meter(instrumentationName))
}

// InstrumentGeneratorWith wraps g using the provided tracer and meter.
//
// Instruments:
//   - cardgen.generation.calls (Int64Counter), by model and status
//   - cardgen.generation.duration (Float64Histogram, seconds), by model and status
//
// The status attribute is "ok", "blocked", "invalid_response" or "error".
// A non-nil error wraps ErrInstrumentSetup; the returned generator is never nil.
func InstrumentGeneratorWith(
	g generation.Generator,
	tracer trace.Tracer,
	meter metric.Meter,
) (generation.Generator, error) {
	var errs []error

	calls, err := meter.Int64Counter(
		MetricGenerationCalls,
		metric.WithDescription("Total number of generation calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil || calls == nil {
		errs = append(errs, fmt.Errorf("%s: %w", MetricGenerationCalls, err))
		calls = noop.Int64Counter{}
	}

	duration, err := meter.Float64Histogram(
		MetricGenerationDuration,
		metric.WithDescription("Duration of generation calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil || duration == nil {
		errs = append(errs, fmt.Errorf("%s: %w", MetricGenerationDuration, err))
		duration = noop.Float64Histogram{}
	}

	ig := &instrumentedGenerator{
		next:     g,
		tracer:   tracer,
		calls:    calls,
		duration: duration,
	}
	if len(errs) > 0 {
		return ig, fmt.Errorf("%w: %w", ErrInstrumentSetup, errors.Join(errs...))
	}
	return ig, nil
}

// Generate implements generation.Generator.
func (i *instrumentedGenerator) Generate(ctx context.Context, word, model string) (string, error) {
	ctx, span := i.tracer.Start(ctx, "cardgen.generate",
		trace.WithAttributes(
			attribute.String("cardgen.word", word),
			attribute.String("cardgen.model", model),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	start := time.Now()
	text, err := i.next.Generate(ctx, word, model)
	elapsed := time.Since(start).Seconds()

	status := statusOf(err)
	if err != nil {
		msg := redact.Error(err)
		span.RecordError(errors.New(msg))
		span.SetStatus(codes.Error, msg)
	} else {
		span.SetAttributes(attribute.Int("cardgen.response_length", len(text)))
		span.SetStatus(codes.Ok, "")
	}

	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("status", status),
	)
	i.calls.Add(ctx, 1, attrs)
	i.duration.Record(ctx, elapsed, attrs)

	return text, err
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, generation.ErrContentBlocked):
		return "blocked"
	case errors.Is(err, generation.ErrInvalidResponse):
		return "invalid_response"
	default:
		return "error"
	}
}

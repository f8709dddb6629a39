// Package dispatch runs a batch of words through the generation service with
// a fixed pool of workers.
//
// The components, leaves first:
//
//   - ratelimit.Limiter spaces the starts of generation calls across all
//     workers.
//   - Invoker processes one item: it acquires a rate-limit slot, calls the
//     Generator, retries failed calls with backoff up to a bounded number of
//     attempts, and writes the result to the Sink. Its control flow is the
//     explicit state machine in retry_state.go.
//   - WorkerPool hands each item to exactly one of N workers over an
//     unbuffered channel and returns when every dispatched item has an
//     outcome.
//   - Dispatcher normalizes the input, snapshots which words already have an
//     artifact, runs the pool and aggregates a domain.Summary.
//
// A failed item never aborts the run. Cancellation is best-effort: no new
// items are dispatched, waits end early, calls already in flight finish,
// and items that never ran are reported as failed with reason "canceled".
package dispatch

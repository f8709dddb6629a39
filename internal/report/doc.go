// Package report turns dispatcher events into user-facing progress: Console
// prints one line per item and the final summary, Progress keeps live
// counters for the status endpoint, and Multi fans events out to several
// observers.
package report

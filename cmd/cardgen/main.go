// Package main implements cardgen, which turns a word list into one
// generated flashcard per word. Calls to the generation API are spread over
// a worker pool, capped by a shared requests-per-minute budget and retried
// with backoff; words that already have a card are skipped.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes.
const (
	exitOK       = 0 // every word succeeded or was skipped
	exitFailures = 1 // at least one word failed
	exitSetup    = 2 // invalid configuration or unusable input/output; nothing ran
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, defaultDeps())
	stop()
	os.Exit(code)
}

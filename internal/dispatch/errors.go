package dispatch

import "errors"

// Error definitions for the dispatch package.
var (
	// ErrWrite wraps every error returned by Sink.Write.
	ErrWrite = errors.New("failed to write artifact")

	// ErrInvalidRunConfig is returned by New for an unusable RunConfig.
	ErrInvalidRunConfig = errors.New("invalid run configuration")

	// ErrReadInput is returned when the identifier list cannot be read.
	ErrReadInput = errors.New("failed to read input")

	// ErrEmptyResponse is returned when a generator reports success with
	// blank content.
	ErrEmptyResponse = errors.New("generator returned empty content")
)

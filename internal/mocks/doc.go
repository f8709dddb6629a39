// Package mocks holds hand-written fakes for the dispatcher's collaborators:
// MockGenerator for generation.Generator and MockSink for dispatch.Sink.
// Both record their calls behind a mutex, so one instance can be shared by
// every worker of a run, and both take optional function fields that
// replace the default behavior for a single test.
package mocks

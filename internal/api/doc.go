// Package api serves the optional run status endpoint: a small chi router
// exposing liveness and a JSON snapshot of the dispatcher's progress while a
// batch is running.
package api

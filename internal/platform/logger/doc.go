// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured
// logging with configurable log levels and output format. Logs go to stderr by
// default so that stdout stays free for the per-item progress lines of a run.
package logger

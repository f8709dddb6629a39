package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrEmptyWord is returned when a work item has no identifier.
	ErrEmptyWord = errors.New("word cannot be empty")

	// ErrInvalidOutcomeStatus is returned when an outcome carries an unknown status.
	ErrInvalidOutcomeStatus = errors.New("invalid outcome status")

	// ErrDuplicateOutcome is returned when a summary receives a second
	// outcome for an identifier it has already recorded.
	ErrDuplicateOutcome = errors.New("outcome already recorded for word")
)

package domain

import (
	"time"
)

// OutcomeStatus is the terminal classification of one item's processing.
type OutcomeStatus string

// Possible outcome status values
const (
	OutcomeSuccess OutcomeStatus = "ok"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeFailed  OutcomeStatus = "failed"
)

// Failure reasons attached to failed outcomes.
const (
	// ReasonGenerate means every generation attempt failed.
	ReasonGenerate = "generate"

	// ReasonWrite means generation succeeded but the artifact could not be
	// written. The generation call is not repeated for this reason.
	ReasonWrite = "write"

	// ReasonCanceled means the run was interrupted before the item finished.
	ReasonCanceled = "canceled"
)

// Outcome is the terminal result recorded exactly once for each WorkItem.
type Outcome struct {
	Word     string        `json:"word"`
	Status   OutcomeStatus `json:"status"`
	Attempts int           `json:"attempts"`
	Reason   string        `json:"reason,omitempty"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// Succeeded returns a success outcome for the word.
func Succeeded(word string, attempts int, d time.Duration) Outcome {
	return Outcome{Word: word, Status: OutcomeSuccess, Attempts: attempts, Duration: d}
}

// Skipped returns the outcome for a word whose artifact already existed.
func Skipped(word string) Outcome {
	return Outcome{Word: word, Status: OutcomeSkipped}
}

// Failed returns a failed outcome carrying the reason and the last error.
func Failed(word, reason string, attempts int, err error, d time.Duration) Outcome {
	return Outcome{
		Word:     word,
		Status:   OutcomeFailed,
		Attempts: attempts,
		Reason:   reason,
		Err:      err,
		Duration: d,
	}
}

// Validate checks that the outcome has an identifier and a known status.
func (o Outcome) Validate() error {
	if o.Word == "" {
		return ErrEmptyWord
	}
	switch o.Status {
	case OutcomeSuccess, OutcomeSkipped, OutcomeFailed:
		return nil
	default:
		return ErrInvalidOutcomeStatus
	}
}

// ErrorMessage returns the message of the last error, or an empty string.
func (o Outcome) ErrorMessage() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

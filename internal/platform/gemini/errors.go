package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrEmptyWord is returned when Generate is called without a word.
	ErrEmptyWord = errors.New("word cannot be empty")
)

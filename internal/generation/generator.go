package generation

import (
	"context"
)

// Generator defines the interface for generating flashcard content for a word.
// This interface serves as a boundary between the dispatcher and external
// AI/LLM services.
type Generator interface {
	// Generate returns the flashcard text for the word using the named model.
	// An empty model selects the generator's configured default.
	//
	// Implementations impose no timeout of their own; callers bound the call
	// through ctx when they need to. Failures wrap ErrGenerationFailed.
	Generate(ctx context.Context, word, model string) (string, error)
}

// GeneratorFunc adapts an ordinary function to the Generator interface.
type GeneratorFunc func(ctx context.Context, word, model string) (string, error)

// Generate calls f(ctx, word, model).
func (f GeneratorFunc) Generate(ctx context.Context, word, model string) (string, error) {
	return f(ctx, word, model)
}

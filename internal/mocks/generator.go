package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/phrazzld/scry-cardgen/internal/generation"
)

// GenerateCall is one recorded call to MockGenerator.Generate.
type GenerateCall struct {
	Word    string
	Model   string
	Started time.Time
	// Canceled reports whether the call's context was already done.
	Canceled bool
}

// MockGenerator implements generation.Generator for testing
type MockGenerator struct {
	// GenerateFn allows test cases to mock the Generate behavior
	GenerateFn func(ctx context.Context, word, model string) (string, error)

	// Default response values, used when GenerateFn is nil. An empty Text
	// yields "card for <word>".
	Text string
	Err  error

	mu    sync.Mutex
	calls []GenerateCall
}

var _ generation.Generator = (*MockGenerator)(nil)

// Generate implements the generation.Generator interface
func (m *MockGenerator) Generate(ctx context.Context, word, model string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, GenerateCall{
		Word:     word,
		Model:    model,
		Started:  time.Now(),
		Canceled: ctx.Err() != nil,
	})
	m.mu.Unlock()

	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, word, model)
	}
	if m.Err != nil {
		return "", m.Err
	}
	if m.Text != "" {
		return m.Text, nil
	}
	return "card for " + word, nil
}

// Calls returns a copy of the recorded calls in call order.
func (m *MockGenerator) Calls() []GenerateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GenerateCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Generate calls.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// CallsFor returns the number of Generate calls for word.
func (m *MockGenerator) CallsFor(word string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Word == word {
			n++
		}
	}
	return n
}

// NewMockGeneratorWithError creates a MockGenerator that always fails with err
func NewMockGeneratorWithError(err error) *MockGenerator {
	return &MockGenerator{Err: err}
}

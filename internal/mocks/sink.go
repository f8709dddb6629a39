package mocks

import (
	"context"
	"sync"
)

// MockSink is an in-memory dispatch.Sink.
type MockSink struct {
	// ExistsFn and WriteFn override the default in-memory behavior.
	ExistsFn func(ctx context.Context, word string) (bool, error)
	WriteFn  func(ctx context.Context, word, content string) error

	// WriteErr, when set, is returned by every Write that has no WriteFn.
	WriteErr error

	mu          sync.Mutex
	artifacts   map[string]string
	existsCalls []string
	writeCalls  []string
}

// NewMockSink creates a MockSink that already holds an artifact for each of
// the given words.
func NewMockSink(existing ...string) *MockSink {
	s := &MockSink{artifacts: make(map[string]string, len(existing))}
	for _, w := range existing {
		s.artifacts[w] = "existing card for " + w
	}
	return s
}

// Exists implements dispatch.Sink.
func (s *MockSink) Exists(ctx context.Context, word string) (bool, error) {
	s.mu.Lock()
	s.existsCalls = append(s.existsCalls, word)
	_, ok := s.artifacts[word]
	s.mu.Unlock()

	if s.ExistsFn != nil {
		return s.ExistsFn(ctx, word)
	}
	return ok, nil
}

// Write implements dispatch.Sink.
func (s *MockSink) Write(ctx context.Context, word, content string) error {
	s.mu.Lock()
	s.writeCalls = append(s.writeCalls, word)
	s.mu.Unlock()

	if s.WriteFn != nil {
		if err := s.WriteFn(ctx, word, content); err != nil {
			return err
		}
	} else if s.WriteErr != nil {
		return s.WriteErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.artifacts == nil {
		s.artifacts = make(map[string]string)
	}
	s.artifacts[word] = content
	return nil
}

// Artifact returns the stored content for word.
func (s *MockSink) Artifact(word string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.artifacts[word]
	return c, ok
}

// WriteCalls returns the words passed to Write, in call order.
func (s *MockSink) WriteCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.writeCalls))
	copy(out, s.writeCalls)
	return out
}

// ExistsCalls returns the words passed to Exists, in call order.
func (s *MockSink) ExistsCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.existsCalls))
	copy(out, s.existsCalls)
	return out
}

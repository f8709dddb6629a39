package domain

import "strings"

// WorkItem is one lexical entry to be turned into one flashcard artifact.
// It is created from the input list and never mutated afterwards.
type WorkItem struct {
	// Word is the identifier of the item and the key of its output artifact.
	Word string `json:"word"`

	// Model is the generation model used for this item. It is constant
	// across the items of a run.
	Model string `json:"model"`
}

// NewWorkItem creates a WorkItem for the given word and model.
// The word is trimmed of surrounding whitespace; an empty result is rejected.
func NewWorkItem(word, model string) (WorkItem, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return WorkItem{}, ErrEmptyWord
	}
	return WorkItem{Word: word, Model: model}, nil
}

// ProcessedSet is the snapshot of identifiers that already have an output
// artifact when a run starts. It is built once before the workers launch
// and only read afterwards, so it needs no locking.
type ProcessedSet map[string]struct{}

// NewProcessedSet builds a ProcessedSet from the given identifiers.
func NewProcessedSet(words ...string) ProcessedSet {
	set := make(ProcessedSet, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Contains reports whether the word already has an artifact.
func (s ProcessedSet) Contains(word string) bool {
	_, ok := s[word]
	return ok
}

// Len returns the number of identifiers in the snapshot.
func (s ProcessedSet) Len() int {
	return len(s)
}

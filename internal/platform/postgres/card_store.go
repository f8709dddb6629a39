package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-cardgen/internal/platform/logger"
)

// ErrEmptyWord is returned when a card is looked up or written without a word.
var ErrEmptyWord = errors.New("word cannot be empty")

const (
	existsQuery = `SELECT EXISTS (SELECT 1 FROM cards WHERE word = $1)`

	upsertQuery = `
		INSERT INTO cards (word, model, content, run_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (word) DO UPDATE
		SET model = EXCLUDED.model,
			content = EXCLUDED.content,
			run_id = EXCLUDED.run_id,
			updated_at = NOW()`
)

// CardStore stores one generated card per word in the cards table.
// It satisfies dispatch.Sink.
type CardStore struct {
	db     DBTX
	logger *slog.Logger
	runID  uuid.UUID
	model  string
}

// NewCardStore creates a CardStore that stamps every written row with runID
// and model. If logger is nil, a default logger will be used.
func NewCardStore(db DBTX, logger *slog.Logger, runID uuid.UUID, model string) *CardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
		runID:  runID,
		model:  model,
	}
}

// Exists reports whether a card for word is already stored.
func (s *CardStore) Exists(ctx context.Context, word string) (bool, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return false, ErrEmptyWord
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, existsQuery, word).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check card %q: %w", word, MapError(err))
	}
	return exists, nil
}

// Write inserts the card for word or overwrites the stored one.
func (s *CardStore) Write(ctx context.Context, word, content string) error {
	word = strings.TrimSpace(word)
	if word == "" {
		return ErrEmptyWord
	}

	log := logger.FromContextOrDefault(ctx, s.logger.With(slog.String("word", word)))
	if _, err := s.db.ExecContext(ctx, upsertQuery, word, s.model, content, s.runID); err != nil {
		log.ErrorContext(ctx, "failed to write card", slog.String("error", err.Error()))
		return fmt.Errorf("failed to write card %q: %w", word, MapError(err))
	}

	log.DebugContext(ctx, "card written",
		slog.Int("content_length", len(content)))
	return nil
}

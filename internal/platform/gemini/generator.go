package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/phrazzld/scry-cardgen/internal/config"
	"github.com/phrazzld/scry-cardgen/internal/generation"
	"github.com/spf13/afero"
	"google.golang.org/genai"
)

// contentGenerator is the subset of genai.Models used by Generator.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Generator implements the generation.Generator interface using
// Google's Gemini API to write a flashcard for a word.
type Generator struct {
	logger         *slog.Logger
	client         contentGenerator
	promptTemplate *template.Template
	model          string
	temperature    float64
	maxTokens      int
}

var _ generation.Generator = (*Generator)(nil)

// NewGenerator creates a Generator with a genai client for the Gemini API.
//
// The prompt template is read from fsys (the OS filesystem when nil) and
// parsed once, here. Configuration problems are reported as
// generation.ErrInvalidConfig.
func NewGenerator(
	ctx context.Context,
	logger *slog.Logger,
	fsys afero.Fs,
	cfg config.LLMConfig,
) (*Generator, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	tmpl, err := loadPromptTemplate(fsys, cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return newGenerator(logger, cfg, client.Models, tmpl)
}

func newGenerator(
	logger *slog.Logger,
	cfg config.LLMConfig,
	client contentGenerator,
	tmpl *template.Template,
) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	return &Generator{
		logger:         logger.With(slog.String("component", "gemini")),
		client:         client,
		promptTemplate: tmpl,
		model:          cfg.ModelName,
		temperature:    cfg.Temperature,
		maxTokens:      cfg.MaxOutputTokens,
	}, nil
}

// Generate renders the prompt for word and makes a single call to model
// (the configured model when empty). Every returned error wraps
// generation.ErrGenerationFailed.
func (g *Generator) Generate(ctx context.Context, word, model string) (string, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return "", fmt.Errorf("%w: %w", generation.ErrGenerationFailed, ErrEmptyWord)
	}
	if model == "" {
		model = g.model
	}

	prompt, err := renderPrompt(g.promptTemplate, word)
	if err != nil {
		return "", fmt.Errorf("%w: %w", generation.ErrGenerationFailed, err)
	}

	g.logger.DebugContext(ctx, "Making Gemini API call",
		slog.String("word", word),
		slog.String("model", model),
		slog.Int("prompt_length", len(prompt)))

	start := time.Now()
	resp, err := g.client.GenerateContent(ctx, model, []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}}, g.contentConfig())
	if err != nil {
		return "", fmt.Errorf("%w: %w", generation.ErrGenerationFailed, err)
	}

	text, err := responseText(resp)
	if err != nil {
		return "", fmt.Errorf("%w: %w", generation.ErrGenerationFailed, err)
	}

	g.logger.DebugContext(ctx, "Gemini API call successful",
		slog.String("word", word),
		slog.Int("response_length", len(text)),
		slog.Duration("duration", time.Since(start)))

	return text, nil
}

func (g *Generator) contentConfig() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(g.temperature)),
	}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.maxTokens)
	}
	return cfg
}

// responseText extracts the text of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	switch {
	case resp == nil:
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	case len(resp.Candidates) == 0 || resp.Candidates[0] == nil:
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", generation.ErrContentBlocked
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: empty text in response", generation.ErrInvalidResponse)
	}
	return text, nil
}

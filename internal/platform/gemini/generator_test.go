package gemini

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/phrazzld/scry-cardgen/internal/config"
	"github.com/phrazzld/scry-cardgen/internal/generation"
	"github.com/phrazzld/scry-cardgen/internal/platform/logger"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// fakeClient records GenerateContent calls and replies with a canned response.
type fakeClient struct {
	mu      sync.Mutex
	resp    *genai.GenerateContentResponse
	err     error
	models  []string
	prompts []string
	configs []*genai.GenerateContentConfig
}

func (f *fakeClient) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models = append(f.models, model)
	f.configs = append(f.configs, cfg)
	for _, c := range contents {
		for _, p := range c.Parts {
			f.prompts = append(f.prompts, p.Text)
		}
	}
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: "model"}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: content, FinishReason: genai.FinishReasonStop}},
	}
}

func testConfig() config.LLMConfig {
	return config.LLMConfig{
		GeminiAPIKey:    "test-key",
		ModelName:       "gemini-default",
		Temperature:     1.3,
		MaxOutputTokens: 2048,
	}
}

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	_, log := logger.NewTestLogger(t)
	return log
}

func newTestGenerator(t *testing.T, client contentGenerator) *Generator {
	t.Helper()
	tmpl, err := parsePromptTemplate("Make a flashcard for {{.Word}}.")
	require.NoError(t, err)
	g, err := newGenerator(testLogger(t), testConfig(), client, tmpl)
	require.NoError(t, err)
	return g
}

func TestGenerate_Success(t *testing.T) {
	t.Parallel()

	client := &fakeClient{resp: textResponse("Meaning: ", "water\n")}
	g := newTestGenerator(t, client)

	text, err := g.Generate(context.Background(), " 水 ", "")
	require.NoError(t, err)
	assert.Equal(t, "Meaning: water", text)

	require.Len(t, client.prompts, 1)
	assert.Equal(t, "Make a flashcard for 水.", client.prompts[0])
	assert.Equal(t, []string{"gemini-default"}, client.models, "empty model selects the configured default")

	cfg := client.configs[0]
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 1.3, float64(*cfg.Temperature), 1e-6)
	assert.Equal(t, int32(2048), cfg.MaxOutputTokens)
}

func TestGenerate_ModelOverride(t *testing.T) {
	t.Parallel()

	client := &fakeClient{resp: textResponse("card")}
	g := newTestGenerator(t, client)

	_, err := g.Generate(context.Background(), "word", "gemini-other")
	require.NoError(t, err)
	assert.Equal(t, []string{"gemini-other"}, client.models)
}

func TestGenerate_Errors(t *testing.T) {
	t.Parallel()

	apiErr := errors.New("503 service unavailable")

	tests := []struct {
		name    string
		word    string
		client  *fakeClient
		wantIs  error
		noCalls bool
	}{
		{
			name:    "empty word",
			word:    "   ",
			client:  &fakeClient{},
			wantIs:  ErrEmptyWord,
			noCalls: true,
		},
		{
			name:   "api error",
			word:   "word",
			client: &fakeClient{err: apiErr},
			wantIs: apiErr,
		},
		{
			name:   "nil response",
			word:   "word",
			client: &fakeClient{},
			wantIs: generation.ErrInvalidResponse,
		},
		{
			name:   "no candidates",
			word:   "word",
			client: &fakeClient{resp: &genai.GenerateContentResponse{}},
			wantIs: generation.ErrInvalidResponse,
		},
		{
			name: "safety block",
			word: "word",
			client: &fakeClient{resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
			}},
			wantIs: generation.ErrContentBlocked,
		},
		{
			name: "nil content",
			word: "word",
			client: &fakeClient{resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonStop}},
			}},
			wantIs: generation.ErrInvalidResponse,
		},
		{
			name:   "blank text",
			word:   "word",
			client: &fakeClient{resp: textResponse("  ", "\n")},
			wantIs: generation.ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := newTestGenerator(t, tt.client)
			text, err := g.Generate(context.Background(), tt.word, "")

			require.Error(t, err)
			assert.Empty(t, text)
			assert.ErrorIs(t, err, generation.ErrGenerationFailed, "every failure wraps ErrGenerationFailed")
			assert.ErrorIs(t, err, tt.wantIs)
			if tt.noCalls {
				assert.Empty(t, tt.client.models)
			}
		})
	}
}

func TestNewGenerator_InvalidConfig(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "prompts/bad.tmpl", []byte("{{.Word"), 0o644))

	tests := []struct {
		name   string
		mutate func(*config.LLMConfig)
	}{
		{name: "missing api key", mutate: func(c *config.LLMConfig) { c.GeminiAPIKey = "" }},
		{name: "missing template", mutate: func(c *config.LLMConfig) { c.PromptTemplatePath = "prompts/nope.tmpl" }},
		{name: "unparsable template", mutate: func(c *config.LLMConfig) { c.PromptTemplatePath = "prompts/bad.tmpl" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			tt.mutate(&cfg)

			g, err := NewGenerator(context.Background(), testLogger(t), fs, cfg)
			require.Error(t, err)
			assert.Nil(t, g)
			assert.ErrorIs(t, err, generation.ErrInvalidConfig)
		})
	}
}

func TestNewGenerator_TemplateFromFs(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "prompts/flashcard.tmpl", []byte("Card for {{.Word}}"), 0o644))

	cfg := testConfig()
	cfg.PromptTemplatePath = "prompts/flashcard.tmpl"
	cfg.BaseURL = "https://proxy.example.com"

	g, err := NewGenerator(context.Background(), testLogger(t), fs, cfg)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "gemini-default", g.model)

	prompt, err := renderPrompt(g.promptTemplate, "水")
	require.NoError(t, err)
	assert.Equal(t, "Card for 水", prompt)
}

func TestNewGenerator_NilFsReadsDisk(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prompt.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("Card for {{.Word}}"), 0o644))

	cfg := testConfig()
	cfg.PromptTemplatePath = path

	g, err := NewGenerator(context.Background(), testLogger(t), nil, cfg)
	require.NoError(t, err)
	require.NotNil(t, g)
}

func TestNewGenerator_MissingModel(t *testing.T) {
	t.Parallel()

	tmpl, err := parsePromptTemplate("{{.Word}}")
	require.NoError(t, err)

	cfg := testConfig()
	cfg.ModelName = ""
	_, err = newGenerator(testLogger(t), cfg, &fakeClient{}, tmpl)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestRenderPrompt(t *testing.T) {
	t.Parallel()

	tmpl, err := parsePromptTemplate("Word: {{.Word}} <b>")
	require.NoError(t, err)

	out, err := renderPrompt(tmpl, "<食べる>")
	require.NoError(t, err)
	assert.Equal(t, "Word: <食べる> <b>", out, "text templates do not escape HTML")

	missing, err := parsePromptTemplate("{{.Missing}}")
	require.NoError(t, err)
	_, err = renderPrompt(missing, "x")
	assert.Error(t, err)
}

package gemini

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/phrazzld/scry-cardgen/internal/generation"
	"github.com/spf13/afero"
)

// promptData is the value the prompt template is executed with.
type promptData struct {
	Word string
}

// loadPromptTemplate reads and parses the prompt template at path on fsys.
func loadPromptTemplate(fsys afero.Fs, path string) (*template.Template, error) {
	content, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
			generation.ErrInvalidConfig, path, err)
	}
	return parsePromptTemplate(string(content))
}

func parsePromptTemplate(content string) (*template.Template, error) {
	tmpl, err := template.New("flashcard").Option("missingkey=error").Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v",
			generation.ErrInvalidConfig, err)
	}
	return tmpl, nil
}

// renderPrompt executes tmpl for word.
func renderPrompt(tmpl *template.Template, word string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, promptData{Word: word}); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

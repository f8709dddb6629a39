package dispatch

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
)

// maxLineLength bounds a single input line.
const maxLineLength = 1 << 20

// ReadIdentifiers reads one identifier per line from r. Lines are returned
// as read; NormalizeIdentifiers does the cleanup. A leading UTF-8 byte order
// mark is dropped.
func ReadIdentifiers(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	var lines []string
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadInput, err)
	}
	return lines, nil
}

// LoadIdentifiers opens path on fsys and reads it with ReadIdentifiers.
func LoadIdentifiers(fsys afero.Fs, path string) ([]string, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadInput, err)
	}
	defer func() { _ = f.Close() }()

	return ReadIdentifiers(f)
}

// NormalizeIdentifiers trims surrounding whitespace, drops blank entries and
// removes duplicates, keeping the first occurrence of each identifier.
func NormalizeIdentifiers(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

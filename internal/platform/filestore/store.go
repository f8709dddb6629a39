package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/phrazzld/scry-cardgen/internal/platform/logger"
	"github.com/spf13/afero"
)

// Error definitions for the filestore package.
var (
	// ErrInvalidWord is returned for words that cannot be used as a file name.
	ErrInvalidWord = errors.New("word cannot be used as a file name")

	// ErrNotRegularFile is returned when the card path exists but is not a
	// regular file.
	ErrNotRegularFile = errors.New("card path is not a regular file")
)

const (
	dirPerm  fs.FileMode = 0o755
	filePerm fs.FileMode = 0o644
)

// Store writes one file per card under a directory. It satisfies
// dispatch.Sink and is safe for concurrent use as long as each word is
// written by one goroutine at a time.
type Store struct {
	fs     afero.Fs
	dir    string
	ext    string
	logger *slog.Logger
}

// New creates a Store rooted at dir on fsys. ext is appended to each word to
// form the file name; a missing leading dot is added. If logger is nil, a
// default logger will be used.
func New(fsys afero.Fs, dir, ext string, logger *slog.Logger) *Store {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		fs:     fsys,
		dir:    filepath.Clean(dir),
		ext:    ext,
		logger: logger.With(slog.String("component", "filestore")),
	}
}

// Path returns the file that holds the card for word.
func (s *Store) Path(word string) (string, error) {
	name, err := fileName(word)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name+s.ext), nil
}

// ValidateWord reports ErrInvalidWord when word cannot be a file name.
func (s *Store) ValidateWord(word string) error {
	_, err := fileName(word)
	return err
}

// Exists reports whether a card file for word is present.
func (s *Store) Exists(_ context.Context, word string) (bool, error) {
	path, err := s.Path(word)
	if err != nil {
		return false, err
	}

	info, err := s.fs.Stat(path)
	switch {
	case err == nil:
		if !info.Mode().IsRegular() {
			return false, fmt.Errorf("%w: %s", ErrNotRegularFile, path)
		}
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
}

// Write stores content as the card for word, replacing any previous card.
func (s *Store) Write(ctx context.Context, word, content string) error {
	path, err := s.Path(word)
	if err != nil {
		return err
	}

	if err := writeFileAtomic(s.fs, path, []byte(content)); err != nil {
		return err
	}

	logger.FromContextOrDefault(ctx, s.logger.With(slog.String("word", word))).DebugContext(ctx, "card written",
		slog.String("path", path),
		slog.Int("content_length", len(content)))
	return nil
}

// WriteLines atomically writes lines to path, one per line. An empty list
// produces an empty file.
func WriteLines(fsys afero.Fs, path string, lines []string) error {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return writeFileAtomic(fsys, filepath.Clean(path), []byte(sb.String()))
}

// fileName validates word as a single path element.
func fileName(word string) (string, error) {
	name := strings.TrimSpace(word)
	switch {
	case name == "":
		return "", fmt.Errorf("%w: empty", ErrInvalidWord)
	case name == "." || name == "..":
		return "", fmt.Errorf("%w: %q", ErrInvalidWord, word)
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0):
		return "", fmt.Errorf("%w: %q contains a path separator", ErrInvalidWord, word)
	}
	return name, nil
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place. The temporary file is removed on any failure.
func writeFileAtomic(fsys afero.Fs, path string, data []byte) error {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	if info, err := fsys.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotRegularFile, path)
	}

	if err := fsys.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(fsys, dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = fsys.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := fsys.Chmod(tmpName, filePerm); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmpName, err)
	}
	if err := fsys.Rename(tmpName, path); err != nil {
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("failed to rename %s to %s: %w", tmpName, path, err)
	}

	committed = true
	return nil
}

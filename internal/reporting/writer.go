package reporting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format selects the report rendering.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// ErrUnknownFormat is returned for a format outside the supported set.
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat accepts a format name case-insensitively. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatMarkdown:
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Render renders r in the given format.
func Render(r *Report, f Format) (string, error) {
	switch f {
	case FormatText, "":
		return RenderText(r), nil
	case FormatMarkdown:
		return RenderMarkdown(r), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
}

// Writer persists a rendered report.
type Writer interface {
	Write(r *Report) error
}

// FileWriter writes the report to a single path, replacing any previous
// report. The file is written to a temp file in the same directory and
// renamed into place, so readers never observe a partial report.
type FileWriter struct {
	path   string
	format Format
	perm   os.FileMode
}

// NewFileWriter creates a text-format writer for path.
func NewFileWriter(path string) *FileWriter {
	return &FileWriter{path: path, format: FormatText, perm: 0644}
}

// WithFormat sets the rendering format.
func (w *FileWriter) WithFormat(f Format) *FileWriter {
	w.format = f
	return w
}

// Path returns the destination path.
func (w *FileWriter) Path() string {
	return w.path
}

// Write renders r and atomically replaces the destination file.
func (w *FileWriter) Write(r *Report) error {
	if r == nil || r.Result == nil {
		return errors.New("nil report")
	}
	content, err := Render(r, w.format)
	if err != nil {
		return err
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Chmod(tmpName, w.perm); err != nil {
		return fmt.Errorf("chmod report: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		return fmt.Errorf("replace report: %w", err)
	}
	return nil
}

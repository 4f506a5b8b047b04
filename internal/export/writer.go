package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrWriteFailure wraps any storage error hit while writing an export artifact.
var ErrWriteFailure = errors.New("export write failed")

// Artifact describes a file written by Writer. The caller owns its cleanup.
type Artifact struct {
	ID    uuid.UUID
	Path  string
	Rows  int
	Bytes int64
}

// Writer places export documents in Dir. Files are written to a temporary name and
// renamed into place, so a failed write never leaves a reachable partial file.
type Writer struct {
	Dir string
}

func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Writer{Dir: dir}
}

// Write stores doc under doc.Filename(), adding " (n)" before the extension when
// that name is taken.
func (w *Writer) Write(doc *Document) (Artifact, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}

	tmp, err := os.CreateTemp(w.Dir, ".probe-export-*.tmp")
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}
	tmpPath := tmp.Name()
	keep := false
	defer func() {
		if !keep {
			_ = os.Remove(tmpPath)
		}
	}()

	n, err := doc.WriteTo(tmp)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %s: %w", ErrWriteFailure, doc.Filename(), err)
	}

	final, err := w.availablePath(doc.Filename())
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		return Artifact{}, fmt.Errorf("%w: %s: %w", ErrWriteFailure, final, err)
	}
	keep = true

	return Artifact{
		ID:    uuid.New(),
		Path:  final,
		Rows:  len(doc.Rows),
		Bytes: n,
	}, nil
}

func (w *Writer) availablePath(name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; i < 1000; i++ {
		candidate := name
		if i > 1 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(w.Dir, candidate)
		_, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free name for %q", name)
}

// Remove deletes an artifact. A missing file is not an error.
func Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Stamp returns t truncated to whole seconds, matching the resolution of the
// filename and header date.
func Stamp(t time.Time) time.Time {
	return t.Truncate(time.Second)
}

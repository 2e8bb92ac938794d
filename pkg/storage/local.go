package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Local is the filesystem FileStore used for wake-word model artifacts
// during development. Paths resolve under the configured root.
type Local struct {
	root string
}

// NewLocal creates a Local store rooted at dir, creating it as needed.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

func (l *Local) path(name string) string {
	return filepath.Join(l.root, filepath.FromSlash(name))
}

func (l *Local) Read(_ context.Context, name string) (io.ReadCloser, error) {
	return os.Open(l.path(name))
}

// Write creates the file and any missing parent directories, truncating
// an existing file.
func (l *Local) Write(_ context.Context, name string) (io.WriteCloser, error) {
	full := l.path(name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, err
	}
	return os.Create(full)
}

// Delete removes the file. Missing files are not an error.
func (l *Local) Delete(_ context.Context, name string) error {
	if err := os.Remove(l.path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (l *Local) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(l.path(name))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

var _ FileStore = (*Local)(nil)

// Package storage abstracts where wake-word model artifacts live.
// Trained .onnx blobs and their manifests are written and read
// wholesale: on local disk during development, in an object store for
// managed devices.
package storage

import (
	"context"
	"io"
)

// FileStore reads and writes whole files by name. Names use forward
// slashes and are relative to the store root. Implementations must be
// safe for concurrent use.
type FileStore interface {
	// Read opens the named file. A missing file is reported with an
	// error wrapping os.ErrNotExist. The caller closes the reader.
	Read(ctx context.Context, name string) (io.ReadCloser, error)

	// Write opens the named file for writing, truncating any previous
	// content and creating parents as needed. Closing the writer
	// flushes the data.
	Write(ctx context.Context, name string) (io.WriteCloser, error)

	// Delete removes the named file. Deleting a missing file is nil.
	Delete(ctx context.Context, name string) error

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, name string) (bool, error)
}

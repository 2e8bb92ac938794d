package wake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/charice-projects/omnivoice/pkg/storage"
)

// Manifest describes one stored model version.
type Manifest struct {
	Version   string    `yaml:"version"`
	WakeWord  string    `yaml:"wake_word"`
	Threshold float64   `yaml:"threshold"`
	CreatedAt time.Time `yaml:"created_at"`
	// Centroid is the trained speaker-embedding centroid; empty for the
	// base artifact.
	Centroid []float32 `yaml:"centroid,omitempty"`
}

// modelIndex tracks versions and the active one.
type modelIndex struct {
	Current  string   `yaml:"current"`
	Versions []string `yaml:"versions"`
}

// ModelStore keeps versioned wake-word model artifacts on a FileStore.
// Each version holds an immutable blob plus a YAML manifest; training adds
// versions, it never rewrites existing ones.
type ModelStore struct {
	fs   storage.FileStore
	root string
}

// NewModelStore creates a store rooted at the given path.
func NewModelStore(fs storage.FileStore, root string) *ModelStore {
	return &ModelStore{fs: fs, root: root}
}

func (s *ModelStore) indexPath() string { return path.Join(s.root, "index.yaml") }

func (s *ModelStore) manifestPath(version string) string {
	return path.Join(s.root, version, "manifest.yaml")
}

func (s *ModelStore) blobPath(version string) string {
	return path.Join(s.root, version, "model.onnx")
}

// Save writes a new version and makes it current. modelData may be nil
// for trained versions that reuse the base artifact.
func (s *ModelStore) Save(ctx context.Context, m Manifest, modelData []byte) error {
	if m.Version == "" {
		return fmt.Errorf("wake: manifest has no version")
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	if len(modelData) > 0 {
		if err := s.writeFile(ctx, s.blobPath(m.Version), modelData); err != nil {
			return fmt.Errorf("wake: write model blob: %w", err)
		}
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("wake: encode manifest: %w", err)
	}
	if err := s.writeFile(ctx, s.manifestPath(m.Version), data); err != nil {
		return fmt.Errorf("wake: write manifest: %w", err)
	}

	idx, err := s.readIndex(ctx)
	if err != nil {
		return err
	}
	found := false
	for _, v := range idx.Versions {
		if v == m.Version {
			found = true
			break
		}
	}
	if !found {
		idx.Versions = append(idx.Versions, m.Version)
	}
	idx.Current = m.Version
	return s.writeIndex(ctx, idx)
}

// Current returns the manifest of the active version.
func (s *ModelStore) Current(ctx context.Context) (Manifest, error) {
	idx, err := s.readIndex(ctx)
	if err != nil {
		return Manifest{}, err
	}
	if idx.Current == "" {
		return Manifest{}, fmt.Errorf("%w: no current version", ErrModelLoad)
	}
	return s.Manifest(ctx, idx.Current)
}

// Manifest returns the manifest for a version.
func (s *ModelStore) Manifest(ctx context.Context, version string) (Manifest, error) {
	data, err := s.readFile(ctx, s.manifestPath(version))
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: manifest %s: %v", ErrModelLoad, version, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: manifest %s corrupt: %v", ErrModelLoad, version, err)
	}
	return m, nil
}

// LoadModel returns the artifact blob for a version, walking back to the
// base artifact for trained versions that reuse it.
func (s *ModelStore) LoadModel(ctx context.Context, version string) ([]byte, error) {
	data, err := s.readFile(ctx, s.blobPath(version))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: no artifact for version %s", ErrModelLoad, version)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty artifact for version %s", ErrModelLoad, version)
	}
	return data, nil
}

// Versions lists all stored versions, oldest first.
func (s *ModelStore) Versions(ctx context.Context) ([]string, error) {
	idx, err := s.readIndex(ctx)
	if err != nil {
		return nil, err
	}
	return idx.Versions, nil
}

// SetCurrent switches the active version.
func (s *ModelStore) SetCurrent(ctx context.Context, version string) error {
	if _, err := s.Manifest(ctx, version); err != nil {
		return err
	}
	idx, err := s.readIndex(ctx)
	if err != nil {
		return err
	}
	idx.Current = version
	return s.writeIndex(ctx, idx)
}

func (s *ModelStore) readIndex(ctx context.Context) (modelIndex, error) {
	var idx modelIndex
	data, err := s.readFile(ctx, s.indexPath())
	if errors.Is(err, os.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return idx, fmt.Errorf("wake: read model index: %w", err)
	}
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return idx, fmt.Errorf("%w: model index corrupt: %v", ErrModelLoad, err)
	}
	return idx, nil
}

func (s *ModelStore) writeIndex(ctx context.Context, idx modelIndex) error {
	data, err := yaml.Marshal(&idx)
	if err != nil {
		return fmt.Errorf("wake: encode model index: %w", err)
	}
	if err := s.writeFile(ctx, s.indexPath(), data); err != nil {
		return fmt.Errorf("wake: write model index: %w", err)
	}
	return nil
}

func (s *ModelStore) readFile(ctx context.Context, p string) ([]byte, error) {
	rc, err := s.fs.Read(ctx, p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *ModelStore) writeFile(ctx context.Context, p string, data []byte) error {
	wc, err := s.fs.Write(ctx, p)
	if err != nil {
		return err
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}

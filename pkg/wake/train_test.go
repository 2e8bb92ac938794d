package wake

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/charice-projects/omnivoice/pkg/storage"
)

// identityEmbedder returns the input as the embedding.
type identityEmbedder struct{}

func (identityEmbedder) Infer(features []float32) ([]float32, error) {
	out := make([]float32, len(features))
	copy(out, features)
	return out, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Infer(features []float32) ([]float32, error) {
	return nil, fmt.Errorf("model unavailable")
}

func testModelStore(t *testing.T) *ModelStore {
	t.Helper()
	fs, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	return NewModelStore(fs, "models/wake")
}

func TestTrain_InsufficientSamples(t *testing.T) {
	tr := NewTrainer(identityEmbedder{}, testModelStore(t))

	samples := [][]float32{{1, 0}, {0.9, 0.1}}
	_, err := tr.Train(context.Background(), samples, "小智")
	if !errors.Is(err, ErrInsufficientSamples) {
		t.Fatalf("err = %v, want ErrInsufficientSamples", err)
	}
}

func TestTrain_ProducesProfile(t *testing.T) {
	ctx := context.Background()
	store := testModelStore(t)
	tr := NewTrainer(identityEmbedder{}, store)
	tr.now = func() time.Time { return time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC) }

	samples := [][]float32{
		{1, 0.1, 0},
		{0.9, 0.2, 0.1},
		{1, 0, 0.1},
	}
	m, err := tr.Train(ctx, samples, "小智")
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if m.WakeWord != "小智" || m.Version == "" {
		t.Errorf("manifest = %+v", m)
	}
	if m.Threshold < minTrainedThreshold || m.Threshold > maxTrainedThreshold {
		t.Errorf("threshold = %v, want within [%v, %v]", m.Threshold, minTrainedThreshold, maxTrainedThreshold)
	}
	if len(m.Centroid) != 3 {
		t.Fatalf("centroid dims = %d, want 3", len(m.Centroid))
	}

	// The centroid is unit length.
	var norm float64
	for _, x := range m.Centroid {
		norm += float64(x) * float64(x)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("centroid norm^2 = %v, want 1", norm)
	}

	// Training samples verify against their own profile.
	for i, s := range samples {
		if !Verify(m, s) {
			t.Errorf("sample %d rejected by its own profile", i)
		}
	}

	// The trained version became current.
	cur, err := store.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur.Version != m.Version {
		t.Errorf("current = %s, want %s", cur.Version, m.Version)
	}
}

func TestTrain_EmbedderFailure(t *testing.T) {
	tr := NewTrainer(failingEmbedder{}, testModelStore(t))
	samples := [][]float32{{1}, {1}, {1}}
	if _, err := tr.Train(context.Background(), samples, "小智"); err == nil {
		t.Fatal("want error from failing embedder")
	}
}

func TestVerify_BaseProfileAcceptsAll(t *testing.T) {
	if !Verify(Manifest{Threshold: 0.9}, []float32{0, 1}) {
		t.Error("untrained profile should accept any speaker")
	}
}

func TestVerify_RejectsDistantEmbedding(t *testing.T) {
	m := Manifest{Threshold: 0.8, Centroid: []float32{1, 0, 0}}
	if Verify(m, []float32{0, 1, 0}) {
		t.Error("orthogonal embedding verified")
	}
	if !Verify(m, []float32{1, 0.01, 0}) {
		t.Error("near-centroid embedding rejected")
	}
}

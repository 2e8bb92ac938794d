package wake

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Threshold bounds for trained verification.
const (
	minTrainedThreshold = 0.5
	maxTrainedThreshold = 0.95
	thresholdMargin     = 0.9
)

// Trainer derives a per-user wake-word profile from recorded samples. The
// base keyword-spotting artifact is immutable; training produces a new
// model version whose manifest carries a speaker-embedding centroid and a
// verification threshold fitted to the submitted recordings.
type Trainer struct {
	embedder Classifier
	store    *ModelStore
	now      func() time.Time
}

// NewTrainer creates a trainer. embedder is the speaker-verification
// model; its Infer output is treated as an embedding vector.
func NewTrainer(embedder Classifier, store *ModelStore) *Trainer {
	return &Trainer{embedder: embedder, store: store, now: time.Now}
}

// Train fits a profile from at least MinTrainSamples feature windows and
// saves it as the new current model version.
func (t *Trainer) Train(ctx context.Context, samples [][]float32, label string) (Manifest, error) {
	if len(samples) < MinTrainSamples {
		return Manifest{}, fmt.Errorf("%w: got %d, need %d",
			ErrInsufficientSamples, len(samples), MinTrainSamples)
	}

	embeddings := make([][]float32, len(samples))
	for i, s := range samples {
		emb, err := t.embedder.Infer(s)
		if err != nil {
			return Manifest{}, fmt.Errorf("wake: embed sample %d: %w", i, err)
		}
		embeddings[i] = l2Normalize(emb)
	}

	centroid := l2Normalize(mean(embeddings))

	// The threshold sits just under the weakest sample's similarity to the
	// centroid, so all training recordings verify with a small margin.
	minSim := 1.0
	for _, emb := range embeddings {
		if sim := cosine(centroid, emb); sim < minSim {
			minSim = sim
		}
	}
	threshold := min(max(minSim*thresholdMargin, minTrainedThreshold), maxTrainedThreshold)

	now := t.now()
	m := Manifest{
		Version:   "v" + now.UTC().Format("20060102-150405"),
		WakeWord:  label,
		Threshold: threshold,
		CreatedAt: now,
		Centroid:  centroid,
	}
	if err := t.store.Save(ctx, m, nil); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Verify reports whether an embedding matches a trained profile.
func Verify(m Manifest, embedding []float32) bool {
	if len(m.Centroid) == 0 {
		// Untrained base model accepts any speaker.
		return true
	}
	return cosine(m.Centroid, l2Normalize(embedding)) >= m.Threshold
}

func mean(vecs [][]float32) []float32 {
	if len(vecs) == 0 {
		return nil
	}
	out := make([]float32, len(vecs[0]))
	for _, v := range vecs {
		for i := range out {
			out[i] += v[i]
		}
	}
	for i := range out {
		out[i] /= float32(len(vecs))
	}
	return out
}

func l2Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

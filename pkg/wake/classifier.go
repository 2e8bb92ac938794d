package wake

import (
	"fmt"

	"github.com/charice-projects/omnivoice/pkg/onnx"
)

// Classifier scores one feature window. Infer takes the flattened fbank
// features of a window and returns per-class scores; index 1 is the
// wake-word class for the shipped keyword-spotting model.
type Classifier interface {
	Infer(features []float32) ([]float32, error)
}

// ONNXClassifier runs the keyword-spotting model through onnxruntime.
type ONNXClassifier struct {
	sess   *onnx.Session
	frames int
	mels   int
	input  string
	output string
}

var _ Classifier = (*ONNXClassifier)(nil)

// NewONNXClassifier creates a session for a model artifact. frames and
// mels fix the input tensor shape [1, frames, mels]. A nil or unparsable
// artifact returns an error wrapping ErrModelLoad.
func NewONNXClassifier(env *onnx.Env, modelData []byte, frames, mels int) (*ONNXClassifier, error) {
	if len(modelData) == 0 {
		return nil, fmt.Errorf("%w: empty artifact", ErrModelLoad)
	}
	sess, err := env.NewSession(modelData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	return &ONNXClassifier{
		sess:   sess,
		frames: frames,
		mels:   mels,
		input:  "x",
		output: "prob",
	}, nil
}

// Infer classifies one flattened feature window.
func (c *ONNXClassifier) Infer(features []float32) ([]float32, error) {
	want := c.frames * c.mels
	if len(features) != want {
		return nil, fmt.Errorf("wake: feature window has %d values, want %d", len(features), want)
	}

	in, err := onnx.NewTensor([]int64{1, int64(c.frames), int64(c.mels)}, features)
	if err != nil {
		return nil, fmt.Errorf("wake: build input tensor: %w", err)
	}
	defer in.Close()

	outs, err := c.sess.Run([]string{c.input}, []*onnx.Tensor{in}, []string{c.output})
	if err != nil {
		return nil, fmt.Errorf("wake: inference: %w", err)
	}
	defer func() {
		for _, t := range outs {
			t.Close()
		}
	}()

	if len(outs) == 0 {
		return nil, fmt.Errorf("wake: inference returned no outputs")
	}
	data, err := outs[0].FloatData()
	if err != nil {
		return nil, fmt.Errorf("wake: read output tensor: %w", err)
	}
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

// Close releases the underlying session.
func (c *ONNXClassifier) Close() error {
	return c.sess.Close()
}

// wakeScore extracts the wake-class confidence from classifier output.
func wakeScore(out []float32) float64 {
	if len(out) >= 2 {
		return float64(out[1])
	}
	if len(out) == 1 {
		return float64(out[0])
	}
	return 0
}

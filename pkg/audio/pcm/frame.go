package pcm

import (
	"encoding/binary"
	"io"
	"math"
	"time"
)

// Frame is a fixed-length block of signed 16-bit mono samples. Frames are
// ephemeral: they are reused by the capture loop and must not be retained
// across reads.
type Frame struct {
	Samples []int16
	fmt     Format
}

// NewFrame allocates a frame holding the given duration of audio in the
// given format.
func NewFrame(f Format, d time.Duration) *Frame {
	return &Frame{
		Samples: make([]int16, f.SamplesInDuration(d)),
		fmt:     f,
	}
}

// Format returns the audio format of this frame.
func (fr *Frame) Format() Format {
	return fr.fmt
}

// Duration returns the duration of audio held by this frame.
func (fr *Frame) Duration() time.Duration {
	return time.Duration(len(fr.Samples)) * time.Second / time.Duration(fr.fmt.SampleRate())
}

// ReadFrom fills the frame from the reader. The reader must yield
// little-endian L16 bytes. Returns the number of bytes consumed.
func (fr *Frame) ReadFrom(r io.Reader) (int64, error) {
	buf := make([]byte, len(fr.Samples)*2)
	n, err := io.ReadFull(r, buf)
	for i := 0; i < n/2; i++ {
		fr.Samples[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
	}
	return int64(n), err
}

// WriteTo writes the frame as little-endian L16 bytes.
func (fr *Frame) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, len(fr.Samples)*2)
	for i, s := range fr.Samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	n, err := w.Write(buf)
	return int64(n), err
}

// Float32 converts the samples to normalized float32 in [-1, 1], appending
// to dst. Pass nil to allocate a new slice.
func (fr *Frame) Float32(dst []float32) []float32 {
	for _, s := range fr.Samples {
		dst = append(dst, float32(s)/32768.0)
	}
	return dst
}

// RMS returns the root-mean-square level of the frame, normalized to [0, 1].
// A silent frame returns 0.
func (fr *Frame) RMS() float64 {
	if len(fr.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range fr.Samples {
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(fr.Samples)))
}

// Clone returns a copy of the frame that is safe to retain.
func (fr *Frame) Clone() *Frame {
	cp := &Frame{
		Samples: make([]int16, len(fr.Samples)),
		fmt:     fr.fmt,
	}
	copy(cp.Samples, fr.Samples)
	return cp
}

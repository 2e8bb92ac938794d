package resampler

import (
	"fmt"
	"io"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"
)

const sampleBytes = 2 // L16 mono

// Converter wraps an io.Reader of little-endian L16 mono audio and
// resamples it from srcRate to dstRate. When the rates match it passes
// bytes through untouched. Not safe for concurrent Reads.
type Converter struct {
	src io.Reader

	srcRate, dstRate int

	mu       sync.Mutex
	engine   resampling.Resampler // nil in passthrough mode
	readBuf  []byte
	leftover []byte
	closeErr error
}

// New creates a Converter from srcRate to dstRate, both in Hz.
func New(src io.Reader, srcRate, dstRate int) (*Converter, error) {
	if srcRate < 1 || dstRate < 1 {
		return nil, fmt.Errorf("resampler: invalid rates %d -> %d", srcRate, dstRate)
	}

	c := &Converter{
		src:     newAlignedReader(src, sampleBytes),
		srcRate: srcRate,
		dstRate: dstRate,
	}
	if srcRate != dstRate {
		engine, err := resampling.New(&resampling.Config{
			InputRate:  float64(srcRate),
			OutputRate: float64(dstRate),
			Channels:   1,
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		})
		if err != nil {
			return nil, fmt.Errorf("resampler: %w", err)
		}
		c.engine = engine
	}
	return c, nil
}

// Read fills p with resampled audio. It returns whole samples only and
// io.ErrShortBuffer when p cannot hold one.
func (c *Converter) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(p) < sampleBytes {
		return 0, io.ErrShortBuffer
	}
	p = p[:len(p)/sampleBytes*sampleBytes]

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.leftover) > 0 {
		n := copy(p, c.leftover)
		c.leftover = c.leftover[n:]
		return n, nil
	}
	if c.closeErr != nil {
		return 0, c.closeErr
	}
	if c.engine == nil {
		return c.src.Read(p)
	}
	return c.convert(p)
}

// convert pulls enough source audio to roughly fill p, runs it through
// the engine, and stashes any excess output for the next Read.
func (c *Converter) convert(p []byte) (int, error) {
	ratio := float64(c.srcRate) / float64(c.dstRate)
	need := (int(float64(len(p))*ratio) + 4*sampleBytes) / sampleBytes * sampleBytes
	if cap(c.readBuf) < need {
		c.readBuf = make([]byte, need)
	}

	rn, readErr := c.src.Read(c.readBuf[:need])
	if rn == 0 {
		if readErr != nil {
			return 0, readErr
		}
		return 0, io.EOF
	}

	in := make([]float64, rn/sampleBytes)
	for i := range in {
		s := int16(c.readBuf[i*2]) | int16(c.readBuf[i*2+1])<<8
		in[i] = float64(s) / 32768.0
	}

	out, err := c.engine.Process(in)
	if err != nil {
		return 0, fmt.Errorf("resampler: %w", err)
	}
	if len(out) == 0 {
		return 0, readErr
	}

	encoded := make([]byte, len(out)*sampleBytes)
	for i, v := range out {
		s := int16(v * 32767.0)
		if v > 1.0 {
			s = 32767
		} else if v < -1.0 {
			s = -32768
		}
		encoded[i*2] = byte(s)
		encoded[i*2+1] = byte(s >> 8)
	}

	n := copy(p, encoded)
	if n < len(encoded) {
		c.leftover = append(c.leftover, encoded[n:]...)
	}
	return n, readErr
}

// Close releases the engine. Later Reads drain any leftover output and
// then fail with io.ErrClosedPipe.
func (c *Converter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeErr == nil {
		c.closeErr = fmt.Errorf("resampler: %w", io.ErrClosedPipe)
		c.engine = nil
	}
	return nil
}

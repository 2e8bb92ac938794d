// Package fbank computes log mel filterbank features from PCM audio.
//
// This is the front end for the wake-word classifier: the detector slides a
// window over the microphone stream, extracts a [T, numMels] float32 matrix
// and feeds it to onnx inference. The output layout matches the Kaldi
// convention used by most keyword-spotting models.
//
// Default parameters:
//
//	SampleRate:  16000
//	WindowSize:  400 (25 ms)
//	HopSize:     160 (10 ms)
//	FFTSize:     512
//	NumMels:     40
//	LowFreq:     20
//	HighFreq:  7600
//	PreEmphasis: 0.97
package fbank

import (
	"math"
)

// Config controls feature extraction.
type Config struct {
	SampleRate  int     // Hz
	WindowSize  int     // analysis window, samples (400 = 25ms)
	HopSize     int     // window advance, samples (160 = 10ms)
	FFTSize     int     // power of two, >= WindowSize
	NumMels     int     // mel bins per frame
	LowFreq     float64 // lowest filter edge, Hz
	HighFreq    float64 // highest filter edge, Hz
	PreEmphasis float64 // high-frequency boost coefficient
}

// DefaultConfig returns the standard config for keyword-spotting models.
func DefaultConfig() Config {
	return Config{
		SampleRate:  16000,
		WindowSize:  400,
		HopSize:     160,
		FFTSize:     512,
		NumMels:     40,
		LowFreq:     20,
		HighFreq:    7600,
		PreEmphasis: 0.97,
	}
}

// Extractor computes mel filterbank features from PCM samples.
type Extractor struct {
	cfg     Config
	window  []float64 // Hamming window
	melBank [][]float64
}

// New creates a new fbank Extractor with the given config.
func New(cfg Config) *Extractor {
	e := &Extractor{cfg: cfg}
	e.window = hamming(cfg.WindowSize)
	e.melBank = triangularFilters(cfg.NumMels, cfg.FFTSize, cfg.SampleRate, cfg.LowFreq, cfg.HighFreq)
	return e
}

// NumFrames returns the number of feature frames produced for n input samples.
func (e *Extractor) NumFrames(n int) int {
	if n < e.cfg.WindowSize {
		return 0
	}
	return (n-e.cfg.WindowSize)/e.cfg.HopSize + 1
}

// Extract computes log mel filterbank features from PCM float32 samples.
// Input: pcm is normalized float32 audio samples (range [-1, 1]).
// Output: [T][numMels] float32 matrix where T = (len(pcm) - windowSize) / hopSize + 1.
func (e *Extractor) Extract(pcm []float32) [][]float32 {
	cfg := e.cfg
	n := len(pcm)
	if n < cfg.WindowSize {
		return nil
	}

	numFrames := e.NumFrames(n)
	nfft := cfg.FFTSize
	halfFFT := nfft/2 + 1

	features := make([][]float32, numFrames)

	// Working buffers shared across frames.
	spec := make([]complex128, nfft)
	power := make([]float64, halfFFT)

	for t := 0; t < numFrames; t++ {
		start := t * cfg.HopSize

		// Pre-emphasis + windowing, zero-padded to the FFT size.
		for i := 0; i < cfg.WindowSize; i++ {
			s := float64(pcm[start+i])
			if i > 0 {
				s -= cfg.PreEmphasis * float64(pcm[start+i-1])
			}
			spec[i] = complex(s*e.window[i], 0)
		}
		for i := cfg.WindowSize; i < nfft; i++ {
			spec[i] = 0
		}

		fft(spec)

		for i := 0; i < halfFFT; i++ {
			re, im := real(spec[i]), imag(spec[i])
			power[i] = re*re + im*im
		}

		// Apply each triangular filter and take the log, floored so
		// silence does not produce -inf.
		mel := make([]float32, cfg.NumMels)
		for m, filter := range e.melBank {
			sum := 0.0
			for k, w := range filter {
				sum += w * power[k]
			}
			mel[m] = float32(math.Log(math.Max(sum, 1e-10)))
		}
		features[t] = mel
	}

	return features
}

// ExtractFromInt16 is a convenience wrapper that converts int16 PCM samples
// to normalized float32 and then extracts features.
func (e *Extractor) ExtractFromInt16(samples []int16) [][]float32 {
	f := make([]float32, len(samples))
	for i, s := range samples {
		f[i] = float32(s) / 32768.0
	}
	return e.Extract(f)
}

// CMVN applies Cepstral Mean and Variance Normalization in-place.
// For each mel dimension, subtracts the mean and divides by the standard
// deviation across all frames. This removes channel and environment effects,
// which matters for wake-word models trained on clean speech.
func CMVN(features [][]float32) {
	if len(features) == 0 {
		return
	}
	n := float64(len(features))
	for m := range features[0] {
		var sum, sqSum float64
		for _, f := range features {
			v := float64(f[m])
			sum += v
			sqSum += v * v
		}
		mean := sum / n
		std := math.Sqrt(math.Max(sqSum/n-mean*mean, 0))
		std = math.Max(std, 1e-10)

		for _, f := range features {
			f[m] = float32((float64(f[m]) - mean) / std)
		}
	}
}

// Flatten converts [T][numMels] to a flat [T*numMels] slice suitable for
// building an onnx tensor of shape [1, T, numMels].
func Flatten(features [][]float32) []float32 {
	if len(features) == 0 {
		return nil
	}
	cols := len(features[0])
	flat := make([]float32, len(features)*cols)
	for t, row := range features {
		copy(flat[t*cols:], row)
	}
	return flat
}

package pcm

import (
	"fmt"
	"time"
)

// Format identifies one of the fixed L16 mono layouts the pipeline moves
// audio in. 16kHz is the pipeline rate; 24k and 48k cover devices that
// capture faster and resample down.
type Format int

const (
	L16Mono16K Format = iota // audio/L16; rate=16000; channels=1
	L16Mono24K               // audio/L16; rate=24000; channels=1
	L16Mono48K               // audio/L16; rate=48000; channels=1
)

var sampleRates = [...]int{16000, 24000, 48000}

// SampleRate returns the sample rate in Hz.
func (f Format) SampleRate() int {
	if f < 0 || int(f) >= len(sampleRates) {
		panic("pcm: invalid format")
	}
	return sampleRates[f]
}

// Channels returns the channel count. All supported layouts are mono.
func (f Format) Channels() int {
	_ = f.SampleRate() // validity check
	return 1
}

// Depth returns bits per sample.
func (f Format) Depth() int {
	_ = f.SampleRate()
	return 16
}

// BytesRate returns the byte rate of audio in this format.
func (f Format) BytesRate() int {
	return f.SampleRate() * f.Channels() * f.Depth() / 8
}

// SamplesInDuration returns how many samples cover d.
func (f Format) SamplesInDuration(d time.Duration) int64 {
	return int64(time.Duration(f.SampleRate()) * d / time.Second)
}

// BytesInDuration returns how many bytes cover d.
func (f Format) BytesInDuration(d time.Duration) int64 {
	return f.SamplesInDuration(d) * int64(f.Channels()*f.Depth()) / 8
}

// String returns the MIME-style description of the format.
func (f Format) String() string {
	return fmt.Sprintf("audio/L16; rate=%d; channels=%d", f.SampleRate(), f.Channels())
}

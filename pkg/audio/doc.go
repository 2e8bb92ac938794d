// Package audio is the umbrella for the audio sub-packages:
//
//   - pcm: L16 PCM formats and frames
//   - fbank: log-mel filterbank feature extraction
//   - portaudio: microphone and speaker streams via PortAudio
//   - resampler: sample rate conversion
//
// Capture works in fixed-duration frames:
//
//	import (
//	    "github.com/charice-projects/omnivoice/pkg/audio/pcm"
//	    "github.com/charice-projects/omnivoice/pkg/buffer"
//	)
//
//	frame := pcm.NewFrame(pcm.L16Mono16K, 20*time.Millisecond)
//
//	// Keep a one second sliding window of samples.
//	win := buffer.NewRing[int16](16000)
//	win.Write(frame.Samples)
//	window := win.Snapshot()
package audio

// Package buffer provides the sliding-window ring used by the voice
// pipeline: the wake detector keeps the most recent second of microphone
// samples in one, and the status display keeps its recent log lines in
// another. Writes past capacity evict the oldest values, so a full window
// always reflects the latest audio.
//
//	// Keep the most recent second of 16kHz samples
//	win := buffer.NewRing[int16](16000)
//
//	// Write capture frames; oldest samples fall off
//	win.Write(frame.Samples)
//
//	// Snapshot the window for feature extraction
//	samples := win.Snapshot()
package buffer

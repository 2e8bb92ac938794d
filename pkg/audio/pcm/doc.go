// Package pcm describes L16 mono audio. It is the common currency
// between the microphone source, the wake-word front end, and the
// speech transcriber: all of them exchange fixed-duration frames of
// signed 16-bit samples.
//
// Key types:
//   - Format: sample rate, channel, and depth of a stream
//   - Frame: fixed-length block of samples with time and level helpers
//
// Example usage:
//
//	format := pcm.L16Mono16K
//
//	// Bytes needed for 20ms of audio.
//	n := format.BytesInDuration(20 * time.Millisecond)
//
//	// Read one 20ms frame from a stream.
//	frame := pcm.NewFrame(format, 20*time.Millisecond)
//	_, err := frame.ReadFrom(stream)
package pcm

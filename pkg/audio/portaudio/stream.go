package portaudio

import (
	"encoding/binary"
	"time"

	"github.com/charice-projects/omnivoice/pkg/audio/pcm"
)

// InputStream captures fixed-duration frames from the default microphone.
// One frame is read per call; the wake detector drives the pace.
type InputStream struct {
	s      *stream
	format pcm.Format
	frames int
}

// NewInputStream opens and starts a capture stream delivering frameDuration
// of audio per Read.
func NewInputStream(format pcm.Format, frameDuration time.Duration) (*InputStream, error) {
	frames := int(format.SamplesInDuration(frameDuration))
	s, err := openStream(format.Channels(), 0, float64(format.SampleRate()), frames)
	if err != nil {
		return nil, err
	}
	return &InputStream{s: s, format: format, frames: frames}, nil
}

// Read fills buf with one captured frame and returns the sample count.
// A buf shorter than the frame truncates it.
func (in *InputStream) Read(buf []int16) (int, error) {
	if len(buf) >= in.frames {
		if err := in.s.read(buf[:in.frames]); err != nil {
			return 0, err
		}
		return in.frames, nil
	}
	tmp := make([]int16, in.frames)
	if err := in.s.read(tmp); err != nil {
		return 0, err
	}
	return copy(buf, tmp), nil
}

// ReadBytes captures one frame as little-endian L16 bytes. The resampler
// consumes capture through this form.
func (in *InputStream) ReadBytes(buf []byte) (int, error) {
	samples := make([]int16, len(buf)/2)
	n, err := in.Read(samples)
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(samples[i]))
	}
	return n * 2, nil
}

// Format returns the capture format.
func (in *InputStream) Format() pcm.Format { return in.format }

// Close stops and closes the stream. Pending Reads fail with io.EOF.
func (in *InputStream) Close() error { return in.s.close() }

// OutputStream plays samples through the default output device.
type OutputStream struct {
	s      *stream
	format pcm.Format
	frames int
}

// NewOutputStream opens and starts a playback stream writing bufDuration
// of audio per underlying device write.
func NewOutputStream(format pcm.Format, bufDuration time.Duration) (*OutputStream, error) {
	frames := int(format.SamplesInDuration(bufDuration))
	s, err := openStream(0, format.Channels(), float64(format.SampleRate()), frames)
	if err != nil {
		return nil, err
	}
	return &OutputStream{s: s, format: format, frames: frames}, nil
}

// Write plays all of samples, padding the final device buffer with
// silence. It blocks until the device has accepted everything.
func (out *OutputStream) Write(samples []int16) (int, error) {
	pad := make([]int16, out.frames)
	for off := 0; off < len(samples); off += out.frames {
		chunk := samples[off:]
		if len(chunk) >= out.frames {
			chunk = chunk[:out.frames]
		} else {
			copy(pad, chunk)
			for i := len(chunk); i < out.frames; i++ {
				pad[i] = 0
			}
			chunk = pad
		}
		if err := out.s.write(chunk); err != nil {
			return off, err
		}
	}
	return len(samples), nil
}

// Format returns the playback format.
func (out *OutputStream) Format() pcm.Format { return out.format }

// Close stops and closes the stream.
func (out *OutputStream) Close() error { return out.s.close() }

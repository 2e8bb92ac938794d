// Package portaudio captures and plays L16 audio through the PortAudio
// library. The microphone loop reads fixed-duration frames from an
// InputStream; the feedback speaker pushes synthesized cues through an
// OutputStream. Streams always open the system default device.
//
// Requires the PortAudio C library (pkg-config portaudio-2.0).
package portaudio

/*
#cgo pkg-config: portaudio-2.0

#include <portaudio.h>

// Streams are handled as void* on the Go side to keep CGo out of the
// PaStream typedef.
static PaError om_open(void **stream, int in_ch, int out_ch, double rate, unsigned long frames) {
    PaStreamParameters inp, outp;
    PaStreamParameters *pin = NULL, *pout = NULL;

    if (in_ch > 0) {
        PaDeviceIndex dev = Pa_GetDefaultInputDevice();
        if (dev == paNoDevice) return paDeviceUnavailable;
        inp.device = dev;
        inp.channelCount = in_ch;
        inp.sampleFormat = paInt16;
        inp.suggestedLatency = Pa_GetDeviceInfo(dev)->defaultLowInputLatency;
        inp.hostApiSpecificStreamInfo = NULL;
        pin = &inp;
    }
    if (out_ch > 0) {
        PaDeviceIndex dev = Pa_GetDefaultOutputDevice();
        if (dev == paNoDevice) return paDeviceUnavailable;
        outp.device = dev;
        outp.channelCount = out_ch;
        outp.sampleFormat = paInt16;
        outp.suggestedLatency = Pa_GetDeviceInfo(dev)->defaultLowOutputLatency;
        outp.hostApiSpecificStreamInfo = NULL;
        pout = &outp;
    }
    return Pa_OpenStream((PaStream**)stream, pin, pout, rate, frames, paClipOff, NULL, NULL);
}

static PaError om_start(void *s) { return Pa_StartStream((PaStream*)s); }
static PaError om_stop(void *s)  { return Pa_StopStream((PaStream*)s); }
static PaError om_close(void *s) { return Pa_CloseStream((PaStream*)s); }

static PaError om_read(void *s, void *buf, unsigned long frames) {
    return Pa_ReadStream((PaStream*)s, buf, frames);
}

static PaError om_write(void *s, const void *buf, unsigned long frames) {
    return Pa_WriteStream((PaStream*)s, buf, frames);
}
*/
import "C"

import (
	"fmt"
	"io"
	"sync"
	"unsafe"
)

var (
	initOnce sync.Once
	initErr  error
)

// Initialize brings up the PortAudio library. Safe to call repeatedly.
func Initialize() error {
	initOnce.Do(func() {
		initErr = codeErr(C.Pa_Initialize())
	})
	return initErr
}

// Terminate shuts the library down. Call once, after all streams close.
func Terminate() error {
	return codeErr(C.Pa_Terminate())
}

func codeErr(code C.PaError) error {
	if code == C.paNoError {
		return nil
	}
	return fmt.Errorf("portaudio: %s", C.GoString(C.Pa_GetErrorText(code)))
}

// DeviceInfo describes an audio device visible to PortAudio.
type DeviceInfo struct {
	Index             int     `yaml:"index"`
	Name              string  `yaml:"name"`
	InputChannels     int     `yaml:"input_channels"`
	OutputChannels    int     `yaml:"output_channels"`
	DefaultSampleRate float64 `yaml:"default_sample_rate"`
	DefaultInput      bool    `yaml:"default_input,omitempty"`
	DefaultOutput     bool    `yaml:"default_output,omitempty"`
}

// Devices lists the audio devices on the host.
func Devices() ([]DeviceInfo, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}

	count := int(C.Pa_GetDeviceCount())
	if count < 0 {
		return nil, codeErr(C.PaError(count))
	}
	defIn := int(C.Pa_GetDefaultInputDevice())
	defOut := int(C.Pa_GetDefaultOutputDevice())

	out := make([]DeviceInfo, 0, count)
	for i := 0; i < count; i++ {
		info := C.Pa_GetDeviceInfo(C.PaDeviceIndex(i))
		if info == nil {
			continue
		}
		out = append(out, DeviceInfo{
			Index:             i,
			Name:              C.GoString(info.name),
			InputChannels:     int(info.maxInputChannels),
			OutputChannels:    int(info.maxOutputChannels),
			DefaultSampleRate: float64(info.defaultSampleRate),
			DefaultInput:      i == defIn,
			DefaultOutput:     i == defOut,
		})
	}
	return out, nil
}

// stream is a started PortAudio stream handle. Reads and writes pass Go
// slices straight to the C side; nothing is retained across calls.
type stream struct {
	mu     sync.Mutex
	ptr    unsafe.Pointer
	closed bool
}

func openStream(inCh, outCh int, rate float64, frames int) (*stream, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}

	var ptr unsafe.Pointer
	if err := codeErr(C.om_open(&ptr, C.int(inCh), C.int(outCh), C.double(rate), C.ulong(frames))); err != nil {
		return nil, err
	}
	if err := codeErr(C.om_start(ptr)); err != nil {
		C.om_close(ptr)
		return nil, err
	}
	return &stream{ptr: ptr}, nil
}

func (s *stream) read(dst []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return io.EOF
	}
	return codeErr(C.om_read(s.ptr, unsafe.Pointer(&dst[0]), C.ulong(len(dst))))
}

func (s *stream) write(src []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("portaudio: stream closed")
	}
	return codeErr(C.om_write(s.ptr, unsafe.Pointer(&src[0]), C.ulong(len(src))))
}

func (s *stream) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	C.om_stop(s.ptr)
	return codeErr(C.om_close(s.ptr))
}

// Package wake is the always-on wake-word detector. A Detector drains
// fixed 20 ms PCM frames from a microphone source into a sliding sample
// window and classifies one window at a time on a separate goroutine; the
// sampling loop never blocks on inference. Windows that fall due while a
// classification is in flight are skipped and counted, never silently
// dropped.
//
// Detections below the configured sensitivity are discarded; after a
// genuine detection a cooldown suppresses further events. Model artifacts
// are versioned blobs in a [ModelStore]; a missing or corrupt artifact
// fails closed, meaning no detection rather than false detection.
package wake

import (
	"errors"
	"time"
)

// Sentinel errors.
var (
	// ErrInsufficientSamples is returned by Train with fewer than
	// MinTrainSamples recordings.
	ErrInsufficientSamples = errors.New("wake: insufficient training samples")
	// ErrModelLoad is returned when the inference artifact is missing or
	// corrupt. The detector fails closed.
	ErrModelLoad = errors.New("wake: model load failed")
	// ErrAlreadyRunning is returned by Start on a running detector.
	ErrAlreadyRunning = errors.New("wake: detector already running")
	// ErrNotRunning is returned by Stop on a stopped detector.
	ErrNotRunning = errors.New("wake: detector not running")
)

// Sensitivity bounds. Values outside are clamped.
const (
	MinSensitivity = 0.1
	MaxSensitivity = 1.0
)

// Defaults.
const (
	DefaultSensitivity = 0.5
	DefaultCooldown    = 2 * time.Second
	DefaultWindow      = time.Second
	DefaultHop         = 500 * time.Millisecond
	FrameDuration      = 20 * time.Millisecond
)

// MinTrainSamples is the minimum number of recordings Train accepts.
const MinTrainSamples = 3

// State is the detector lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateListening
	// StateProcessing is reported while a window classification is in
	// flight; the sampling loop keeps draining frames regardless.
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateProcessing:
		return "processing"
	}
	return "unknown"
}

// EventKind discriminates the Event union.
type EventKind int

const (
	// EventWake is a wake-word detection.
	EventWake EventKind = iota
	// EventLevel is a periodic audio-level report.
	EventLevel
	// EventError is a detector fault, fatal when the source fails.
	EventError
)

// WakeEvent is one accepted detection.
type WakeEvent struct {
	WakeWord   string
	Confidence float64
	Timestamp  time.Time
}

// LevelEvent reports input level and the running dropped-window count.
type LevelEvent struct {
	RMS            float64
	DroppedWindows uint64
}

// Event is the tagged union emitted by a running detector. Exactly one
// field matching Kind is set.
type Event struct {
	Kind  EventKind
	Wake  *WakeEvent
	Level *LevelEvent
	Err   error
}

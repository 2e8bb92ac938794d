// Package feedback serializes spoken feedback to the user. Requests queue
// by priority (ties first-in first-out) and exactly one utterance plays at
// a time; new requests never interrupt in-flight playback except through
// an explicit StopCurrent or ClearQueue.
//
// Text-to-speech engines register on a trie-backed [Mux] by name, the same
// way transcription providers do, so the voice backend is a configuration
// choice.
package feedback

import (
	"errors"
	"time"
)

// Sentinel errors.
var (
	// ErrAlreadyRunning is returned by Start on a running announcer.
	ErrAlreadyRunning = errors.New("feedback: announcer already running")
	// ErrNotRunning is returned when announcing to a stopped announcer.
	ErrNotRunning = errors.New("feedback: announcer not running")
)

// Type classifies a feedback request and picks its default priority and
// tone.
type Type int

const (
	TypeInfo Type = iota
	TypeSuccess
	TypeWarning
	TypeError
	TypeConfirm
	TypeEmergency
)

func (t Type) String() string {
	switch t {
	case TypeInfo:
		return "info"
	case TypeSuccess:
		return "success"
	case TypeWarning:
		return "warning"
	case TypeError:
		return "error"
	case TypeConfirm:
		return "confirm"
	case TypeEmergency:
		return "emergency"
	}
	return "unknown"
}

// DefaultPriority returns the queue priority for a type; higher plays
// first.
func (t Type) DefaultPriority() int {
	switch t {
	case TypeInfo:
		return 3
	case TypeSuccess:
		return 4
	case TypeWarning:
		return 6
	case TypeError:
		return 7
	case TypeConfirm:
		return 8
	case TypeEmergency:
		return 10
	}
	return 1
}

// Tone is a short audio cue played before speech.
type Tone string

const (
	ToneNone  Tone = ""
	ToneChime Tone = "chime"
	ToneAlert Tone = "alert"
	ToneError Tone = "error"
	ToneSiren Tone = "siren"
)

// Tone returns the cue played before this type's speech.
func (t Type) Tone() Tone {
	switch t {
	case TypeSuccess:
		return ToneChime
	case TypeWarning, TypeConfirm:
		return ToneAlert
	case TypeError:
		return ToneError
	case TypeEmergency:
		return ToneSiren
	}
	return ToneNone
}

// Request is one queued feedback item.
type Request struct {
	// ID is assigned on Announce when empty.
	ID string
	// Message is the text to speak.
	Message string
	// Type picks the tone and, when Priority is zero, the priority.
	Type Type
	// Priority orders the queue; higher plays first. Zero means the
	// type's default.
	Priority int
	// PlayTone plays the type's tone before speech.
	PlayTone bool
	// Speak synthesizes Message. A request with Speak false and PlayTone
	// true is a bare cue.
	Speak bool
	// Timeout bounds delivery; zero means no limit.
	Timeout time.Duration
}

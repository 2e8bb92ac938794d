// Package transcribe converts one spoken utterance into text. A Transcriber
// owns at most one live Session at a time; the session streams partial
// transcripts and retains the final one.
//
// Speech providers register on a trie-backed [Mux] under hierarchical names
// like "ws/cloud" or "openai/whisper-1", so switching providers is a
// configuration change, not a code change. See the wsasr and openaiasr
// subpackages for the shipped providers.
package transcribe

import (
	"context"
	"errors"
	"time"

	"github.com/charice-projects/omnivoice/pkg/audio/pcm"
)

// Sentinel errors.
var (
	// ErrAlreadyInProgress is returned by Start while a session is live.
	ErrAlreadyInProgress = errors.New("transcribe: session already in progress")
	// ErrTimeout is the session error after the idle timeout expires.
	ErrTimeout = errors.New("transcribe: idle timeout")
	// ErrCancelled is the session error after Cancel.
	ErrCancelled = errors.New("transcribe: cancelled")
	// ErrNoProvider is returned when no provider is registered for a name.
	ErrNoProvider = errors.New("transcribe: provider not found")
)

// DefaultIdleTimeout bounds a session from start; an unanswered session
// auto-cancels when it expires.
const DefaultIdleTimeout = 10 * time.Second

// State is the session lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateListening
	StateProcessing
	StateCompleted
	StateErrored
	StateTimedOut
	StateCancelled
)

var stateNames = map[State]string{
	StateIdle:       "idle",
	StateStarting:   "starting",
	StateListening:  "listening",
	StateProcessing: "processing",
	StateCompleted:  "completed",
	StateErrored:    "errored",
	StateTimedOut:   "timed_out",
	StateCancelled:  "cancelled",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Terminal reports whether the state ends a session.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateErrored, StateTimedOut, StateCancelled:
		return true
	}
	return false
}

// Transcript is one recognition result. Partials are transient and
// superseded; only the final transcript is retained and forwarded.
type Transcript struct {
	Text           string
	NormalizedText string
	Confidence     float64
	IsFinal        bool
	Alternatives   []string
}

// Options configure one session.
type Options struct {
	// Language is a BCP 47 tag, e.g. "zh-CN". Empty lets the provider
	// decide.
	Language string
	// Partials enables streaming of non-final transcripts on the session's
	// result channel.
	Partials bool
	// IdleTimeout overrides DefaultIdleTimeout when positive.
	IdleTimeout time.Duration
}

// Source yields the microphone audio for one utterance. ReadFrame returns
// io.EOF when the utterance ends.
type Source interface {
	Format() pcm.Format
	ReadFrame(ctx context.Context) (*pcm.Frame, error)
}

// Stream is a provider's transcript stream. Next returns io.EOF after the
// final transcript has been delivered.
type Stream interface {
	Next() (Transcript, error)
	Close() error
}

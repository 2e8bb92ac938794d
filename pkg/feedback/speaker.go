package feedback

import (
	"context"
	"fmt"

	"github.com/charice-projects/omnivoice/pkg/trie"
)

// Speaker is a text-to-speech backend. Implementations must be safe for
// concurrent use; the announcer serializes calls regardless.
type Speaker interface {
	// Speak synthesizes and plays text. It blocks until playback finishes
	// or ctx is cancelled.
	Speak(ctx context.Context, text, id string) error

	// PlayTone plays a short cue. ToneNone is a no-op.
	PlayTone(ctx context.Context, tone Tone) error
}

// DefaultMux is the default multiplexer for speakers.
var DefaultMux = NewMux()

// Handle registers a Speaker with the default mux.
func Handle(name string, s Speaker) error {
	return DefaultMux.Handle(name, s)
}

// Mux routes speech to speakers registered under hierarchical names like
// "tts/cloud" or "tts/local".
type Mux struct {
	mux *trie.Trie[Speaker]
}

// NewMux creates an empty speaker multiplexer.
func NewMux() *Mux {
	return &Mux{mux: trie.New[Speaker]()}
}

// Handle registers a Speaker for the given name.
func (m *Mux) Handle(name string, s Speaker) error {
	return m.mux.Add(name, s)
}

// Speaker returns the speaker registered for the given name.
func (m *Mux) Speaker(name string) (Speaker, error) {
	s, ok := m.mux.Lookup(name)
	if !ok || s == nil {
		return nil, fmt.Errorf("feedback: speaker not found for %s", name)
	}
	return s, nil
}

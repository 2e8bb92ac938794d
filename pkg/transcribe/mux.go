package transcribe

import (
	"context"
	"fmt"

	"github.com/charice-projects/omnivoice/pkg/trie"
)

// DefaultMux is the default multiplexer for speech providers.
var DefaultMux = NewMux()

// Handle registers a Provider for the given name with the default mux.
func Handle(name string, p Provider) error {
	return DefaultMux.Handle(name, p)
}

// HandleFunc registers a ProviderFunc for the given name with the default mux.
func HandleFunc(name string, f ProviderFunc) error {
	return DefaultMux.HandleFunc(name, f)
}

// Provider is the interface that wraps the TranscribeStream method.
type Provider interface {
	// TranscribeStream opens a transcript stream for one utterance.
	TranscribeStream(ctx context.Context, name string, opts Options, src Source) (Stream, error)
}

// ProviderFunc is an adapter to allow the use of ordinary functions as
// Providers.
type ProviderFunc func(ctx context.Context, name string, opts Options, src Source) (Stream, error)

// TranscribeStream calls the underlying function.
func (f ProviderFunc) TranscribeStream(ctx context.Context, name string, opts Options, src Source) (Stream, error) {
	return f(ctx, name, opts, src)
}

// Mux is a multiplexer for speech providers. It routes transcription
// requests to the registered provider by name.
type Mux struct {
	mux *trie.Trie[Provider]
}

// NewMux creates and returns a new provider multiplexer.
func NewMux() *Mux {
	return &Mux{mux: trie.New[Provider]()}
}

// Handle registers a Provider for the given name.
func (m *Mux) Handle(name string, p Provider) error {
	return m.mux.Add(name, p)
}

// HandleFunc registers a ProviderFunc for the given name.
func (m *Mux) HandleFunc(name string, f ProviderFunc) error {
	return m.Handle(name, f)
}

// TranscribeStream opens a transcript stream using the provider registered
// for the given name.
func (m *Mux) TranscribeStream(ctx context.Context, name string, opts Options, src Source) (Stream, error) {
	p, ok := m.mux.Lookup(name)
	if !ok || p == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoProvider, name)
	}
	return p.TranscribeStream(ctx, name, opts, src)
}

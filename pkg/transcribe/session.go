package transcribe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/charice-projects/omnivoice/pkg/intent"
)

// Transcriber runs transcription sessions against a provider mux. At most
// one session is live at a time; a concurrent Start fails with
// ErrAlreadyInProgress.
type Transcriber struct {
	mux *Mux

	mu     sync.Mutex
	active *Session
}

// NewTranscriber creates a transcriber. A nil mux uses DefaultMux.
func NewTranscriber(mux *Mux) *Transcriber {
	if mux == nil {
		mux = DefaultMux
	}
	return &Transcriber{mux: mux}
}

// Start opens a session with the named provider and begins streaming.
func (t *Transcriber) Start(ctx context.Context, provider string, opts Options, src Source) (*Session, error) {
	t.mu.Lock()
	if t.active != nil && !t.active.State().Terminal() {
		t.mu.Unlock()
		return nil, ErrAlreadyInProgress
	}

	sctx, cancel := context.WithCancelCause(ctx)
	s := &Session{
		id:      uuid.NewString(),
		opts:    opts,
		results: make(chan Transcript, 16),
		done:    make(chan struct{}),
		cancel:  cancel,
	}
	s.state.Store(int32(StateStarting))
	t.active = s
	t.mu.Unlock()

	go s.run(sctx, t.mux, provider, src)
	return s, nil
}

// Transcribe runs a full session and returns the final transcript.
func (t *Transcriber) Transcribe(ctx context.Context, provider string, opts Options, src Source) (Transcript, error) {
	s, err := t.Start(ctx, provider, opts, src)
	if err != nil {
		return Transcript{}, err
	}
	return s.Wait(ctx)
}

// Active returns the current session, which may be terminal, or nil.
func (t *Transcriber) Active() *Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Session is one transcription attempt for one utterance.
type Session struct {
	id      string
	opts    Options
	state   atomic.Int32
	results chan Transcript
	done    chan struct{}
	cancel  context.CancelCauseFunc

	mu        sync.Mutex
	final     Transcript
	haveFinal bool
	err       error
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Results streams transcripts: partials when enabled, always the final
// one. The channel closes when the session settles.
func (s *Session) Results() <-chan Transcript { return s.results }

// Final returns the retained final transcript, if the session completed.
func (s *Session) Final() (Transcript, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.final, s.haveFinal
}

// Err returns the settle error, nil after a normal completion.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cancel aborts the session. The provider call is aborted best-effort; the
// session state still reaches Cancelled deterministically.
func (s *Session) Cancel() {
	s.cancel(ErrCancelled)
}

// Wait blocks until the session settles or ctx expires.
func (s *Session) Wait(ctx context.Context) (Transcript, error) {
	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.err != nil {
			return Transcript{}, s.err
		}
		return s.final, nil
	case <-ctx.Done():
		return Transcript{}, ctx.Err()
	}
}

func (s *Session) run(ctx context.Context, mux *Mux, provider string, src Source) {
	defer close(s.done)
	defer close(s.results)

	timeout := s.opts.IdleTimeout
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	ctx, cancel := context.WithTimeoutCause(ctx, timeout, ErrTimeout)
	defer cancel()

	stream, err := mux.TranscribeStream(ctx, provider, s.opts, src)
	if err != nil {
		s.settle(StateErrored, err)
		return
	}
	defer stream.Close()
	s.transition(StateStarting, StateListening)

	type next struct {
		tr  Transcript
		err error
	}
	ch := make(chan next)
	go func() {
		for {
			tr, err := stream.Next()
			select {
			case ch <- next{tr, err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			// The timer or a cancel won the race; whatever the provider
			// still delivers is discarded.
			cause := context.Cause(ctx)
			switch {
			case errors.Is(cause, ErrTimeout):
				slog.Warn("transcribe: session idle timeout", "session", s.id, "timeout", timeout)
				s.settle(StateTimedOut, ErrTimeout)
			case errors.Is(cause, ErrCancelled):
				s.settle(StateCancelled, ErrCancelled)
			default:
				s.settle(StateCancelled, ErrCancelled)
			}
			return

		case n := <-ch:
			if n.err != nil {
				if errors.Is(n.err, io.EOF) {
					s.settle(StateErrored, errors.New("transcribe: stream ended without final transcript"))
				} else {
					s.settle(StateErrored, n.err)
				}
				return
			}

			tr := n.tr
			if tr.NormalizedText == "" {
				tr.NormalizedText = intent.Normalize(tr.Text)
			}
			s.transition(StateListening, StateProcessing)

			if tr.IsFinal {
				s.mu.Lock()
				s.final = tr
				s.haveFinal = true
				s.mu.Unlock()
				s.emit(tr)
				s.settle(StateCompleted, nil)
				return
			}
			if s.opts.Partials {
				s.emit(tr)
			}
		}
	}
}

// emit delivers a transcript without ever blocking the session loop; a
// slow consumer loses partials, never the session.
func (s *Session) emit(tr Transcript) {
	select {
	case s.results <- tr:
	default:
		if !tr.IsFinal {
			return
		}
		// The final transcript must land; evict the oldest partial.
		select {
		case <-s.results:
		default:
		}
		select {
		case s.results <- tr:
		default:
		}
	}
}

// transition moves from one non-terminal state to another; terminal states
// are only set by settle.
func (s *Session) transition(from, to State) bool {
	return s.state.CompareAndSwap(int32(from), int32(to))
}

// settle moves the session to a terminal state exactly once.
func (s *Session) settle(to State, err error) {
	for {
		cur := State(s.state.Load())
		if cur.Terminal() {
			return
		}
		if s.state.CompareAndSwap(int32(cur), int32(to)) {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			if err != nil {
				slog.Debug("transcribe: session settled", "session", s.id,
					"state", to.String(), "error", err)
			}
			return
		}
	}
}

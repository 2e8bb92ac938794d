// Package wsasr is a streaming speech provider over a websocket endpoint.
// The client sends a JSON start frame, streams raw little-endian PCM as
// binary frames, and receives JSON transcript frames until the server
// marks one final.
package wsasr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/charice-projects/omnivoice/pkg/transcribe"
)

// Handler is a websocket ASR provider that implements the
// transcribe.Provider interface.
type Handler struct {
	endpoint string
	token    string
	dialer   *websocket.Dialer
}

var _ transcribe.Provider = (*Handler)(nil)

// Option configures the Handler.
type Option func(*Handler)

// WithToken sets the bearer token sent on the websocket handshake.
func WithToken(token string) Option {
	return func(h *Handler) { h.token = token }
}

// WithDialer sets a custom websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(h *Handler) { h.dialer = d }
}

// New creates a websocket ASR handler for the given endpoint, e.g.
// "wss://asr.example.com/v1/stream".
func New(endpoint string, opts ...Option) *Handler {
	h := &Handler{
		endpoint: endpoint,
		dialer:   websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// startFrame opens a recognition stream.
type startFrame struct {
	Type       string `json:"type"`
	Format     string `json:"format"`
	SampleRate int    `json:"sample_rate"`
	Bits       int    `json:"bits"`
	Channels   int    `json:"channels"`
	Language   string `json:"language,omitempty"`
	Partials   bool   `json:"partials"`
}

// finishFrame signals the end of the utterance audio.
type finishFrame struct {
	Type string `json:"type"`
}

// serverFrame is one message from the recognizer.
type serverFrame struct {
	Type         string   `json:"type"`
	Text         string   `json:"text,omitempty"`
	Confidence   float64  `json:"confidence,omitempty"`
	IsFinal      bool     `json:"is_final,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
	Code         int      `json:"code,omitempty"`
	Message      string   `json:"message,omitempty"`
}

// TranscribeStream opens the websocket and starts the send/receive loops.
func (h *Handler) TranscribeStream(ctx context.Context, name string, opts transcribe.Options, src transcribe.Source) (transcribe.Stream, error) {
	var header http.Header
	if h.token != "" {
		header = http.Header{"Authorization": {"Bearer " + h.token}}
	}
	conn, _, err := h.dialer.DialContext(ctx, h.endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("wsasr: connect: %w", err)
	}

	format := src.Format()
	start := startFrame{
		Type:       "start",
		Format:     "pcm",
		SampleRate: format.SampleRate(),
		Bits:       16,
		Channels:   1,
		Language:   opts.Language,
		Partials:   opts.Partials,
	}
	if err := conn.WriteJSON(start); err != nil {
		conn.Close()
		return nil, fmt.Errorf("wsasr: send start: %w", err)
	}

	s := &stream{
		ctx:      ctx,
		conn:     conn,
		src:      src,
		resultCh: make(chan transcribe.Transcript, 100),
		errCh:    make(chan error, 1),
		closeCh:  make(chan struct{}),
	}
	go s.sendLoop()
	go s.recvLoop()
	return s, nil
}

type stream struct {
	ctx       context.Context
	conn      *websocket.Conn
	src       transcribe.Source
	resultCh  chan transcribe.Transcript
	errCh     chan error
	closeCh   chan struct{}
	closeOnce sync.Once
	sawFinal  bool
}

// Next returns the next transcript, io.EOF after the final one.
func (s *stream) Next() (transcribe.Transcript, error) {
	if s.sawFinal {
		return transcribe.Transcript{}, io.EOF
	}
	select {
	case tr, ok := <-s.resultCh:
		if !ok {
			return transcribe.Transcript{}, io.EOF
		}
		if tr.IsFinal {
			s.sawFinal = true
		}
		return tr, nil
	case err := <-s.errCh:
		return transcribe.Transcript{}, err
	case <-s.closeCh:
		return transcribe.Transcript{}, io.EOF
	case <-s.ctx.Done():
		return transcribe.Transcript{}, s.ctx.Err()
	}
}

func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closeCh)
		s.conn.Close()
	})
	return nil
}

// sendLoop drains the audio source into binary frames, then sends the
// finish command.
func (s *stream) sendLoop() {
	var buf bytes.Buffer
	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		frame, err := s.src.ReadFrame(s.ctx)
		if errors.Is(err, io.EOF) {
			if err := s.conn.WriteJSON(finishFrame{Type: "finish"}); err != nil {
				s.fail(fmt.Errorf("wsasr: send finish: %w", err))
			}
			return
		}
		if err != nil {
			s.fail(fmt.Errorf("wsasr: read audio: %w", err))
			return
		}

		buf.Reset()
		if _, err := frame.WriteTo(&buf); err != nil {
			s.fail(fmt.Errorf("wsasr: encode frame: %w", err))
			return
		}
		if err := s.conn.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
			s.fail(fmt.Errorf("wsasr: send audio: %w", err))
			return
		}
	}
}

// recvLoop parses server frames into transcripts.
func (s *stream) recvLoop() {
	defer close(s.resultCh)

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.fail(fmt.Errorf("wsasr: read message: %w", err))
			}
			return
		}

		var frame serverFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			// Not a transcript frame, skip.
			continue
		}

		switch frame.Type {
		case "transcript":
			tr := transcribe.Transcript{
				Text:         frame.Text,
				Confidence:   frame.Confidence,
				IsFinal:      frame.IsFinal,
				Alternatives: frame.Alternatives,
			}
			select {
			case s.resultCh <- tr:
			case <-s.closeCh:
				return
			}
			if frame.IsFinal {
				return
			}
		case "error":
			s.fail(fmt.Errorf("wsasr: server error %d: %s", frame.Code, frame.Message))
			return
		}
	}
}

func (s *stream) fail(err error) {
	select {
	case s.errCh <- err:
	default:
	}
}

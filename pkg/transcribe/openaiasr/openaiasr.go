// Package openaiasr is a whole-utterance speech provider backed by the
// OpenAI transcription API. It buffers the full utterance, wraps it in a
// WAV container, and returns a single final transcript; there are no
// partials. Useful as a fallback when the streaming endpoint is down.
package openaiasr

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go"

	"github.com/charice-projects/omnivoice/pkg/audio/pcm"
	"github.com/charice-projects/omnivoice/pkg/transcribe"
)

// DefaultModel is the transcription model used when none is configured.
const DefaultModel = openai.AudioModelWhisper1

// Handler is an OpenAI transcription provider that implements the
// transcribe.Provider interface.
type Handler struct {
	client *openai.Client
	model  openai.AudioModel
}

var _ transcribe.Provider = (*Handler)(nil)

// Option configures the Handler.
type Option func(*Handler)

// WithModel overrides the transcription model.
func WithModel(model openai.AudioModel) Option {
	return func(h *Handler) { h.model = model }
}

// New creates a handler on an existing client.
func New(client *openai.Client, opts ...Option) *Handler {
	h := &Handler{client: client, model: DefaultModel}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// TranscribeStream buffers the whole utterance and performs one API call.
func (h *Handler) TranscribeStream(ctx context.Context, name string, opts transcribe.Options, src transcribe.Source) (transcribe.Stream, error) {
	audio, err := collect(ctx, src)
	if err != nil {
		return nil, err
	}
	wav := wavContainer(audio, src.Format())

	params := openai.AudioTranscriptionNewParams{
		File:  bytes.NewReader(wav),
		Model: h.model,
	}
	if lang := whisperLanguage(opts.Language); lang != "" {
		params.Language = openai.String(lang)
	}

	resp, err := h.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openaiasr: transcribe: %w", err)
	}

	return &singleStream{
		transcript: transcribe.Transcript{
			Text:       resp.Text,
			Confidence: 1.0,
			IsFinal:    true,
		},
	}, nil
}

// collect drains the source into one little-endian PCM buffer.
func collect(ctx context.Context, src transcribe.Source) ([]byte, error) {
	var buf bytes.Buffer
	for {
		frame, err := src.ReadFrame(ctx)
		if errors.Is(err, io.EOF) {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, fmt.Errorf("openaiasr: read audio: %w", err)
		}
		if _, err := frame.WriteTo(&buf); err != nil {
			return nil, fmt.Errorf("openaiasr: encode frame: %w", err)
		}
	}
}

// whisperLanguage maps a BCP 47 tag to the ISO-639-1 code the API expects.
func whisperLanguage(tag string) string {
	base, _, _ := strings.Cut(tag, "-")
	return strings.ToLower(base)
}

// wavContainer wraps raw 16-bit mono PCM in a minimal RIFF/WAVE header.
func wavContainer(data []byte, f pcm.Format) []byte {
	const headerSize = 44
	out := make([]byte, headerSize+len(data))

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(data)))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(f.Channels()))
	binary.LittleEndian.PutUint32(out[24:28], uint32(f.SampleRate()))
	binary.LittleEndian.PutUint32(out[28:32], uint32(f.BytesRate()))
	binary.LittleEndian.PutUint16(out[32:34], uint16(f.Channels()*f.Depth()/8))
	binary.LittleEndian.PutUint16(out[34:36], uint16(f.Depth()))

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(data)))
	copy(out[headerSize:], data)
	return out
}

// singleStream yields exactly one final transcript.
type singleStream struct {
	transcript transcribe.Transcript
	delivered  bool
}

func (s *singleStream) Next() (transcribe.Transcript, error) {
	if s.delivered {
		return transcribe.Transcript{}, io.EOF
	}
	s.delivered = true
	return s.transcript, nil
}

func (s *singleStream) Close() error { return nil }

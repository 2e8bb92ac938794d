package openaiasr

import (
	"encoding/binary"
	"testing"

	"github.com/charice-projects/omnivoice/pkg/audio/pcm"
)

func TestWavContainer(t *testing.T) {
	data := make([]byte, 320)
	wav := wavContainer(data, pcm.L16Mono16K)

	if len(wav) != 44+len(data) {
		t.Fatalf("len = %d, want %d", len(wav), 44+len(data))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("bad RIFF header")
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 16000 {
		t.Errorf("sample rate = %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint16(wav[22:24]); got != 1 {
		t.Errorf("channels = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint16(wav[34:36]); got != 16 {
		t.Errorf("bit depth = %d, want 16", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(data)) {
		t.Errorf("data size = %d, want %d", got, len(data))
	}
}

func TestWhisperLanguage(t *testing.T) {
	tests := []struct{ in, want string }{
		{"zh-CN", "zh"},
		{"en-US", "en"},
		{"EN", "en"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := whisperLanguage(tt.in); got != tt.want {
			t.Errorf("whisperLanguage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

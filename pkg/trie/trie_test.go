package trie

import (
	"errors"
	"testing"
)

func TestTrie_ExactRoutes(t *testing.T) {
	tr := New[string]()
	routes := map[string]string{
		"asr/openai":    "whisper",
		"asr/ws":        "websocket",
		"tts/console":   "console",
		"tts/portaudio": "speaker",
	}
	for pattern, v := range routes {
		if err := tr.Add(pattern, v); err != nil {
			t.Fatalf("Add(%s): %v", pattern, err)
		}
	}
	if tr.Len() != 4 {
		t.Errorf("Len = %d, want 4", tr.Len())
	}

	for pattern, want := range routes {
		got, ok := tr.Lookup(pattern)
		if !ok || got != want {
			t.Errorf("Lookup(%s) = %q, %v; want %q", pattern, got, ok, want)
		}
	}

	if _, ok := tr.Lookup("asr/missing"); ok {
		t.Error("Lookup of unregistered name should fail")
	}
	if _, ok := tr.Lookup("asr"); ok {
		t.Error("Lookup of interior node should fail")
	}
}

func TestTrie_AddReplaces(t *testing.T) {
	tr := New[int]()
	tr.Add("tts/console", 1)
	tr.Add("tts/console", 2)

	if got, _ := tr.Lookup("tts/console"); got != 2 {
		t.Errorf("got %d, want 2", got)
	}
	if tr.Len() != 1 {
		t.Errorf("Len = %d, want 1", tr.Len())
	}
}

func TestTrie_Wildcards(t *testing.T) {
	tr := New[string]()
	tr.Add("asr/openai", "exact")
	tr.Add("asr/+", "single")
	tr.Add("asr/#", "rest")
	tr.Add("#", "root")

	tests := []struct {
		path    string
		pattern string
		want    string
	}{
		{"asr/openai", "asr/openai", "exact"},
		{"asr/deepgram", "asr/+", "single"},
		{"asr/ws/cloud", "asr/#", "rest"},
		{"tts/console", "#", "root"},
	}
	for _, tt := range tests {
		pattern, got, ok := tr.Match(tt.path)
		if !ok {
			t.Errorf("Match(%s): no match", tt.path)
			continue
		}
		if got != tt.want || pattern != tt.pattern {
			t.Errorf("Match(%s) = %q via %q, want %q via %q",
				tt.path, got, pattern, tt.want, tt.pattern)
		}
	}
}

func TestTrie_PlusMatchesExactlyOneSegment(t *testing.T) {
	tr := New[string]()
	tr.Add("tts/+", "v")

	if _, ok := tr.Lookup("tts"); ok {
		t.Error("'+' must not match zero segments")
	}
	if _, ok := tr.Lookup("tts/a/b"); ok {
		t.Error("'+' must not match two segments")
	}
}

func TestTrie_HashMustBeLast(t *testing.T) {
	tr := New[string]()
	if err := tr.Add("asr/#/cloud", "v"); !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("got %v, want ErrInvalidPattern", err)
	}
}

func TestTrie_InterfaceValues(t *testing.T) {
	type handler interface{ Name() string }
	tr := New[handler]()
	tr.Add("tts/silent", nil)

	// A registered nil is still found; callers decide what nil means.
	got, ok := tr.Lookup("tts/silent")
	if !ok {
		t.Fatal("nil value should still be registered")
	}
	if got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

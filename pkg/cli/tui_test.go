package cli

import (
	"strings"
	"testing"
)

func testFrame() Frame {
	return Frame{
		Styles: NewStyles(DefaultTheme),
		Title:  "omnivoice",
		Status: "listening",
		Sections: []Section{
			{Label: "Heard", Content: func() []string { return []string{"call mom"} }},
			{Label: "Result", Content: func() []string { return nil }},
		},
		Help: "ctrl+c to quit",
	}
}

func TestFrame_Render(t *testing.T) {
	out := testFrame().Render(60, 16)
	lines := strings.Split(out, "\n")

	// Top border, title, spacer, two sections with label rows, bottom
	// border, help line.
	if len(lines) < 8 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	for _, want := range []string{"omnivoice", "[listening]", "Heard", "call mom", "Result", "ctrl+c to quit"} {
		if !strings.Contains(out, want) {
			t.Errorf("frame missing %q", want)
		}
	}
	if !strings.Contains(lines[0], "╭") || !strings.Contains(lines[len(lines)-2], "╰") {
		t.Error("frame borders missing")
	}
}

func TestFrame_RenderZeroSize(t *testing.T) {
	if got := testFrame().Render(0, 0); got != "Loading..." {
		t.Errorf("got %q", got)
	}
}

func TestFrame_LongContentClipped(t *testing.T) {
	long := strings.Repeat("transcription ", 20)
	f := Frame{
		Styles:   NewStyles(DefaultTheme),
		Title:    "t",
		Sections: []Section{{Label: "Heard", Content: func() []string { return []string{long} }}},
	}
	out := f.Render(40, 10)
	if !strings.Contains(out, "…") {
		t.Error("overlong content not clipped")
	}
}

func TestClipCell(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"hello", 3, "hel"},
		{"hello", 10, "hello"},
		{"打电话给妈妈", 4, "打电"},
		{"", 5, ""},
	}
	for _, tt := range tests {
		if got := clipCell(tt.in, tt.width); got != tt.want {
			t.Errorf("clipCell(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

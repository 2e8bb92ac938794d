package commands

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charice-projects/omnivoice/pkg/cli"
	"github.com/charice-projects/omnivoice/pkg/feedback"
	"github.com/charice-projects/omnivoice/pkg/pipeline"
)

const (
	viewWidth  = 72
	viewHeight = 22
)

// statusView renders the live listening state. With framing disabled it
// prints plain lines instead.
type statusView struct {
	framed bool
	styles cli.Styles
	logs   *cli.LogWriter

	mu         sync.Mutex
	state      string
	transcript string
	result     string
	level      string
	spoken     []string
}

func newStatusView(framed bool) *statusView {
	return &statusView{
		framed: framed,
		styles: cli.NewStyles(cli.DefaultTheme),
		logs:   cli.NewLogWriter(4),
	}
}

// LogOutput is where slog should write while the framed view owns the
// terminal; stderr writes would corrupt the frame.
func (v *statusView) LogOutput() *cli.LogWriter { return v.logs }

func (v *statusView) setState(state string) {
	v.mu.Lock()
	v.state = state
	v.mu.Unlock()
	v.redraw()
}

func (v *statusView) setTranscript(text string) {
	v.mu.Lock()
	v.transcript = text
	v.mu.Unlock()
	v.redraw()
}

func (v *statusView) setResult(res pipeline.Result) {
	v.mu.Lock()
	switch res.Kind {
	case pipeline.KindExecuted:
		v.result = res.Output
	case pipeline.KindNoMatch:
		v.result = "no match"
	case pipeline.KindFailed:
		v.result = fmt.Sprintf("failed: %v", res.Err)
	default:
		v.result = fmt.Sprintf("%s: %s", res.Kind, res.Reason)
	}
	v.mu.Unlock()
	v.redraw()
}

func (v *statusView) setLevel(rms float64, dropped uint64) {
	v.mu.Lock()
	bar := int(rms / 2000)
	if bar > 20 {
		bar = 20
	}
	v.level = strings.Repeat("▌", bar)
	if dropped > 0 {
		v.level += fmt.Sprintf(" (dropped %d)", dropped)
	}
	v.mu.Unlock()
	if v.framed {
		v.redraw()
	}
}

func (v *statusView) say(text string) {
	v.mu.Lock()
	v.spoken = append(v.spoken, text)
	if len(v.spoken) > 4 {
		v.spoken = v.spoken[len(v.spoken)-4:]
	}
	v.mu.Unlock()
	if v.framed {
		v.redraw()
	} else {
		fmt.Println(v.styles.Label.Render("🔊"), text)
	}
}

func (v *statusView) redraw() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.framed {
		if v.state != "" {
			fmt.Println(v.styles.Help.Render("state: " + v.state))
		}
		return
	}

	frame := cli.Frame{
		Styles: v.styles,
		Title:  "omnivoice",
		Status: v.state,
		Sections: []cli.Section{
			{Label: "Heard", Content: contentLines(v.transcript, v.level)},
			{Label: "Result", Content: contentLines(v.result)},
			{Label: "Spoken", Content: contentLines(v.spoken...)},
			{Label: "Log", Content: contentLines(v.logs.Lines()...)},
		},
		Help: "ctrl+c to quit",
	}
	// Home the cursor and repaint in place.
	fmt.Print("\033[H\033[2J" + frame.Render(viewWidth, viewHeight))
}

func contentLines(lines ...string) func() []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return func() []string { return out }
}

// consoleSpeaker is the terminal TTS stand-in: speech prints instead of
// playing. It keeps the announcer's queueing and serialization observable
// without an audio device.
type consoleSpeaker struct {
	view *statusView
}

func (s consoleSpeaker) Speak(_ context.Context, text, _ string) error {
	s.view.say(text)
	return nil
}

func (s consoleSpeaker) PlayTone(_ context.Context, tone feedback.Tone) error {
	if tone != feedback.ToneNone {
		s.view.say("[" + string(tone) + "]")
	}
	return nil
}

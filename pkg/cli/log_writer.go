package cli

import (
	"strings"

	"github.com/charice-projects/omnivoice/pkg/buffer"
)

// LogWriter is an io.Writer that captures log output for display inside a
// framed view, where writing to stderr would corrupt the frame. It keeps
// the most recent lines in a ring and signals arrivals on a channel.
type LogWriter struct {
	lines *buffer.Ring[string]
	ch    chan string
}

// NewLogWriter creates a log writer keeping at most maxLines lines.
func NewLogWriter(maxLines int) *LogWriter {
	return &LogWriter{
		lines: buffer.NewRing[string](maxLines),
		ch:    make(chan string, 100),
	}
}

// Write splits p on newlines and records each line. It never blocks; the
// notification channel drops when full.
func (w *LogWriter) Write(p []byte) (int, error) {
	text := strings.TrimRight(string(p), "\n")
	for _, line := range strings.Split(text, "\n") {
		w.lines.Add(line)
		select {
		case w.ch <- line:
		default:
		}
	}
	return len(p), nil
}

// Lines returns the retained lines, oldest first.
func (w *LogWriter) Lines() []string {
	return w.lines.Snapshot()
}

// Channel signals each captured line. Receivers that fall behind miss
// notifications but can still catch up through Lines.
func (w *LogWriter) Channel() <-chan string {
	return w.ch
}

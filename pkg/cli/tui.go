package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the color pair the status frame is drawn with.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
}

var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles are the lipgloss styles derived from a Theme.
type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Border lipgloss.Style
	Help   lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		Label:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Border: lipgloss.NewStyle().Foreground(t.Primary),
		Help:   lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// Section is one labeled region of the frame. Content is called at
// render time so the frame always shows current state.
type Section struct {
	Label   string
	Content func() []string
}

// Frame draws the live listening display: a bordered box with a title
// row, labeled sections, and a help line underneath.
type Frame struct {
	Styles   Styles
	Title    string
	Status   string
	Sections []Section
	Help     string
}

// Render draws the frame into a width x height cell and returns it as
// one string. A zero dimension renders a placeholder.
func (f Frame) Render(width, height int) string {
	if width == 0 || height == 0 {
		return "Loading..."
	}

	var b strings.Builder
	f.renderHeader(&b, width)

	// Rows left for section content after the header (3 rows), one
	// label row per section, the bottom border, and the help line.
	n := max(len(f.Sections), 1)
	rows := max((height-5-n)/n, 2)
	for _, sec := range f.Sections {
		f.renderSection(&b, sec, rows, width)
	}

	b.WriteString(f.Styles.Border.Render("╰" + strings.Repeat("─", width-2) + "╯"))
	b.WriteString("\n")
	b.WriteString(f.Styles.Help.Render(f.Help))
	return b.String()
}

// renderHeader writes the top border, the title row with the status
// flushed left beside it, and one blank spacer row.
func (f Frame) renderHeader(b *strings.Builder, width int) {
	edge := f.Styles.Border
	b.WriteString(edge.Render("╭" + strings.Repeat("─", width-2) + "╮"))
	b.WriteString("\n")

	title := f.Styles.Title.Render(f.Title)
	status := f.Styles.Help.Render("[" + f.Status + "]")
	gap := max(0, width-5-lipgloss.Width(title)-lipgloss.Width(status))
	b.WriteString(edge.Render("│") + " " + title + " " + status +
		strings.Repeat(" ", gap) + " " + edge.Render("│"))
	b.WriteString("\n")

	b.WriteString(edge.Render("│") + strings.Repeat(" ", width-2) + edge.Render("│"))
	b.WriteString("\n")
}

// renderSection writes the label separator and exactly rows content
// lines, showing the tail of the content when it overflows.
func (f Frame) renderSection(b *strings.Builder, sec Section, rows, width int) {
	edge := f.Styles.Border
	label := f.Styles.Label.Render(sec.Label)
	pad := max(0, width-3-lipgloss.Width(label))
	b.WriteString(edge.Render("├─") + label + edge.Render(strings.Repeat("─", pad)+"┤"))
	b.WriteString("\n")

	content := sec.Content()
	if len(content) > rows {
		content = content[len(content)-rows:]
	}
	innerWidth := width - 4
	for i := 0; i < rows; i++ {
		text := ""
		if i < len(content) {
			text = content[i]
		}
		if innerWidth > 1 && lipgloss.Width(text) > innerWidth {
			text = clipCell(text, innerWidth-1) + "…"
		}
		b.WriteString(edge.Render("│") + " " + text +
			strings.Repeat(" ", max(0, innerWidth-lipgloss.Width(text))) + " " + edge.Render("│"))
		b.WriteString("\n")
	}
}

// clipCell cuts s to at most width terminal cells, counting wide runes
// by their display width.
func clipCell(s string, width int) string {
	used := 0
	for i, r := range s {
		w := lipgloss.Width(string(r))
		if used+w > width {
			return s[:i]
		}
		used += w
	}
	return s
}

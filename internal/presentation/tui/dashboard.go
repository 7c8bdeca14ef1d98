package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/aretw0/tubelife/pkg/domain"
)

const defaultWidth = 80

var sparks = []rune("▁▂▃▄▅▆▇█")

// Dashboard renders engine snapshots as a text panel.
type Dashboard struct {
	Width   int
	Limits  domain.Limits
	LogRows int
}

// NewDashboard sizes the panel to stdout when it is a terminal.
func NewDashboard(limits domain.Limits) *Dashboard {
	return &Dashboard{Width: TerminalWidth(os.Stdout), Limits: limits, LogRows: 8}
}

// TerminalWidth returns the column count of f, or 80 when f is not a terminal.
func TerminalWidth(f *os.File) int {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return defaultWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

// Render draws one frame.
func (d *Dashboard) Render(s domain.Snapshot) string {
	width := d.Width
	if width <= 0 {
		width = defaultWidth
	}

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		StateBadge(s.State), " ",
		BoldStyle.Render(s.Sequence.Name), " ",
		MutedStyle.Render(fmt.Sprintf("cycle %d/%d", s.Cycles.Current, s.Cycles.Total)),
	)
	if s.Locked {
		header += " " + WarnStyle.Render("locked")
	}

	sparkWidth := width - 16
	if sparkWidth < 10 {
		sparkWidth = 10
	}

	var b strings.Builder
	b.WriteString(header + "\n\n")
	b.WriteString(d.axisTable(s) + "\n")
	b.WriteString("A " + AccentStyle.Render(Sparkline(s.HistoryA, d.Limits, sparkWidth)) + "\n")
	b.WriteString("B " + AccentStyle.Render(Sparkline(s.HistoryB, d.Limits, sparkWidth)) + "\n\n")
	b.WriteString(d.sequenceTable(s) + "\n")
	b.WriteString(d.logLines(s))

	return panelStyle.Width(width - 2).Render(strings.TrimRight(b.String(), "\n"))
}

func (d *Dashboard) axisTable(s domain.Snapshot) string {
	row := func(name string, a domain.ActuatorState) []string {
		return []string{
			name,
			fmt.Sprintf("%.2f", a.Pos),
			fmt.Sprintf("%.2f", a.Target),
			fmt.Sprintf("%.1f", a.Force),
			fmt.Sprintf("%.1f", a.ForceOut),
		}
	}
	return table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(r, c int) lipgloss.Style {
			if r == table.HeaderRow {
				return MutedStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("AXIS", "POS", "TARGET", "FORCE", "OUT").
		Rows(row("A", s.A), row("B", s.B)).
		String()
}

func (d *Dashboard) sequenceTable(s domain.Snapshot) string {
	rows := make([][]string, 0, len(s.Sequence.Steps))
	for i, step := range s.Sequence.Steps {
		marker := " "
		if i == s.Cursor {
			marker = "▶"
		}
		rows = append(rows, append([]string{marker, fmt.Sprint(i + 1)}, StepColumns(step)...))
	}
	cursor := s.Cursor
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(faint)).
		StyleFunc(func(r, c int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case r == table.HeaderRow:
				return base.Foreground(cyan).Bold(true)
			case r == cursor:
				return base.Foreground(green).Bold(true)
			default:
				return base
			}
		}).
		Headers("", "#", "TYPE", "POS", "SPEED", "FORCE", "TIME").
		Rows(rows...).
		String()
}

func (d *Dashboard) logLines(s domain.Snapshot) string {
	n := d.LogRows
	if n <= 0 || n > len(s.Log) {
		n = len(s.Log)
	}
	var b strings.Builder
	for _, e := range s.Log[:n] {
		b.WriteString(MutedStyle.Render(e.Timestamp.Format("15:04:05")) + " ")
		b.WriteString(categoryStyle(e.Category).Render(e.Message) + "\n")
	}
	return b.String()
}

// StepColumns returns type, pos, speed, force and time cells for a step.
func StepColumns(step domain.Step) []string {
	switch v := step.(type) {
	case domain.Move:
		return []string{string(v.Type()), fmt.Sprintf("%g", v.Pos), fmt.Sprintf("%g", v.Speed), fmt.Sprintf("%g", v.Force), ""}
	case domain.Delay:
		return []string{string(v.Type()), "", "", "", fmt.Sprintf("%gs", v.Time)}
	default:
		return []string{"?", "", "", "", ""}
	}
}

// Sparkline maps samples onto block glyphs across the stroke range,
// keeping the newest width samples.
func Sparkline(samples []float64, lim domain.Limits, width int) string {
	if width > 0 && len(samples) > width {
		samples = samples[len(samples)-width:]
	}
	span := lim.StrokeMax - lim.StrokeMin
	out := make([]rune, len(samples))
	for i, v := range samples {
		level := 0
		if span > 0 {
			level = int((v - lim.StrokeMin) / span * float64(len(sparks)-1))
		}
		level = max(0, min(level, len(sparks)-1))
		out[i] = sparks[level]
	}
	return string(out)
}

// Live redraws frames in place on a terminal.
type Live struct {
	out *termenv.Output
	d   *Dashboard
}

// NewLive returns a Live writer drawing d onto w.
func NewLive(w io.Writer, d *Dashboard) *Live {
	return &Live{out: termenv.NewOutput(w), d: d}
}

// Draw clears the screen and writes the frame for s.
func (l *Live) Draw(s domain.Snapshot) {
	l.out.ClearScreen()
	l.out.MoveCursor(1, 1)
	fmt.Fprintln(l.out, l.d.Render(s))
}

// Close restores the cursor.
func (l *Live) Close() {
	l.out.ShowCursor()
}

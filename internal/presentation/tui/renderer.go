package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/aretw0/tubelife/pkg/domain"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(0),
	)

	return func(markdown string) (string, error) {
		if err != nil {
			return markdown, err
		}
		return r.Render(markdown)
	}
}

// SequenceMarkdown describes a sequence as a markdown document.
func SequenceMarkdown(seq domain.Sequence) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", seq.Name)
	if len(seq.Steps) == 0 {
		b.WriteString("_No steps._\n")
		return b.String()
	}

	b.WriteString("| # | ID | Type | Pos (mm) | Speed (%) | Force (%) | Time (s) |\n")
	b.WriteString("|---|----|------|----------|-----------|-----------|----------|\n")
	for i, step := range seq.Steps {
		cols := StepColumns(step)
		fmt.Fprintf(&b, "| %d | `%s` | %s | %s | %s | %s | %s |\n",
			i+1, step.StepID(), cols[0], cols[1], cols[2], cols[3], strings.TrimSuffix(cols[4], "s"))
	}

	var total float64
	for _, step := range seq.Steps {
		if d, ok := step.(domain.Delay); ok {
			total += d.Time
		}
	}
	fmt.Fprintf(&b, "\n%d steps, %gs of programmed delay per cycle.\n", len(seq.Steps), total)
	return b.String()
}

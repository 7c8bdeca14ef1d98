package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the tubelife banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	// Teal to green, one color per line.
	lines := []struct {
		text  string
		color string
	}{
		{" _         _          _ _  __     ", "#22d3ee"},
		{"| |_ _   _| |__   ___| (_)/ _| ___", "#2dd4bf"},
		{"| __| | | | '_ \\ / _ \\ | | |_ / _ \\", "#34d399"},
		{"| |_| |_| | |_) |  __/ | |  _|  __/", "#4ade80"},
		{" \\__|\\__,_|_.__/ \\___|_|_|_|  \\___|", "#a3e635"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  tube lifetime rig v"+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}

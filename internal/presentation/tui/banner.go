package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the clapper banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	// Gradient from indigo to rose, one color per row
	rows := []struct {
		text  string
		color string
	}{
		{"   ___ _                            ", "#818cf8"},
		{"  / __| |__ _ _ __ _ __  ___ _ _    ", "#a78bfa"},
		{" | (__| / _` | '_ \\ '_ \\/ -_) '_|   ", "#e879f9"},
		{"  \\___|_\\__,_| .__/ .__/\\___|_|     ", "#f472b6"},
		{"             |_|  |_|               ", "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, r := range rows {
		fmt.Fprintln(w, termenv.String(r.text).Foreground(p.Color(r.color)))
	}
	fmt.Fprintf(w, "  %s\n\n", termenv.String("v"+strings.TrimSpace(version)).Faint())
}

package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// styles renders terminal styling for one output stream. Streams that are
// not terminals get plain text.
type styles struct {
	bold    lipgloss.Style
	dim     lipgloss.Style
	warning lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		bold:    r.NewStyle().Bold(true),
		dim:     r.NewStyle().Foreground(lipgloss.Color("8")),             // Gray
		warning: r.NewStyle().Foreground(lipgloss.Color("11")).Bold(true), // Yellow
	}
}

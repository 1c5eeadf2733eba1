// Package ui provides the terminal styling for minimap-render's diagnostics.
package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Semantic colors
var (
	Destructive = lipgloss.Color("#e53935") // Red
	Warning     = lipgloss.Color("#FFC107") // Yellow
	Success     = lipgloss.Color("#8BC34A") // Lime Green
)

// Styles renders diagnostics for one output stream. Colors are only
// emitted when the stream is a terminal that supports them.
type Styles struct {
	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
}

// NewStyles builds styles bound to w's color profile.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Error:   r.NewStyle().Foreground(Destructive).Bold(true),
		Warning: r.NewStyle().Foreground(Warning),
		Success: r.NewStyle().Foreground(Success),
	}
}

// Errorf writes one styled error line to w.
func (s Styles) Errorf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, s.Error.Render(fmt.Sprintf(format, args...)))
}

// Warnf writes one styled warning line to w.
func (s Styles) Warnf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, s.Warning.Render(fmt.Sprintf(format, args...)))
}

// Successf writes one styled success line to w.
func (s Styles) Successf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, s.Success.Render(fmt.Sprintf(format, args...)))
}

package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Header is a command banner with a title, the command line and its
// parameters.
type Header struct {
	Title   string // e.g. "TLS REPORT SERVER"
	Command string // e.g. "tlsprobe tls_http_server"
	Params  Fields
	Width   int
}

// NewHeader creates a header sized to the terminal.
func NewHeader(title, command string, params Fields) *Header {
	return &Header{
		Title:   title,
		Command: command,
		Params:  params,
		Width:   GetTerminalWidth(),
	}
}

// SetWidth sets the rendering width
func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

// Render returns the styled header as a string
func (h *Header) Render() string {
	width := clampWidth(h.Width)

	title := HeaderTitleStyle.Render(strings.ToUpper(h.Title))
	command := HeaderCommandStyle.Render(h.Command)
	content := lipgloss.JoinVertical(lipgloss.Left, title, command)

	if len(h.Params) > 0 {
		dividerWidth := width - 6
		divider := lipgloss.NewStyle().
			Foreground(PrimaryColor).
			PaddingLeft(2).
			Render(strings.Repeat("─", dividerWidth))
		content = lipgloss.JoinVertical(lipgloss.Left, content, divider, h.Params.render(""))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2).
		Render(content)
}

// String implements fmt.Stringer
func (h *Header) String() string {
	return h.Render()
}

package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // headers, borders
	SuccessColor = lipgloss.Color("#43BF6D")
	ErrorColor   = lipgloss.Color("#FF5555")
	MutedColor   = lipgloss.Color("#626262")
	TextColor    = lipgloss.Color("#FFFFFF")
)

// Layout constants
const (
	MinTerminalWidth = 60
	MaxContentWidth  = 100
)

var (
	HeaderTitleStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				Bold(true).
				PaddingLeft(2)

	HeaderCommandStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				PaddingLeft(2)

	ParamKeyStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			PaddingLeft(2)

	ParamValueStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	SuccessTitleStyle = lipgloss.NewStyle().
				Foreground(SuccessColor).
				Bold(true)

	ErrorTitleStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	ErrorMessageStyle = lipgloss.NewStyle().
				Foreground(ErrorColor)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)
)

const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
)

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// GetTerminalWidth returns the current terminal width clamped to
// [MinTerminalWidth, MaxContentWidth].
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// clampWidth keeps explicit widths inside the supported range.
func clampWidth(width int) int {
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

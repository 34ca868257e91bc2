package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Result is a boxed success or failure summary.
type Result struct {
	Success bool
	Title   string
	Details Fields
	Error   error
	Width   int
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details Fields) *Result {
	return &Result{
		Success: true,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error) *Result {
	return &Result{
		Title: title,
		Error: err,
		Width: GetTerminalWidth(),
	}
}

// SetWidth sets the rendering width
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	color, titleStyle, marker, label := SuccessColor, SuccessTitleStyle, SuccessMarker, "SUCCESS"
	if !r.Success {
		color, titleStyle, marker, label = ErrorColor, ErrorTitleStyle, FailureMarker, "FAILED"
	}

	lines := []string{
		"",
		titleStyle.Render(fmt.Sprintf(" %s  %s  ─  %s", marker, label, r.Title)),
		"",
	}
	if r.Error != nil {
		lines = append(lines, ErrorMessageStyle.Render(" Error: "+r.Error.Error()), "")
	}
	if len(r.Details) > 0 {
		lines = append(lines, r.Details.render(""), "")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(color).
		Width(clampWidth(r.Width) - 2).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}

package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Field is one key/value line of a Header or Result. Fields keep the order
// they were added in.
type Field struct {
	Key   string
	Value string
}

// Fields is an ordered list of key/value lines.
type Fields []Field

// Add appends a field and returns the list for chaining.
func (f Fields) Add(key, value string) Fields {
	return append(f, Field{Key: key, Value: value})
}

// render aligns values on the longest key.
func (f Fields) render(indent string) string {
	keyWidth := 0
	for _, field := range f {
		if n := lipgloss.Width(field.Key) + 1; n > keyWidth {
			keyWidth = n
		}
	}

	lines := make([]string, 0, len(f))
	for _, field := range f {
		key := field.Key + ":"
		pad := strings.Repeat(" ", keyWidth-lipgloss.Width(key)+1)
		lines = append(lines, ParamKeyStyle.Render(indent+key)+pad+ParamValueStyle.Render(field.Value))
	}
	return strings.Join(lines, "\n")
}

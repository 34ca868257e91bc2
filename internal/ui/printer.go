package ui

import (
	"fmt"
	"io"
	"os"
)

// Printer writes UI components to a writer. Boxes are only drawn when the
// writer is an interactive terminal; otherwise components print as plain
// "Key: Value" lines.
type Printer struct {
	out    io.Writer
	width  int
	styled bool
}

// NewPrinter creates a Printer for w. If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	styled := false
	if w == nil {
		w = os.Stdout
		styled = IsTerminal()
	}
	return &Printer{
		out:    w,
		width:  GetTerminalWidth(),
		styled: styled,
	}
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command banner
func (p *Printer) PrintHeader(title, command string, params Fields) {
	if !p.styled {
		p.Println(title)
		p.printPlain(params)
		p.Newline()
		return
	}
	p.Println(NewHeader(title, command, params).SetWidth(p.width).Render())
}

// PrintSuccess prints a success result
func (p *Printer) PrintSuccess(title string, details Fields) {
	if !p.styled {
		p.Println(SuccessMarker + " " + title)
		p.printPlain(details)
		return
	}
	p.Println(NewSuccessResult(title, details).SetWidth(p.width).Render())
}

// PrintFailure prints a failure result
func (p *Printer) PrintFailure(title string, err error) {
	if !p.styled {
		p.Println(FailureMarker + " " + title)
		if err != nil {
			p.Println("  Error: " + err.Error())
		}
		return
	}
	p.Println(NewFailureResult(title, err).SetWidth(p.width).Render())
}

// PrintFields prints aligned key/value lines
func (p *Printer) PrintFields(fields Fields) {
	if !p.styled {
		p.printPlain(fields)
		return
	}
	p.Println(fields.render(""))
}

func (p *Printer) printPlain(fields Fields) {
	for _, f := range fields {
		_, _ = fmt.Fprintf(p.out, "  %s: %s\n", f.Key, f.Value)
	}
}

package fakes

import (
	"fmt"
	"strings"

	"github.com/systmms/secretctl/internal/term"
)

// PrintedLine is one recorded printer call.
type PrintedLine struct {
	Style term.Style
	Text  string
}

// FakePrinter records report lines for assertions instead of writing to a
// terminal.
type FakePrinter struct {
	Lines []PrintedLine
}

// NewFakePrinter creates an empty printer fake.
func NewFakePrinter() *FakePrinter {
	return &FakePrinter{}
}

// Line implements term.Printer.
func (p *FakePrinter) Line(style term.Style, format string, args ...interface{}) {
	p.Lines = append(p.Lines, PrintedLine{
		Style: style,
		Text:  fmt.Sprintf(format, args...),
	})
}

// Output joins all recorded lines the way a terminal would show them.
func (p *FakePrinter) Output() string {
	var b strings.Builder
	for _, line := range p.Lines {
		b.WriteString(line.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// Styled returns the text of every line printed with the given style.
func (p *FakePrinter) Styled(style term.Style) []string {
	var out []string
	for _, line := range p.Lines {
		if line.Style == style {
			out = append(out, line.Text)
		}
	}
	return out
}

// Package term renders user-facing report lines for lifecycle commands.
//
// Unlike the logging package, which writes operational diagnostics to stderr,
// term writes the outcome lines users read and scripts parse. Commands receive
// a Printer so tests can capture output without touching os.Stdout.
package term

import (
	"fmt"
	"io"
	"os"
)

// Style selects how a report line is rendered.
type Style int

const (
	// StylePlain renders the line without decoration. Used for data output
	// such as secret listings.
	StylePlain Style = iota

	// StyleInfo marks a successful outcome (green).
	StyleInfo

	// StyleWarn marks a reportable condition that did not stop the command,
	// such as a missing namespace or secret (red).
	StyleWarn
)

// Printer is the single reporting surface for lifecycle operations. Every
// outcome a user sees goes through Line; the manager never writes to stdout
// directly.
type Printer interface {
	Line(style Style, format string, args ...interface{})
}

// ConsolePrinter writes styled lines to a terminal.
type ConsolePrinter struct {
	out     io.Writer
	noColor bool
}

// NewConsolePrinter creates a printer writing to stdout.
func NewConsolePrinter(noColor bool) *ConsolePrinter {
	return NewConsolePrinterWithWriter(os.Stdout, noColor)
}

// NewConsolePrinterWithWriter creates a printer writing to the given writer
func NewConsolePrinterWithWriter(out io.Writer, noColor bool) *ConsolePrinter {
	return &ConsolePrinter{
		out:     out,
		noColor: noColor,
	}
}

// Line renders one report line in the given style.
func (p *ConsolePrinter) Line(style Style, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if p.noColor {
		fmt.Fprintln(p.out, msg)
		return
	}
	switch style {
	case StyleInfo:
		fmt.Fprintf(p.out, "\033[32m%s\033[0m\n", msg)
	case StyleWarn:
		fmt.Fprintf(p.out, "\033[31;1m%s\033[0m\n", msg)
	default:
		fmt.Fprintln(p.out, msg)
	}
}

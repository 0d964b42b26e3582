// Package console prints the tagged progress lines a run narrates on stdout.
package console

import (
	"fmt"
	"io"
	"os"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorRed    = "\033[31m"
)

// Printer writes one tagged line per call. The zero value is not usable; use New.
type Printer struct {
	w     io.Writer
	color bool
}

// New returns a Printer writing to w. Colors are only emitted when color is set.
func New(w io.Writer, color bool) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{w: w, color: color}
}

// Discard returns a Printer that drops everything.
func Discard() *Printer { return New(io.Discard, false) }

func (p *Printer) line(color, tag, msg string, a ...any) {
	if p.color {
		fmt.Fprintf(p.w, color+tag+colorReset+" "+msg+"\n", a...)
		return
	}
	fmt.Fprintf(p.w, tag+" "+msg+"\n", a...)
}

// Step announces a pipeline stage.
func (p *Printer) Step(msg string, a ...any) { p.line(colorBlue, "[+]", msg, a...) }

// Info prints a measured value.
func (p *Printer) Info(msg string, a ...any) { p.line(colorBlue, "[i]", msg, a...) }

// Pending marks a long-running call.
func (p *Printer) Pending(msg string, a ...any) { p.line(colorBlue, "[...]", msg, a...) }

// OK reports a finished step or a result.
func (p *Printer) OK(msg string, a ...any) { p.line(colorGreen, "[✓]", msg, a...) }

// Warn reports a recoverable problem.
func (p *Printer) Warn(msg string, a ...any) { p.line(colorYellow, "[!]", msg, a...) }

// Fail reports the error that ends the run.
func (p *Printer) Fail(msg string, a ...any) { p.line(colorRed, "[X]", msg, a...) }

// Raw writes text as-is, followed by a newline.
func (p *Printer) Raw(text string) { fmt.Fprintln(p.w, text) }

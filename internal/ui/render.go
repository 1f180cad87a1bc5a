// Package ui renders command output for the terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const defaultWidth = 100

// Printer writes markdown either rendered by glamour or verbatim.
type Printer struct {
	out   io.Writer
	errw  io.Writer
	plain bool
	width int
	style string
}

// NewPrinter creates a Printer. With plain set markdown is written as is and
// errors are not styled, which is what pipes and tests want.
func NewPrinter(out, errw io.Writer, plain bool) *Printer {
	p := &Printer{out: out, errw: errw, plain: plain, width: terminalWidth(out)}
	if !plain {
		p.style = DetectGlamourStyle(50 * time.Millisecond)
	}
	return p
}

// Markdown writes md to the output.
func (p *Printer) Markdown(md string) error {
	if p.plain {
		_, err := io.WriteString(p.out, md)
		return err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(p.style),
		glamour.WithWordWrap(p.width),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	rendered, err := renderer.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	_, err = io.WriteString(p.out, rendered)
	return err
}

// Success writes a one-line confirmation.
func (p *Printer) Success(msg string) {
	if p.plain {
		fmt.Fprintln(p.out, msg)
		return
	}
	fmt.Fprintln(p.out, SuccessStyle.Render(msg))
}

// Error writes err to the error stream, wrapped to the terminal width.
func (p *Printer) Error(err error) {
	fmt.Fprintln(p.errw, FormatError(err, p.width, p.plain))
}

// FormatError renders err as "Error: ..." wrapped at width.
func FormatError(err error, width int, plain bool) string {
	msg := wordwrap.String("Error: "+err.Error(), width)
	if plain {
		return msg
	}
	lines := strings.Split(msg, "\n")
	for i, line := range lines {
		lines[i] = ErrorStyle.Render(line)
	}
	return strings.Join(lines, "\n")
}

// DetectGlamourStyle attempts to detect terminal background using termenv,
// but will respect GLAMOUR_STYLE if set to a concrete value (not "auto").
// A timeout ensures we never hang on terminals that don't respond.
func DetectGlamourStyle(timeout time.Duration) string {
	defaultStyle := "dark"

	style := os.Getenv("GLAMOUR_STYLE")
	if style != "" && style != "auto" {
		return style
	}

	ch := make(chan string, 1)
	go func() {
		out := termenv.NewOutput(os.Stdout)
		if out.HasDarkBackground() {
			ch <- "dark"
			return
		}
		ch <- "light"
	}()

	select {
	case s := <-ch:
		return s
	case <-time.After(timeout):
		return defaultStyle
	}
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

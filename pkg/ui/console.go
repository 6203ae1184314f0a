// Package ui renders user-facing output and reads interactive answers.
package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	headStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	hintStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

// Console writes styled messages to a terminal.
type Console struct {
	out io.Writer
}

// NewConsole creates a Console writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Writer returns the underlying writer.
func (c *Console) Writer() io.Writer { return c.out }

func (c *Console) line(style lipgloss.Style, format string, args ...any) {
	fmt.Fprintln(c.out, style.Render(fmt.Sprintf(format, args...)))
}

// Title prints a banner line.
func (c *Console) Title(format string, args ...any) { c.line(titleStyle, format, args...) }

// Section prints a section heading preceded by a blank line.
func (c *Console) Section(format string, args ...any) {
	fmt.Fprintln(c.out)
	c.line(headStyle, format, args...)
}

// Successf prints a success message.
func (c *Console) Successf(format string, args ...any) { c.line(okStyle, format, args...) }

// Warnf prints a warning.
func (c *Console) Warnf(format string, args ...any) { c.line(warnStyle, format, args...) }

// Errorf prints an error message.
func (c *Console) Errorf(format string, args ...any) { c.line(errStyle, format, args...) }

// Hintf prints emphasized guidance.
func (c *Console) Hintf(format string, args ...any) { c.line(hintStyle, format, args...) }

// Dimf prints de-emphasized detail.
func (c *Console) Dimf(format string, args ...any) { c.line(dimStyle, format, args...) }

// Printf prints unstyled text.
func (c *Console) Printf(format string, args ...any) { fmt.Fprintf(c.out, format, args...) }

// Println prints an unstyled line.
func (c *Console) Println(args ...any) { fmt.Fprintln(c.out, args...) }

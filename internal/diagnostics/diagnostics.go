// Package diagnostics renders labelled, source-located error and warning
// messages, and defines the typed error categories from spec §7.
package diagnostics

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/wigmorewelsh/structured-agent/internal/source"
)

// Severity distinguishes errors from advisory diagnostics (the analyzers in
// internal/analysis only ever emit Warning).
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is a single labelled message anchored to a span.
type Diagnostic struct {
	Severity Severity
	Message  string
	Label    string
	Span     source.Span
}

// ColorEnabled decides, the way the teacher's CLI does, whether to emit ANSI
// color: only when the given file descriptor is a real terminal.
func ColorEnabled(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Render formats a diagnostic as:
//
//	<severity>: <message>
//	  <file>:<line>:<col>: <source line>
//	  <caret underline beneath the span> <label>
//
// When the span's file is not in sm, only the header line is written.
func (d Diagnostic) Render(sm *source.Map, useColor bool) string {
	var sb strings.Builder

	sevColor := color.New(color.FgRed, color.Bold)
	if d.Severity == SeverityWarning {
		sevColor = color.New(color.FgYellow, color.Bold)
	}
	header := fmt.Sprintf("%s: %s", d.Severity, d.Message)
	if useColor {
		header = sevColor.Sprint(d.Severity.String()) + ": " + d.Message
	}
	sb.WriteString(header)

	f := sm.File(d.Span.File)
	if f != nil {
		sb.WriteByte('\n')
		pos := f.Position(d.Span.Start)
		sb.WriteString(fmt.Sprintf("  %s:%d:%d: ", f.Name, pos.Line, pos.Column))

		line := f.Line(pos.Line)
		sb.WriteString(line)
		sb.WriteByte('\n')

		width := d.Span.End - d.Span.Start
		if width < 1 {
			width = 1
		}
		pad := strings.Repeat(" ", len(fmt.Sprintf("  %s:%d:%d: ", f.Name, pos.Line, pos.Column))+pos.Column-1)
		underline := strings.Repeat("^", width)
		if useColor {
			underline = sevColor.Sprint(underline)
		}
		sb.WriteString(pad)
		sb.WriteString(underline)
		if d.Label != "" {
			sb.WriteString(" ")
			sb.WriteString(d.Label)
		}
	}
	return sb.String()
}

// Category is the error-category prefix surfaced by the CLI (spec §6).
type Category string

const (
	CategoryParse      Category = "Parse error"
	CategoryType       Category = "Type error"
	CategoryExecution  Category = "Execution error"
	CategoryMCP        Category = "MCP connection error"
	CategoryIO         Category = "File I/O error"
	CategoryConfig     Category = "Configuration error"
	CategoryResolution Category = "Resolution error"
)

// Error is a category-tagged error that can carry a rendered Diagnostic.
type Error struct {
	Category   Category
	Message    string
	Diagnostic *Diagnostic
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// New builds a plain category error with no source span.
func New(cat Category, format string, args ...any) *Error {
	return &Error{Category: cat, Message: fmt.Sprintf(format, args...)}
}

// NewAt builds a category error anchored to a span, with a renderable
// Diagnostic attached.
func NewAt(cat Category, span source.Span, label, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{
		Category: cat,
		Message:  msg,
		Diagnostic: &Diagnostic{
			Severity: SeverityError,
			Message:  msg,
			Label:    label,
			Span:     span,
		},
	}
}

// Render renders the error, using its Diagnostic if present, else the plain
// category-prefixed message.
func (e *Error) Render(sm *source.Map, useColor bool) string {
	if e.Diagnostic != nil {
		return e.Diagnostic.Render(sm, useColor)
	}
	return e.Error()
}

// Package report is the pipeline's diagnostic sink: the parser and the
// semantic analyzer emit Diagnostic values here instead of formatting their
// own output, and the driver decides how to render them. The lexer does not
// use the sink; it returns its fatal errors to the driver.
// Colored banners use github.com/fatih/color, degrading to plain text when
// stdout is not a terminal or --no-color was passed.
package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Severity classifies a Diagnostic per spec §7's error table.
type Severity int

const (
	SeveritySyntactic Severity = iota
	SeverityStructural
	SeverityAlert
	SeverityFatal
)

// Diagnostic is one detected issue: a severity, the source line it concerns
// (0 if not line-specific), and a human-readable message.
type Diagnostic struct {
	Severity Severity
	Line     int
	Message  string
}

func (d Diagnostic) String() string {
	switch d.Severity {
	case SeverityAlert:
		return fmt.Sprintf("Alerta semântico (linha %d): %s", d.Line, d.Message)
	case SeverityStructural:
		return fmt.Sprintf("Erro: %s", d.Message)
	case SeverityFatal:
		return fmt.Sprintf("Erro fatal (linha %d): %s", d.Line, d.Message)
	default:
		return fmt.Sprintf("Erro sintático na linha %d: %s", d.Line, d.Message)
	}
}

// Sink accumulates diagnostics in detection order and prints them with
// severity-appropriate coloring.
type Sink struct {
	diags []Diagnostic
}

// NewSink returns an empty Sink.
func NewSink() *Sink { return &Sink{} }

// Add appends d to the sink, preserving detection order.
func (s *Sink) Add(d Diagnostic) { s.diags = append(s.diags, d) }

// All returns every diagnostic recorded so far, in detection order.
func (s *Sink) All() []Diagnostic { return s.diags }

// HasErrors reports whether any non-alert diagnostic was recorded.
func (s *Sink) HasErrors() bool {
	for _, d := range s.diags {
		if d.Severity != SeverityAlert {
			return true
		}
	}
	return false
}

// Flush writes every diagnostic to w, colored by severity.
func (s *Sink) Flush(w io.Writer) {
	for _, d := range s.diags {
		c := severityColor(d.Severity)
		c.Fprintln(w, d.String())
	}
}

func severityColor(sev Severity) *color.Color {
	switch sev {
	case SeverityAlert:
		return color.New(color.FgYellow)
	case SeverityFatal:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.FgRed)
	}
}

// Banner prints one of the six section headers the driver's console report
// is structured around (spec §6): ANÁLISE LÉXICA, ANÁLISE SINTÁTICA,
// VALIDAÇÕES SINTÁTICAS, ÁRVORE SINTÁTICA ABSTRATA, TABELA DE SÍMBOLOS,
// RELATÓRIO DE MEMÓRIA.
func Banner(w io.Writer, title string) {
	c := color.New(color.FgCyan, color.Bold)
	c.Fprintf(w, "\n=== %s ===\n", title)
}

// FatalError describes a failure that must halt the pipeline immediately
// (spec §7's lexical-fatal and memory-exhausted rows). No stage returns it:
// the lexer returns *lexer.FatalError and the accountant
// *mem.ErrMemoryExhausted.
type FatalError struct {
	Line    int
	Message string
}

func (e *FatalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (linha %d)", e.Message, e.Line)
	}
	return e.Message
}

// Package analysis runs warning-only static analyzers over a checked
// module: unused variables, unreachable code, and loops whose condition
// can never turn false. None of these block evaluation; they surface as
// diagnostics.SeverityWarning output from `structured-agent check`.
package analysis

import (
	"github.com/wigmorewelsh/structured-agent/internal/ast"
	"github.com/wigmorewelsh/structured-agent/internal/diagnostics"
	"github.com/wigmorewelsh/structured-agent/internal/source"
)

// Analyzer inspects a checked module and reports zero or more Warnings.
type Analyzer interface {
	Name() string
	AnalyzeModule(mod *ast.Module, file source.FileId) []Warning
}

// Kind distinguishes the shape of warning a Warning carries.
type Kind int

const (
	KindUnusedVariable Kind = iota
	KindUnreachableCode
	KindPotentialInfiniteLoop
)

// Warning is one analyzer finding, anchored to a span.
type Warning struct {
	Kind     Kind
	Name     string // variable name, for KindUnusedVariable
	Span     source.Span
	FileID   source.FileId
	Analyzer string
}

// ToDiagnostic renders a Warning as a diagnostics.Diagnostic (spec §7's
// analyzer output: SeverityWarning, never SeverityError).
func (w Warning) ToDiagnostic() diagnostics.Diagnostic {
	switch w.Kind {
	case KindUnusedVariable:
		return diagnostics.Diagnostic{
			Severity: diagnostics.SeverityWarning,
			Message:  "unused variable `" + w.Name + "`",
			Label:    "variable declared but never read",
			Span:     w.Span,
		}
	case KindUnreachableCode:
		return diagnostics.Diagnostic{
			Severity: diagnostics.SeverityWarning,
			Message:  "unreachable code",
			Label:    "this code will never execute",
			Span:     w.Span,
		}
	default:
		return diagnostics.Diagnostic{
			Severity: diagnostics.SeverityWarning,
			Message:  "potential infinite loop",
			Label:    "loop condition is always true",
			Span:     w.Span,
		}
	}
}

// Runner applies a fixed set of analyzers to a module and concatenates
// their findings, in registration order.
type Runner struct {
	analyzers []Analyzer
}

// NewRunner builds a Runner over the given analyzers.
func NewRunner(analyzers ...Analyzer) *Runner {
	return &Runner{analyzers: analyzers}
}

// DefaultRunner wires the three analyzers that ship with the checker:
// unused variables, unreachable code, and potential infinite loops.
func DefaultRunner() *Runner {
	return NewRunner(&UnusedVariableAnalyzer{}, &ReachabilityAnalyzer{}, &InfiniteLoopAnalyzer{})
}

// Run runs every analyzer over mod and returns all warnings concatenated.
func (r *Runner) Run(mod *ast.Module, file source.FileId) []Warning {
	var all []Warning
	for _, a := range r.analyzers {
		all = append(all, a.AnalyzeModule(mod, file)...)
	}
	return all
}

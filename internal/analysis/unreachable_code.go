package analysis

import (
	"github.com/wigmorewelsh/structured-agent/internal/ast"
	"github.com/wigmorewelsh/structured-agent/internal/source"
)

// ReachabilityAnalyzer flags any statement that follows an unconditional
// `return`, or that follows a `while true { ... }` loop — a span is
// reachable unless every path to it crosses a return or such a loop.
type ReachabilityAnalyzer struct {
	reachable map[source.Span]bool
	all       []source.Span
}

func (*ReachabilityAnalyzer) Name() string { return "unreachable-code" }

func (a *ReachabilityAnalyzer) AnalyzeModule(mod *ast.Module, file source.FileId) []Warning {
	var warnings []Warning
	for _, def := range mod.Defs {
		fn, ok := def.(*ast.Function)
		if !ok {
			continue
		}
		warnings = append(warnings, a.analyzeFunction(fn, file)...)
	}
	return warnings
}

func (a *ReachabilityAnalyzer) analyzeFunction(fn *ast.Function, file source.FileId) []Warning {
	a.reachable = make(map[source.Span]bool)
	a.all = nil

	a.collectAll(fn.Body.Statements)
	a.walk(fn.Body.Statements, true)

	var warnings []Warning
	for _, span := range a.all {
		if !a.reachable[span] {
			warnings = append(warnings, Warning{Kind: KindUnreachableCode, Span: span, FileID: file, Analyzer: "unreachable-code"})
		}
	}
	return warnings
}

func (a *ReachabilityAnalyzer) collectAll(stmts []ast.Statement) {
	for _, stmt := range stmts {
		a.all = append(a.all, stmt.Span())
		switch s := stmt.(type) {
		case *ast.If:
			a.collectAll(s.Body.Statements)
			if s.ElseBody != nil {
				a.collectAll(s.ElseBody.Statements)
			}
		case *ast.While:
			a.collectAll(s.Body.Statements)
		}
	}
}

// walk marks every statement reachable from a reachable entry point and
// returns whether control can fall through past the end of stmts.
func (a *ReachabilityAnalyzer) walk(stmts []ast.Statement, reachable bool) bool {
	current := reachable

	for _, stmt := range stmts {
		if current {
			a.reachable[stmt.Span()] = true
		}

		switch s := stmt.(type) {
		case *ast.If:
			if current {
				if isConstantTrue(s.Condition) {
					a.walk(s.Body.Statements, true)
				} else {
					a.walk(s.Body.Statements, current)
				}
				if s.ElseBody != nil {
					a.walk(s.ElseBody.Statements, current)
				}
			}
		case *ast.While:
			if current {
				a.walk(s.Body.Statements, true)
				if isConstantTrue(s.Condition) {
					current = false
				}
			}
		case *ast.Return:
			current = false
		}
	}

	return current
}

func isConstantTrue(expr ast.Expression) bool {
	b, ok := expr.(*ast.BooleanLiteral)
	return ok && b.Value
}

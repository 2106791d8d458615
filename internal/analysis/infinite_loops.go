package analysis

import (
	"github.com/wigmorewelsh/structured-agent/internal/ast"
	"github.com/wigmorewelsh/structured-agent/internal/source"
)

// InfiniteLoopAnalyzer flags a `while` whose condition is the literal
// `true`, or a boolean variable that was assigned `true` and never
// reassigned anywhere inside the loop body — in both cases the loop can
// only end via an explicit return, which the analyzer also checks for.
type InfiniteLoopAnalyzer struct {
	assignments map[string]bool // name -> was it assigned literal true
}

func (*InfiniteLoopAnalyzer) Name() string { return "infinite-loops" }

func (a *InfiniteLoopAnalyzer) AnalyzeModule(mod *ast.Module, file source.FileId) []Warning {
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

func (a *InfiniteLoopAnalyzer) analyzeFunction(fn *ast.Function, file source.FileId) []Warning {
	a.assignments = make(map[string]bool)
	a.collectAssignments(fn.Body.Statements)

	var warnings []Warning
	a.walk(fn.Body.Statements, file, &warnings)
	return warnings
}

func (a *InfiniteLoopAnalyzer) collectAssignments(stmts []ast.Statement) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.Assignment:
			b, ok := s.Value.(*ast.BooleanLiteral)
			a.assignments[s.Name] = ok && b.Value
		case *ast.VariableAssignment:
			a.assignments[s.Name] = false
		case *ast.If:
			a.collectAssignments(s.Body.Statements)
			if s.ElseBody != nil {
				a.collectAssignments(s.ElseBody.Statements)
			}
		case *ast.While:
			a.collectAssignments(s.Body.Statements)
		}
	}
}

func (a *InfiniteLoopAnalyzer) isModifiedIn(name string, stmts []ast.Statement) bool {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.VariableAssignment:
			if s.Name == name {
				return true
			}
		case *ast.If:
			if a.isModifiedIn(name, s.Body.Statements) {
				return true
			}
			if s.ElseBody != nil && a.isModifiedIn(name, s.ElseBody.Statements) {
				return true
			}
		case *ast.While:
			if a.isModifiedIn(name, s.Body.Statements) {
				return true
			}
		}
	}
	return false
}

func hasReturn(stmts []ast.Statement) bool {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.Return:
			return true
		case *ast.If:
			if hasReturn(s.Body.Statements) {
				return true
			}
			if s.ElseBody != nil && hasReturn(s.ElseBody.Statements) {
				return true
			}
		case *ast.While:
			if hasReturn(s.Body.Statements) {
				return true
			}
		}
	}
	return false
}

func (a *InfiniteLoopAnalyzer) walk(stmts []ast.Statement, file source.FileId, warnings *[]Warning) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.While:
			infinite := isConstantTrue(s.Condition)
			if !infinite {
				if v, ok := s.Condition.(*ast.Variable); ok {
					if wasTrue, known := a.assignments[v.Name]; known {
						infinite = wasTrue && !a.isModifiedIn(v.Name, s.Body.Statements)
					}
				}
			}
			if infinite && !hasReturn(s.Body.Statements) {
				*warnings = append(*warnings, Warning{
					Kind: KindPotentialInfiniteLoop, Span: s.Condition.Span(), FileID: file, Analyzer: "infinite-loops",
				})
			}
			a.walk(s.Body.Statements, file, warnings)
		case *ast.If:
			a.walk(s.Body.Statements, file, warnings)
			if s.ElseBody != nil {
				a.walk(s.ElseBody.Statements, file, warnings)
			}
		}
	}
}

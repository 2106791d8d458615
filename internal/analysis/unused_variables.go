package analysis

import (
	"github.com/wigmorewelsh/structured-agent/internal/ast"
	"github.com/wigmorewelsh/structured-agent/internal/source"
)

type varInfo struct {
	declSpan source.Span
	reads    int
}

// UnusedVariableAnalyzer flags a let-bound local or parameter that is
// never read anywhere in its function. It does not track reassignment
// targets: `x = ...` counts neither as a declaration nor as a read of x.
type UnusedVariableAnalyzer struct {
	vars map[string]*varInfo
}

func (*UnusedVariableAnalyzer) Name() string { return "unused-variables" }

func (a *UnusedVariableAnalyzer) AnalyzeModule(mod *ast.Module, file source.FileId) []Warning {
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

func (a *UnusedVariableAnalyzer) analyzeFunction(fn *ast.Function, file source.FileId) []Warning {
	a.vars = make(map[string]*varInfo)

	for _, p := range fn.Parameters {
		a.declare(p.Name, fn.Span())
	}
	for _, stmt := range fn.Body.Statements {
		a.walkStatement(stmt)
	}

	var warnings []Warning
	for name, info := range a.vars {
		if info.reads == 0 {
			warnings = append(warnings, Warning{
				Kind: KindUnusedVariable, Name: name, Span: info.declSpan, FileID: file, Analyzer: "unused-variables",
			})
		}
	}
	return warnings
}

func (a *UnusedVariableAnalyzer) declare(name string, span source.Span) {
	a.vars[name] = &varInfo{declSpan: span}
}

func (a *UnusedVariableAnalyzer) read(name string) {
	if info, ok := a.vars[name]; ok {
		info.reads++
	}
}

func (a *UnusedVariableAnalyzer) walkStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.Assignment:
		a.declare(s.Name, s.Span())
		a.walkExpr(s.Value)
	case *ast.VariableAssignment:
		a.walkExpr(s.Value)
	case *ast.Injection:
		a.walkExpr(s.Value)
	case *ast.ExpressionStatement:
		a.walkExpr(s.Value)
	case *ast.If:
		a.walkExpr(s.Condition)
		for _, inner := range s.Body.Statements {
			a.walkStatement(inner)
		}
		if s.ElseBody != nil {
			for _, inner := range s.ElseBody.Statements {
				a.walkStatement(inner)
			}
		}
	case *ast.While:
		a.walkExpr(s.Condition)
		for _, inner := range s.Body.Statements {
			a.walkStatement(inner)
		}
	case *ast.Return:
		a.walkExpr(s.Value)
	}
}

func (a *UnusedVariableAnalyzer) walkExpr(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.Variable:
		a.read(e.Name)
	case *ast.Call:
		for _, arg := range e.Arguments {
			a.walkExpr(arg)
		}
	case *ast.Select:
		for _, clause := range e.Clauses {
			a.walkExpr(clause.ExpressionToRun)
			a.walkExpr(clause.ExpressionNext)
		}
	case *ast.IfElse:
		a.walkExpr(e.Condition)
		a.walkExpr(e.Then)
		a.walkExpr(e.Else)
	case *ast.ListLiteral:
		for _, el := range e.Elements {
			a.walkExpr(el)
		}
	}
}

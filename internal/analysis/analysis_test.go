package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wigmorewelsh/structured-agent/internal/ast"
	"github.com/wigmorewelsh/structured-agent/internal/source"
	"github.com/wigmorewelsh/structured-agent/internal/types"
)

func sp(start, end int) source.Span { return source.Span{File: 0, Start: start, End: end} }

func fn(name string, body []ast.Statement) *ast.Function {
	return &ast.Function{
		Name:       name,
		ReturnType: types.Unit{},
		Body:       &ast.FunctionBody{Statements: body, SpanValue: sp(0, 100)},
		SpanValue:  sp(0, 100),
	}
}

func TestUnusedVariableAnalyzer_FlagsNeverRead(t *testing.T) {
	body := []ast.Statement{
		&ast.Assignment{Name: "x", Value: &ast.StringLiteral{Value: "hi", SpanValue: sp(10, 14)}, SpanValue: sp(4, 14)},
		&ast.Return{Value: &ast.UnitLiteral{SpanValue: sp(20, 22)}, SpanValue: sp(15, 22)},
	}
	mod := &ast.Module{Defs: []ast.Definition{fn("main", body)}}

	warnings := (&UnusedVariableAnalyzer{}).AnalyzeModule(mod, 0)

	require.Len(t, warnings, 1)
	require.Equal(t, KindUnusedVariable, warnings[0].Kind)
	require.Equal(t, "x", warnings[0].Name)
}

func TestUnusedVariableAnalyzer_ReadClearsWarning(t *testing.T) {
	body := []ast.Statement{
		&ast.Assignment{Name: "x", Value: &ast.StringLiteral{Value: "hi", SpanValue: sp(10, 14)}, SpanValue: sp(4, 14)},
		&ast.Return{Value: &ast.Variable{Name: "x", SpanValue: sp(20, 21)}, SpanValue: sp(15, 21)},
	}
	mod := &ast.Module{Defs: []ast.Definition{fn("main", body)}}

	warnings := (&UnusedVariableAnalyzer{}).AnalyzeModule(mod, 0)

	require.Empty(t, warnings)
}

func TestReachabilityAnalyzer_FlagsCodeAfterReturn(t *testing.T) {
	after := &ast.ExpressionStatement{Value: &ast.UnitLiteral{SpanValue: sp(30, 32)}, SpanValue: sp(30, 32)}
	body := []ast.Statement{
		&ast.Return{Value: &ast.UnitLiteral{SpanValue: sp(10, 12)}, SpanValue: sp(5, 12)},
		after,
	}
	mod := &ast.Module{Defs: []ast.Definition{fn("main", body)}}

	warnings := (&ReachabilityAnalyzer{}).AnalyzeModule(mod, 0)

	require.Len(t, warnings, 1)
	require.Equal(t, after.Span(), warnings[0].Span)
}

func TestReachabilityAnalyzer_NoWarningWithoutReturn(t *testing.T) {
	body := []ast.Statement{
		&ast.ExpressionStatement{Value: &ast.UnitLiteral{SpanValue: sp(1, 3)}, SpanValue: sp(1, 3)},
	}
	mod := &ast.Module{Defs: []ast.Definition{fn("main", body)}}

	warnings := (&ReachabilityAnalyzer{}).AnalyzeModule(mod, 0)

	require.Empty(t, warnings)
}

func TestInfiniteLoopAnalyzer_FlagsWhileTrueWithoutReturn(t *testing.T) {
	cond := &ast.BooleanLiteral{Value: true, SpanValue: sp(10, 14)}
	body := []ast.Statement{
		&ast.While{Condition: cond, Body: &ast.FunctionBody{SpanValue: sp(15, 20)}, SpanValue: sp(6, 20)},
	}
	mod := &ast.Module{Defs: []ast.Definition{fn("main", body)}}

	warnings := (&InfiniteLoopAnalyzer{}).AnalyzeModule(mod, 0)

	require.Len(t, warnings, 1)
	require.Equal(t, KindPotentialInfiniteLoop, warnings[0].Kind)
}

func TestInfiniteLoopAnalyzer_NoWarningWhenBodyReturns(t *testing.T) {
	cond := &ast.BooleanLiteral{Value: true, SpanValue: sp(10, 14)}
	inner := []ast.Statement{
		&ast.Return{Value: &ast.UnitLiteral{SpanValue: sp(16, 18)}, SpanValue: sp(16, 18)},
	}
	body := []ast.Statement{
		&ast.While{Condition: cond, Body: &ast.FunctionBody{Statements: inner, SpanValue: sp(15, 20)}, SpanValue: sp(6, 20)},
	}
	mod := &ast.Module{Defs: []ast.Definition{fn("main", body)}}

	warnings := (&InfiniteLoopAnalyzer{}).AnalyzeModule(mod, 0)

	require.Empty(t, warnings)
}

func TestInfiniteLoopAnalyzer_FlagsUnmodifiedTrueVariable(t *testing.T) {
	cond := &ast.Variable{Name: "running", SpanValue: sp(20, 27)}
	body := []ast.Statement{
		&ast.Assignment{Name: "running", Value: &ast.BooleanLiteral{Value: true, SpanValue: sp(10, 14)}, SpanValue: sp(4, 14)},
		&ast.While{Condition: cond, Body: &ast.FunctionBody{SpanValue: sp(28, 32)}, SpanValue: sp(16, 32)},
	}
	mod := &ast.Module{Defs: []ast.Definition{fn("main", body)}}

	warnings := (&InfiniteLoopAnalyzer{}).AnalyzeModule(mod, 0)

	require.Len(t, warnings, 1)
}

func TestInfiniteLoopAnalyzer_NoWarningWhenVariableReassignedInLoop(t *testing.T) {
	cond := &ast.Variable{Name: "running", SpanValue: sp(20, 27)}
	loopBody := []ast.Statement{
		&ast.VariableAssignment{Name: "running", Value: &ast.BooleanLiteral{Value: false, SpanValue: sp(40, 45)}, SpanValue: sp(35, 45)},
	}
	body := []ast.Statement{
		&ast.Assignment{Name: "running", Value: &ast.BooleanLiteral{Value: true, SpanValue: sp(10, 14)}, SpanValue: sp(4, 14)},
		&ast.While{Condition: cond, Body: &ast.FunctionBody{Statements: loopBody, SpanValue: sp(28, 46)}, SpanValue: sp(16, 46)},
	}
	mod := &ast.Module{Defs: []ast.Definition{fn("main", body)}}

	warnings := (&InfiniteLoopAnalyzer{}).AnalyzeModule(mod, 0)

	require.Empty(t, warnings)
}

func TestRunner_ConcatenatesAllAnalyzers(t *testing.T) {
	cond := &ast.BooleanLiteral{Value: true, SpanValue: sp(10, 14)}
	body := []ast.Statement{
		&ast.Assignment{Name: "unused", Value: &ast.StringLiteral{Value: "x", SpanValue: sp(1, 4)}, SpanValue: sp(0, 4)},
		&ast.While{Condition: cond, Body: &ast.FunctionBody{SpanValue: sp(15, 20)}, SpanValue: sp(6, 20)},
	}
	mod := &ast.Module{Defs: []ast.Definition{fn("main", body)}}

	warnings := DefaultRunner().Run(mod, 0)

	require.Len(t, warnings, 2)
}

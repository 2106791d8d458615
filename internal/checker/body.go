package checker

import (
	"github.com/wigmorewelsh/structured-agent/internal/ast"
	"github.com/wigmorewelsh/structured-agent/internal/diagnostics"
	"github.com/wigmorewelsh/structured-agent/internal/types"
)

func (c *Checker) checkBody(body *ast.FunctionBody, sc *scope, returnType types.Type) error {
	for _, stmt := range body.Statements {
		if err := c.checkStatement(stmt, sc, returnType); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkStatement(stmt ast.Statement, sc *scope, returnType types.Type) error {
	switch s := stmt.(type) {
	case *ast.Assignment:
		t, err := c.checkExpr(s.Value, sc)
		if err != nil {
			return err
		}
		sc.declare(s.Name, t)
		return nil

	case *ast.VariableAssignment:
		existing, ok := sc.assign(s.Name)
		if !ok {
			return diagnostics.NewAt(diagnostics.CategoryType, s.Span(), "unknown variable",
				"UnknownVariable: %q is not declared in the current scope", s.Name)
		}
		rhsType, err := c.checkExpr(s.Value, sc)
		if err != nil {
			return err
		}
		if !types.Equal(existing, rhsType) {
			return diagnostics.NewAt(diagnostics.CategoryType, s.Value.Span(), "type mismatch",
				"TypeMismatch: expected %s, found %s", existing.String(), rhsType.String())
		}
		return nil

	case *ast.Injection:
		_, err := c.checkExpr(s.Value, sc)
		return err

	case *ast.ExpressionStatement:
		_, err := c.checkExpr(s.Value, sc)
		return err

	case *ast.If:
		condType, err := c.checkExpr(s.Condition, sc)
		if err != nil {
			return err
		}
		if _, ok := condType.(types.Boolean); !ok {
			return diagnostics.NewAt(diagnostics.CategoryType, s.Condition.Span(), "must be Boolean",
				"TypeMismatch: if condition must be Boolean, found %s", condType.String())
		}
		if err := c.checkBody(s.Body, newChild(sc), returnType); err != nil {
			return err
		}
		if s.ElseBody != nil {
			if err := c.checkBody(s.ElseBody, newChild(sc), returnType); err != nil {
				return err
			}
		}
		return nil

	case *ast.While:
		condType, err := c.checkExpr(s.Condition, sc)
		if err != nil {
			return err
		}
		if _, ok := condType.(types.Boolean); !ok {
			return diagnostics.NewAt(diagnostics.CategoryType, s.Condition.Span(), "must be Boolean",
				"TypeMismatch: while condition must be Boolean, found %s", condType.String())
		}
		return c.checkBody(s.Body, newChild(sc), returnType)

	case *ast.Return:
		t, err := c.checkExpr(s.Value, sc)
		if err != nil {
			return err
		}
		if !types.Equal(t, returnType) {
			return diagnostics.NewAt(diagnostics.CategoryType, s.Value.Span(), "return type mismatch",
				"ReturnTypeMismatch: expected %s, found %s", returnType.String(), t.String())
		}
		return nil

	default:
		return diagnostics.New(diagnostics.CategoryType, "unknown statement kind %T", stmt)
	}
}

// checkExpr infers and validates the type of an expression.
func (c *Checker) checkExpr(expr ast.Expression, sc *scope) (types.Type, error) {
	switch e := expr.(type) {
	case *ast.StringLiteral:
		return types.String{}, nil

	case *ast.BooleanLiteral:
		return types.Boolean{}, nil

	case *ast.UnitLiteral:
		return types.Unit{}, nil

	case *ast.ListLiteral:
		if len(e.Elements) == 0 {
			return types.List{Elem: types.String{}}, nil
		}
		first, err := c.checkExpr(e.Elements[0], sc)
		if err != nil {
			return nil, err
		}
		for _, el := range e.Elements[1:] {
			t, err := c.checkExpr(el, sc)
			if err != nil {
				return nil, err
			}
			if !types.Equal(t, first) {
				return nil, diagnostics.NewAt(diagnostics.CategoryType, el.Span(), "inconsistent list element type",
					"TypeMismatch: expected %s, found %s", first.String(), t.String())
			}
		}
		return types.List{Elem: first}, nil

	case *ast.Variable:
		t, ok := sc.lookup(e.Name)
		if !ok {
			return nil, diagnostics.NewAt(diagnostics.CategoryType, e.Span(), "unknown variable",
				"UnknownVariable: %q is not declared in the current scope", e.Name)
		}
		return t, nil

	case *ast.Placeholder:
		return nil, diagnostics.NewAt(diagnostics.CategoryType, e.Span(), "placeholder outside call",
			"a standalone Placeholder ('_') is only valid in call-argument position")

	case *ast.Call:
		return c.checkCall(e, sc)

	case *ast.IfElse:
		condType, err := c.checkExpr(e.Condition, sc)
		if err != nil {
			return nil, err
		}
		if _, ok := condType.(types.Boolean); !ok {
			return nil, diagnostics.NewAt(diagnostics.CategoryType, e.Condition.Span(), "must be Boolean",
				"TypeMismatch: if condition must be Boolean, found %s", condType.String())
		}
		thenType, err := c.checkExpr(e.Then, newChild(sc))
		if err != nil {
			return nil, err
		}
		elseType, err := c.checkExpr(e.Else, newChild(sc))
		if err != nil {
			return nil, err
		}
		if !types.Equal(thenType, elseType) {
			return nil, diagnostics.NewAt(diagnostics.CategoryType, e.Else.Span(), "branch type mismatch",
				"SelectBranchTypeMismatch: then-branch is %s, else-branch is %s", thenType.String(), elseType.String())
		}
		return thenType, nil

	case *ast.Select:
		return c.checkSelect(e, sc)

	default:
		return nil, diagnostics.New(diagnostics.CategoryType, "unknown expression kind %T", expr)
	}
}

func (c *Checker) checkCall(call *ast.Call, sc *scope) (types.Type, error) {
	sig, ok := c.sigs[call.Function]
	if !ok {
		return nil, diagnostics.NewAt(diagnostics.CategoryType, call.Span(), "unknown function",
			"UnknownFunction: %q is not declared", call.Function)
	}
	if len(call.Arguments) != len(sig.Parameters) {
		return nil, diagnostics.NewAt(diagnostics.CategoryType, call.Span(), "argument count mismatch",
			"ArgumentCountMismatch: %q expects %d argument(s), found %d", call.Function, len(sig.Parameters), len(call.Arguments))
	}
	for i, arg := range call.Arguments {
		if _, ok := arg.(*ast.Placeholder); ok {
			// Placeholder arguments type-check unconditionally; resolved at runtime.
			continue
		}
		argType, err := c.checkExpr(arg, sc)
		if err != nil {
			return nil, err
		}
		if !types.Equal(argType, sig.Parameters[i].Type) {
			return nil, diagnostics.NewAt(diagnostics.CategoryType, arg.Span(), "argument type mismatch",
				"ArgumentTypeMismatch: parameter %q of %q expects %s, found %s",
				sig.Parameters[i].Name, call.Function, sig.Parameters[i].Type.String(), argType.String())
		}
	}
	return sig.ReturnType, nil
}

func (c *Checker) checkSelect(sel *ast.Select, sc *scope) (types.Type, error) {
	if len(sel.Clauses) == 0 {
		return nil, diagnostics.NewAt(diagnostics.CategoryType, sel.Span(), "empty select",
			"Select must have at least one clause")
	}
	var branchType types.Type
	for i, clause := range sel.Clauses {
		t, err := c.checkExpr(clause.ExpressionToRun, sc)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			branchType = t
		} else if !types.Equal(t, branchType) {
			return nil, diagnostics.NewAt(diagnostics.CategoryType, clause.ExpressionToRun.Span(), "branch type mismatch",
				"SelectBranchTypeMismatch{branch_index: %d}: expected %s, found %s", i, branchType.String(), t.String())
		}
	}
	var resultType types.Type
	for i, clause := range sel.Clauses {
		child := newChild(sc)
		child.declare(clause.ResultVariable, branchType)
		t, err := c.checkExpr(clause.ExpressionNext, child)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			resultType = t
		} else if !types.Equal(t, resultType) {
			return nil, diagnostics.NewAt(diagnostics.CategoryType, clause.ExpressionNext.Span(), "branch type mismatch",
				"SelectBranchTypeMismatch{branch_index: %d}: expected %s, found %s", i, resultType.String(), t.String())
		}
	}
	return resultType, nil
}

// Package evaluator implements the tree-walking evaluator from spec §4.4:
// it walks the checked AST directly rather than lowering to a separate
// bytecode form, evaluating one Context-scoped value at a time.
package evaluator

import (
	"context"
	"fmt"

	"github.com/wigmorewelsh/structured-agent/internal/ast"
	"github.com/wigmorewelsh/structured-agent/internal/checker"
	"github.com/wigmorewelsh/structured-agent/internal/evalctx"
	"github.com/wigmorewelsh/structured-agent/internal/registry"
	"github.com/wigmorewelsh/structured-agent/internal/types"
	"github.com/wigmorewelsh/structured-agent/internal/value"
)

// maxWhileIterations is the hard cap from spec §4.4: a while loop that
// runs past this many iterations is assumed to be an infinite loop.
const maxWhileIterations = 100

// Evaluator owns the resolved program (user functions, signatures, the
// external-function registry) and the active LanguageEngine, and provides
// evalctx.Host so Contexts can reach the engine.
type Evaluator struct {
	funcs  map[string]*ast.Function
	sigs   map[string]checker.Signature
	reg    *registry.Registry
	engine evalctx.LanguageEngine
}

// New builds an Evaluator for a checked module. sigs must be the table
// CheckModule returned for mod, and reg must already have had
// ResolveExternals(mod) run against it.
func New(mod *ast.Module, sigs map[string]checker.Signature, reg *registry.Registry, engine evalctx.LanguageEngine) *Evaluator {
	funcs := make(map[string]*ast.Function)
	for _, def := range mod.Defs {
		if fn, ok := def.(*ast.Function); ok {
			funcs[fn.Name] = fn
		}
	}
	return &Evaluator{funcs: funcs, sigs: sigs, reg: reg, engine: engine}
}

// Engine implements evalctx.Host.
func (e *Evaluator) Engine() evalctx.LanguageEngine { return e.engine }

// RunMain invokes the zero-argument `main` function, the module's entry
// point (checker.CheckModule already guarantees it exists and takes no
// parameters).
func (e *Evaluator) RunMain(ctx context.Context) (value.Value, error) {
	return e.Call(ctx, "main", nil)
}

// Call invokes a user-defined function by name with already-evaluated
// argument values, opening a fresh frame-root Context.
func (e *Evaluator) Call(ctx context.Context, name string, args []value.Value) (value.Value, error) {
	fn, ok := e.funcs[name]
	if !ok {
		return nil, fmt.Errorf("evaluator: no such user function %q", name)
	}

	params := make(map[string]value.Value, len(fn.Parameters))
	for i, p := range fn.Parameters {
		if i < len(args) {
			params[p.Name] = args[i]
		}
	}
	root := evalctx.NewFrameRoot(e, params)

	lastVal, err := e.evalBody(ctx, root, fn.Body)
	if err != nil {
		return nil, err
	}

	if v, ok := root.ReturnValue(); ok {
		return v, nil
	}

	// Per the fall-through rule: a Unit return type always yields Unit;
	// otherwise events take priority over the body's last value (the engine
	// synthesizes), and only with no events at all does the last statement's
	// value stand in for a missing return.
	if _, isUnit := fn.ReturnType.(types.Unit); isUnit {
		return value.Unit{}, nil
	}
	if evalctx.HasAnyEvents(root) {
		return e.engine.Typed(ctx, root, typeDescriptor(fn.ReturnType))
	}

	return lastVal, nil
}

// evalBody runs a statement sequence and reports the last statement's
// evaluated value (Unit for a body with no statements), so a function that
// falls off its end with no events can fall back to it.
func (e *Evaluator) evalBody(ctx context.Context, ec *evalctx.Context, body *ast.FunctionBody) (value.Value, error) {
	var last value.Value = value.Unit{}
	for _, stmt := range body.Statements {
		v, err := e.evalStatement(ctx, ec, stmt)
		if err != nil {
			return nil, err
		}
		last = v
		if ec.IsReturnSet() {
			return last, nil
		}
	}
	return last, nil
}

func (e *Evaluator) evalStatement(ctx context.Context, ec *evalctx.Context, stmt ast.Statement) (value.Value, error) {
	switch s := stmt.(type) {
	case *ast.Assignment:
		v, err := e.evalExpr(ctx, ec, s.Value)
		if err != nil {
			return nil, err
		}
		ec.Declare(s.Name, v)
		return value.Unit{}, nil

	case *ast.VariableAssignment:
		v, err := e.evalExpr(ctx, ec, s.Value)
		if err != nil {
			return nil, err
		}
		if !ec.Assign(s.Name, v) {
			return nil, fmt.Errorf("runtime: %q is not assignable in this frame", s.Name)
		}
		return value.Unit{}, nil

	case *ast.Injection:
		v, err := e.evalExpr(ctx, ec, s.Value)
		if err != nil {
			return nil, err
		}
		ec.Inject(nil, v)
		return v, nil

	case *ast.ExpressionStatement:
		return e.evalExpr(ctx, ec, s.Value)

	case *ast.If:
		cond, err := e.evalExpr(ctx, ec, s.Condition)
		if err != nil {
			return nil, err
		}
		b, _ := cond.(value.Boolean)
		if bool(b) {
			child := evalctx.NewChild(ec)
			if _, err := e.evalBody(ctx, child, s.Body); err != nil {
				return nil, err
			}
			child.PropagateTo(ec)
		} else if s.ElseBody != nil {
			child := evalctx.NewChild(ec)
			if _, err := e.evalBody(ctx, child, s.ElseBody); err != nil {
				return nil, err
			}
			child.PropagateTo(ec)
		}
		return value.Unit{}, nil

	case *ast.While:
		for i := 0; ; i++ {
			if i >= maxWhileIterations {
				return nil, fmt.Errorf("runtime: while loop exceeded %d iterations, likely infinite loop", maxWhileIterations)
			}
			cond, err := e.evalExpr(ctx, ec, s.Condition)
			if err != nil {
				return nil, err
			}
			b, _ := cond.(value.Boolean)
			if !bool(b) {
				return value.Unit{}, nil
			}
			child := evalctx.NewChild(ec)
			if _, err := e.evalBody(ctx, child, s.Body); err != nil {
				return nil, err
			}
			child.PropagateTo(ec)
			if ec.IsReturnSet() {
				return value.Unit{}, nil
			}
		}

	case *ast.Return:
		v, err := e.evalExpr(ctx, ec, s.Value)
		if err != nil {
			return nil, err
		}
		ec.SetReturn(v)
		return v, nil

	default:
		return nil, fmt.Errorf("evaluator: unknown statement kind %T", stmt)
	}
}

func (e *Evaluator) evalExpr(ctx context.Context, ec *evalctx.Context, expr ast.Expression) (value.Value, error) {
	switch x := expr.(type) {
	case *ast.StringLiteral:
		return value.String(x.Value), nil

	case *ast.BooleanLiteral:
		return value.Boolean(x.Value), nil

	case *ast.UnitLiteral:
		return value.Unit{}, nil

	case *ast.ListLiteral:
		elems := make([]string, len(x.Elements))
		isBool := false
		for i, el := range x.Elements {
			v, err := e.evalExpr(ctx, ec, el)
			if err != nil {
				return nil, err
			}
			if b, ok := v.(value.Boolean); ok {
				isBool = true
				elems[i] = b.String()
			} else {
				elems[i] = v.String()
			}
		}
		return value.List{Elements: elems, ElemIsBoolean: isBool}, nil

	case *ast.Variable:
		v, ok := ec.Lookup(x.Name)
		if !ok {
			return nil, fmt.Errorf("runtime: unbound variable %q", x.Name)
		}
		return v, nil

	case *ast.Placeholder:
		return nil, fmt.Errorf("runtime: standalone placeholder cannot be evaluated")

	case *ast.Call:
		return e.evalCall(ctx, ec, x)

	case *ast.IfElse:
		cond, err := e.evalExpr(ctx, ec, x.Condition)
		if err != nil {
			return nil, err
		}
		b, _ := cond.(value.Boolean)
		child := evalctx.NewChild(ec)
		var v value.Value
		if bool(b) {
			v, err = e.evalExpr(ctx, child, x.Then)
		} else {
			v, err = e.evalExpr(ctx, child, x.Else)
		}
		child.PropagateTo(ec)
		return v, err

	case *ast.Select:
		return e.evalSelect(ctx, ec, x)

	default:
		return nil, fmt.Errorf("evaluator: unknown expression kind %T", expr)
	}
}

func (e *Evaluator) evalCall(ctx context.Context, ec *evalctx.Context, call *ast.Call) (value.Value, error) {
	sig, ok := e.sigs[call.Function]
	if !ok {
		return nil, fmt.Errorf("runtime: unknown function %q", call.Function)
	}

	args := make([]value.Value, len(call.Arguments))
	for i, a := range call.Arguments {
		if _, isPlaceholder := a.(*ast.Placeholder); isPlaceholder {
			var paramType types.Type = types.String{}
			if i < len(sig.Parameters) {
				paramType = sig.Parameters[i].Type
			}
			v, err := e.engine.Typed(ctx, ec, typeDescriptor(paramType))
			if err != nil {
				return nil, fmt.Errorf("runtime: engine could not synthesize placeholder argument %d of %q: %w", i, call.Function, err)
			}
			args[i] = v
			continue
		}
		v, err := e.evalExpr(ctx, ec, a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	if _, isUser := e.funcs[call.Function]; isUser {
		return e.Call(ctx, call.Function, args)
	}

	fn, _, ok := e.reg.Lookup(call.Function)
	if !ok {
		return nil, fmt.Errorf("runtime: %q resolved at type-check time but has no runtime implementation", call.Function)
	}
	return fn.Invoke(ctx, args)
}

func (e *Evaluator) evalSelect(ctx context.Context, ec *evalctx.Context, sel *ast.Select) (value.Value, error) {
	descriptions := make([]string, len(sel.Clauses))
	for i, c := range sel.Clauses {
		descriptions[i] = describeExpr(c.ExpressionToRun)
	}
	idx, err := e.engine.Select(ctx, ec, descriptions)
	if err != nil {
		return nil, fmt.Errorf("runtime: engine failed to select a branch: %w", err)
	}
	if idx < 0 || idx >= len(sel.Clauses) {
		return nil, fmt.Errorf("runtime: engine selected out-of-range branch index %d", idx)
	}

	clause := sel.Clauses[idx]
	child := evalctx.NewChild(ec)
	runVal, err := e.evalExpr(ctx, child, clause.ExpressionToRun)
	if err != nil {
		return nil, err
	}
	child.Declare(clause.ResultVariable, runVal)
	nextVal, err := e.evalExpr(ctx, child, clause.ExpressionNext)
	child.PropagateTo(ec)
	return nextVal, err
}

// describeExpr renders a short, best-effort description of an expression
// for the engine's Select to reason about, without requiring a source.Map
// at this layer.
func describeExpr(expr ast.Expression) string {
	switch x := expr.(type) {
	case *ast.StringLiteral:
		return x.Value
	case *ast.BooleanLiteral:
		return fmt.Sprintf("%v", x.Value)
	case *ast.Variable:
		return x.Name
	case *ast.Call:
		return x.Function + "(...)"
	default:
		return fmt.Sprintf("<%T>", expr)
	}
}

func typeDescriptor(t types.Type) evalctx.TypeDescriptor {
	switch tt := t.(type) {
	case types.Unit:
		return evalctx.TypeDescriptor{Name: "Unit"}
	case types.Boolean:
		return evalctx.TypeDescriptor{Name: "Boolean"}
	case types.String:
		return evalctx.TypeDescriptor{Name: "String"}
	case types.Named:
		return evalctx.TypeDescriptor{Name: tt.Name}
	case types.List:
		elem := typeDescriptor(tt.Elem)
		return evalctx.TypeDescriptor{Name: "List", Elem: &elem}
	case types.Option:
		elem := typeDescriptor(tt.Elem)
		return evalctx.TypeDescriptor{Name: "Option", Elem: &elem}
	default:
		return evalctx.TypeDescriptor{Name: "Unit"}
	}
}

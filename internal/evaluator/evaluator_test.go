package evaluator

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wigmorewelsh/structured-agent/internal/checker"
	"github.com/wigmorewelsh/structured-agent/internal/engine"
	"github.com/wigmorewelsh/structured-agent/internal/parser"
	"github.com/wigmorewelsh/structured-agent/internal/registry"
	"github.com/wigmorewelsh/structured-agent/internal/source"
	"github.com/wigmorewelsh/structured-agent/internal/value"
)

// run parses, checks, and evaluates src against a PrintEngine, with a
// NativeProvider wired in so programs can call print/input if they want to.
func run(t *testing.T, src string) (value.Value, error) {
	t.Helper()

	sm := source.NewMap()
	fid := sm.Add("<test>", src)

	mod, err := parser.Parse(sm, fid)
	require.NoError(t, err)

	sigs, err := checker.CheckModule(mod)
	require.NoError(t, err)

	reg := registry.New()
	native := registry.NewNativeProvider(io.Discard, nil)
	native.WithDefaultFunctions = true
	reg.Register(native)
	_, err = reg.ResolveExternals(mod)
	require.NoError(t, err)

	ev := New(mod, sigs, reg, engine.NewPrintEngine())
	return ev.RunMain(context.Background())
}

func TestRunMain_ReturnsLiteral(t *testing.T) {
	v, err := run(t, `fn main(): String { return "hi" }`)
	require.NoError(t, err)
	require.Equal(t, value.String("hi"), v)
}

func TestWhile_HardCapAborts(t *testing.T) {
	_, err := run(t, `
fn main(): Unit {
	let x = true
	while x {
	}
}
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "likely infinite loop")
}

func TestWhile_StopsAssoonAsConditionIsFalse(t *testing.T) {
	v, err := run(t, `
fn main(): String {
	let x = true
	let count = "zero"
	while x {
		count = "one"
		x = false
	}
	return count
}
`)
	require.NoError(t, err)
	require.Equal(t, value.String("one"), v)
}

// If bodies are non-root child contexts; a VariableAssignment inside one
// still reaches the enclosing frame's declaration (spec §3: contexts only
// stop lookup/assign at a frame boundary, not at every child scope).
func TestIf_VariableAssignmentReachesEnclosingScope(t *testing.T) {
	v, err := run(t, `
fn main(): String {
	let x = "before"
	if true {
		x = "after"
	}
	return x
}
`)
	require.NoError(t, err)
	require.Equal(t, value.String("after"), v)
}

// A callee's frame is isolated from its caller's locals (OQ-1): a fresh
// frame root never sees the caller's variables, so referencing one
// undeclared fails type-checking before evaluation is ever reached.
func TestCall_CalleeDoesNotSeeCallerLocals(t *testing.T) {
	sm := source.NewMap()
	fid := sm.Add("<test>", `
fn helper(): String { return x }
fn main(): String {
	let x = "outer"
	return helper()
}
`)
	mod, err := parser.Parse(sm, fid)
	require.NoError(t, err)

	_, err = checker.CheckModule(mod)
	require.Error(t, err)
}

// With no return statement but a non-Unit return type and at least one
// injected event, the function body falls through to typed synthesis
// (spec §4.4); the PrintEngine's typed() returns the type's zero value.
func TestFallThrough_SynthesizesFromEvents(t *testing.T) {
	v, err := run(t, `
fn main(): String {
	"an event"!
}
`)
	require.NoError(t, err)
	require.Equal(t, value.String(""), v)
}

// With no return and no accumulated events at all, the function falls
// back to the last statement's evaluated value rather than erroring or
// asking the engine to guess.
func TestFallThrough_NoEvents_ReturnsLastStatementValue(t *testing.T) {
	v, err := run(t, `
fn main(): String {
	let msg = "stored"
	msg
}
`)
	require.NoError(t, err)
	require.Equal(t, value.String("stored"), v)
}

// A Unit-returning function with no explicit return always succeeds with
// Unit, regardless of events.
func TestFallThrough_UnitReturnNeedsNoSynthesis(t *testing.T) {
	v, err := run(t, `fn main(): Unit { }`)
	require.NoError(t, err)
	require.Equal(t, value.Unit{}, v)
}

// select always resolves its chosen clause's run-expression into the
// result variable before evaluating expression_next; PrintEngine.Select
// always picks branch 0.
func TestSelect_EvaluatesChosenClause(t *testing.T) {
	v, err := run(t, `
fn main(): String {
	return select {
		"first" as r => r,
		"second" as r => r
	}
}
`)
	require.NoError(t, err)
	require.Equal(t, value.String("first"), v)
}

// A bare trailing select (no return, no events) is itself the function's
// last statement: its value falls out through the same no-events
// fallback as any other expression statement.
func TestFallThrough_BareSelect_ReturnsChosenClauseValue(t *testing.T) {
	v, err := run(t, `
fn main(): String {
	select {
		"A" as r => r,
		"B" as r => r
	}
}
`)
	require.NoError(t, err)
	require.Equal(t, value.String("A"), v)
}

// A Placeholder call argument is resolved by asking the engine for a
// value of the declared parameter type; PrintEngine.Typed returns the
// type's zero value.
func TestCall_PlaceholderArgumentIsSynthesized(t *testing.T) {
	v, err := run(t, `
fn greet(name: String): String { return name }
fn main(): String { return greet(_) }
`)
	require.NoError(t, err)
	require.Equal(t, value.String(""), v)
}

// Injections in a nested if-body are visible (after propagation) to the
// enclosing function's typed synthesis, per spec §4.7's ordering rule.
func TestEventPropagation_NestedInjectionReachesFrameRoot(t *testing.T) {
	v, err := run(t, `
fn main(): String {
	if true {
		"nested event"!
	}
}
`)
	require.NoError(t, err)
	require.Equal(t, value.String(""), v)
}

func TestBooleanLiteralsAndIfElse(t *testing.T) {
	v, err := run(t, `
fn main(): Boolean {
	return if false { true } else { false }
}
`)
	require.NoError(t, err)
	require.Equal(t, value.Boolean(false), v)
}

func TestListLiteral(t *testing.T) {
	v, err := run(t, `
fn main(): List<String> {
	return ["a", "b", "c"]
}
`)
	require.NoError(t, err)
	require.Equal(t, value.List{Elements: []string{"a", "b", "c"}}, v)
}

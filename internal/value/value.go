// Package value implements the runtime value model: ExpressionValue and
// ExpressionResult from spec §3.
package value

import (
	"fmt"
	"strings"
)

// Value is the tagged union Unit | String | Boolean | List | Option.
// It is implemented as a Go interface over small value structs rather than
// a trait-object tree (S-2): every node is a plain comparable value.
type Value interface {
	isValue()
	String() string
}

// Unit is the sole inhabitant of the () type.
type Unit struct{}

func (Unit) isValue()        {}
func (Unit) String() string { return "()" }

// String wraps a string value.
type String string

func (String) isValue()          {}
func (s String) String() string { return string(s) }

// Boolean wraps a boolean value.
type Boolean bool

func (Boolean) isValue() {}
func (b Boolean) String() string {
	if b {
		return "true"
	}
	return "false"
}

// List is the columnar string-list representation described in spec §3:
// list elements are stored as their string form regardless of declared
// element type, and interpreted against ElemIsBoolean when read back.
type List struct {
	Elements      []string
	ElemIsBoolean bool
}

func (List) isValue() {}
func (l List) String() string {
	return "[" + strings.Join(l.Elements, ", ") + "]"
}

// BooleanAt interprets element i of a boolean-typed list.
func (l List) BooleanAt(i int) bool {
	return l.Elements[i] == "true"
}

// Option wraps an optional value: nil means None, non-nil means Some(Inner).
type Option struct {
	Inner Value // nil for None
}

func (Option) isValue() {}
func (o Option) String() string {
	if o.Inner == nil {
		return "None"
	}
	return fmt.Sprintf("Some(%s)", o.Inner.String())
}

// IsSome reports whether the option holds a value.
func (o Option) IsSome() bool { return o.Inner != nil }

// Equal implements structural value equality.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Unit:
		_, ok := b.(Unit)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Boolean:
		bv, ok := b.(Boolean)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if av.Elements[i] != bv.Elements[i] {
				return false
			}
		}
		return true
	case Option:
		bv, ok := b.(Option)
		if !ok {
			return false
		}
		if av.Inner == nil || bv.Inner == nil {
			return av.Inner == nil && bv.Inner == nil
		}
		return Equal(av.Inner, bv.Inner)
	default:
		return false
	}
}

// Result wraps a Value with optional trace metadata (§3).
type Result struct {
	Value  Value
	Name   *string
	Params []string
}

// NewResult builds a bare Result with no metadata.
func NewResult(v Value) Result {
	return Result{Value: v}
}

// Package checker implements the two-pass static type checker from spec §4.2.
package checker

import (
	"github.com/wigmorewelsh/structured-agent/internal/ast"
	"github.com/wigmorewelsh/structured-agent/internal/diagnostics"
	"github.com/wigmorewelsh/structured-agent/internal/source"
	"github.com/wigmorewelsh/structured-agent/internal/types"
)

// Signature is the checked shape of a Function or ExternalFunction.
type Signature struct {
	Name       string
	Parameters []ast.Param
	ReturnType types.Type
}

// scope is a chain of variable-type environments. A frame boundary stops
// VariableAssignment and (per OQ-1) Variable lookups from crossing into an
// enclosing function's scope; an ordinary block scope does not leak its own
// bindings back out to its parent once it is done with it (scope discipline,
// spec §8).
type scope struct {
	vars        map[string]types.Type
	parent      *scope
	frameBoundary bool
}

func newFrame(parent *scope) *scope {
	return &scope{vars: make(map[string]types.Type), parent: parent, frameBoundary: true}
}

func newChild(parent *scope) *scope {
	return &scope{vars: make(map[string]types.Type), parent: parent}
}

func (s *scope) declare(name string, t types.Type) {
	s.vars[name] = t
}

// lookup implements OQ-1's resolution: reads stop at the frame boundary.
func (s *scope) lookup(name string) (types.Type, bool) {
	cur := s
	for cur != nil {
		if t, ok := cur.vars[name]; ok {
			return t, true
		}
		if cur.frameBoundary {
			return nil, false
		}
		cur = cur.parent
	}
	return nil, false
}

// assign finds the nearest scope holding name, without crossing a frame
// boundary, and reports whether it exists (the caller still checks the RHS
// type itself).
func (s *scope) assign(name string) (types.Type, bool) {
	cur := s
	for cur != nil {
		if t, ok := cur.vars[name]; ok {
			return t, true
		}
		if cur.frameBoundary {
			return nil, false
		}
		cur = cur.parent
	}
	return nil, false
}

// Checker validates a module's declared types and expression/statement
// shapes against the closed type set.
type Checker struct {
	sigs map[string]Signature
}

// CheckModule runs both passes over mod and returns the signature table
// plus the first error encountered, if any.
func CheckModule(mod *ast.Module) (map[string]Signature, error) {
	c := &Checker{sigs: make(map[string]Signature)}

	// Pass 1: collect signatures.
	for _, def := range mod.Defs {
		switch d := def.(type) {
		case *ast.Function:
			if err := c.checkDeclaredType(d.ReturnType, d.Span()); err != nil {
				return nil, err
			}
			for _, p := range d.Parameters {
				if err := c.checkDeclaredType(p.Type, d.Span()); err != nil {
					return nil, err
				}
			}
			c.sigs[d.Name] = Signature{Name: d.Name, Parameters: d.Parameters, ReturnType: d.ReturnType}
		case *ast.ExternalFunction:
			if err := c.checkDeclaredType(d.ReturnType, d.Span()); err != nil {
				return nil, err
			}
			for _, p := range d.Parameters {
				if err := c.checkDeclaredType(p.Type, d.Span()); err != nil {
					return nil, err
				}
			}
			c.sigs[d.Name] = Signature{Name: d.Name, Parameters: d.Parameters, ReturnType: d.ReturnType}
		}
	}

	if mainSig, ok := c.sigs["main"]; !ok {
		return nil, diagnostics.New(diagnostics.CategoryType, "module has no 'main' function")
	} else if len(mainSig.Parameters) != 0 {
		return nil, diagnostics.New(diagnostics.CategoryType, "'main' must take zero parameters")
	}

	// Pass 2: check bodies.
	for _, def := range mod.Defs {
		fn, ok := def.(*ast.Function)
		if !ok {
			continue
		}
		frame := newFrame(nil)
		for _, p := range fn.Parameters {
			frame.declare(p.Name, p.Type)
		}
		if err := c.checkBody(fn.Body, frame, fn.ReturnType); err != nil {
			return nil, err
		}
	}

	return c.sigs, nil
}

func (c *Checker) checkDeclaredType(t types.Type, span source.Span) error {
	if !types.Supported(t) {
		return diagnostics.NewAt(diagnostics.CategoryType, span, "unsupported type",
			"UnsupportedType: %s is not one of the closed set of supported types", t.String())
	}
	return nil
}

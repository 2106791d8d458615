// Package registry implements the function registry and FunctionProvider
// abstraction from spec §4.5: resolution of user functions and external
// functions (native, MCP, or any future provider) behind one signature-match
// rule.
package registry

import (
	"context"
	"fmt"

	"github.com/wigmorewelsh/structured-agent/internal/ast"
	"github.com/wigmorewelsh/structured-agent/internal/types"
	"github.com/wigmorewelsh/structured-agent/internal/value"
)

// ExternalFunctionDefinition is the signature one provider advertises for a
// single tool.
type ExternalFunctionDefinition struct {
	Name          string
	Parameters    []ast.Param
	ReturnType    types.Type
	Documentation string
}

// ExecutableFunction is an invocable representation of one external tool,
// produced by a FunctionProvider for a chosen definition.
type ExecutableFunction interface {
	Invoke(ctx context.Context, args []value.Value) (value.Value, error)
}

// FunctionProvider is a source of external functions: native built-ins, an
// MCP server, or any future extension (S-5).
type FunctionProvider interface {
	// Name identifies the provider for diagnostics (e.g. "native", "mcp:git").
	Name() string
	ListFunctions() []ExternalFunctionDefinition
	CreateExpression(def ExternalFunctionDefinition) (ExecutableFunction, error)
}

// Registry holds the two function tables from spec §4.5: user functions
// (by name, resolved by the compiler directly from the AST) and external
// functions (materialized from providers).
type Registry struct {
	providers []FunctionProvider
	externals map[string]resolvedExternal
}

type resolvedExternal struct {
	def ExternalFunctionDefinition
	fn  ExecutableFunction
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{externals: make(map[string]resolvedExternal)}
}

// Register adds a provider. Providers are consulted in registration order;
// OQ-3's resolution is stable first-match with a collision warning.
func (r *Registry) Register(p FunctionProvider) {
	r.providers = append(r.providers, p)
}

// CollisionWarning is returned alongside a successful Resolve when more than
// one provider advertises the same tool name (OQ-3).
type CollisionWarning struct {
	Name      string
	Providers []string
}

// ResolveExternals matches every ExternalFunction declaration in mod against
// the union of provider catalogues: name equal, parameter list equal
// (name & type), return type equal, and the provider must own the name. The
// first registered matching provider wins.
func (r *Registry) ResolveExternals(mod *ast.Module) ([]CollisionWarning, error) {
	var warnings []CollisionWarning

	for _, def := range mod.Defs {
		ext, ok := def.(*ast.ExternalFunction)
		if !ok {
			continue
		}

		var matches []struct {
			provider FunctionProvider
			def      ExternalFunctionDefinition
		}
		for _, p := range r.providers {
			for _, candidate := range p.ListFunctions() {
				if signatureEquals(ext, candidate) {
					matches = append(matches, struct {
						provider FunctionProvider
						def      ExternalFunctionDefinition
					}{p, candidate})
				}
			}
		}

		if len(matches) == 0 {
			return warnings, r.noMatchError(ext)
		}

		chosen := matches[0]
		if len(matches) > 1 {
			var names []string
			for _, m := range matches {
				names = append(names, m.provider.Name())
			}
			warnings = append(warnings, CollisionWarning{Name: ext.Name, Providers: names})
		}

		fn, err := chosen.provider.CreateExpression(chosen.def)
		if err != nil {
			return warnings, fmt.Errorf("resolution error: provider %s failed to create %q: %w", chosen.provider.Name(), ext.Name, err)
		}
		r.externals[ext.Name] = resolvedExternal{def: chosen.def, fn: fn}
	}

	return warnings, nil
}

func signatureEquals(ext *ast.ExternalFunction, candidate ExternalFunctionDefinition) bool {
	if ext.Name != candidate.Name {
		return false
	}
	if !types.Equal(ext.ReturnType, candidate.ReturnType) {
		return false
	}
	if len(ext.Parameters) != len(candidate.Parameters) {
		return false
	}
	for i, p := range ext.Parameters {
		cp := candidate.Parameters[i]
		if p.Name != cp.Name || !types.Equal(p.Type, cp.Type) {
			return false
		}
	}
	return true
}

func (r *Registry) noMatchError(ext *ast.ExternalFunction) error {
	msg := fmt.Sprintf("no provider supplies a matching signature for extern fn %s(", ext.Name)
	for i, p := range ext.Parameters {
		if i > 0 {
			msg += ", "
		}
		msg += fmt.Sprintf("%s: %s", p.Name, p.Type.String())
	}
	msg += fmt.Sprintf("): %s\nexpected signature:\n  %s\navailable signatures:\n", ext.ReturnType.String(), formatSig(ext.Name, ext.Parameters, ext.ReturnType))
	for _, p := range r.providers {
		for _, def := range p.ListFunctions() {
			msg += fmt.Sprintf("  [%s] %s\n", p.Name(), formatSig(def.Name, def.Parameters, def.ReturnType))
		}
	}
	return fmt.Errorf("%s", msg)
}

func formatSig(name string, params []ast.Param, ret types.Type) string {
	s := name + "("
	for i, p := range params {
		if i > 0 {
			s += ", "
		}
		s += p.Name + ": " + p.Type.String()
	}
	return s + "): " + ret.String()
}

// Lookup returns the resolved ExecutableFunction and declared definition for
// an already-resolved external function.
func (r *Registry) Lookup(name string) (ExecutableFunction, ExternalFunctionDefinition, bool) {
	re, ok := r.externals[name]
	if !ok {
		return nil, ExternalFunctionDefinition{}, false
	}
	return re.fn, re.def, true
}

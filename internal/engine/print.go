// Package engine collects LanguageEngine implementations. PrintEngine is
// the deterministic reference engine from spec §4.6: it performs no model
// calls at all, making it suitable for tests and for `check`-only runs.
package engine

import (
	"context"
	"fmt"

	"github.com/wigmorewelsh/structured-agent/internal/evalctx"
	"github.com/wigmorewelsh/structured-agent/internal/value"
)

// PrintEngine never calls out to a model: untyped synthesis returns a
// fixed placeholder string, typed synthesis returns the zero value of the
// requested type, and select always picks branch 0.
type PrintEngine struct{}

func NewPrintEngine() *PrintEngine { return &PrintEngine{} }

func (PrintEngine) Untyped(ctx context.Context, ec *evalctx.Context) (string, error) {
	return "<synthesized>", nil
}

func (PrintEngine) Typed(ctx context.Context, ec *evalctx.Context, want evalctx.TypeDescriptor) (value.Value, error) {
	return zeroValue(want), nil
}

func (PrintEngine) Select(ctx context.Context, ec *evalctx.Context, descriptions []string) (int, error) {
	if len(descriptions) == 0 {
		return 0, fmt.Errorf("select has no branches to choose from")
	}
	return 0, nil
}

func zeroValue(t evalctx.TypeDescriptor) value.Value {
	switch t.Name {
	case "Unit":
		return value.Unit{}
	case "Boolean":
		return value.Boolean(false)
	case "String":
		return value.String("")
	case "List":
		return value.List{}
	case "Option":
		return value.Option{}
	default:
		return value.Unit{}
	}
}

package acp

import (
	"context"
	"fmt"

	"github.com/wigmorewelsh/structured-agent/internal/ast"
	"github.com/wigmorewelsh/structured-agent/internal/registry"
	"github.com/wigmorewelsh/structured-agent/internal/types"
	"github.com/wigmorewelsh/structured-agent/internal/value"
)

// receiveProvider supplies the single `receive(): String` native function
// an ACP-hosted program uses to pull the next prompt sent by the client,
// grounded on the original implementation's ReceiveFunction: a zero-arg
// call that blocks on a channel until one prompt arrives.
type receiveProvider struct {
	promptCh <-chan string
}

func newReceiveProvider(ch <-chan string) *receiveProvider {
	return &receiveProvider{promptCh: ch}
}

func (*receiveProvider) Name() string { return "acp" }

func (*receiveProvider) ListFunctions() []registry.ExternalFunctionDefinition {
	return []registry.ExternalFunctionDefinition{
		{
			Name:          "receive",
			Parameters:    []ast.Param{},
			ReturnType:    types.String{},
			Documentation: "Blocks until the client sends the next prompt, then returns its text.",
		},
	}
}

func (p *receiveProvider) CreateExpression(def registry.ExternalFunctionDefinition) (registry.ExecutableFunction, error) {
	return receiveFunc{ch: p.promptCh}, nil
}

type receiveFunc struct {
	ch <-chan string
}

func (f receiveFunc) Invoke(ctx context.Context, args []value.Value) (value.Value, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("receive expects 0 arguments, got %d", len(args))
	}
	select {
	case content, ok := <-f.ch:
		if !ok {
			return nil, fmt.Errorf("prompt channel closed")
		}
		return value.String(content), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

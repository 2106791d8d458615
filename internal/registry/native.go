package registry

import (
	"context"
	"fmt"
	"net/http"
	"io"
	"strings"
	"time"

	"github.com/wigmorewelsh/structured-agent/internal/ast"
	"github.com/wigmorewelsh/structured-agent/internal/types"
	"github.com/wigmorewelsh/structured-agent/internal/value"
)

// NativeProvider supplies the built-in external functions described in
// spec §4.5 (print, input) plus the unstable Option/List helpers and the
// host-interaction natives (httpGet, httpPost, now, sleep).
//
// print and input are gated behind WithDefaultFunctions, and the
// Option/List helpers behind WithUnstableFunctions, mirroring the
// original CLI's --with-default-functions / --with-unstable-functions
// flags; the host-interaction natives are unconditional additions.
type NativeProvider struct {
	Stdout                io.Writer
	Stdin                 io.Reader
	WithDefaultFunctions  bool
	WithUnstableFunctions bool
}

func NewNativeProvider(stdout io.Writer, stdin io.Reader) *NativeProvider {
	return &NativeProvider{Stdout: stdout, Stdin: stdin}
}

func (n *NativeProvider) Name() string { return "native" }

func (n *NativeProvider) ListFunctions() []ExternalFunctionDefinition {
	var defs []ExternalFunctionDefinition
	if n.WithDefaultFunctions {
		defs = append(defs, defaultFunctionDefs...)
	}
	if n.WithUnstableFunctions {
		defs = append(defs, unstableFunctionDefs...)
	}
	defs = append(defs, hostFunctionDefs...)
	return defs
}

var defaultFunctionDefs = []ExternalFunctionDefinition{
	{
		Name:          "print",
		Parameters:    []ast.Param{{Name: "message", Type: types.String{}}},
		ReturnType:    types.Unit{},
		Documentation: "Writes message followed by a newline to standard output.",
	},
	{
		Name:          "input",
		Parameters:    []ast.Param{{Name: "prompt", Type: types.String{}}},
		ReturnType:    types.String{},
		Documentation: "Writes prompt, then reads one line from standard input.",
	},
}

var unstableFunctionDefs = []ExternalFunctionDefinition{
	{
		Name:          "head",
		Parameters:    []ast.Param{{Name: "xs", Type: types.List{Elem: types.String{}}}},
		ReturnType:    types.Option{Elem: types.String{}},
		Documentation: "Returns the first element, or None if xs is empty. Unstable.",
	},
	{
		Name:          "tail",
		Parameters:    []ast.Param{{Name: "xs", Type: types.List{Elem: types.String{}}}},
		ReturnType:    types.List{Elem: types.String{}},
		Documentation: "Returns every element after the first, or [] if xs has fewer than two. Unstable.",
	},
	{
		Name:          "is_some",
		Parameters:    []ast.Param{{Name: "opt", Type: types.Option{Elem: types.String{}}}},
		ReturnType:    types.Boolean{},
		Documentation: "Unstable.",
	},
	{
		Name:          "some_value",
		Parameters:    []ast.Param{{Name: "opt", Type: types.Option{Elem: types.String{}}}},
		ReturnType:    types.String{},
		Documentation: "Unwraps opt; errors at runtime if it is None. Unstable.",
	},
	{
		Name:          "is_some_list",
		Parameters:    []ast.Param{{Name: "opt", Type: types.Option{Elem: types.List{Elem: types.String{}}}}},
		ReturnType:    types.Boolean{},
		Documentation: "Unstable.",
	},
	{
		Name:          "some_value_list",
		Parameters:    []ast.Param{{Name: "opt", Type: types.Option{Elem: types.List{Elem: types.String{}}}}},
		ReturnType:    types.List{Elem: types.String{}},
		Documentation: "Unwraps opt; errors at runtime if it is None. Unstable.",
	},
}

var hostFunctionDefs = []ExternalFunctionDefinition{
	{
		Name:          "httpGet",
		Parameters:    []ast.Param{{Name: "url", Type: types.String{}}},
		ReturnType:    types.String{},
		Documentation: "Issues a GET request and returns the response body as a string.",
	},
	{
		Name:          "httpPost",
		Parameters:    []ast.Param{{Name: "url", Type: types.String{}}, {Name: "body", Type: types.String{}}},
		ReturnType:    types.String{},
		Documentation: "Issues a POST request with body and returns the response body as a string.",
	},
	{
		Name:          "now",
		Parameters:    nil,
		ReturnType:    types.String{},
		Documentation: "Returns the current time, RFC3339-formatted.",
	},
	{
		Name:          "sleep",
		Parameters:    []ast.Param{{Name: "millis", Type: types.String{}}},
		ReturnType:    types.Unit{},
		Documentation: "Blocks for the given number of milliseconds.",
	},
}

func (n *NativeProvider) CreateExpression(def ExternalFunctionDefinition) (ExecutableFunction, error) {
	fn, ok := nativeImpls[def.Name]
	if !ok {
		return nil, fmt.Errorf("native provider has no implementation for %q", def.Name)
	}
	return nativeFunc{provider: n, fn: fn}, nil
}

type nativeFunc struct {
	provider *NativeProvider
	fn       func(n *NativeProvider, ctx context.Context, args []value.Value) (value.Value, error)
}

func (f nativeFunc) Invoke(ctx context.Context, args []value.Value) (value.Value, error) {
	return f.fn(f.provider, ctx, args)
}

var nativeImpls = map[string]func(n *NativeProvider, ctx context.Context, args []value.Value) (value.Value, error){
	"print": func(n *NativeProvider, ctx context.Context, args []value.Value) (value.Value, error) {
		s, ok := args[0].(value.String)
		if !ok {
			return nil, fmt.Errorf("print: expected String argument")
		}
		fmt.Fprintln(n.Stdout, string(s))
		return value.Unit{}, nil
	},
	"input": func(n *NativeProvider, ctx context.Context, args []value.Value) (value.Value, error) {
		prompt, ok := args[0].(value.String)
		if !ok {
			return nil, fmt.Errorf("input: expected String argument")
		}
		if n.Stdin == nil {
			return nil, fmt.Errorf("input: no standard input available in this session")
		}
		if string(prompt) != "" {
			fmt.Fprint(n.Stdout, string(prompt))
		}
		var line strings.Builder
		buf := make([]byte, 1)
		for {
			_, err := n.Stdin.Read(buf)
			if err != nil {
				break
			}
			if buf[0] == '\n' {
				break
			}
			line.WriteByte(buf[0])
		}
		return value.String(strings.TrimSuffix(line.String(), "\r")), nil
	},
	"head": func(n *NativeProvider, ctx context.Context, args []value.Value) (value.Value, error) {
		l, ok := args[0].(value.List)
		if !ok {
			return nil, fmt.Errorf("head: expected List argument")
		}
		if len(l.Elements) == 0 {
			return value.Option{}, nil
		}
		return value.Option{Inner: value.String(l.Elements[0])}, nil
	},
	"tail": func(n *NativeProvider, ctx context.Context, args []value.Value) (value.Value, error) {
		l, ok := args[0].(value.List)
		if !ok {
			return nil, fmt.Errorf("tail: expected List argument")
		}
		if len(l.Elements) < 2 {
			return value.List{}, nil
		}
		return value.List{Elements: append([]string{}, l.Elements[1:]...)}, nil
	},
	"is_some": func(n *NativeProvider, ctx context.Context, args []value.Value) (value.Value, error) {
		o, ok := args[0].(value.Option)
		if !ok {
			return nil, fmt.Errorf("is_some: expected Option argument")
		}
		return value.Boolean(o.IsSome()), nil
	},
	"some_value": func(n *NativeProvider, ctx context.Context, args []value.Value) (value.Value, error) {
		o, ok := args[0].(value.Option)
		if !ok || !o.IsSome() {
			return nil, fmt.Errorf("some_value: called on None")
		}
		return o.Inner, nil
	},
	"is_some_list": func(n *NativeProvider, ctx context.Context, args []value.Value) (value.Value, error) {
		o, ok := args[0].(value.Option)
		if !ok {
			return nil, fmt.Errorf("is_some_list: expected Option argument")
		}
		return value.Boolean(o.IsSome()), nil
	},
	"some_value_list": func(n *NativeProvider, ctx context.Context, args []value.Value) (value.Value, error) {
		o, ok := args[0].(value.Option)
		if !ok || !o.IsSome() {
			return nil, fmt.Errorf("some_value_list: called on None")
		}
		return o.Inner, nil
	},
	"httpGet": func(n *NativeProvider, ctx context.Context, args []value.Value) (value.Value, error) {
		url, ok := args[0].(value.String)
		if !ok {
			return nil, fmt.Errorf("httpGet: expected String argument")
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, string(url), nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return value.String(body), nil
	},
	"httpPost": func(n *NativeProvider, ctx context.Context, args []value.Value) (value.Value, error) {
		url, ok := args[0].(value.String)
		if !ok {
			return nil, fmt.Errorf("httpPost: expected String argument")
		}
		body, ok := args[1].(value.String)
		if !ok {
			return nil, fmt.Errorf("httpPost: expected String body argument")
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, string(url), strings.NewReader(string(body)))
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return value.String(respBody), nil
	},
	"now": func(n *NativeProvider, ctx context.Context, args []value.Value) (value.Value, error) {
		return value.String(time.Now().Format(time.RFC3339)), nil
	},
	"sleep": func(n *NativeProvider, ctx context.Context, args []value.Value) (value.Value, error) {
		s, ok := args[0].(value.String)
		if !ok {
			return nil, fmt.Errorf("sleep: expected String argument holding a millisecond count")
		}
		var millis int64
		if _, err := fmt.Sscanf(string(s), "%d", &millis); err != nil {
			return nil, fmt.Errorf("sleep: %q is not a valid millisecond count", string(s))
		}
		select {
		case <-time.After(time.Duration(millis) * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return value.Unit{}, nil
	},
}

package registry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wigmorewelsh/structured-agent/internal/value"
)

func invoke(t *testing.T, n *NativeProvider, name string, args ...value.Value) (value.Value, error) {
	t.Helper()
	fn, ok := nativeImpls[name]
	require.True(t, ok, "no native impl registered for %q", name)
	return fn(n, context.Background(), args)
}

func TestNative_Print(t *testing.T) {
	var out bytes.Buffer
	n := NewNativeProvider(&out, nil)

	v, err := invoke(t, n, "print", value.String("hello"))
	require.NoError(t, err)
	require.Equal(t, value.Unit{}, v)
	require.Equal(t, "hello\n", out.String())
}

func TestNative_Input_NilStdinErrors(t *testing.T) {
	n := NewNativeProvider(&bytes.Buffer{}, nil)

	_, err := invoke(t, n, "input", value.String("prompt: "))
	require.Error(t, err)
	require.Contains(t, err.Error(), "no standard input available")
}

func TestNative_Input_ReadsOneLine(t *testing.T) {
	var out bytes.Buffer
	n := NewNativeProvider(&out, strings.NewReader("answer\nrest of stream"))

	v, err := invoke(t, n, "input", value.String("prompt: "))
	require.NoError(t, err)
	require.Equal(t, value.String("answer"), v)
	require.Equal(t, "prompt: ", out.String())
}

func TestNative_HeadAndTail(t *testing.T) {
	n := NewNativeProvider(&bytes.Buffer{}, nil)

	v, err := invoke(t, n, "head", value.List{Elements: []string{"a", "b", "c"}})
	require.NoError(t, err)
	require.Equal(t, value.Option{Inner: value.String("a")}, v)

	v, err = invoke(t, n, "tail", value.List{Elements: []string{"a", "b", "c"}})
	require.NoError(t, err)
	require.Equal(t, value.List{Elements: []string{"b", "c"}}, v)

	v, err = invoke(t, n, "head", value.List{})
	require.NoError(t, err)
	require.Equal(t, value.Option{}, v)

	v, err = invoke(t, n, "tail", value.List{Elements: []string{"only"}})
	require.NoError(t, err)
	require.Equal(t, value.List{}, v)
}

func TestNative_IsSomeAndSomeValue(t *testing.T) {
	n := NewNativeProvider(&bytes.Buffer{}, nil)

	v, err := invoke(t, n, "is_some", value.Option{Inner: value.String("x")})
	require.NoError(t, err)
	require.Equal(t, value.Boolean(true), v)

	v, err = invoke(t, n, "is_some", value.Option{})
	require.NoError(t, err)
	require.Equal(t, value.Boolean(false), v)

	v, err = invoke(t, n, "some_value", value.Option{Inner: value.String("x")})
	require.NoError(t, err)
	require.Equal(t, value.String("x"), v)

	_, err = invoke(t, n, "some_value", value.Option{})
	require.Error(t, err)
}

func TestNativeProvider_ListFunctions_GatedByFlags(t *testing.T) {
	n := NewNativeProvider(&bytes.Buffer{}, nil)
	defs := n.ListFunctions()
	names := defNames(defs)
	require.NotContains(t, names, "print")
	require.NotContains(t, names, "head")
	require.Contains(t, names, "httpGet") // host functions are unconditional

	n.WithDefaultFunctions = true
	names = defNames(n.ListFunctions())
	require.Contains(t, names, "print")
	require.Contains(t, names, "input")
	require.NotContains(t, names, "head")

	n.WithUnstableFunctions = true
	names = defNames(n.ListFunctions())
	require.Contains(t, names, "head")
	require.Contains(t, names, "some_value")
}

func defNames(defs []ExternalFunctionDefinition) []string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

func TestNativeProvider_CreateExpression_UnknownNameErrors(t *testing.T) {
	n := NewNativeProvider(&bytes.Buffer{}, nil)
	_, err := n.CreateExpression(ExternalFunctionDefinition{Name: "nonexistent"})
	require.Error(t, err)
}

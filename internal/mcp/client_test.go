package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wigmorewelsh/structured-agent/internal/registry"
	"github.com/wigmorewelsh/structured-agent/internal/types"
	"github.com/wigmorewelsh/structured-agent/internal/value"
)

func TestFramedMessage_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFramedMessage(&buf, []byte(`{"hello":"world"}`)))

	msg, err := readFramedMessage(bufio.NewReader(&buf))
	require.NoError(t, err)
	require.JSONEq(t, `{"hello":"world"}`, string(msg))
}

func TestJSONSchemaType(t *testing.T) {
	tests := []struct {
		in        string
		want      types.Type
		supported bool
	}{
		{"string", types.String{}, true},
		{"boolean", types.Boolean{}, true},
		{"", types.String{}, true},
		{"number", nil, false},
		{"object", nil, false},
	}
	for _, tc := range tests {
		got, ok := jsonSchemaType(tc.in)
		require.Equal(t, tc.supported, ok, tc.in)
		if tc.supported {
			require.Equal(t, tc.want, got, tc.in)
		}
	}
}

func TestArgToJSON(t *testing.T) {
	require.Equal(t, "hi", argToJSON(value.String("hi")))
	require.Equal(t, true, argToJSON(value.Boolean(true)))
	require.Equal(t, []string{"a", "b"}, argToJSON(value.List{Elements: []string{"a", "b"}}))
	require.Equal(t, "()", argToJSON(value.Unit{}))
}

// newInMemoryClient wires a Client to an in-process pipe pair instead of a
// real subprocess, with handle driving the other end as a fake MCP server.
func newInMemoryClient(t *testing.T, handle func(method string, params json.RawMessage) (result json.RawMessage, isErr bool, errMsg string)) *Client {
	t.Helper()

	// requests flow client -> reqW -> reqR -> fake server
	reqR, reqW := io.Pipe()
	// responses flow fake server -> respW -> respR -> client
	respR, respW := io.Pipe()

	c := &Client{name: "fake", in: reqW, out: bufio.NewReader(respR), pending: make(map[string]chan rpcResponse)}
	go c.readLoop()

	go func() {
		serverReader := bufio.NewReader(reqR)
		for {
			msg, err := readFramedMessage(serverReader)
			if err != nil {
				return
			}
			var req rpcRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				return
			}
			result, isErr, errMsg := handle(req.Method, mustMarshal(req.Params))
			resp := rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
			if isErr {
				resp.Error = &rpcError{Code: -1, Message: errMsg}
			}
			payload, _ := json.Marshal(resp)
			writeFramedMessage(respW, payload)
		}
	}()

	t.Cleanup(func() {
		reqR.Close()
		respW.Close()
	})

	return c
}

func mustMarshal(v interface{}) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func TestClient_ListFunctions_TranslatesSupportedParameters(t *testing.T) {
	c := newInMemoryClient(t, func(method string, params json.RawMessage) (json.RawMessage, bool, string) {
		require.Equal(t, "tools/list", method)
		return mustMarshal(map[string]interface{}{
			"tools": []map[string]interface{}{
				{
					"name":        "greet",
					"description": "says hello",
					"inputSchema": map[string]interface{}{
						"properties": map[string]interface{}{
							"name": map[string]string{"type": "string"},
						},
					},
					"outputType": "string",
				},
			},
		}), false, ""
	})

	defs := c.ListFunctions()
	require.Len(t, defs, 1)
	require.Equal(t, "greet", defs[0].Name)
	require.Equal(t, types.String{}, defs[0].ReturnType)
	require.Len(t, defs[0].Parameters, 1)
	require.Equal(t, "name", defs[0].Parameters[0].Name)
	require.Equal(t, types.String{}, defs[0].Parameters[0].Type)
}

func TestClient_ListFunctions_SkipsToolsWithUnsupportedParamTypes(t *testing.T) {
	c := newInMemoryClient(t, func(method string, params json.RawMessage) (json.RawMessage, bool, string) {
		return mustMarshal(map[string]interface{}{
			"tools": []map[string]interface{}{
				{
					"name": "weird",
					"inputSchema": map[string]interface{}{
						"properties": map[string]interface{}{
							"count": map[string]string{"type": "number"},
						},
					},
				},
			},
		}), false, ""
	})

	require.Empty(t, c.ListFunctions())
}

func TestMcpCallable_Invoke_ReturnsTextContent(t *testing.T) {
	c := newInMemoryClient(t, func(method string, params json.RawMessage) (json.RawMessage, bool, string) {
		require.Equal(t, "tools/call", method)
		return mustMarshal(map[string]interface{}{
			"content": []map[string]string{{"type": "text", "text": "hello there"}},
			"isError": false,
		}), false, ""
	})

	fn, err := c.CreateExpression(registry.ExternalFunctionDefinition{
		Name:       "greet",
		Parameters: nil,
		ReturnType: types.String{},
	})
	require.NoError(t, err)

	v, err := fn.Invoke(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, value.String("hello there"), v)
}

func TestMcpCallable_Invoke_ServerErrorSurfacesAsError(t *testing.T) {
	c := newInMemoryClient(t, func(method string, params json.RawMessage) (json.RawMessage, bool, string) {
		return mustMarshal(map[string]interface{}{
			"content": []map[string]string{{"type": "text", "text": "boom"}},
			"isError": true,
		}), false, ""
	})

	fn, err := c.CreateExpression(registry.ExternalFunctionDefinition{Name: "greet", ReturnType: types.String{}})
	require.NoError(t, err)

	_, err = fn.Invoke(context.Background(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}

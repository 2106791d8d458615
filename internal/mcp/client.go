// Package mcp implements a minimal JSON-RPC 2.0 client over an MCP
// server's stdio transport: the client launches the server as a
// subprocess, frames requests and responses with Content-Length headers,
// and exposes the server's tools as a registry.FunctionProvider.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/google/uuid"

	"github.com/wigmorewelsh/structured-agent/internal/ast"
	"github.com/wigmorewelsh/structured-agent/internal/registry"
	"github.com/wigmorewelsh/structured-agent/internal/types"
	"github.com/wigmorewelsh/structured-agent/internal/value"
)

// ServerConfig describes how to launch one MCP server.
type ServerConfig struct {
	Name    string
	Command string
	Args    []string
}

// Client is one connection to an MCP server's stdio transport, and
// implements registry.FunctionProvider.
type Client struct {
	name string
	cmd  *exec.Cmd
	in   io.WriteCloser
	out  *bufio.Reader

	mu      sync.Mutex
	pending map[string]chan rpcResponse
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Connect launches cfg.Command as a subprocess and starts the response
// reader loop.
func Connect(cfg ServerConfig) (*Client, error) {
	cmd := exec.Command(cfg.Command, cfg.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("mcp: stdin pipe for %s: %w", cfg.Name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("mcp: stdout pipe for %s: %w", cfg.Name, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("mcp: start %s: %w", cfg.Name, err)
	}

	c := &Client{
		name:    cfg.Name,
		cmd:     cmd,
		in:      stdin,
		out:     bufio.NewReader(stdout),
		pending: make(map[string]chan rpcResponse),
	}
	go c.readLoop()
	return c, nil
}

// Name implements registry.FunctionProvider.
func (c *Client) Name() string { return "mcp:" + c.name }

func (c *Client) readLoop() {
	for {
		msg, err := readFramedMessage(c.out)
		if err != nil {
			return
		}
		var resp rpcResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

func readFramedMessage(r *bufio.Reader) ([]byte, error) {
	var contentLength int
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		if line == "\r\n" || line == "\n" {
			break
		}
		fmt.Sscanf(line, "Content-Length: %d", &contentLength)
	}
	if contentLength == 0 {
		return nil, fmt.Errorf("mcp: missing Content-Length header")
	}
	buf := make([]byte, contentLength)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeFramedMessage(w io.Writer, payload []byte) error {
	_, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n%s", len(payload), payload)
	return err
}

func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	id := uuid.NewString()
	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	ch := make(chan rpcResponse, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	if err := writeFramedMessage(c.in, payload); err != nil {
		return nil, fmt.Errorf("mcp: write %s: %w", method, err)
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, fmt.Errorf("mcp: %s: %s (code %d)", method, resp.Error.Message, resp.Error.Code)
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// mcpTool is the wire shape of one entry from a "tools/list" response.
type mcpTool struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	InputSchema toolSchema `json:"inputSchema"`
	OutputType  string     `json:"outputType"`
}

type toolSchema struct {
	Properties map[string]struct {
		Type string `json:"type"`
	} `json:"properties"`
	Required []string `json:"required"`
}

// ListFunctions implements registry.FunctionProvider by calling
// "tools/list" and translating the JSON Schema-ish result into the
// closed type system (spec §4.2): only string/boolean-shaped parameters
// translate; anything else is skipped with no error, since a tool the
// program never declares an `extern fn` for is simply unreachable.
func (c *Client) ListFunctions() []registry.ExternalFunctionDefinition {
	raw, err := c.call(context.Background(), "tools/list", nil)
	if err != nil {
		return nil
	}
	var result struct {
		Tools []mcpTool `json:"tools"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil
	}

	var defs []registry.ExternalFunctionDefinition
	for _, t := range result.Tools {
		var params []ast.Param
		ok := true
		for name, prop := range t.InputSchema.Properties {
			pt, supported := jsonSchemaType(prop.Type)
			if !supported {
				ok = false
				break
			}
			params = append(params, ast.Param{Name: name, Type: pt})
		}
		if !ok {
			continue
		}
		retType, supported := jsonSchemaType(t.OutputType)
		if !supported {
			retType = types.String{}
		}
		defs = append(defs, registry.ExternalFunctionDefinition{
			Name:          t.Name,
			Parameters:    params,
			ReturnType:    retType,
			Documentation: t.Description,
		})
	}
	return defs
}

func jsonSchemaType(s string) (types.Type, bool) {
	switch s {
	case "string":
		return types.String{}, true
	case "boolean":
		return types.Boolean{}, true
	case "":
		return types.String{}, true
	default:
		return nil, false
	}
}

// CreateExpression implements registry.FunctionProvider.
func (c *Client) CreateExpression(def registry.ExternalFunctionDefinition) (registry.ExecutableFunction, error) {
	return mcpCallable{client: c, toolName: def.Name, def: def}, nil
}

type mcpCallable struct {
	client   *Client
	toolName string
	def      registry.ExternalFunctionDefinition
}

func (m mcpCallable) Invoke(ctx context.Context, args []value.Value) (value.Value, error) {
	argMap := make(map[string]interface{}, len(args))
	for i, a := range args {
		if i >= len(m.def.Parameters) {
			break
		}
		argMap[m.def.Parameters[i].Name] = argToJSON(a)
	}

	raw, err := m.client.call(ctx, "tools/call", map[string]interface{}{
		"name":      m.toolName,
		"arguments": argMap,
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("mcp: decode tools/call result: %w", err)
	}
	if result.IsError {
		msg := m.toolName + " reported an error"
		if len(result.Content) > 0 {
			msg = result.Content[0].Text
		}
		return nil, fmt.Errorf("mcp: %s", msg)
	}

	var text string
	if len(result.Content) > 0 {
		text = result.Content[0].Text
	}

	switch m.def.ReturnType.(type) {
	case types.Boolean:
		return value.Boolean(text == "true"), nil
	default:
		return value.String(text), nil
	}
}

func argToJSON(v value.Value) interface{} {
	switch vv := v.(type) {
	case value.String:
		return string(vv)
	case value.Boolean:
		return bool(vv)
	case value.List:
		return vv.Elements
	default:
		return v.String()
	}
}

// Close terminates the subprocess.
func (c *Client) Close() error {
	c.in.Close()
	return c.cmd.Wait()
}

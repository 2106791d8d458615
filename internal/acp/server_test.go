package acp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wigmorewelsh/structured-agent/internal/config"
)

// testClient drives a Server.Serve pipe like an ACP client would: it
// writes framed JSON-RPC requests and reads framed JSON-RPC responses.
type testClient struct {
	t       *testing.T
	toSrv   io.WriteCloser
	fromSrv *bufio.Reader
}

func newTestServer(t *testing.T, inline string) (*Server, *testClient) {
	t.Helper()

	cfg, err := config.Merge(config.CLIArgs{Inline: inline, Mode: config.ModeACP})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server, err := New(cfg, nil, logger)
	require.NoError(t, err)

	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go server.Serve(ctx, reqR, respW)

	return server, &testClient{t: t, toSrv: reqW, fromSrv: bufio.NewReader(respR)}
}

func (c *testClient) send(id, method string, params interface{}) {
	c.t.Helper()
	req := map[string]interface{}{"jsonrpc": "2.0", "id": id, "method": method, "params": params}
	payload, err := json.Marshal(req)
	require.NoError(c.t, err)
	require.NoError(c.t, writeFramed(c.toSrv, payload))
}

func (c *testClient) recv() map[string]interface{} {
	c.t.Helper()
	msg, err := readFramed(c.fromSrv)
	require.NoError(c.t, err)
	var resp map[string]interface{}
	require.NoError(c.t, json.Unmarshal(msg, &resp))
	return resp
}

func TestACP_SessionNew_ReturnsSessionID(t *testing.T) {
	_, client := newTestServer(t, `fn main(): Unit { }`)

	client.send("1", "session/new", map[string]string{})
	resp := client.recv()

	require.Equal(t, "1", resp["id"])
	result, ok := resp["result"].(map[string]interface{})
	require.True(t, ok, "expected a result object, got %#v", resp)
	require.NotEmpty(t, result["sessionId"])
}

func TestACP_PromptDeliveredToReceive(t *testing.T) {
	_, client := newTestServer(t, `
fn main(): String {
	return receive()
}
`)

	client.send("1", "session/new", map[string]string{})
	newResp := client.recv()
	sessionID := newResp["result"].(map[string]interface{})["sessionId"].(string)

	client.send("2", "session/prompt", map[string]string{"sessionId": sessionID, "content": "hello from client"})
	promptResp := client.recv()
	require.Equal(t, "2", promptResp["id"])
	require.Nil(t, promptResp["error"])
}

func TestACP_PromptToUnknownSessionErrors(t *testing.T) {
	_, client := newTestServer(t, `fn main(): Unit { }`)

	client.send("1", "session/prompt", map[string]string{"sessionId": "does-not-exist", "content": "hi"})
	resp := client.recv()
	require.NotNil(t, resp["error"])
}

func TestACP_Cancel_ClosesSessionPromptChannel(t *testing.T) {
	_, client := newTestServer(t, `
fn main(): String {
	return receive()
}
`)

	client.send("1", "session/new", map[string]string{})
	newResp := client.recv()
	sessionID := newResp["result"].(map[string]interface{})["sessionId"].(string)

	client.send("2", "session/cancel", map[string]string{"sessionId": sessionID})
	cancelResp := client.recv()
	require.Equal(t, "2", cancelResp["id"])
	require.Nil(t, cancelResp["error"])

	// A second cancel of the same (now-removed) session still responds
	// without blocking the server loop.
	client.send("3", "session/cancel", map[string]string{"sessionId": sessionID})
	thirdResp := client.recv()
	require.Equal(t, "3", thirdResp["id"])
}

func TestACP_UnknownMethodReturnsError(t *testing.T) {
	_, client := newTestServer(t, `fn main(): Unit { }`)

	client.send("1", "session/bogus", map[string]string{})
	resp := client.recv()
	require.NotNil(t, resp["error"])
}

// Close must not block or panic when there were no MCP servers configured.
func TestServer_Close_NoConnsIsANoop(t *testing.T) {
	server, _ := newTestServer(t, `fn main(): Unit { }`)
	done := make(chan struct{})
	go func() {
		server.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close blocked with no MCP connections configured")
	}
}

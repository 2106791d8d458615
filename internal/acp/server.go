// Package acp serves a checked program over a JSON-RPC-over-stdio
// transport shaped like the MCP framing this module already implements
// (Content-Length headers), exposing three methods: session/new,
// session/prompt, and session/cancel. Each session owns its own
// evaluator instance and a `receive(): String` native that blocks for
// the next prompt, mirroring the original ReceiveFunction/Agent design.
package acp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/wigmorewelsh/structured-agent/internal/acp/tracestore"
	"github.com/wigmorewelsh/structured-agent/internal/ast"
	"github.com/wigmorewelsh/structured-agent/internal/checker"
	"github.com/wigmorewelsh/structured-agent/internal/config"
	"github.com/wigmorewelsh/structured-agent/internal/engine"
	"github.com/wigmorewelsh/structured-agent/internal/engine/gemini"
	"github.com/wigmorewelsh/structured-agent/internal/evalctx"
	"github.com/wigmorewelsh/structured-agent/internal/evaluator"
	"github.com/wigmorewelsh/structured-agent/internal/mcp"
	"github.com/wigmorewelsh/structured-agent/internal/parser"
	"github.com/wigmorewelsh/structured-agent/internal/registry"
	"github.com/wigmorewelsh/structured-agent/internal/source"
)

// Server hosts zero or more concurrent sessions over a single stdio
// connection, all evaluating the same checked program.
type Server struct {
	cfg      config.Config
	mod      *ast.Module
	sigs     map[string]checker.Signature
	trace    *tracestore.Store
	logger   *slog.Logger
	mcpConns []*mcp.Client

	mu       sync.Mutex
	sessions map[string]*Session
}

// New loads and checks the configured program once; every session shares
// the same checked AST and opens its own registry/evaluator.
func New(cfg config.Config, trace *tracestore.Store, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var src, name string
	if cfg.ProgramSource.Inline != "" {
		src, name = cfg.ProgramSource.Inline, "<inline>"
	} else {
		data, err := os.ReadFile(cfg.ProgramSource.File)
		if err != nil {
			return nil, fmt.Errorf("acp: reading %s: %w", cfg.ProgramSource.File, err)
		}
		src, name = string(data), cfg.ProgramSource.File
	}

	sm := source.NewMap()
	fid := sm.Add(name, src)
	mod, err := parser.Parse(sm, fid)
	if err != nil {
		return nil, err
	}
	sigs, err := checker.CheckModule(mod)
	if err != nil {
		return nil, err
	}

	var conns []*mcp.Client
	for _, sc := range cfg.McpServers {
		client, err := mcp.Connect(mcp.ServerConfig{Name: sc.Command, Command: sc.Command, Args: sc.Args})
		if err != nil {
			return nil, fmt.Errorf("acp: connecting to %s: %w", sc.Command, err)
		}
		conns = append(conns, client)
	}

	return &Server{cfg: cfg, mod: mod, sigs: sigs, trace: trace, logger: logger, mcpConns: conns, sessions: make(map[string]*Session)}, nil
}

// Close shuts down every shared MCP server connection.
func (s *Server) Close() {
	for _, c := range s.mcpConns {
		_ = c.Close()
	}
}

// Session is one running conversation: its own evaluator instance, a
// prompt channel feeding `receive()`, and a non-reentrant mutex so only
// one prompt is being processed at a time (spec §5(b)).
type Session struct {
	id       string
	eval     *evaluator.Evaluator
	promptCh chan string
	mu       sync.Mutex // non-reentrant: guards one in-flight evaluation
	trace    *tracestore.Store
}

// Serve reads framed JSON-RPC requests from r and writes responses to w
// until r is exhausted, an unrecoverable framing error occurs, or ctx is
// cancelled.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	reader := bufio.NewReader(r)
	var writeMu sync.Mutex

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := readFramed(reader)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		var req request
		if err := json.Unmarshal(msg, &req); err != nil {
			continue
		}

		go func(req request) {
			resp := s.handle(ctx, req)
			payload, err := json.Marshal(resp)
			if err != nil {
				return
			}
			writeMu.Lock()
			defer writeMu.Unlock()
			writeFramed(w, payload)
		}(req)
	}
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handle(ctx context.Context, req request) response {
	switch req.Method {
	case "session/new":
		return s.handleNewSession(ctx, req)
	case "session/prompt":
		return s.handlePrompt(ctx, req)
	case "session/cancel":
		return s.handleCancel(req)
	default:
		return response{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32601, Message: "method not found: " + req.Method}}
	}
}

func (s *Server) handleNewSession(ctx context.Context, req request) response {
	id := uuid.NewString()
	promptCh := make(chan string)

	reg := registry.New()
	native := registry.NewNativeProvider(io.Discard, nil)
	native.WithDefaultFunctions = s.cfg.WithDefaultFunctions
	native.WithUnstableFunctions = s.cfg.WithUnstableFunctions
	reg.Register(native)
	reg.Register(newReceiveProvider(promptCh))
	for _, c := range s.mcpConns {
		reg.Register(c)
	}

	if _, err := reg.ResolveExternals(s.mod); err != nil {
		return response{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32000, Message: err.Error()}}
	}

	eng, err := buildSessionEngine(s.cfg, s.logger)
	if err != nil {
		return response{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32000, Message: err.Error()}}
	}

	ev := evaluator.New(s.mod, s.sigs, reg, eng)

	sess := &Session{id: id, eval: ev, promptCh: promptCh, trace: s.trace}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	go sess.run(ctx)

	return response{JSONRPC: "2.0", ID: req.ID, Result: map[string]string{"sessionId": id}}
}

func (s *Session) run(ctx context.Context) {
	val, err := s.eval.RunMain(ctx)
	if s.trace == nil {
		return
	}
	if err != nil {
		s.trace.Record(ctx, s.id, tracestore.KindError, err.Error())
		return
	}
	s.trace.Record(ctx, s.id, tracestore.KindValueReturned, val.String())
}

func (s *Server) handlePrompt(ctx context.Context, req request) response {
	var params struct {
		SessionID string `json:"sessionId"`
		Content   string `json:"content"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return response{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32602, Message: "invalid params"}}
	}

	s.mu.Lock()
	sess, ok := s.sessions[params.SessionID]
	s.mu.Unlock()
	if !ok {
		return response{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32000, Message: "unknown session"}}
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.trace != nil {
		sess.trace.Record(ctx, sess.id, tracestore.KindPromptReceived, params.Content)
	}

	select {
	case sess.promptCh <- params.Content:
	case <-ctx.Done():
		return response{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32000, Message: "cancelled"}}
	}

	return response{JSONRPC: "2.0", ID: req.ID, Result: map[string]string{"status": "delivered"}}
}

func (s *Server) handleCancel(req request) response {
	var params struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return response{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32602, Message: "invalid params"}}
	}
	s.mu.Lock()
	sess, ok := s.sessions[params.SessionID]
	if ok {
		delete(s.sessions, params.SessionID)
	}
	s.mu.Unlock()
	if ok {
		close(sess.promptCh)
	}
	return response{JSONRPC: "2.0", ID: req.ID, Result: map[string]string{"status": "cancelled"}}
}

func readFramed(r *bufio.Reader) ([]byte, error) {
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
	buf := make([]byte, contentLength)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeFramed(w io.Writer, payload []byte) error {
	_, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n%s", len(payload), payload)
	return err
}

func buildSessionEngine(cfg config.Config, logger *slog.Logger) (evalctx.LanguageEngine, error) {
	switch cfg.Engine {
	case config.EngineTypeGemini:
		apiKey := cfg.GeminiAPIKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("configuration error: no Gemini API key: pass --gemini-api-key or set GEMINI_API_KEY")
		}
		model := cfg.GeminiModel
		if model == "" {
			model = "gemini-2.5-flash"
		}
		return gemini.New(apiKey, model, gemini.WithLogger(logger)), nil
	case config.EngineTypeVertex:
		return nil, fmt.Errorf("configuration error: vertex engine is not available: no command-line flag or config field supplies its proto file and target")
	default:
		return engine.NewPrintEngine(), nil
	}
}

// Package runtime assembles the front-end (lexer, parser, checker) and the
// back-end (registry, engine, evaluator) into the single entry point a
// CLI subcommand calls: Load, then Run or Check.
package runtime

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/wigmorewelsh/structured-agent/internal/analysis"
	"github.com/wigmorewelsh/structured-agent/internal/checker"
	"github.com/wigmorewelsh/structured-agent/internal/config"
	"github.com/wigmorewelsh/structured-agent/internal/diagnostics"
	"github.com/wigmorewelsh/structured-agent/internal/engine"
	"github.com/wigmorewelsh/structured-agent/internal/engine/gemini"
	"github.com/wigmorewelsh/structured-agent/internal/evalctx"
	"github.com/wigmorewelsh/structured-agent/internal/evaluator"
	"github.com/wigmorewelsh/structured-agent/internal/mcp"
	"github.com/wigmorewelsh/structured-agent/internal/parser"
	"github.com/wigmorewelsh/structured-agent/internal/registry"
	"github.com/wigmorewelsh/structured-agent/internal/source"
	"github.com/wigmorewelsh/structured-agent/internal/value"
)

// Program is a checked, registry-resolved module ready to evaluate.
type Program struct {
	SourceMap *source.Map
	Sigs      map[string]checker.Signature
	Registry  *registry.Registry
	Eval      *evaluator.Evaluator
	mcpConns  []*mcp.Client
	Warnings  []registry.CollisionWarning
}

// Load runs the lexer, parser and checker over src (named name for
// diagnostics), wires the configured providers and engine, and resolves
// every extern fn against them.
func Load(cfg config.Config, name, src string, stdout io.Writer, stdin io.Reader, logger *slog.Logger) (*Program, error) {
	if logger == nil {
		logger = slog.Default()
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

	reg := registry.New()
	native := registry.NewNativeProvider(stdout, stdin)
	native.WithDefaultFunctions = cfg.WithDefaultFunctions
	native.WithUnstableFunctions = cfg.WithUnstableFunctions
	reg.Register(native)

	var conns []*mcp.Client
	for _, sc := range cfg.McpServers {
		client, err := mcp.Connect(mcp.ServerConfig{Name: sc.Command, Command: sc.Command, Args: sc.Args})
		if err != nil {
			return nil, diagnostics.New(diagnostics.CategoryMCP, "connecting to %s: %v", sc.Command, err)
		}
		logger.Info("connected to MCP server", "command", sc.Command)
		reg.Register(client)
		conns = append(conns, client)
	}

	warnings, err := reg.ResolveExternals(mod)
	if err != nil {
		return nil, diagnostics.New(diagnostics.CategoryResolution, "%v", err)
	}
	for _, w := range warnings {
		logger.Warn("external function name is ambiguous across providers", "name", w.Name, "providers", w.Providers)
	}

	eng, err := buildEngine(cfg, logger)
	if err != nil {
		return nil, err
	}

	ev := evaluator.New(mod, sigs, reg, eng)

	return &Program{SourceMap: sm, Sigs: sigs, Registry: reg, Eval: ev, mcpConns: conns, Warnings: warnings}, nil
}

func buildEngine(cfg config.Config, logger *slog.Logger) (evalctx.LanguageEngine, error) {
	switch cfg.Engine {
	case config.EngineTypeGemini:
		apiKey := cfg.GeminiAPIKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, diagnostics.New(diagnostics.CategoryConfig, "no Gemini API key: pass --gemini-api-key or set GEMINI_API_KEY")
		}
		model := cfg.GeminiModel
		if model == "" {
			model = "gemini-2.5-flash"
		}
		return gemini.New(apiKey, model, gemini.WithLogger(logger)), nil
	case config.EngineTypeVertex:
		return nil, diagnostics.New(diagnostics.CategoryConfig, "vertex engine is not available: no command-line flag or config field supplies its proto file and target")
	default:
		return engine.NewPrintEngine(), nil
	}
}

// Run evaluates `main` and returns its value.
func (p *Program) Run(ctx context.Context) (value.Value, error) {
	defer p.closeConns()
	return p.Eval.RunMain(ctx)
}

func (p *Program) closeConns() {
	for _, c := range p.mcpConns {
		_ = c.Close()
	}
}

// LoadFromSource is a convenience wrapper used by `check`/`run` when the
// program source is already known (inline, or read from disk by the
// caller).
func LoadFromSource(cfg config.Config, stdout io.Writer, stdin io.Reader, logger *slog.Logger) (*Program, error) {
	if cfg.ProgramSource.Inline != "" {
		return Load(cfg, "<inline>", cfg.ProgramSource.Inline, stdout, stdin, logger)
	}
	data, err := os.ReadFile(cfg.ProgramSource.File)
	if err != nil {
		return nil, diagnostics.New(diagnostics.CategoryIO, "reading %s: %v", cfg.ProgramSource.File, err)
	}
	return Load(cfg, cfg.ProgramSource.File, string(data), stdout, stdin, logger)
}

// CheckResult is the outcome of `structured-agent check`: the checked
// signature table plus every static-analysis warning, both anchored to
// sm for rendering.
type CheckResult struct {
	SourceMap *source.Map
	Sigs      map[string]checker.Signature
	Warnings  []analysis.Warning
}

// CheckOnly runs the lexer/parser/checker and the default analyzer set,
// without resolving any provider or constructing an evaluator — used by
// `structured-agent check`.
func CheckOnly(cfg config.Config) (*CheckResult, error) {
	var src, name string
	if cfg.ProgramSource.Inline != "" {
		src, name = cfg.ProgramSource.Inline, "<inline>"
	} else {
		data, err := os.ReadFile(cfg.ProgramSource.File)
		if err != nil {
			return nil, diagnostics.New(diagnostics.CategoryIO, "reading %s: %v", cfg.ProgramSource.File, err)
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

	warnings := analysis.DefaultRunner().Run(mod, fid)

	return &CheckResult{SourceMap: sm, Sigs: sigs, Warnings: warnings}, nil
}

package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/wigmorewelsh/structured-agent/internal/acp"
	"github.com/wigmorewelsh/structured-agent/internal/acp/tracestore"
	"github.com/wigmorewelsh/structured-agent/internal/config"
)

var (
	acpFile                  string
	acpInline                string
	acpEngine                string
	acpMcpServers            []string
	acpWithDefaultFunctions  bool
	acpWithUnstableFunctions bool
	acpGeminiAPIKey          string
	acpGeminiModel           string
	acpTraceDB               string
)

var acpCmd = &cobra.Command{
	Use:   "acp",
	Short: "Serve the Agent Client Protocol over stdio",
	Long: `Acp loads and checks a program once, then serves session/new,
session/prompt, and session/cancel as JSON-RPC 2.0 requests framed with
Content-Length headers, reading from stdin and writing to stdout. Each
session gets its own evaluator instance and a receive() native that
blocks until the next prompt arrives.`,
	RunE: runACP,
}

func init() {
	rootCmd.AddCommand(acpCmd)

	acpCmd.Flags().StringVarP(&acpFile, "file", "f", "", "program file to serve")
	acpCmd.Flags().StringVarP(&acpInline, "inline", "i", "", "inline program source")
	acpCmd.MarkFlagsMutuallyExclusive("file", "inline")
	acpCmd.Flags().StringVarP(&acpEngine, "engine", "e", "print", "language engine: print or gemini (vertex is rejected: it has no CLI wiring)")
	acpCmd.Flags().StringArrayVarP(&acpMcpServers, "mcp-server", "m", nil, `MCP server to launch, as "command arg1 arg2"`)
	acpCmd.Flags().BoolVar(&acpWithDefaultFunctions, "with-default-functions", false, "register print/input as external functions")
	acpCmd.Flags().BoolVar(&acpWithUnstableFunctions, "with-unstable-functions", false, "register the unstable Option/List helper functions")
	acpCmd.Flags().StringVar(&acpGeminiAPIKey, "gemini-api-key", "", "Gemini API key (default: $GEMINI_API_KEY)")
	acpCmd.Flags().StringVar(&acpGeminiModel, "gemini-model", "", "Gemini model name (default: gemini-2.5-flash)")
	acpCmd.Flags().StringVar(&acpTraceDB, "trace-db", "", "SQLite database path to record session trace events")
}

func runACP(_ *cobra.Command, _ []string) error {
	cfg, err := config.Merge(config.CLIArgs{
		ConfigPath:            configPath,
		File:                  acpFile,
		Inline:                acpInline,
		Engine:                acpEngine,
		McpServers:            acpMcpServers,
		WithDefaultFunctions:  acpWithDefaultFunctions,
		WithUnstableFunctions: acpWithUnstableFunctions,
		GeminiAPIKey:          acpGeminiAPIKey,
		GeminiModel:           acpGeminiModel,
		TraceDB:               acpTraceDB,
		Mode:                  config.ModeACP,
	})
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var trace *tracestore.Store
	if cfg.TraceDB != "" {
		trace, err = tracestore.Open(cfg.TraceDB)
		if err != nil {
			return err
		}
		defer trace.Close()
	}

	server, err := acp.New(cfg, trace, logger)
	if err != nil {
		return err
	}
	defer server.Close()

	return server.Serve(context.Background(), os.Stdin, os.Stdout)
}

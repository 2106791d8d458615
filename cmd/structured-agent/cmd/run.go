package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wigmorewelsh/structured-agent/internal/config"
	"github.com/wigmorewelsh/structured-agent/internal/runtime"
)

var (
	runFile                  string
	runInline                string
	runEngine                string
	runMcpServers            []string
	runWithDefaultFunctions  bool
	runWithUnstableFunctions bool
	runGeminiAPIKey          string
	runGeminiModel           string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate a program and print its result",
	Long: `Run parses, type-checks, and evaluates a program, printing the value
main() returns.

Examples:
  structured-agent run -f script.sa
  structured-agent run -i 'fn main(): String { return "hi" }'
  structured-agent run -f script.sa -e gemini --gemini-api-key "$GEMINI_API_KEY"`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "program file to run")
	runCmd.Flags().StringVarP(&runInline, "inline", "i", "", "inline program source")
	runCmd.MarkFlagsMutuallyExclusive("file", "inline")
	runCmd.Flags().StringVarP(&runEngine, "engine", "e", "print", "language engine: print or gemini (vertex is rejected: it has no CLI wiring)")
	runCmd.Flags().StringArrayVarP(&runMcpServers, "mcp-server", "m", nil, `MCP server to launch, as "command arg1 arg2"`)
	runCmd.Flags().BoolVar(&runWithDefaultFunctions, "with-default-functions", false, "register print/input as external functions")
	runCmd.Flags().BoolVar(&runWithUnstableFunctions, "with-unstable-functions", false, "register the unstable Option/List helper functions")
	runCmd.Flags().StringVar(&runGeminiAPIKey, "gemini-api-key", "", "Gemini API key (default: $GEMINI_API_KEY)")
	runCmd.Flags().StringVar(&runGeminiModel, "gemini-model", "", "Gemini model name (default: gemini-2.5-flash)")
}

func runRun(_ *cobra.Command, _ []string) error {
	cfg, err := config.Merge(config.CLIArgs{
		ConfigPath:            configPath,
		File:                  runFile,
		Inline:                runInline,
		Engine:                runEngine,
		McpServers:            runMcpServers,
		WithDefaultFunctions:  runWithDefaultFunctions,
		WithUnstableFunctions: runWithUnstableFunctions,
		GeminiAPIKey:          runGeminiAPIKey,
		GeminiModel:           runGeminiModel,
		Mode:                  config.ModeRun,
	})
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	prog, err := runtime.LoadFromSource(cfg, os.Stdout, os.Stdin, logger)
	if err != nil {
		return err
	}

	val, err := prog.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Println(val.String())
	return nil
}

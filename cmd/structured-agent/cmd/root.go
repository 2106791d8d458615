package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "structured-agent",
	Short: "Run, check, or serve a program in the structured-agent language",
	Long: `structured-agent evaluates programs written in a small language whose
runtime treats a large language model as a first-class evaluator:
unresolved control flow falls through to an LLM-backed select, untyped
synthesis, or typed synthesis call.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML configuration file")

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

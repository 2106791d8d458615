package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wigmorewelsh/structured-agent/internal/config"
	"github.com/wigmorewelsh/structured-agent/internal/diagnostics"
	"github.com/wigmorewelsh/structured-agent/internal/runtime"
)

var (
	checkFile   string
	checkInline string
	checkFormat string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Type-check a program and report static warnings",
	Long: `Check parses and type-checks a program and runs the static analyzers
(unused variables, unreachable code, potential infinite loops) without
evaluating it. Findings are reported as warnings; a type error exits
non-zero.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkFile, "file", "f", "", "program file to check")
	checkCmd.Flags().StringVarP(&checkInline, "inline", "i", "", "inline program source")
	checkCmd.MarkFlagsMutuallyExclusive("file", "inline")
	checkCmd.Flags().StringVar(&checkFormat, "format", "text", "output format: text or yaml")
}

type checkReport struct {
	Functions []functionReport `yaml:"functions"`
	Warnings  []warningReport  `yaml:"warnings"`
}

type functionReport struct {
	Name       string   `yaml:"name"`
	Parameters []string `yaml:"parameters"`
	ReturnType string   `yaml:"returnType"`
}

type warningReport struct {
	Analyzer string `yaml:"analyzer"`
	Message  string `yaml:"message"`
}

func runCheck(_ *cobra.Command, _ []string) error {
	cfg, err := config.Merge(config.CLIArgs{
		ConfigPath: configPath,
		File:       checkFile,
		Inline:     checkInline,
		Mode:       config.ModeCheck,
	})
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	result, err := runtime.CheckOnly(cfg)
	if err != nil {
		if diagErr, ok := err.(*diagnostics.Error); ok && result != nil {
			fmt.Fprintln(os.Stderr, diagErr.Render(result.SourceMap, diagnostics.ColorEnabled(os.Stderr.Fd())))
		}
		return err
	}

	report := buildReport(result)

	switch checkFormat {
	case "yaml":
		out, err := yaml.Marshal(report)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
	default:
		printTextReport(report)
	}

	return nil
}

func buildReport(result *runtime.CheckResult) checkReport {
	var report checkReport
	for name, sig := range result.Sigs {
		params := make([]string, len(sig.Parameters))
		for i, p := range sig.Parameters {
			params[i] = p.Name + ": " + p.Type.String()
		}
		report.Functions = append(report.Functions, functionReport{
			Name: name, Parameters: params, ReturnType: sig.ReturnType.String(),
		})
	}
	for _, w := range result.Warnings {
		d := w.ToDiagnostic()
		useColor := diagnostics.ColorEnabled(os.Stdout.Fd())
		report.Warnings = append(report.Warnings, warningReport{
			Analyzer: w.Analyzer,
			Message:  d.Render(result.SourceMap, useColor),
		})
	}
	return report
}

func printTextReport(report checkReport) {
	fmt.Printf("%d function(s) checked, %d warning(s)\n", len(report.Functions), len(report.Warnings))
	for _, w := range report.Warnings {
		fmt.Println(w.Message)
	}
}

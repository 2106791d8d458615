// Package config resolves the effective run configuration from CLI flags
// and an optional TOML file, following the precedence rule from the
// original implementation: an explicit CLI flag always wins; the file
// config fills anything the flag left at its zero value.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Mode selects which subcommand produced this Config.
type Mode int

const (
	ModeRun Mode = iota
	ModeCheck
	ModeACP
)

// EngineType selects the LanguageEngine implementation to construct.
type EngineType int

const (
	EngineTypePrint EngineType = iota
	EngineTypeGemini
	EngineTypeVertex
)

func parseEngineType(s string) EngineType {
	switch s {
	case "gemini":
		return EngineTypeGemini
	case "vertex":
		return EngineTypeVertex
	default:
		return EngineTypePrint
	}
}

// ProgramSource is either a file path or an inline program string.
type ProgramSource struct {
	File   string
	Inline string
}

func (s ProgramSource) IsInline() bool { return s.Inline != "" }

// McpServerConfig names one MCP server subprocess to launch.
type McpServerConfig struct {
	Command string
	Args    []string
}

// FileConfig is the TOML-deserialized shape of a config file.
type FileConfig struct {
	File                  string           `toml:"file"`
	Inline                string           `toml:"inline"`
	Engine                string           `toml:"engine"`
	WithDefaultFunctions  *bool            `toml:"with_default_functions"`
	WithUnstableFunctions *bool            `toml:"with_unstable_functions"`
	McpServer             []mcpServerEntry `toml:"mcp_server"`
	TraceDB               string           `toml:"trace_db"`
	GeminiAPIKey          string           `toml:"gemini_api_key"`
	GeminiModel           string           `toml:"gemini_model"`
}

type mcpServerEntry struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

// LoadFileConfig reads and parses a TOML config file at path.
func LoadFileConfig(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("configuration error: reading %s: %w", path, err)
	}
	var fc FileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return FileConfig{}, fmt.Errorf("configuration error: parsing %s: %w", path, err)
	}
	return fc, nil
}

// Config is the fully-merged configuration for one run, regardless of
// subcommand.
type Config struct {
	ProgramSource         ProgramSource
	McpServers            []McpServerConfig
	Engine                EngineType
	WithDefaultFunctions  bool
	WithUnstableFunctions bool
	Mode                  Mode
	TraceDB               string
	GeminiAPIKey          string
	GeminiModel           string
}

// CLIArgs carries the raw flag values from any of the three subcommands;
// fields not offered by a given subcommand are left at their zero value.
type CLIArgs struct {
	ConfigPath            string
	File                  string
	Inline                string
	Engine                string // flag default is "print"
	WithDefaultFunctions  bool
	WithUnstableFunctions bool
	McpServers            []string // each "command arg1 arg2 ..."
	TraceDB               string
	GeminiAPIKey          string
	GeminiModel           string
	Mode                  Mode
}

// Merge applies the precedence rule described above: CLI flags beat the
// file config, and the file config beats the builtin defaults.
func Merge(args CLIArgs) (Config, error) {
	var fc FileConfig
	if args.ConfigPath != "" {
		var err error
		fc, err = LoadFileConfig(args.ConfigPath)
		if err != nil {
			return Config{}, err
		}
	}

	cfg := Config{Mode: args.Mode, TraceDB: firstNonEmpty(args.TraceDB, fc.TraceDB)}

	cfg.ProgramSource = mergeProgramSource(args.File, args.Inline, fc)

	servers, err := mergeMcpServers(args.McpServers, fc)
	if err != nil {
		return Config{}, err
	}
	cfg.McpServers = servers

	if args.Mode == ModeCheck {
		cfg.Engine = EngineTypePrint
	} else {
		cfg.Engine = mergeEngine(args.Engine, fc)
	}

	cfg.WithDefaultFunctions = args.WithDefaultFunctions || (fc.WithDefaultFunctions != nil && *fc.WithDefaultFunctions)
	cfg.WithUnstableFunctions = args.WithUnstableFunctions || (fc.WithUnstableFunctions != nil && *fc.WithUnstableFunctions)
	cfg.GeminiAPIKey = firstNonEmpty(args.GeminiAPIKey, fc.GeminiAPIKey)
	cfg.GeminiModel = firstNonEmpty(args.GeminiModel, fc.GeminiModel)

	return cfg, nil
}

func mergeProgramSource(file, inline string, fc FileConfig) ProgramSource {
	switch {
	case inline != "":
		return ProgramSource{Inline: inline}
	case file != "":
		return ProgramSource{File: file}
	case fc.Inline != "":
		return ProgramSource{Inline: fc.Inline}
	case fc.File != "":
		return ProgramSource{File: fc.File}
	default:
		return ProgramSource{}
	}
}

func mergeMcpServers(flagServers []string, fc FileConfig) ([]McpServerConfig, error) {
	if len(flagServers) > 0 {
		out := make([]McpServerConfig, 0, len(flagServers))
		for _, spec := range flagServers {
			parts := strings.Fields(spec)
			if len(parts) == 0 {
				return nil, fmt.Errorf("configuration error: empty --mcp-server specification")
			}
			out = append(out, McpServerConfig{Command: parts[0], Args: parts[1:]})
		}
		return out, nil
	}
	if fc.McpServer != nil {
		out := make([]McpServerConfig, 0, len(fc.McpServer))
		for _, e := range fc.McpServer {
			out = append(out, McpServerConfig{Command: e.Command, Args: e.Args})
		}
		return out, nil
	}
	return nil, nil
}

func mergeEngine(flagEngine string, fc FileConfig) EngineType {
	s := flagEngine
	if s == "" || s == "print" {
		if fc.Engine != "" {
			s = fc.Engine
		} else {
			s = "print"
		}
	}
	return parseEngineType(s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Validate reports a configuration error (spec's CategoryConfig) when no
// program source could be determined.
func (c Config) Validate() error {
	if c.ProgramSource.File == "" && c.ProgramSource.Inline == "" {
		return fmt.Errorf("configuration error: no program specified; use --file or --inline")
	}
	return nil
}

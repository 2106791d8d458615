package runtime

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wigmorewelsh/structured-agent/internal/config"
	"github.com/wigmorewelsh/structured-agent/internal/value"
)

func TestLoadFromSource_RunsInlineProgram(t *testing.T) {
	cfg, err := config.Merge(config.CLIArgs{Inline: `fn main(): String { return "hi" }`, Mode: config.ModeRun})
	require.NoError(t, err)

	var stdout bytes.Buffer
	prog, err := LoadFromSource(cfg, &stdout, nil, nil)
	require.NoError(t, err)

	v, err := prog.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, value.String("hi"), v)
}

func TestLoad_ParseErrorPropagates(t *testing.T) {
	cfg, err := config.Merge(config.CLIArgs{Inline: `fn main(: Unit { }`, Mode: config.ModeRun})
	require.NoError(t, err)

	_, err = LoadFromSource(cfg, &bytes.Buffer{}, nil, nil)
	require.Error(t, err)
}

func TestLoad_TypeErrorPropagates(t *testing.T) {
	cfg, err := config.Merge(config.CLIArgs{Inline: `fn main(): String { return true }`, Mode: config.ModeRun})
	require.NoError(t, err)

	_, err = LoadFromSource(cfg, &bytes.Buffer{}, nil, nil)
	require.Error(t, err)
}

func TestLoad_DefaultFunctionsGateNativePrintInput(t *testing.T) {
	cfg, err := config.Merge(config.CLIArgs{
		Inline: `
extern fn print(message: String): Unit

fn main(): Unit {
	print("hello")
}
`,
		WithDefaultFunctions: true,
		Mode:                 config.ModeRun,
	})
	require.NoError(t, err)

	var stdout bytes.Buffer
	prog, err := LoadFromSource(cfg, &stdout, nil, nil)
	require.NoError(t, err)

	_, err = prog.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "hello\n", stdout.String())
}

func TestLoad_UnresolvedExternFunctionFails(t *testing.T) {
	cfg, err := config.Merge(config.CLIArgs{
		Inline: `
extern fn mystery(x: String): String

fn main(): String { return mystery("x") }
`,
		Mode: config.ModeRun,
	})
	require.NoError(t, err)

	_, err = LoadFromSource(cfg, &bytes.Buffer{}, nil, nil)
	require.Error(t, err)
}

func TestCheckOnly_ReturnsSignaturesAndNoWarningsForCleanProgram(t *testing.T) {
	cfg, err := config.Merge(config.CLIArgs{Inline: `fn main(): String { return "ok" }`, Mode: config.ModeCheck})
	require.NoError(t, err)

	result, err := CheckOnly(cfg)
	require.NoError(t, err)
	require.Contains(t, result.Sigs, "main")
	require.Empty(t, result.Warnings)
}

func TestCheckOnly_FlagsUnusedVariable(t *testing.T) {
	cfg, err := config.Merge(config.CLIArgs{
		Inline: `
fn main(): String {
	let unused = "x"
	return "ok"
}
`,
		Mode: config.ModeCheck,
	})
	require.NoError(t, err)

	result, err := CheckOnly(cfg)
	require.NoError(t, err)
	require.NotEmpty(t, result.Warnings)
}

func TestCheckOnly_TypeErrorFails(t *testing.T) {
	cfg, err := config.Merge(config.CLIArgs{Inline: `fn main(): String { return true }`, Mode: config.ModeCheck})
	require.NoError(t, err)

	_, err = CheckOnly(cfg)
	require.Error(t, err)
}

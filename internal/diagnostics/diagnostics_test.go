package diagnostics

import (
	"strings"
	"testing"

	"github.com/wigmorewelsh/structured-agent/internal/source"
)

func TestSeverity_String(t *testing.T) {
	if got := SeverityError.String(); got != "error" {
		t.Errorf("SeverityError.String() = %q, want %q", got, "error")
	}
	if got := SeverityWarning.String(); got != "warning" {
		t.Errorf("SeverityWarning.String() = %q, want %q", got, "warning")
	}
}

func TestNew_BuildsCategoryErrorWithNoDiagnostic(t *testing.T) {
	err := New(CategoryConfig, "missing field %s", "engine")
	if err.Category != CategoryConfig {
		t.Errorf("Category = %v, want %v", err.Category, CategoryConfig)
	}
	if err.Diagnostic != nil {
		t.Error("expected New() to leave Diagnostic nil")
	}
	if got, want := err.Error(), "Configuration error: missing field engine"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNewAt_AttachesRenderableDiagnostic(t *testing.T) {
	sm := source.NewMap()
	id := sm.Add("test.fn", "let x = y\n")
	span := source.Span{File: id, Start: 8, End: 9}

	err := NewAt(CategoryType, span, "undeclared variable", "unknown variable %q", "y")
	if err.Diagnostic == nil {
		t.Fatal("expected NewAt() to attach a Diagnostic")
	}
	if err.Diagnostic.Label != "undeclared variable" {
		t.Errorf("Label = %q", err.Diagnostic.Label)
	}

	rendered := err.Render(sm, false)
	if !strings.Contains(rendered, "error: unknown variable \"y\"") {
		t.Errorf("rendered missing severity/message: %q", rendered)
	}
	if !strings.Contains(rendered, "test.fn:1:9") {
		t.Errorf("rendered missing file position: %q", rendered)
	}
	if !strings.Contains(rendered, "undeclared variable") {
		t.Errorf("rendered missing label: %q", rendered)
	}
}

func TestError_Render_FallsBackToPlainMessageWithoutDiagnostic(t *testing.T) {
	sm := source.NewMap()
	err := New(CategoryIO, "cannot read file")

	rendered := err.Render(sm, false)
	if rendered != "File I/O error: cannot read file" {
		t.Errorf("Render() = %q", rendered)
	}
}

func TestDiagnostic_Render_UnknownFileOmitsLocation(t *testing.T) {
	sm := source.NewMap()
	d := Diagnostic{
		Severity: SeverityWarning,
		Message:  "unused variable",
		Span:     source.Span{File: source.FileId(99), Start: 0, End: 1},
	}
	rendered := d.Render(sm, false)
	if !strings.HasPrefix(rendered, "warning: unused variable") {
		t.Errorf("Render() = %q", rendered)
	}
	if strings.Contains(rendered, ":") && strings.Count(rendered, "\n") > 0 {
		// only the header line is expected when the file cannot be resolved.
		lines := strings.Split(rendered, "\n")
		if len(lines) != 1 {
			t.Errorf("expected a single header line with no location, got %q", rendered)
		}
	}
}

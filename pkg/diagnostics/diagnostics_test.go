package diagnostics_test

import (
	"strings"
	"testing"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
)

func TestMakeDiag(t *testing.T) {
	span := &diagnostics.Span{File: "main.njil", Line: 1, Col: 1}
	d := diagnostics.MakeDiag(diagnostics.EParse, "unexpected token", span, "check syntax")

	if d.Code != diagnostics.EParse {
		t.Errorf("got Code = %q, want %q", d.Code, diagnostics.EParse)
	}
	if d.Message != "unexpected token" {
		t.Errorf("got Message = %q, want %q", d.Message, "unexpected token")
	}
}

func TestFormatDiagnosticPretty(t *testing.T) {
	span := &diagnostics.Span{File: "main.njil", Line: 3, Col: 5}
	d := diagnostics.MakeDiag(diagnostics.EUnknownInstr, "unknown instruction 'prnt'", span, "did you mean 'print'?")

	out := diagnostics.FormatDiagnostic(d, true)
	if !strings.Contains(out, "error[E_UNKNOWN_INSTR]") {
		t.Errorf("expected error code in output, got: %s", out)
	}
	if !strings.Contains(out, "main.njil:3:5") {
		t.Errorf("expected location in output, got: %s", out)
	}
	if !strings.Contains(out, "hint:") {
		t.Errorf("expected hint in output, got: %s", out)
	}
}

func TestFormatDiagnosticJSON(t *testing.T) {
	d := diagnostics.MakeDiag(diagnostics.EIO, "file not found", nil, "")
	out := diagnostics.FormatDiagnostic(d, false)
	if !strings.Contains(out, `"code":"E_IO"`) {
		t.Errorf("expected JSON code in output, got: %s", out)
	}
	if strings.Contains(out, "span") {
		t.Errorf("expected span to be omitted, got: %s", out)
	}
}

func TestFormatDiagnostics_Joined(t *testing.T) {
	diags := []diagnostics.Diagnostic{
		diagnostics.MakeDiag(diagnostics.EDoc, "missing 'program'", nil, ""),
		diagnostics.MakeDiag(diagnostics.EModule, "bad module", nil, ""),
	}
	out := diagnostics.FormatDiagnostics(diags, true)
	if strings.Count(out, "error[") != 2 {
		t.Errorf("expected two diagnostics, got: %s", out)
	}
}

func TestSpanAt(t *testing.T) {
	src := "{\n  \"a\": 1,\n  oops\n}"
	span := diagnostics.SpanAt("x.json", src, strings.Index(src, "oops"))
	if span.Line != 3 || span.Col != 3 {
		t.Errorf("got %d:%d, want 3:3", span.Line, span.Col)
	}
	end := diagnostics.SpanAt("x.json", src, len(src)+10)
	if end.Line != 4 {
		t.Errorf("got line %d for clamped offset, want 4", end.Line)
	}
}

func TestMakeWarning(t *testing.T) {
	w := diagnostics.MakeWarning(diagnostics.EUnknownInstr, "unknown instruction 'x'", nil, "")
	if !strings.HasPrefix(diagnostics.FormatDiagnostic(w, true), "warning[E_UNKNOWN_INSTR]") {
		t.Errorf("expected warning prefix, got: %s", diagnostics.FormatDiagnostic(w, true))
	}
	if diagnostics.HasErrors([]diagnostics.Diagnostic{w}) {
		t.Error("warnings alone must not count as errors")
	}
	if !diagnostics.HasErrors([]diagnostics.Diagnostic{w, diagnostics.MakeDiag(diagnostics.EDoc, "x", nil, "")}) {
		t.Error("expected HasErrors with an error present")
	}
}

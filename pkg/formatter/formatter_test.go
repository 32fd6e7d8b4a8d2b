package formatter_test

import (
	"strings"
	"testing"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/formatter"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/parser"
)

func decode(t *testing.T, src, filename string) evaluator.NJValue {
	t.Helper()
	v, _, diags := parser.Decode(src, filename)
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	return v
}

func TestFormat_ShortStaysInline(t *testing.T) {
	got := formatter.Format(decode(t, `{ "print" :"hi" }`, "a.njil"))
	if got != "{\"print\": \"hi\"}\n" {
		t.Errorf("got %q", got)
	}
}

func TestFormat_LongBreaks(t *testing.T) {
	src := `{"program": {"main": {"body": [{"print": "a fairly long message that will not fit"}, {"return": {"math.add": [1, 2]}}]}}}`
	got := formatter.Format(decode(t, src, "a.njil"))
	want := `{
  "program": {
    "main": {
      "body": [
        {"print": "a fairly long message that will not fit"},
        {"return": {"math.add": [1, 2]}}
      ]
    }
  }
}
`
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormat_Idempotent(t *testing.T) {
	src := `{"import": ["!io"], "program": {"main": {"body": [{"io.writeFile": {"path": "out.txt", "content": "some content <b>&</b>"}}, {"return": null}]}}}`
	once := formatter.Format(decode(t, src, "a.njil"))
	twice := formatter.Format(decode(t, once, "a.njil"))
	if once != twice {
		t.Errorf("format is not idempotent:\n%s\n---\n%s", once, twice)
	}
	if !strings.Contains(once, "<b>&</b>") {
		t.Errorf("expected HTML characters unescaped, got %s", once)
	}
}

func TestFormat_DropsComments(t *testing.T) {
	got := formatter.Format(decode(t, "[1, // one\n 2]", "s.njis"))
	if got != "[1, 2]\n" {
		t.Errorf("got %q", got)
	}
}

func TestFormatYAML_RoundTrip(t *testing.T) {
	src := `{"program": {"main": {"body": [{"var.set": {"name": "x", "value": 2.5}}, {"return": {"var": "x"}}]}}, "import": ["!datetime"]}`
	v := decode(t, src, "a.njil")
	out, err := formatter.FormatYAML(v)
	if err != nil {
		t.Fatalf("FormatYAML: %v", err)
	}
	if !strings.HasPrefix(out, "program:") {
		t.Errorf("expected key order to be kept, got:\n%s", out)
	}
	back := decode(t, out, "a.yaml")
	if !evaluator.Equal(v, back) {
		t.Errorf("YAML round trip changed the document:\n%s", out)
	}
}

func TestFormatYAML_ScalarTypes(t *testing.T) {
	v := decode(t, `{"s": "123", "n": 123, "b": "true", "z": null}`, "a.json")
	out, err := formatter.FormatYAML(v)
	if err != nil {
		t.Fatalf("FormatYAML: %v", err)
	}
	back := decode(t, out, "a.yaml")
	if !evaluator.Equal(v, back) {
		t.Errorf("scalar types changed:\n%s", out)
	}
}

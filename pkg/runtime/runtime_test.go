package runtime_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/runtime"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func expectJSON(t *testing.T, v evaluator.NJValue, want string) {
	t.Helper()
	if got := evaluator.ValueToJSONString(v); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func expectRuntimeError(t *testing.T, err error, code string) *evaluator.NJRuntimeError {
	t.Helper()
	var rt *evaluator.NJRuntimeError
	if !errors.As(err, &rt) {
		t.Fatalf("expected NJRuntimeError %s, got %v", code, err)
	}
	if rt.Code != code {
		t.Fatalf("expected %s, got %s: %s", code, rt.Code, rt.Message)
	}
	return rt
}

func TestRun_Program(t *testing.T) {
	var out bytes.Buffer
	rt := runtime.New(runtime.WithStdout(&out))
	res, err := rt.Run(context.Background(), `{
  "program": {
    "main": {"body": [
      {"var.set": {"name": "x", "value": 5}},
      {"print": "x is ${var:x}"},
      {"return": {"math.add": [{"var": "x"}, 3]}}
    ]}
  }
}`, "main.njil")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectJSON(t, res.Value, "8")
	if out.String() != "x is 5\n" {
		t.Errorf("stdout = %q", out.String())
	}
	if res.RunID == "" {
		t.Error("expected a generated run id")
	}
}

func TestRun_Script(t *testing.T) {
	var out bytes.Buffer
	rt := runtime.New(runtime.WithStdout(&out))
	res, err := rt.Run(context.Background(), `[
  {"shell.write": "packs are preloaded"},
  {"return": {"string.upper": "done"}}
]`, "script.njis")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectJSON(t, res.Value, `"DONE"`)
	if out.String() != "packs are preloaded" {
		t.Errorf("stdout = %q", out.String())
	}
}

func TestRun_YAMLProgram(t *testing.T) {
	rt := runtime.New()
	res, err := rt.Run(context.Background(), `
program:
  main:
    body:
      - var.set: {name: x, value: 5}
      - return:
          math.add: [{var: x}, 3]
`, "main.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectJSON(t, res.Value, "8")
}

func TestRun_DiagnosticErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		file string
		code string
	}{
		{"parse", `{"program": {`, "bad.njil", diagnostics.EParse},
		{"no main", `{"program": {"helper": {"body": []}}}`, "p.njil", diagnostics.EUnknownFn},
		{"module", `{"module": "m", "exports": {}}`, "m.njim", diagnostics.EDoc},
		{"scalar", `42`, "x.json", diagnostics.EDoc},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runtime.New().Run(context.Background(), tt.src, tt.file)
			var de *runtime.DiagnosticError
			if !errors.As(err, &de) {
				t.Fatalf("expected DiagnosticError, got %v", err)
			}
			if de.Diagnostics[0].Code != tt.code {
				t.Errorf("got %s, want %s", de.Diagnostics[0].Code, tt.code)
			}
		})
	}
}

func TestRun_UncaughtThrow(t *testing.T) {
	_, err := runtime.New().Run(context.Background(), `[{"throw": "boom"}]`, "t.njis")
	rt := expectRuntimeError(t, err, diagnostics.EThrown)
	if !strings.Contains(rt.Message, "boom") {
		t.Errorf("message = %q", rt.Message)
	}
}

func TestRun_WarningsDoNotStop(t *testing.T) {
	src := `{"program": {"main": {"body": [
  {"if": {"condition": false, "then": [{"prnt": "never"}]}},
  {"return": 1}
]}}}`
	res, err := runtime.New().Run(context.Background(), src, "w.njil")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectJSON(t, res.Value, "1")
	if len(res.Warnings) != 1 || res.Warnings[0].Code != diagnostics.EUnknownInstr {
		t.Fatalf("warnings = %+v", res.Warnings)
	}
}

func TestRun_ImplicitPathsOption(t *testing.T) {
	src := `[
  {"var.set": {"name": "user", "value": {"json.new": {"name": "ada"}}}},
  {"return": {"user.name": null}}
]`
	_, err := runtime.New().Run(context.Background(), src, "p.njis")
	expectRuntimeError(t, err, diagnostics.EUnknownInstr)

	res, err := runtime.New(runtime.WithImplicitPaths(true)).Run(context.Background(), src, "p.njis")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectJSON(t, res.Value, `"ada"`)
}

func TestRun_ImportsModulesAndPacks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "modules", "geometry.njim"), `{
  "module": "geometry",
  "namespace": "geo",
  "exports": {
    "constants": {"PI": 3},
    "functions": {
      "area": {"params": ["r"], "body": [
        {"return": {"math.multiply": [{"const": "geo.PI"}, {"var": "r"}, {"var": "r"}]}}
      ]}
    }
  }
}`)
	main := writeFile(t, filepath.Join(root, "app", "main.njil"), `{
  "import": ["geometry", "!datetime"],
  "program": {"main": {"body": [
    {"var.set": {"name": "a", "value": {"call": {"name": "geo.area", "args": [2]}}}},
    {"return": {"json.new": [{"var": "a"}, {"const": "geo.PI"}, {"type.of": {"datetime.now": null}}]}}
  ]}}
}`)

	rt := runtime.New(runtime.WithRoot(root))
	res, err := rt.RunFile(context.Background(), main)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectJSON(t, res.Value, `[12,3,"number"]`)
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %+v", res.Warnings)
	}

	// a second run reuses the cached module
	res, err = rt.RunFile(context.Background(), main)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	expectJSON(t, res.Value, `[12,3,"number"]`)
}

func TestRun_ImportErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
	}{
		{"unknown pack", `{"import": ["!nope"], "program": {"main": {"body": []}}}`, diagnostics.EUnknownPack},
		{"missing module", `{"import": ["missing.njim"], "program": {"main": {"body": []}}}`, diagnostics.EModule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runtime.New(runtime.WithRoot(t.TempDir())).Run(context.Background(), tt.src, filepath.Join(t.TempDir(), "p.njil"))
			expectRuntimeError(t, err, tt.code)
		})
	}
}

func TestRun_InvalidModuleSkipsImportOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "bad.njim"), `{
  "module": "bad",
  "exports": {"functions": {"f": {"params": [], "body": [{"print": "no return"}]}}}
}`)
	main := writeFile(t, filepath.Join(root, "main.njil"), `{
  "import": ["bad.njim"],
  "program": {"main": {"body": [{"print": "still running"}, {"return": 1}]}}
}`)

	var out, logs bytes.Buffer
	rt := runtime.New(runtime.WithRoot(root), runtime.WithStdout(&out), runtime.WithLogger(zerolog.New(&logs)))
	res, err := rt.RunFile(context.Background(), main)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectJSON(t, res.Value, `1`)
	if out.String() != "still running\n" {
		t.Errorf("stdout = %q", out.String())
	}
	if len(res.Warnings) == 0 || res.Warnings[0].Code != diagnostics.EModule {
		t.Errorf("expected an E_MODULE warning, got %+v", res.Warnings)
	}
	if !strings.Contains(logs.String(), "skipping invalid module") || !strings.Contains(logs.String(), `"level":"warn"`) {
		t.Errorf("expected a warning log entry, got %s", logs.String())
	}

	// the namespace stays unpublished
	calls := writeFile(t, filepath.Join(root, "calls.njil"), `{
  "import": ["bad.njim"],
  "program": {"main": {"body": [{"return": {"call": {"name": "bad.f", "args": []}}}]}}
}`)
	_, err = rt.RunFile(context.Background(), calls)
	expectRuntimeError(t, err, diagnostics.EUnknownFn)
}

func TestRun_MalformedModuleStopsRun(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "broken.njim"), `{"module": "broken", "exports": `)
	main := writeFile(t, filepath.Join(root, "main.njil"), `{"import": ["broken.njim"], "program": {"main": {"body": [{"return": 1}]}}}`)
	_, err := runtime.New(runtime.WithRoot(root)).RunFile(context.Background(), main)
	expectRuntimeError(t, err, diagnostics.EModule)
}

func TestRun_PacksOption(t *testing.T) {
	src := `{"program": {"main": {"body": [{"return": {"type.of": {"uuid": null}}}]}}}`
	res, err := runtime.New(runtime.WithPacks("system")).Run(context.Background(), src, "p.njil")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectJSON(t, res.Value, `"string"`)
}

func TestRun_PackActivationDoesNotLeak(t *testing.T) {
	rt := runtime.New()
	if _, err := rt.Run(context.Background(), `{"import": ["!system"], "program": {"main": {"body": [{"return": {"uuid": null}}]}}}`, "a.njil"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := rt.Run(context.Background(), `{"program": {"main": {"body": [{"return": {"uuid": null}}]}}}`, "b.njil")
	expectRuntimeError(t, err, diagnostics.EUnknownInstr)
}

func TestRun_Trace(t *testing.T) {
	var events []evaluator.TraceEvent
	rt := runtime.New(
		runtime.WithRunID("fixed"),
		runtime.WithTrace(func(e evaluator.TraceEvent) { events = append(events, e) }),
	)
	_, err := rt.Run(context.Background(), `{"program": {
  "main": {"body": [{"return": {"call": "f"}}]},
  "f": {"body": [{"return": 1}]}
}}`, "t.njil")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) == 0 || events[0].Event != evaluator.TraceRunStart || events[len(events)-1].Event != evaluator.TraceRunEnd {
		t.Fatalf("unexpected trace: %+v", events)
	}
	calls := 0
	for _, e := range events {
		if e.RunID != "fixed" {
			t.Errorf("run id = %q", e.RunID)
		}
		if e.Event == evaluator.TraceFnCallStart {
			calls++
		}
	}
	if calls != 1 {
		t.Errorf("fn_call_start events = %d, want 1", calls)
	}
	if _, err := json.Marshal(events[0]); err != nil {
		t.Errorf("trace event does not marshal: %v", err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := runtime.New().Run(ctx, `[{"sleep": 1000}]`, "s.njis")
	expectRuntimeError(t, err, diagnostics.ECancelled)
}

func TestRun_DatabaseClosedAfterRun(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data.db")
	src := `[
  {"db.open": {"driver": "sqlite", "dsn": ` + evaluator.ValueToJSONString(evaluator.NewString(dbPath)) + `}},
  {"db.exec": "CREATE TABLE IF NOT EXISTS t (v INTEGER)"},
  {"db.exec": "INSERT INTO t VALUES (1)"},
  {"return": {"db.query": "SELECT count(*) AS n FROM t"}}
]`
	rt := runtime.New()
	for want := 1; want <= 2; want++ {
		res, err := rt.Run(context.Background(), src, "db.njis")
		if err != nil {
			t.Fatalf("run %d: %v", want, err)
		}
		expectJSON(t, res.Value, `[{"n":`+evaluator.FormatNumber(float64(want))+`}]`)
	}
}

func TestCheck(t *testing.T) {
	rt := runtime.New()
	diags := rt.Check(`[{"io.readFile": "x"}, {"fs.exist": "y"}]`, "c.njis")
	if len(diags) != 1 {
		t.Fatalf("diags = %+v", diags)
	}
	if !diags[0].Warning || diags[0].Code != diagnostics.EUnknownInstr || !strings.Contains(diags[0].Hint, "fs.exists") {
		t.Errorf("got %+v", diags[0])
	}

	diags = rt.Check(`{"program": {}}`, "c.njil")
	if !diagnostics.HasErrors(diags) {
		t.Errorf("expected errors, got %+v", diags)
	}
}

func TestFormat(t *testing.T) {
	rt := runtime.New()
	got, err := rt.Format(`[ {"print" : "hi"} // greet
]`, "f.njis", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "[{\"print\": \"hi\"}]\n" {
		t.Errorf("got %q", got)
	}

	y, err := rt.Format(`{"program": {"main": {"body": [{"return": 1}]}}}`, "f.njil", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(y, "program:") || !strings.Contains(y, "return: 1") {
		t.Errorf("got %q", y)
	}

	_, err = rt.Format(`{`, "f.json", false)
	var de *runtime.DiagnosticError
	if !errors.As(err, &de) {
		t.Errorf("expected DiagnosticError, got %v", err)
	}
}

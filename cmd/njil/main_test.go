package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseRunFlags(t *testing.T) {
	f, err := parseRunFlags([]string{"--pretty", "-v", "--module-path", "lib", "--module-path", "vendor", "--trace", "t.jsonl", "prog.njil"})
	if err != nil {
		t.Fatal(err)
	}
	if !f.pretty || !f.verbose || f.debug {
		t.Errorf("flags = %+v", f)
	}
	if f.file != "prog.njil" || f.traceFile != "t.jsonl" {
		t.Errorf("file = %q trace = %q", f.file, f.traceFile)
	}
	if len(f.modulePaths) != 2 || f.modulePaths[1] != "vendor" {
		t.Errorf("module paths = %v", f.modulePaths)
	}

	f, err = parseRunFlags([]string{"-"})
	if err != nil || f.file != "-" {
		t.Errorf("stdin file = %q, err = %v", f.file, err)
	}

	for _, args := range [][]string{{"--trace"}, {"--bogus"}} {
		if _, err := parseRunFlags(args); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestNeedsMoreInput(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{`{"print": "hi"}`, false},
		{`{"print": `, true},
		{`[{"var.set": {"name": "x",`, true},
		{`"open string`, true},
		{`{"print": "brace } in string"`, true},
		{`{"print": "quote \" inside"}`, false},
		{`42`, false},
	}
	for _, tc := range cases {
		if got := needsMoreInput(tc.input); got != tc.want {
			t.Errorf("needsMoreInput(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

const sampleTrace = `{"event":"run_start","runId":"01J","ts":"2026-01-02T10:00:00Z","data":{"file":"p.njil","kind":"program"}}
{"event":"pack_load","runId":"01J","ts":"2026-01-02T10:00:00.001Z","data":{"pack":"io"}}
{"event":"module_load","runId":"01J","ts":"2026-01-02T10:00:00.002Z","data":{"module":"geometry","namespace":"geo","path":"modules/geometry.njim"}}
{"event":"stmt_start","runId":"01J","ts":"2026-01-02T10:00:00.003Z","data":{"instr":"var.set"}}
{"event":"stmt_end","runId":"01J","ts":"2026-01-02T10:00:00.004Z","data":{"instr":"var.set","outcome":"value"}}
not json
{"event":"fn_call_start","runId":"01J","ts":"2026-01-02T10:00:00.005Z","data":{"fn":"geo.area"}}
{"event":"loop_start","runId":"01J","ts":"2026-01-02T10:00:00.006Z","data":{"loop":"for"}}
{"event":"stmt_start","runId":"01J","ts":"2026-01-02T10:00:00.007Z","data":{"instr":"var.set"}}
{"event":"stmt_end","runId":"01J","ts":"2026-01-02T10:00:00.008Z","data":{"instr":"var.set","outcome":"error"}}
{"event":"run_end","runId":"01J","ts":"2026-01-02T10:00:00.250Z"}
`

func TestComputeTraceSummary(t *testing.T) {
	s := computeTraceSummary(strings.NewReader(sampleTrace))
	if s.RunID != "01J" {
		t.Errorf("run id = %q", s.RunID)
	}
	if s.TotalEvents != 10 {
		t.Errorf("total events = %d, want 10", s.TotalEvents)
	}
	if s.Statements != 2 || s.InstrByName["var.set"] != 2 {
		t.Errorf("statements = %d, by name = %v", s.Statements, s.InstrByName)
	}
	if s.Failures != 1 {
		t.Errorf("failures = %d", s.Failures)
	}
	if s.FunctionCalls != 1 || s.FunctionsByName["geo.area"] != 1 {
		t.Errorf("function calls = %d, by name = %v", s.FunctionCalls, s.FunctionsByName)
	}
	if s.Loops != 1 {
		t.Errorf("loops = %d", s.Loops)
	}
	if len(s.Packs) != 1 || s.Packs[0] != "io" {
		t.Errorf("packs = %v", s.Packs)
	}
	if len(s.Modules) != 1 || s.Modules[0] != "geometry" {
		t.Errorf("modules = %v", s.Modules)
	}
	if s.DurationMs != 250 {
		t.Errorf("duration = %v", s.DurationMs)
	}

	var out bytes.Buffer
	printTraceSummaryText(&out, s)
	for _, want := range []string{"Run: 01J", "Statements: 2 (1 failed)", "  var.set: 2", "Packs: io", "Modules: geometry", "Duration: 250ms"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("text summary missing %q:\n%s", want, out.String())
		}
	}
}

func TestComputeTraceSummary_Empty(t *testing.T) {
	s := computeTraceSummary(strings.NewReader(""))
	if s.TotalEvents != 0 || s.DurationMs != 0 {
		t.Errorf("summary = %+v", s)
	}
}

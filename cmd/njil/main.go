// Command njil is the NeoJiLang CLI entry point.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/config"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/help"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/preprocess"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/runtime"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: njil <command> [options]")
		fmt.Fprintln(os.Stderr, "commands: run, check, fmt, repl, watch, trace, help, version")
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "check":
		os.Exit(cmdCheck(os.Args[2:]))
	case "fmt":
		os.Exit(cmdFmt(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "watch":
		os.Exit(cmdWatch(os.Args[2:]))
	case "trace":
		os.Exit(cmdTrace(os.Args[2:]))
	case "help", "--help", "-h":
		os.Exit(cmdHelp(os.Args[2:]))
	case "version", "--version":
		fmt.Printf("njil %s\n", help.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		os.Exit(1)
	}
}

// runFlags are the options shared by run, check, repl and watch.
type runFlags struct {
	file          string
	pretty        bool
	implicitPaths bool
	modulePaths   []string
	traceFile     string
	configFile    string
	verbose       bool
	debug         bool
}

func parseRunFlags(args []string) (*runFlags, error) {
	f := &runFlags{}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			f.pretty = true
		case "--implicit-paths":
			f.implicitPaths = true
		case "--verbose", "-v":
			f.verbose = true
		case "--njil-debug":
			f.debug = true
		case "--module-path", "--trace", "--config":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a value", args[i])
			}
			i++
			switch args[i-1] {
			case "--module-path":
				f.modulePaths = append(f.modulePaths, args[i])
			case "--trace":
				f.traceFile = args[i]
			case "--config":
				f.configFile = args[i]
			}
		default:
			if args[i] == "-" || !strings.HasPrefix(args[i], "-") {
				f.file = args[i]
			} else {
				return nil, fmt.Errorf("unknown flag %s", args[i])
			}
		}
	}
	return f, nil
}

// setup loads the config, builds the logger and returns the runtime
// options the flags and config ask for. The returned cleanup closes the
// trace file.
func setup(f *runFlags) ([]runtime.Option, *config.Config, func(), error) {
	cwd, _ := os.Getwd()
	cfg, err := config.Load(f.configFile, cwd)
	if err != nil {
		return nil, nil, nil, err
	}

	level := cfg.Level()
	if f.verbose && level > zerolog.InfoLevel {
		level = zerolog.InfoLevel
	}
	if f.debug {
		level = zerolog.TraceLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	root := cfg.Root(cwd)
	paths := append(append([]string(nil), cfg.ModulePaths...), f.modulePaths...)
	opts := []runtime.Option{
		runtime.WithLogger(log),
		runtime.WithRoot(root),
		runtime.WithSearchPaths(paths...),
		runtime.WithImplicitPaths(f.implicitPaths || cfg.ImplicitPaths),
		runtime.WithPacks(cfg.Packs...),
	}
	if cfg.Path != "" {
		log.Debug().Str("config", cfg.Path).Msg("config loaded")
	}

	cleanup := func() {}
	traceFile := f.traceFile
	if traceFile == "" {
		traceFile = cfg.TraceFile
	}
	if traceFile != "" {
		sink, err := newTraceSink(traceFile)
		if err != nil {
			return nil, nil, nil, err
		}
		opts = append(opts, runtime.WithTrace(sink.write))
		cleanup = sink.close
	}
	return opts, cfg, cleanup, nil
}

// traceSink writes trace events as NDJSON.
type traceSink struct {
	mu  sync.Mutex
	f   *os.File
	w   *bufio.Writer
	enc *json.Encoder
}

func newTraceSink(path string) (*traceSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(f)
	return &traceSink{f: f, w: w, enc: json.NewEncoder(w)}, nil
}

func (s *traceSink) write(e evaluator.TraceEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(e)
}

func (s *traceSink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.w.Flush()
	_ = s.f.Close()
}

func cmdRun(args []string) int {
	f, err := parseRunFlags(args)
	if err != nil || f.file == "" {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		fmt.Fprintln(os.Stderr, "usage: njil run <file|-> [--pretty] [--implicit-paths] [--module-path <dir>] [--trace <file>] [--config <file>]")
		return 1
	}

	source, filename, exitCode := readSource(f.file, f.pretty)
	if exitCode != 0 {
		return exitCode
	}

	opts, _, cleanup, err := setup(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return 1
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rt := runtime.New(opts...)
	result, execErr := rt.Run(ctx, source, filename)
	return report(result, execErr, f.pretty)
}

// report prints warnings, the result or the error of a run and returns the
// exit code.
func report(result *runtime.Result, execErr error, pretty bool) int {
	if result != nil && len(result.Warnings) > 0 {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(result.Warnings, pretty))
	}
	if execErr != nil {
		var diagErr *runtime.DiagnosticError
		if errors.As(execErr, &diagErr) {
			fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diagErr.Diagnostics, pretty))
			return 2
		}
		var rtErr *evaluator.NJRuntimeError
		if errors.As(execErr, &rtErr) {
			fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{rtErr.Diagnostic()}, pretty))
			return 4
		}
		fmt.Fprintln(os.Stderr, execErr.Error())
		return 4
	}

	if result != nil && result.Value != nil && !evaluator.IsNull(result.Value) {
		if err := printValue(os.Stdout, result.Value, pretty); err != nil {
			fmt.Fprintf(os.Stderr, "error serializing result: %s\n", err)
			return 4
		}
	}
	return 0
}

func printValue(w io.Writer, v evaluator.NJValue, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = evaluator.ValueToJSONIndent(v, "  ")
	} else {
		b, err = evaluator.ValueToJSON(v)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(b))
	return nil
}

func cmdCheck(args []string) int {
	f, err := parseRunFlags(args)
	if err != nil || f.file == "" {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		fmt.Fprintln(os.Stderr, "usage: njil check <file> [--pretty] [--implicit-paths]")
		return 1
	}

	source, filename, exitCode := readSource(f.file, f.pretty)
	if exitCode != 0 {
		return exitCode
	}

	opts, _, cleanup, err := setup(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return 1
	}
	defer cleanup()

	rt := runtime.New(opts...)
	diags := rt.Check(source, filename)
	if len(diags) > 0 {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diags, f.pretty))
		if diagnostics.HasErrors(diags) {
			return 2
		}
		return 0
	}

	if f.pretty {
		fmt.Println("No errors found.")
	} else {
		fmt.Println("[]")
	}
	return 0
}

func cmdFmt(args []string) int {
	var file string
	write := false
	asYAML := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--write":
			write = true
		case "--yaml":
			asYAML = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: njil fmt <file> [--write] [--yaml]")
		return 1
	}

	sourceBytes, err := os.ReadFile(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, false))
		return 1
	}
	source := string(sourceBytes)

	rt := runtime.New()
	formatted, fmtErr := rt.Format(source, file, asYAML)
	if fmtErr != nil {
		var diagErr *runtime.DiagnosticError
		if errors.As(fmtErr, &diagErr) {
			fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diagErr.Diagnostics, false))
			return 2
		}
		fmt.Fprintln(os.Stderr, fmtErr.Error())
		return 2
	}

	if preprocess.HasComments(source) {
		fmt.Fprintln(os.Stderr, "warning: comments are not preserved by the formatter")
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "error writing file: %s\n", err)
			return 1
		}
	} else {
		fmt.Print(formatted)
	}

	return 0
}

func cmdTrace(args []string) int {
	var file string
	textOutput := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			textOutput = false
		case "--text":
			textOutput = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: njil trace <file.jsonl> [--json|--text]")
		return 1
	}

	f, err := os.Open(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, false))
		return 1
	}
	defer f.Close()

	summary := computeTraceSummary(f)

	if textOutput {
		printTraceSummaryText(os.Stdout, summary)
	} else {
		b, _ := json.Marshal(summary)
		fmt.Println(string(b))
	}
	return 0
}

func cmdHelp(args []string) int {
	showIndex := false
	topic := ""
	for _, arg := range args {
		if arg == "--index" {
			showIndex = true
		} else if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if showIndex {
		fmt.Print(help.Index())
		return 0
	}

	if topic == "" {
		fmt.Print(help.QUICKREF)
		return 0
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return 1
	}
	fmt.Print(content)
	return 0
}

// TraceSummary condenses an NDJSON trace file.
type TraceSummary struct {
	RunID           string         `json:"runId"`
	TotalEvents     int            `json:"totalEvents"`
	Statements      int            `json:"statements"`
	InstrByName     map[string]int `json:"instrByName"`
	FunctionCalls   int            `json:"functionCalls"`
	FunctionsByName map[string]int `json:"functionsByName"`
	Loops           int            `json:"loops"`
	Modules         []string       `json:"modules"`
	Packs           []string       `json:"packs"`
	Failures        int            `json:"failures"`
	StartTime       string         `json:"startTime,omitempty"`
	EndTime         string         `json:"endTime,omitempty"`
	DurationMs      float64        `json:"durationMs"`
}

type traceEvent struct {
	Event string         `json:"event"`
	RunID string         `json:"runId"`
	TS    string         `json:"ts"`
	Data  map[string]any `json:"data,omitempty"`
}

func (e traceEvent) str(key string) string {
	s, _ := e.Data[key].(string)
	return s
}

func computeTraceSummary(r io.Reader) *TraceSummary {
	summary := &TraceSummary{
		InstrByName:     make(map[string]int),
		FunctionsByName: make(map[string]int),
		Modules:         []string{},
		Packs:           []string{},
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event traceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip invalid lines
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch event.Event {
		case "run_start":
			if summary.StartTime == "" {
				summary.StartTime = event.TS
			}
		case "run_end":
			summary.EndTime = event.TS
		case "stmt_start":
			summary.Statements++
			if name := event.str("instr"); name != "" {
				summary.InstrByName[name]++
			}
		case "stmt_end":
			if event.str("outcome") == "error" {
				summary.Failures++
			}
		case "fn_call_start":
			summary.FunctionCalls++
			if name := event.str("fn"); name != "" {
				summary.FunctionsByName[name]++
			}
		case "loop_start":
			summary.Loops++
		case "module_load":
			summary.Modules = append(summary.Modules, event.str("module"))
		case "pack_load":
			summary.Packs = append(summary.Packs, event.str("pack"))
		}
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := parseTime(summary.StartTime)
		end, err2 := parseTime(summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Milliseconds())
		}
	}

	return summary
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Statements: %d (%d failed)\n", s.Statements, s.Failures)
	for _, name := range sortedKeys(s.InstrByName) {
		fmt.Fprintf(w, "  %s: %d\n", name, s.InstrByName[name])
	}
	fmt.Fprintf(w, "Function calls: %d\n", s.FunctionCalls)
	for _, name := range sortedKeys(s.FunctionsByName) {
		fmt.Fprintf(w, "  %s: %d\n", name, s.FunctionsByName[name])
	}
	fmt.Fprintf(w, "Loops: %d\n", s.Loops)
	if len(s.Packs) > 0 {
		fmt.Fprintf(w, "Packs: %s\n", strings.Join(s.Packs, ", "))
	}
	if len(s.Modules) > 0 {
		fmt.Fprintf(w, "Modules: %s\n", strings.Join(s.Modules, ", "))
	}
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.0fms\n", s.DurationMs)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func readSource(file string, pretty bool) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading stdin: %s\n", err)
			return "", "", 1
		}
		return string(data), "<stdin>", 0
	}

	source, err := os.ReadFile(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, pretty))
		return "", "", 1
	}
	return string(source), file, 0
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}

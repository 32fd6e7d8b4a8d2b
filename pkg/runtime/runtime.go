// Package runtime provides the top-level NJIL runtime orchestrator.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/formatter"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/module"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/parser"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/stdlib"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/tools"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/validator"
)

// Result holds the outcome of a document execution.
type Result struct {
	Value    evaluator.NJValue
	Warnings []diagnostics.Diagnostic
	RunID    string
}

// Runtime wires together all NJIL components for document execution. The
// registry and the module cache outlive single runs; each run works on a
// copy of the registry so pack activation does not leak between runs.
type Runtime struct {
	registry      *evaluator.Registry
	loader        *module.Loader
	root          string
	searchPaths   []string
	log           zerolog.Logger
	stdout        io.Writer
	stdin         io.Reader
	implicitPaths bool
	packs         []string
	runID         string
	trace         func(event evaluator.TraceEvent)
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithRegistry sets the base instruction registry.
func WithRegistry(r *evaluator.Registry) Option {
	return func(rt *Runtime) {
		rt.registry = r
	}
}

// WithRoot sets the project root used for "/"-prefixed imports and
// relative search paths.
func WithRoot(dir string) Option {
	return func(rt *Runtime) {
		rt.root = dir
	}
}

// WithSearchPaths sets the module search paths.
func WithSearchPaths(paths ...string) Option {
	return func(rt *Runtime) {
		rt.searchPaths = append([]string(nil), paths...)
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(rt *Runtime) {
		rt.log = l
	}
}

// WithImplicitPaths enables implicit nested-path reads.
func WithImplicitPaths(on bool) Option {
	return func(rt *Runtime) {
		rt.implicitPaths = on
	}
}

// WithStdout sets where print and the shell pack write.
func WithStdout(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.stdout = w
	}
}

// WithStdin sets where io.readLine reads.
func WithStdin(r io.Reader) Option {
	return func(rt *Runtime) {
		rt.stdin = r
	}
}

// WithRunID fixes the run ID for trace events. By default every run gets
// a fresh ULID.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// WithPacks pre-activates builtin packs for program documents.
func WithPacks(names ...string) Option {
	return func(rt *Runtime) {
		rt.packs = append(rt.packs, names...)
	}
}

// New creates a new Runtime with the given options.
// By default the core pack is registered and modules are searched in
// modules/ under the working directory.
func New(opts ...Option) *Runtime {
	rt := &Runtime{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.registry == nil {
		rt.registry = stdlib.NewRegistry()
	}
	if rt.root == "" {
		rt.root, _ = os.Getwd()
	}
	rt.loader = module.NewLoader(rt.root, rt.searchPaths...)
	rt.loader.Logger = rt.log
	return rt
}

// Loader returns the module loader shared by all runs.
func (rt *Runtime) Loader() *module.Loader { return rt.loader }

// Registry returns the base registry.
func (rt *Runtime) Registry() *evaluator.Registry { return rt.registry }

// Run parses, validates, and executes a program or script document.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	doc, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}
	if doc.Kind == parser.KindModule {
		return nil, &DiagnosticError{Diagnostics: []diagnostics.Diagnostic{
			diagnostics.MakeDiag(diagnostics.EDoc, "a module document cannot be run directly",
				&diagnostics.Span{File: filename, Line: 1, Col: 1},
				"import it from a program: {\"import\": [\""+filepath.Base(filename)+"\"]}"),
		}}
	}
	if errs := errorsOnly(validator.Lint(doc, validator.Options{File: filename})); len(errs) > 0 {
		return nil, &DiagnosticError{Diagnostics: errs}
	}

	runID := rt.runID
	if runID == "" {
		runID = ulid.Make().String()
	}
	log := rt.log.With().Str("run", runID).Logger()
	ip := evaluator.NewInterpreter(ctx, doc.Program, evaluator.ExecOptions{
		Registry:      rt.registry.Clone(),
		Stdout:        rt.stdout,
		Stdin:         rt.stdin,
		Logger:        &log,
		Trace:         rt.trace,
		RunID:         runID,
		ImplicitPaths: rt.implicitPaths,
		Dir:           documentDir(filename),
	})
	defer func() {
		if err := ip.Close(); err != nil {
			log.Warn().Err(err).Msg("closing pack resources")
		}
	}()

	ip.Emit(evaluator.TraceRunStart, map[string]string{"file": filename, "kind": doc.Kind.String()})
	defer ip.Emit(evaluator.TraceRunEnd, nil)

	skipped, err := rt.prepare(ip, doc)
	if err != nil {
		return &Result{RunID: runID}, err
	}

	result := &Result{RunID: runID, Warnings: append(skipped, rt.lint(ip, doc)...)}
	for _, w := range result.Warnings {
		log.Warn().Str("code", w.Code).Str("hint", w.Hint).Msg(w.Message)
	}

	var val evaluator.NJValue
	if doc.Kind == parser.KindScript {
		val, err = ip.RunScript(doc.Script)
	} else {
		val, err = ip.RunMain()
	}
	if err != nil {
		return result, err
	}
	result.Value = val
	return result, nil
}

// RunFile reads and runs the document at path.
func (rt *Runtime) RunFile(ctx context.Context, path string) (*Result, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, &DiagnosticError{Diagnostics: []diagnostics.Diagnostic{
			diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", path), nil, ""),
		}}
	}
	return rt.Run(ctx, string(source), path)
}

// prepare activates packs and applies the program's imports. Scripts get
// every builtin pack.
func (rt *Runtime) prepare(ip *evaluator.Interpreter, doc *parser.Document) ([]diagnostics.Diagnostic, error) {
	if doc.Kind == parser.KindScript {
		return nil, tools.ActivateAll(ip)
	}
	for _, name := range rt.packs {
		if err := rt.loader.Import(ip, "!"+strings.TrimPrefix(name, "!"), tools.Lookup); err != nil {
			return nil, err
		}
	}
	var skipped []diagnostics.Diagnostic
	for _, entry := range doc.Program.Imports {
		err := rt.loader.Import(ip, entry, tools.Lookup)
		var invalid *module.InvalidError
		switch {
		case err == nil:
		case errors.As(err, &invalid):
			ip.Logger().Warn().Err(err).Str("import", entry).Str("path", invalid.Path).Msg("skipping invalid module")
			skipped = append(skipped, diagnostics.MakeWarning(diagnostics.EModule, err.Error(),
				&diagnostics.Span{File: invalid.Path, Line: 1, Col: 1}, invalid.Err.Hint))
		default:
			return nil, err
		}
	}
	return skipped, nil
}

// lint collects warnings once packs and modules are in place, so their
// instructions and functions are known.
func (rt *Runtime) lint(ip *evaluator.Interpreter, doc *parser.Document) []diagnostics.Diagnostic {
	opts := validator.Options{
		File:          doc.File,
		Registry:      ip.Registry(),
		ImplicitPaths: rt.implicitPaths,
		Functions:     ip.Frame().Program.Names(),
	}
	var warnings []diagnostics.Diagnostic
	for _, d := range validator.Lint(doc, opts) {
		if d.Warning {
			warnings = append(warnings, d)
		}
	}
	return warnings
}

// Check parses and validates a document without executing it. Builtin
// pack instructions are known to the check; module contents are not
// loaded, so calls into module namespaces are not reported.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	doc, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return diags
	}
	reg := rt.registry.Clone()
	tools.RegisterAll(reg)
	return validator.Lint(doc, validator.Options{
		File:          filename,
		Registry:      reg,
		ImplicitPaths: rt.implicitPaths,
	})
}

// Format parses a document and renders it canonically, as JSON or YAML.
func (rt *Runtime) Format(source, filename string, asYAML bool) (string, error) {
	root, _, diags := parser.Decode(source, filename)
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	if asYAML {
		return formatter.FormatYAML(root)
	}
	return formatter.Format(root), nil
}

func errorsOnly(diags []diagnostics.Diagnostic) []diagnostics.Diagnostic {
	var out []diagnostics.Diagnostic
	for _, d := range diags {
		if !d.Warning {
			out = append(out, d)
		}
	}
	return out
}

func documentDir(filename string) string {
	if filename == "" || strings.HasPrefix(filename, "<") {
		dir, _ := os.Getwd()
		return dir
	}
	abs, err := filepath.Abs(filename)
	if err != nil {
		return filepath.Dir(filename)
	}
	return filepath.Dir(abs)
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}

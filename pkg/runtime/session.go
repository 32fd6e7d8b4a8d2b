package runtime

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/parser"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/tools"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/validator"
)

// Session evaluates input incrementally against one long-lived frame, as
// the REPL does. Every builtin pack is active.
type Session struct {
	rt  *Runtime
	ip  *evaluator.Interpreter
	log zerolog.Logger
}

// NewSession starts a session whose relative paths resolve against dir.
func (rt *Runtime) NewSession(ctx context.Context, dir string) (*Session, error) {
	runID := rt.runID
	if runID == "" {
		runID = "repl"
	}
	log := rt.log.With().Str("run", runID).Logger()
	ip := evaluator.NewInterpreter(ctx, nil, evaluator.ExecOptions{
		Registry:      rt.registry.Clone(),
		Stdout:        rt.stdout,
		Stdin:         rt.stdin,
		Logger:        &log,
		Trace:         rt.trace,
		RunID:         runID,
		ImplicitPaths: rt.implicitPaths,
		Dir:           dir,
	})
	if err := tools.ActivateAll(ip); err != nil {
		ip.Close()
		return nil, err
	}
	return &Session{rt: rt, ip: ip, log: log}, nil
}

// Eval runs one input: a single statement object, or an array of
// statements. An "import" entry such as "!io" or "lib.njim" may be given
// as {"import": "..."}; it applies to the rest of the session.
func (s *Session) Eval(input string) (evaluator.NJValue, []diagnostics.Diagnostic, error) {
	root, _, diags := parser.Decode(input, "<repl>.json")
	if len(diags) > 0 {
		return nil, nil, &DiagnosticError{Diagnostics: diags}
	}

	var stmts []evaluator.NJValue
	switch v := root.(type) {
	case evaluator.NJList:
		stmts = v.Items
	case evaluator.NJRecord:
		if imp, ok := v.Get("import"); ok && len(v.Pairs) == 1 {
			return evaluator.NewNull(), nil, s.importEntry(imp)
		}
		stmts = []evaluator.NJValue{v}
	default:
		// a bare literal evaluates to itself
		return root, nil, nil
	}

	warnings := validator.ValidateScript(stmts, validator.Options{
		File:          "<repl>",
		Registry:      s.ip.Registry(),
		ImplicitPaths: s.rt.implicitPaths,
		Functions:     s.ip.Frame().Program.Names(),
	})
	val, err := s.ip.RunScript(stmts)
	return val, warnings, err
}

func (s *Session) importEntry(v evaluator.NJValue) error {
	entry, ok := v.(evaluator.NJString)
	if !ok || strings.TrimSpace(entry.Value) == "" {
		return evaluator.Errorf(diagnostics.EModule, "import expects a pack or module name")
	}
	return s.rt.loader.Import(s.ip, entry.Value, tools.Lookup)
}

// Vars returns the session's variables in name order.
func (s *Session) Vars() []evaluator.KeyValue {
	f := s.ip.Frame()
	out := make([]evaluator.KeyValue, 0, len(f.Variables))
	for _, name := range f.VarNames() {
		out = append(out, evaluator.KeyValue{Key: name, Value: f.Variables[name]})
	}
	return out
}

// Consts returns the session's constants in name order.
func (s *Session) Consts() []evaluator.KeyValue {
	f := s.ip.Frame()
	out := make([]evaluator.KeyValue, 0, len(f.Constants))
	for _, name := range f.ConstNames() {
		out = append(out, evaluator.KeyValue{Key: name, Value: f.Constants[name]})
	}
	return out
}

// Close releases pack resources held by the session.
func (s *Session) Close() error {
	return s.ip.Close()
}

package evaluator

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart    TraceEventType = "run_start"
	TraceRunEnd      TraceEventType = "run_end"
	TraceStmtStart   TraceEventType = "stmt_start"
	TraceStmtEnd     TraceEventType = "stmt_end"
	TraceFnCallStart TraceEventType = "fn_call_start"
	TraceFnCallEnd   TraceEventType = "fn_call_end"
	TraceLoopStart   TraceEventType = "loop_start"
	TraceLoopEnd     TraceEventType = "loop_end"
	TraceTryStart    TraceEventType = "try_start"
	TraceTryEnd      TraceEventType = "try_end"
	TracePackLoad    TraceEventType = "pack_load"
	TraceModuleLoad  TraceEventType = "module_load"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string         `json:"ts"`
	RunID     string         `json:"runId"`
	Event     TraceEventType `json:"event"`
	Data      *NJRecord      `json:"data,omitempty"`
}

// ExecOptions configures program execution.
type ExecOptions struct {
	Registry      *Registry
	Stdout        io.Writer
	Stdin         io.Reader
	Logger        *zerolog.Logger
	Trace         func(event TraceEvent)
	RunID         string
	ImplicitPaths bool
	Dir           string
}

// ExecResult holds the result of a program execution.
type ExecResult struct {
	Value NJValue
}

// Interpreter evaluates nodes against a current frame. One interpreter
// serves a whole run; function calls swap the frame and restore it.
type Interpreter struct {
	ctx     context.Context
	opts    ExecOptions
	reg     *Registry
	frame   *Frame
	depth   int
	log     zerolog.Logger
	stdout  io.Writer
	stdin   *bufio.Reader
	state   map[string]any
	closers []func() error
}

// NewInterpreter creates an interpreter whose top frame runs program.
func NewInterpreter(ctx context.Context, program *Program, opts ExecOptions) *Interpreter {
	if ctx == nil {
		ctx = context.Background()
	}
	ip := &Interpreter{
		ctx:    ctx,
		opts:   opts,
		reg:    opts.Registry,
		frame:  NewFrame(program, opts.Dir),
		stdout: opts.Stdout,
		state:  make(map[string]any),
		log:    zerolog.Nop(),
	}
	if ip.reg == nil {
		ip.reg = NewRegistry()
	}
	if ip.stdout == nil {
		ip.stdout = os.Stdout
	}
	in := opts.Stdin
	if in == nil {
		in = os.Stdin
	}
	ip.stdin = bufio.NewReader(in)
	if opts.Logger != nil {
		ip.log = *opts.Logger
	}
	return ip
}

// Execute runs program's main function and returns its result.
func Execute(ctx context.Context, program *Program, opts ExecOptions) (*ExecResult, error) {
	ip := NewInterpreter(ctx, program, opts)
	defer ip.Close()

	ip.Emit(TraceRunStart, nil)
	val, err := ip.RunMain()
	ip.Emit(TraceRunEnd, nil)
	if err != nil {
		return nil, err
	}
	return &ExecResult{Value: val}, nil
}

// Context returns the run context.
func (ip *Interpreter) Context() context.Context { return ip.ctx }

// Registry returns the instruction registry in use.
func (ip *Interpreter) Registry() *Registry { return ip.reg }

// Frame returns the current frame.
func (ip *Interpreter) Frame() *Frame { return ip.frame }

// Logger returns the interpreter's logger.
func (ip *Interpreter) Logger() *zerolog.Logger { return &ip.log }

// Stdout is where print and the shell pack write.
func (ip *Interpreter) Stdout() io.Writer { return ip.stdout }

// Stdin is where io.readLine reads.
func (ip *Interpreter) Stdin() *bufio.Reader { return ip.stdin }

// State returns per-interpreter storage used by packs.
func (ip *Interpreter) State(key string) (any, bool) {
	v, ok := ip.state[key]
	return v, ok
}

// SetState stores per-interpreter pack state.
func (ip *Interpreter) SetState(key string, v any) {
	ip.state[key] = v
}

// OnClose registers fn to run when the interpreter is closed.
func (ip *Interpreter) OnClose(fn func() error) {
	ip.closers = append(ip.closers, fn)
}

// Close releases pack resources, newest first. It returns the first error.
func (ip *Interpreter) Close() error {
	var first error
	for i := len(ip.closers) - 1; i >= 0; i-- {
		if err := ip.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	ip.closers = nil
	return first
}

// Emit sends a trace event when a trace sink is configured.
func (ip *Interpreter) Emit(event TraceEventType, data map[string]string) {
	if ip.opts.Trace == nil {
		return
	}
	var dataRec *NJRecord
	if data != nil {
		keys := make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		rec := EmptyRecord()
		sort.Strings(keys)
		for _, k := range keys {
			rec.Set(k, NewString(data[k]))
		}
		dataRec = &rec
	}
	ip.opts.Trace(TraceEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		RunID:     ip.opts.RunID,
		Event:     event,
		Data:      dataRec,
	})
}

// ActivatePack registers p's handlers and runs its initializer once per
// interpreter. Activation is tracked in the frame's loaded modules.
func (ip *Interpreter) ActivatePack(p *Pack) error {
	key := "!" + p.Name
	if ip.frame.LoadedModules[key] {
		return nil
	}
	ip.reg.RegisterPack(p)
	ip.frame.LoadedModules[key] = true
	ip.log.Debug().Str("pack", p.Name).Int("handlers", len(p.Handlers)).Msg("pack activated")
	ip.Emit(TracePackLoad, map[string]string{"pack": p.Name})
	if p.Init != nil {
		if err := p.Init(ip); err != nil {
			return &NJRuntimeError{
				Code:    diagnostics.EPack,
				Message: "initializing pack '" + p.Name + "': " + err.Error(),
			}
		}
	}
	return nil
}

// Evaluate is the value-evaluation contract: literals and lists are
// returned as they are, multi-key records are literals, and a single-key
// record is an instruction dispatched through the registry.
func (ip *Interpreter) Evaluate(node NJValue) Outcome {
	rec, ok := node.(NJRecord)
	if !ok || len(rec.Pairs) != 1 {
		return Val(node)
	}
	if err := ip.ctx.Err(); err != nil {
		return Failf(diagnostics.ECancelled, "run cancelled: %v", err)
	}
	return ip.dispatch(rec.Pairs[0].Key, rec.Pairs[0].Value)
}

func (ip *Interpreter) dispatch(key string, payload NJValue) Outcome {
	switch key {
	case "var", "const":
		if s, ok := payload.(NJString); ok && IsPath(s.Value) {
			return ip.ReadPath(s.Value, key == "const")
		}
	case "function.call", "call", "func.call":
		return ip.CallInstruction(payload)
	}

	if h, ok := ip.reg.Lookup(key); ok {
		ip.log.Trace().Str("instr", key).Int("depth", ip.depth).Msg("dispatch")
		return h.Handle(ip, payload)
	}

	if ip.opts.ImplicitPaths && IsPath(key) {
		if parts, err := ParsePath(key); err == nil && !parts[0].IsIndex && ip.frame.HasBinding(parts[0].Key) {
			_, isVar := ip.frame.GetVar(parts[0].Key)
			ip.log.Trace().Str("path", key).Msg("implicit path read")
			return ip.ReadPath(key, !isVar)
		}
	}

	err := Errorf(diagnostics.EUnknownInstr, "unknown instruction '%s'", key)
	if s := ip.reg.Suggest(key); len(s) > 0 {
		err.Hint = "did you mean '" + strings.Join(s, "', '") + "'?"
	}
	return Fail(err)
}

// ReadPath reads a variable (or constant) by plain name or nested path.
func (ip *Interpreter) ReadPath(path string, constant bool) Outcome {
	v, err := ip.frame.ReadPath(path, constant)
	if err != nil {
		return Fail(asRuntimeError(err))
	}
	return Val(v)
}

// ExecBlock runs a block: a list of statements or a single statement. The
// last statement's value is the block's value; any non-value outcome stops
// the block and is returned unchanged.
func (ip *Interpreter) ExecBlock(node NJValue) Outcome {
	list, ok := node.(NJList)
	if !ok {
		return ip.execStatement(node)
	}
	return ip.ExecStatements(list.Items)
}

// ExecStatements runs stmts in order.
func (ip *Interpreter) ExecStatements(stmts []NJValue) Outcome {
	last := Val(NewNull())
	for _, stmt := range stmts {
		last = ip.execStatement(stmt)
		if !last.IsValue() {
			return last
		}
	}
	return last
}

func (ip *Interpreter) execStatement(stmt NJValue) Outcome {
	if ip.opts.Trace == nil {
		return ip.Evaluate(stmt)
	}
	name := statementName(stmt)
	ip.Emit(TraceStmtStart, map[string]string{"instr": name})
	o := ip.Evaluate(stmt)
	ip.Emit(TraceStmtEnd, map[string]string{"instr": name, "outcome": o.Kind.String()})
	return o
}

func statementName(stmt NJValue) string {
	if rec, ok := stmt.(NJRecord); ok && len(rec.Pairs) == 1 {
		return rec.Pairs[0].Key
	}
	return TypeOf(stmt)
}

// RunMain runs the program's main function in the top frame. A return
// ends it early; otherwise the last statement's value is the result.
func (ip *Interpreter) RunMain() (NJValue, error) {
	fn, ok := ip.frame.Program.Lookup("main")
	if !ok {
		return nil, &NJRuntimeError{
			Code:    diagnostics.EUnknownFn,
			Message: "program has no 'main' function",
			Hint:    "add a \"main\" entry under \"program\"",
		}
	}
	o := ip.ExecStatements(fn.Body)
	if o.Kind == KindReturn {
		ip.frame.Returning = o.Value
	}
	return o.Result()
}

// RunScript runs a bare statement list in the top frame.
func (ip *Interpreter) RunScript(stmts []NJValue) (NJValue, error) {
	return ip.ExecStatements(stmts).Result()
}

func asRuntimeError(err error) *NJRuntimeError {
	return AsRuntimeError(err, diagnostics.EPack)
}

// AsRuntimeError converts any error into an NJRuntimeError, using code
// when err is not one already.
func AsRuntimeError(err error, code string) *NJRuntimeError {
	var rt *NJRuntimeError
	if errors.As(err, &rt) {
		return rt
	}
	return &NJRuntimeError{Code: code, Message: err.Error()}
}

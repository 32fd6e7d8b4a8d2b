// Package tools provides the builtin packs a document imports with "!name":
// io, datetime, system, shell, http and db.
package tools

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

// Def is a pack instruction. Its payload is evaluated before Execute
// runs, descending through nested records and lists.
type Def struct {
	Name    string
	Aliases []string
	// Code classifies plain Go errors returned by Execute. Defaults to E_PACK.
	Code    string
	Execute func(ctx context.Context, ip *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error)
}

// Handler adapts d to the evaluator's handler interface.
func (d Def) Handler() evaluator.Handler {
	return evaluator.NewInstruction(d.Name, d.handle, d.Aliases...)
}

func (d Def) handle(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	args, o := ip.EvalTree(payload)
	if !o.IsValue() {
		return o
	}
	v, err := d.Execute(ip.Context(), ip, args)
	if err != nil {
		var rt *evaluator.NJRuntimeError
		if errors.As(err, &rt) {
			return evaluator.Fail(rt)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ip.Context().Err() != nil {
				return evaluator.Failf(diagnostics.ECancelled, "%s: %v", d.Name, err)
			}
		}
		code := d.Code
		if code == "" {
			code = diagnostics.EPack
		}
		return evaluator.Failf(code, "%s: %v", d.Name, err)
	}
	if v == nil {
		v = evaluator.NewNull()
	}
	return evaluator.Val(v)
}

func newPack(name, description string, defs []Def, init func(*evaluator.Interpreter) error) *evaluator.Pack {
	handlers := make([]evaluator.Handler, len(defs))
	for i, d := range defs {
		handlers[i] = d.Handler()
	}
	return &evaluator.Pack{Name: name, Description: description, Handlers: handlers, Init: init}
}

var (
	catalogOnce sync.Once
	catalog     map[string]*evaluator.Pack
)

// Catalog returns every builtin pack by name.
func Catalog() map[string]*evaluator.Pack {
	catalogOnce.Do(func() {
		catalog = map[string]*evaluator.Pack{}
		for _, p := range []*evaluator.Pack{
			IOPack(),
			DateTimePack(),
			SystemPack(),
			ShellPack(),
			HTTPPack(),
			DBPack(),
		} {
			catalog[p.Name] = p
		}
	})
	return catalog
}

// Lookup finds a builtin pack.
func Lookup(name string) (*evaluator.Pack, bool) {
	p, ok := Catalog()[name]
	return p, ok
}

// Names returns the builtin pack names, sorted.
func Names() []string {
	names := make([]string, 0, len(Catalog()))
	for n := range Catalog() {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RegisterAll binds every pack's handlers into reg without running pack
// initializers. Used for linting, where nothing executes.
func RegisterAll(reg *evaluator.Registry) {
	for _, n := range Names() {
		reg.RegisterPack(Catalog()[n])
	}
}

// ActivateAll activates every pack on ip, as scripts do.
func ActivateAll(ip *evaluator.Interpreter) error {
	for _, n := range Names() {
		if err := ip.ActivatePack(Catalog()[n]); err != nil {
			return err
		}
	}
	return nil
}

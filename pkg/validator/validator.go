// Package validator checks decoded NJIL documents before they run: document
// contracts are errors, unknown instructions and functions are warnings.
package validator

import (
	"fmt"
	"strings"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/parser"
)

// Options configures linting. With a nil Registry only document
// contracts are checked.
type Options struct {
	File          string
	Registry      *evaluator.Registry
	ImplicitPaths bool
	// Functions lists names callable besides the program's own, such as
	// namespaced module exports.
	Functions []string
}

// callKeys are the spellings of function.call handled by the evaluator itself.
var callKeys = map[string]bool{
	"function.call": true,
	"call":          true,
	"func.call":     true,
}

type validator struct {
	opts  Options
	diags []diagnostics.Diagnostic
	fns   map[string]bool
	names []string
}

func newValidator(opts Options) *validator {
	return &validator{opts: opts, fns: make(map[string]bool)}
}

func (v *validator) span() *diagnostics.Span {
	return &diagnostics.Span{File: v.opts.File, Line: 1, Col: 1}
}

func (v *validator) addError(code, msg, hint string) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, v.span(), hint))
}

func (v *validator) addWarning(code, msg, hint string) {
	v.diags = append(v.diags, diagnostics.MakeWarning(code, msg, v.span(), hint))
}

func (v *validator) knowFunctions(names ...string) {
	for _, n := range names {
		if !v.fns[n] {
			v.fns[n] = true
			v.names = append(v.names, n)
		}
	}
}

// Validate checks a program document and returns its diagnostics.
func Validate(prog *evaluator.Program, opts Options) []diagnostics.Diagnostic {
	v := newValidator(opts)
	v.knowFunctions(prog.Names()...)
	v.knowFunctions(opts.Functions...)

	if _, ok := prog.Lookup("main"); !ok {
		v.addError(diagnostics.EUnknownFn, "program has no 'main' function", "add a \"main\" entry under \"program\"")
	}
	for _, name := range prog.Names() {
		fn, _ := prog.Lookup(name)
		v.checkParams(fn)
		v.walkBlock(fn.Body)
	}
	for _, imp := range prog.Imports {
		if strings.TrimSpace(imp) == "" || imp == "!" {
			v.addError(diagnostics.EModule, "empty import entry", "")
		}
	}
	return v.diags
}

// ValidateScript lints a script's statements.
func ValidateScript(stmts []evaluator.NJValue, opts Options) []diagnostics.Diagnostic {
	v := newValidator(opts)
	v.knowFunctions(opts.Functions...)
	v.walkBlock(stmts)
	return v.diags
}

// ValidateModule enforces the module contract: a non-empty name, and a
// return statement in the body of every exported function.
func ValidateModule(m *parser.Module, opts Options) []diagnostics.Diagnostic {
	v := newValidator(opts)
	if strings.TrimSpace(m.Name) == "" {
		v.addError(diagnostics.EModule, "module name must not be empty", "set \"module\" to a non-empty string")
	}
	for _, fn := range m.Functions {
		v.knowFunctions(fn.Name, m.Namespace+"."+fn.Name)
	}
	v.knowFunctions(opts.Functions...)
	for _, fn := range m.Functions {
		if !HasReturn(fn.Body) {
			v.addError(diagnostics.EModule,
				fmt.Sprintf("function '%s' in module '%s' has no return value", fn.Name, m.Name),
				"exported functions must contain a {\"return\": ...} statement")
		}
		v.checkParams(fn)
		v.walkBlock(fn.Body)
	}
	return v.diags
}

// HasReturn reports whether body has a top-level return statement.
func HasReturn(body []evaluator.NJValue) bool {
	for _, stmt := range body {
		if rec, ok := stmt.(evaluator.NJRecord); ok && rec.Has("return") {
			return true
		}
	}
	return false
}

func (v *validator) checkParams(fn *evaluator.Function) {
	seen := make(map[string]bool, len(fn.Params))
	for _, p := range fn.Params {
		if p == "" {
			v.addError(diagnostics.EDoc, fmt.Sprintf("function '%s' has an empty parameter name", fn.Name), "")
			continue
		}
		if seen[p] {
			v.addError(diagnostics.EDoc, fmt.Sprintf("function '%s' declares parameter '%s' twice", fn.Name, p), "")
		}
		seen[p] = true
	}
}

func (v *validator) walkBlock(stmts []evaluator.NJValue) {
	for _, s := range stmts {
		v.walk(s)
	}
}

// walk mirrors the evaluation contract: a single-key record is an
// instruction, and an instruction's payload fields are nodes themselves.
func (v *validator) walk(node evaluator.NJValue) {
	switch n := node.(type) {
	case evaluator.NJList:
		v.walkBlock(n.Items)
	case evaluator.NJRecord:
		if len(n.Pairs) != 1 {
			for _, kv := range n.Pairs {
				v.walk(kv.Value)
			}
			return
		}
		key, payload := n.Pairs[0].Key, n.Pairs[0].Value
		v.checkInstruction(key, payload)
		v.walkPayload(payload)
	}
}

func (v *validator) walkPayload(payload evaluator.NJValue) {
	switch p := payload.(type) {
	case evaluator.NJList:
		v.walkBlock(p.Items)
	case evaluator.NJRecord:
		for _, kv := range p.Pairs {
			// {"body": [...]} is a clause, not an instruction
			if rec, ok := kv.Value.(evaluator.NJRecord); ok && len(rec.Pairs) == 1 && rec.Pairs[0].Key == "body" {
				v.walk(rec.Pairs[0].Value)
				continue
			}
			v.walk(kv.Value)
		}
	}
}

func (v *validator) checkInstruction(key string, payload evaluator.NJValue) {
	if callKeys[key] {
		v.checkCall(payload)
		return
	}
	if v.opts.Registry == nil || key == "var" || key == "const" {
		return
	}
	if _, ok := v.opts.Registry.Lookup(key); ok {
		return
	}
	if v.opts.ImplicitPaths && evaluator.IsPath(key) {
		return
	}
	hint := ""
	if s := v.opts.Registry.Suggest(key); len(s) > 0 {
		hint = "did you mean '" + strings.Join(s, "', '") + "'?"
	}
	v.addWarning(diagnostics.EUnknownInstr, fmt.Sprintf("unknown instruction '%s'", key), hint)
}

// checkCall warns about calls whose name is a literal that matches no
// known function. Namespaced names may come from modules loaded at run
// time, so they are only checked when the namespace is known.
func (v *validator) checkCall(payload evaluator.NJValue) {
	var name string
	switch p := payload.(type) {
	case evaluator.NJString:
		name = p.Value
	case evaluator.NJRecord:
		n, ok := p.Get("name")
		if !ok {
			v.addError(diagnostics.EArgs, "function.call requires 'name'", "")
			return
		}
		s, ok := n.(evaluator.NJString)
		if !ok {
			return
		}
		name = s.Value
	default:
		return
	}
	if v.fns[name] {
		return
	}
	if i := strings.LastIndexByte(name, '.'); i > 0 && !v.knownNamespace(name[:i]) {
		return
	}
	hint := ""
	if s := evaluator.SuggestNames(name, v.names, 3); len(s) > 0 {
		hint = "did you mean '" + strings.Join(s, "', '") + "'?"
	}
	v.addWarning(diagnostics.EUnknownFn, fmt.Sprintf("unknown function '%s'", name), hint)
}

func (v *validator) knownNamespace(ns string) bool {
	prefix := ns + "."
	for _, n := range v.names {
		if strings.HasPrefix(n, prefix) {
			return true
		}
	}
	return false
}

// Lint validates any decoded document.
func Lint(doc *parser.Document, opts Options) []diagnostics.Diagnostic {
	if opts.File == "" {
		opts.File = doc.File
	}
	switch doc.Kind {
	case parser.KindScript:
		return ValidateScript(doc.Script, opts)
	case parser.KindModule:
		return ValidateModule(doc.Module, opts)
	}
	return Validate(doc.Program, opts)
}

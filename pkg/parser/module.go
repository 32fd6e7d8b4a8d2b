package parser

import (
	"fmt"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

// Module is a decoded NJIM document. Path is set by the loader once the
// file has been resolved.
type Module struct {
	Name        string
	Namespace   string
	Description string
	Author      string
	Version     string
	Constants   evaluator.NJRecord
	Functions   []*evaluator.Function
	Types       evaluator.NJValue
	Imports     []string
	Path        string
}

// ParseModule parses a module document.
func ParseModule(source, filename string) (*Module, []diagnostics.Diagnostic) {
	root, _, diags := Decode(source, filename)
	if len(diags) > 0 {
		return nil, diags
	}
	rec, ok := root.(evaluator.NJRecord)
	if !ok {
		return nil, []diagnostics.Diagnostic{docError(filename, "module document must be an object", "")}
	}
	return moduleFromValue(rec, filename)
}

func moduleFromValue(rec evaluator.NJRecord, filename string) (*Module, []diagnostics.Diagnostic) {
	var diags []diagnostics.Diagnostic
	m := &Module{Constants: evaluator.EmptyRecord(), Types: evaluator.NewNull()}

	str := func(key string, dst *string) {
		v, ok := rec.Get(key)
		if !ok {
			return
		}
		s, ok := v.(evaluator.NJString)
		if !ok {
			diags = append(diags, docError(filename, fmt.Sprintf("module field '%s' must be a string", key), ""))
			return
		}
		*dst = s.Value
	}
	str("module", &m.Name)
	str("namespace", &m.Namespace)
	str("description", &m.Description)
	str("author", &m.Author)
	str("version", &m.Version)
	if m.Namespace == "" {
		m.Namespace = m.Name
	}

	if imp, ok := rec.Get("imports"); ok {
		names, err := stringList(imp)
		if err != nil {
			diags = append(diags, docError(filename, "module 'imports' "+err.Error(), ""))
		} else {
			m.Imports = names
		}
	}

	exp, ok := rec.Get("exports")
	if !ok {
		diags = append(diags, docError(filename, "module is missing 'exports'", "add {\"exports\": {\"functions\": {...}}}"))
		return nil, diags
	}
	exports, ok := exp.(evaluator.NJRecord)
	if !ok {
		diags = append(diags, docError(filename, "module 'exports' must be an object", ""))
		return nil, diags
	}

	if c, ok := exports.Get("constants"); ok {
		consts, ok := c.(evaluator.NJRecord)
		if !ok {
			diags = append(diags, docError(filename, "'exports.constants' must be an object", ""))
		} else {
			m.Constants = consts
		}
	}
	if f, ok := exports.Get("functions"); ok {
		fns, ok := f.(evaluator.NJRecord)
		if !ok {
			diags = append(diags, docError(filename, "'exports.functions' must be an object", ""))
		} else {
			for _, kv := range fns.Pairs {
				fn, err := functionFromValue(kv.Key, kv.Value)
				if err != nil {
					diags = append(diags, docError(filename, err.Error(), ""))
					continue
				}
				m.Functions = append(m.Functions, fn)
			}
		}
	}
	if t, ok := exports.Get("types"); ok {
		m.Types = t
	}

	if len(diags) > 0 {
		return nil, diags
	}
	return m, nil
}

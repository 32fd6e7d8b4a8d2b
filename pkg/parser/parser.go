// Package parser decodes NJIL documents (JSON with comments, or YAML) into
// programs, scripts and modules.
package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/preprocess"
)

// Format is the surface syntax of a document.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// Kind is the document type.
type Kind int

const (
	KindProgram Kind = iota
	KindScript
	KindModule
)

func (k Kind) String() string {
	switch k {
	case KindScript:
		return "script"
	case KindModule:
		return "module"
	}
	return "program"
}

// Document is a decoded source file. Exactly one of Program, Script and
// Module is set, according to Kind.
type Document struct {
	File    string
	Format  Format
	Kind    Kind
	Root    evaluator.NJValue
	Program *evaluator.Program
	Script  []evaluator.NJValue
	Module  *Module
}

// DetectFormat picks the syntax from the file extension, falling back to
// the first non-space character: JSON documents start with '{' or '['.
func DetectFormat(filename, source string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json", ".njil", ".njim", ".njis":
		return FormatJSON
	}
	trimmed := strings.TrimLeft(preprocess.StripComments(source), " \t\r\n\ufeff")
	if trimmed == "" || trimmed[0] == '{' || trimmed[0] == '[' {
		return FormatJSON
	}
	return FormatYAML
}

// Decode turns source into a value tree. JSON input has its comments
// stripped first.
func Decode(source, filename string) (evaluator.NJValue, Format, []diagnostics.Diagnostic) {
	format := DetectFormat(filename, source)
	if format == FormatYAML {
		v, diags := decodeYAML(source, filename)
		return v, format, diags
	}

	clean := preprocess.StripComments(strings.TrimPrefix(source, "\ufeff"))
	if strings.TrimSpace(clean) == "" {
		return nil, format, []diagnostics.Diagnostic{
			diagnostics.MakeDiag(diagnostics.EParse, "empty document", docSpan(filename), ""),
		}
	}
	v, err := evaluator.ParseJSON([]byte(clean))
	if err != nil {
		var de *evaluator.DecodeError
		if errors.As(err, &de) {
			return nil, format, []diagnostics.Diagnostic{
				diagnostics.MakeDiag(diagnostics.EParse, de.Err.Error(), diagnostics.SpanAt(filename, clean, int(de.Offset)), "check for a missing comma or an unclosed bracket"),
			}
		}
		return nil, format, []diagnostics.Diagnostic{
			diagnostics.MakeDiag(diagnostics.EParse, err.Error(), docSpan(filename), ""),
		}
	}
	return v, format, nil
}

// Parse decodes source and classifies it: a Sequence is a script, a
// Mapping with "program" is a program, and a Mapping with "module" (or any
// .njim file) is a module.
func Parse(source, filename string) (*Document, []diagnostics.Diagnostic) {
	root, format, diags := Decode(source, filename)
	if len(diags) > 0 {
		return nil, diags
	}
	doc := &Document{File: filename, Format: format, Root: root}

	switch v := root.(type) {
	case evaluator.NJList:
		doc.Kind = KindScript
		doc.Script = v.Items
		return doc, nil
	case evaluator.NJRecord:
		if v.Has("module") || strings.EqualFold(filepath.Ext(filename), ".njim") {
			doc.Kind = KindModule
			doc.Module, diags = moduleFromValue(v, filename)
		} else {
			doc.Kind = KindProgram
			doc.Program, diags = programFromValue(v, filename)
		}
		if len(diags) > 0 {
			return nil, diags
		}
		return doc, nil
	}
	return nil, []diagnostics.Diagnostic{
		docError(filename, fmt.Sprintf("document must be an object or an array, got %s", evaluator.TypeOf(root)), ""),
	}
}

// ParseProgram parses a program document.
func ParseProgram(source, filename string) (*evaluator.Program, []diagnostics.Diagnostic) {
	root, _, diags := Decode(source, filename)
	if len(diags) > 0 {
		return nil, diags
	}
	rec, ok := root.(evaluator.NJRecord)
	if !ok {
		return nil, []diagnostics.Diagnostic{
			docError(filename, "program document must be an object", "wrap functions in {\"program\": {\"main\": {\"body\": [...]}}}"),
		}
	}
	return programFromValue(rec, filename)
}

// ParseScript parses a script document: a bare statement list.
func ParseScript(source, filename string) ([]evaluator.NJValue, []diagnostics.Diagnostic) {
	root, _, diags := Decode(source, filename)
	if len(diags) > 0 {
		return nil, diags
	}
	list, ok := root.(evaluator.NJList)
	if !ok {
		return nil, []diagnostics.Diagnostic{
			docError(filename, "script document must be an array of statements", ""),
		}
	}
	return list.Items, nil
}

func programFromValue(rec evaluator.NJRecord, filename string) (*evaluator.Program, []diagnostics.Diagnostic) {
	var diags []diagnostics.Diagnostic
	prog := evaluator.NewProgram()

	if imp, ok := rec.Get("import"); ok {
		names, err := stringList(imp)
		if err != nil {
			diags = append(diags, docError(filename, "'import' "+err.Error(), "imports are strings such as \"!io\" or \"modules/math.njim\""))
		} else {
			prog.Imports = names
		}
	}

	body, ok := rec.Get("program")
	if !ok {
		diags = append(diags, docError(filename, "missing 'program' object", "add {\"program\": {\"main\": {\"body\": [...]}}}"))
		return nil, diags
	}
	fns, ok := body.(evaluator.NJRecord)
	if !ok {
		diags = append(diags, docError(filename, "'program' must be an object of functions", ""))
		return nil, diags
	}
	for _, kv := range fns.Pairs {
		fn, err := functionFromValue(kv.Key, kv.Value)
		if err != nil {
			diags = append(diags, docError(filename, err.Error(), ""))
			continue
		}
		prog.Add(fn)
	}
	for _, key := range rec.Keys() {
		if key != "import" && key != "program" {
			diags = append(diags, docError(filename, fmt.Sprintf("unknown top-level field '%s'", key), "a program has only 'import' and 'program'"))
		}
	}
	if len(diags) > 0 {
		return nil, diags
	}
	return prog, nil
}

// functionFromValue reads {body: [...], params?: [...]}.
func functionFromValue(name string, v evaluator.NJValue) (*evaluator.Function, error) {
	rec, ok := v.(evaluator.NJRecord)
	if !ok {
		return nil, fmt.Errorf("function '%s' must be an object with a 'body'", name)
	}
	bodyVal, ok := rec.Get("body")
	if !ok {
		return nil, fmt.Errorf("function '%s' is missing 'body'", name)
	}
	body, ok := bodyVal.(evaluator.NJList)
	if !ok {
		return nil, fmt.Errorf("function '%s': 'body' must be an array of statements", name)
	}
	fn := &evaluator.Function{Name: name, Body: body.Items}
	if p, ok := rec.Get("params"); ok {
		params, err := stringList(p)
		if err != nil {
			return nil, fmt.Errorf("function '%s': 'params' %v", name, err)
		}
		fn.Params = params
	}
	return fn, nil
}

func stringList(v evaluator.NJValue) ([]string, error) {
	list, ok := v.(evaluator.NJList)
	if !ok {
		return nil, fmt.Errorf("must be an array of strings")
	}
	out := make([]string, 0, len(list.Items))
	for i, item := range list.Items {
		s, ok := item.(evaluator.NJString)
		if !ok {
			return nil, fmt.Errorf("entry %d must be a string", i)
		}
		out = append(out, s.Value)
	}
	return out, nil
}

func docSpan(filename string) *diagnostics.Span {
	return &diagnostics.Span{File: filename, Line: 1, Col: 1}
}

func docError(filename, msg, hint string) diagnostics.Diagnostic {
	return diagnostics.MakeDiag(diagnostics.EDoc, msg, docSpan(filename), hint)
}

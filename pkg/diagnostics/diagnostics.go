// Package diagnostics defines NJIL diagnostic types for parse, validation and runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Diagnostic code constants.
const (
	EIO             = "E_IO"
	EParse          = "E_PARSE"
	EDoc            = "E_DOC"
	EUnknownInstr   = "E_UNKNOWN_INSTR"
	EArgs           = "E_ARGS"
	EType           = "E_TYPE"
	EPath           = "E_PATH"
	EUndefinedVar   = "E_UNDEFINED_VAR"
	EUndefinedConst = "E_UNDEFINED_CONST"
	EConstRedefined = "E_CONST_REDEFINED"
	EUnknownFn      = "E_UNKNOWN_FN"
	ENoReturn       = "E_NO_RETURN"
	ESignal         = "E_SIGNAL"
	EThrown         = "E_THROWN"
	EModule         = "E_MODULE"
	EModuleCycle    = "E_MODULE_CYCLE"
	EUnknownPack    = "E_UNKNOWN_PACK"
	EPack           = "E_PACK"
	ECancelled      = "E_CANCELLED"
)

// Span locates a diagnostic inside a source document. Line and Col are 1-based.
type Span struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

// SpanAt converts a byte offset into a Span by counting newlines in src.
func SpanAt(file, src string, offset int) *Span {
	if offset < 0 {
		offset = 0
	}
	if offset > len(src) {
		offset = len(src)
	}
	line, col := 1, 1
	for _, r := range src[:offset] {
		if r == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return &Span{File: file, Line: line, Col: col}
}

// Diagnostic represents a parse, validation, or runtime diagnostic.
type Diagnostic struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Span    *Span  `json:"span,omitempty"`
	Hint    string `json:"hint,omitempty"`
	// Warning marks advisory diagnostics that do not stop a run.
	Warning bool   `json:"warning,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// MakeWarning creates an advisory Diagnostic.
func MakeWarning(code, message string, span *Span, hint string) Diagnostic {
	d := MakeDiag(code, message, span, hint)
	d.Warning = true
	return d
}

// HasErrors reports whether any diagnostic in diags is not a warning.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if !d.Warning {
			return true
		}
	}
	return false
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		loc = fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.Line, d.Span.Col)
	}
	level := "error"
	if d.Warning {
		level = "warning"
	}
	out := fmt.Sprintf("%s[%s]: %s\n  --> %s", level, d.Code, d.Message, loc)
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}

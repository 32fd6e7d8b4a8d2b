package stdlib

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

// string.concat [parts...] → string
func stdlibStrConcat(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	list, ok := payload.(evaluator.NJList)
	if !ok {
		return evaluator.Failf(diagnostics.EArgs, "string.concat expects an array of parts")
	}
	var sb strings.Builder
	for _, part := range list.Items {
		o := ip.Evaluate(part)
		if !o.IsValue() {
			return o
		}
		sb.WriteString(ip.Display(o.Value))
	}
	return evaluator.Val(evaluator.NewString(sb.String()))
}

// stringField evaluates a required string field of rec.
func stringField(ip *evaluator.Interpreter, rec evaluator.NJRecord, instr, key string) (string, evaluator.Outcome) {
	node, ok := rec.Get(key)
	if !ok {
		return "", evaluator.Failf(diagnostics.EArgs, "%s requires '%s'", instr, key)
	}
	return ip.EvalString(node, instr+" "+key)
}

// string.split { string, separator } → list of strings
func stdlibStrSplit(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	rec, o := evaluator.RecordPayload("string.split", payload)
	if !o.IsValue() {
		return o
	}
	s, o := stringField(ip, rec, "string.split", "string")
	if !o.IsValue() {
		return o
	}
	sep, o := stringField(ip, rec, "string.split", "separator")
	if !o.IsValue() {
		return o
	}
	return evaluator.Val(evaluator.Divide(evaluator.NewString(s), evaluator.NewString(sep)))
}

// string.replace { string, old, new } → string
func stdlibStrReplace(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	rec, o := evaluator.RecordPayload("string.replace", payload)
	if !o.IsValue() {
		return o
	}
	s, o := stringField(ip, rec, "string.replace", "string")
	if !o.IsValue() {
		return o
	}
	old, o := stringField(ip, rec, "string.replace", "old")
	if !o.IsValue() {
		return o
	}
	repl, o := stringField(ip, rec, "string.replace", "new")
	if !o.IsValue() {
		return o
	}
	return evaluator.Val(evaluator.NewString(strings.ReplaceAll(s, old, repl)))
}

// stringArg accepts either a string-valued node or { string }.
func stringArg(ip *evaluator.Interpreter, instr string, payload evaluator.NJValue) (string, evaluator.Outcome) {
	if rec, ok := payload.(evaluator.NJRecord); ok && rec.Has("string") {
		return stringField(ip, rec, instr, "string")
	}
	return ip.EvalString(payload, instr+" argument")
}

// string.trim "s" | { string } → string
func stdlibStrTrim(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	s, o := stringArg(ip, "string.trim", payload)
	if !o.IsValue() {
		return o
	}
	return evaluator.Val(evaluator.NewString(strings.TrimSpace(s)))
}

// string.length "s" | { string } → number of characters
func stdlibStrLength(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	s, o := stringArg(ip, "string.length", payload)
	if !o.IsValue() {
		return o
	}
	return evaluator.Val(evaluator.NewNumber(float64(utf8.RuneCountInString(s))))
}

// string.format { template, params } → string with {key} placeholders filled
func stdlibStrFormat(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	rec, o := evaluator.RecordPayload("string.format", payload)
	if !o.IsValue() {
		return o
	}
	tmpl, o := stringField(ip, rec, "string.format", "template")
	if !o.IsValue() {
		return o
	}
	paramsNode, ok := rec.Get("params")
	if !ok {
		return evaluator.Failf(diagnostics.EArgs, "string.format requires 'params'")
	}
	params, o := ip.EvalMembers(paramsNode)
	if !o.IsValue() {
		return o
	}
	paramsRec, ok := params.(evaluator.NJRecord)
	if !ok {
		return evaluator.Failf(diagnostics.EType, "string.format params must be an object")
	}

	result := ip.Interpolate(tmpl)
	for _, kv := range paramsRec.Pairs {
		result = strings.ReplaceAll(result, "{"+kv.Key+"}", ip.Display(kv.Value))
	}
	return evaluator.Val(evaluator.NewString(result))
}

type caseKind int

const (
	caseUpper caseKind = iota
	caseLower
	caseTitle
)

// string.upper | string.lower | string.title "s" | { string, language? } → string
func stdlibStrCase(kind caseKind) evaluator.HandleFunc {
	return func(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
		tag := language.Und
		if rec, ok := payload.(evaluator.NJRecord); ok && rec.Has("language") {
			lang, o := stringField(ip, rec, "string case", "language")
			if !o.IsValue() {
				return o
			}
			parsed, err := language.Parse(lang)
			if err != nil {
				return evaluator.Failf(diagnostics.EArgs, "invalid language tag '%s'", lang)
			}
			tag = parsed
		}
		s, o := stringArg(ip, "string case", payload)
		if !o.IsValue() {
			return o
		}

		var c cases.Caser
		switch kind {
		case caseUpper:
			c = cases.Upper(tag)
		case caseLower:
			c = cases.Lower(tag)
		default:
			c = cases.Title(tag)
		}
		return evaluator.Val(evaluator.NewString(c.String(s)))
	}
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// string.markdown "md" | { string } → HTML string
func stdlibStrMarkdown(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	s, o := stringArg(ip, "string.markdown", payload)
	if !o.IsValue() {
		return o
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(s), &buf); err != nil {
		return evaluator.Failf(diagnostics.EPack, "string.markdown: %v", err)
	}
	return evaluator.Val(evaluator.NewString(buf.String()))
}

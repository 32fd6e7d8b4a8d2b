package stdlib

import (
	"strings"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

// json.parse "text" → value, keeping object key order
func stdlibJSONParse(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	s, o := stringArg(ip, "json.parse", payload)
	if !o.IsValue() {
		return o
	}
	v, err := evaluator.ParseJSON([]byte(s))
	if err != nil {
		return evaluator.Failf(diagnostics.EParse, "json.parse: %v", err)
	}
	return evaluator.Val(v)
}

// maxIndent caps the json.stringify indent width.
const maxIndent = 10

// json.stringify value | { value, indent? } → string
func stdlibJSONStringify(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	rec, isRec := payload.(evaluator.NJRecord)
	if !isRec || !rec.Has("value") {
		o := ip.Evaluate(payload)
		if !o.IsValue() {
			return o
		}
		return evaluator.Val(evaluator.NewString(evaluator.ValueToJSONString(o.Value)))
	}

	val, o := ip.EvalField(rec, "json.stringify", "value", true)
	if !o.IsValue() {
		return o
	}
	indent, o := ip.EvalField(rec, "json.stringify", "indent", false)
	if !o.IsValue() {
		return o
	}
	if n, ok := indent.(evaluator.NJNumber); ok && n.Value > 0 {
		b, err := evaluator.ValueToJSONIndent(val, strings.Repeat(" ", int(min(n.Value, maxIndent))))
		if err != nil {
			return evaluator.Failf(diagnostics.EPack, "json.stringify: %v", err)
		}
		return evaluator.Val(evaluator.NewString(string(b)))
	}
	return evaluator.Val(evaluator.NewString(evaluator.ValueToJSONString(val)))
}

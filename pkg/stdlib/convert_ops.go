package stdlib

import (
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

// type.convert { value, type } → converted value
func stdlibConvert(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	rec, o := evaluator.RecordPayload("type.convert", payload)
	if !o.IsValue() {
		return o
	}
	val, o := ip.EvalField(rec, "type.convert", "value", true)
	if !o.IsValue() {
		return o
	}
	typeName, o := stringField(ip, rec, "type.convert", "type")
	if !o.IsValue() {
		return o
	}
	out, err := evaluator.ConvertTo(val, typeName)
	if err != nil {
		return evaluator.Fail(evaluator.AsRuntimeError(err, ""))
	}
	return evaluator.Val(out)
}

// convertTo builds the type.<name> shorthands: the payload is the value
// to convert.
func convertTo(typeName string) evaluator.HandleFunc {
	return func(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
		o := ip.Evaluate(payload)
		if !o.IsValue() {
			return o
		}
		out, err := evaluator.ConvertTo(o.Value, typeName)
		if err != nil {
			return evaluator.Fail(evaluator.AsRuntimeError(err, ""))
		}
		return evaluator.Val(out)
	}
}

// type.of value → "null" | "boolean" | "number" | "string" | "array" | "object"
func stdlibTypeOf(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	o := ip.Evaluate(payload)
	if !o.IsValue() {
		return o
	}
	return evaluator.Val(evaluator.NewString(evaluator.TypeOf(o.Value)))
}

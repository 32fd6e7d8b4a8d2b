package stdlib

import (
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

// var "name" | "a.b[0]" → value
func stdlibVar(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	name, ok := payload.(evaluator.NJString)
	if !ok {
		return evaluator.Failf(diagnostics.EArgs, "var expects a variable name string")
	}
	return ip.ReadPath(name.Value, false)
}

// var.set { name, value } → null
func stdlibVarSet(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	rec, o := evaluator.RecordPayload("var.set", payload)
	if !o.IsValue() {
		return o
	}
	nameNode, ok := rec.Get("name")
	if !ok {
		return evaluator.Failf(diagnostics.EArgs, "var.set requires 'name'")
	}
	name, o := ip.EvalString(nameNode, "var.set name")
	if !o.IsValue() {
		return o
	}
	val, o := ip.EvalField(rec, "var.set", "value", true)
	if !o.IsValue() {
		return o
	}
	if err := ip.Frame().SetVarPath(name, val); err != nil {
		return evaluator.Fail(evaluator.AsRuntimeError(err, diagnostics.EPath))
	}
	return evaluator.Val(evaluator.NewNull())
}

// const "name" | "ns.name" | "a.b[0]" → value
func stdlibConst(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	name, ok := payload.(evaluator.NJString)
	if !ok {
		return evaluator.Failf(diagnostics.EArgs, "const expects a constant name string")
	}
	return ip.ReadPath(name.Value, true)
}

// const.set { name, value } → null
func stdlibConstSet(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	rec, o := evaluator.RecordPayload("const.set", payload)
	if !o.IsValue() {
		return o
	}
	nameNode, ok := rec.Get("name")
	if !ok {
		return evaluator.Failf(diagnostics.EArgs, "const.set requires 'name'")
	}
	name, o := ip.EvalString(nameNode, "const.set name")
	if !o.IsValue() {
		return o
	}
	val, o := ip.EvalField(rec, "const.set", "value", true)
	if !o.IsValue() {
		return o
	}
	if err := ip.Frame().DefineConst(name, val); err != nil {
		return evaluator.Fail(evaluator.AsRuntimeError(err, diagnostics.EConstRedefined))
	}
	return evaluator.Val(evaluator.NewNull())
}

// const.set.m { name: value, ... } → null
func stdlibConstSetMany(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	rec, o := evaluator.RecordPayload("const.set.m", payload)
	if !o.IsValue() {
		return o
	}
	for _, kv := range rec.Pairs {
		v := ip.Evaluate(kv.Value)
		if !v.IsValue() {
			return v
		}
		if err := ip.Frame().DefineConst(kv.Key, v.Value); err != nil {
			return evaluator.Fail(evaluator.AsRuntimeError(err, diagnostics.EConstRedefined))
		}
	}
	return evaluator.Val(evaluator.NewNull())
}

// const.has "name" → bool
func stdlibConstHas(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	name, o := ip.EvalString(payload, "const.has name")
	if !o.IsValue() {
		return o
	}
	_, found := ip.Frame().Constants[name]
	return evaluator.Val(evaluator.NewBool(found))
}

// function.call "name" | { name, args } → value returned by the function
func stdlibCall(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	return ip.CallInstruction(payload)
}

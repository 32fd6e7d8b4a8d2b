package stdlib

import (
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

// json.new null | { ... } | [ ... ] → object or array with members evaluated
func stdlibJSONNew(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	if evaluator.IsNull(payload) {
		return evaluator.Val(evaluator.EmptyRecord())
	}
	switch n := payload.(type) {
	case evaluator.NJRecord:
		out := evaluator.EmptyRecord()
		for _, kv := range n.Pairs {
			o := ip.Evaluate(kv.Value)
			if !o.IsValue() {
				return o
			}
			out.Set(kv.Key, o.Value)
		}
		return evaluator.Val(out)
	case evaluator.NJList:
		_, o := ip.EvalMembers(n)
		return o
	}
	return evaluator.Failf(diagnostics.EArgs, "json.new expects null, an object or an array")
}

// json.get { object, key } → value, or null when absent
func stdlibJSONGet(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	rec, o := evaluator.RecordPayload("json.get", payload)
	if !o.IsValue() {
		return o
	}
	obj, o := ip.EvalField(rec, "json.get", "object", true)
	if !o.IsValue() {
		return o
	}
	key, o := ip.EvalField(rec, "json.get", "key", true)
	if !o.IsValue() {
		return o
	}

	switch container := obj.(type) {
	case evaluator.NJRecord:
		if k, ok := key.(evaluator.NJString); ok {
			if v, found := container.Get(k.Value); found {
				return evaluator.Val(v)
			}
			if evaluator.IsPath(k.Value) {
				if parts, err := evaluator.ParsePath(k.Value); err == nil {
					return evaluator.Val(evaluator.GetPath(container, parts))
				}
			}
		}
	case evaluator.NJList:
		if idx, ok := key.(evaluator.NJNumber); ok {
			i := int(idx.Value)
			if i >= 0 && i < len(container.Items) {
				return evaluator.Val(container.Items[i])
			}
		}
	}
	return evaluator.Val(evaluator.NewNull())
}

// json.set { object, key, value } → updated copy of object
func stdlibJSONSet(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	rec, o := evaluator.RecordPayload("json.set", payload)
	if !o.IsValue() {
		return o
	}
	obj, o := ip.EvalField(rec, "json.set", "object", true)
	if !o.IsValue() {
		return o
	}
	key, o := ip.EvalField(rec, "json.set", "key", true)
	if !o.IsValue() {
		return o
	}
	val, o := ip.EvalField(rec, "json.set", "value", true)
	if !o.IsValue() {
		return o
	}

	switch container := obj.(type) {
	case evaluator.NJRecord:
		k, ok := key.(evaluator.NJString)
		if !ok {
			return evaluator.Failf(diagnostics.EType, "json.set key for an object must be a string")
		}
		return evaluator.Val(container.With(k.Value, val))
	case evaluator.NJList:
		idx, ok := key.(evaluator.NJNumber)
		if !ok {
			return evaluator.Failf(diagnostics.EType, "json.set key for an array must be a number")
		}
		i := int(idx.Value)
		if i < 0 || i >= len(container.Items) {
			return evaluator.Failf(diagnostics.EArgs, "json.set index %d out of range (length %d)", i, len(container.Items))
		}
		items := make([]evaluator.NJValue, len(container.Items))
		copy(items, container.Items)
		items[i] = val
		return evaluator.Val(evaluator.NewList(items))
	}
	return evaluator.Failf(diagnostics.EType, "json.set object must be an object or array, got %s", evaluator.TypeOf(obj))
}

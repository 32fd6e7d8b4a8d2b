package evaluator

import (
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
)

// Helpers shared by instruction handlers. Each returns an Outcome that is
// a plain value on success; callers check IsValue and return it otherwise.

// RecordPayload requires payload to be a record.
func RecordPayload(instr string, payload NJValue) (NJRecord, Outcome) {
	rec, ok := payload.(NJRecord)
	if !ok {
		return NJRecord{}, Failf(diagnostics.EArgs, "%s expects an object payload, got %s", instr, TypeOf(payload))
	}
	return rec, Val(NewNull())
}

// EvalField evaluates rec[key]. A missing optional field yields a nil
// value; a missing required field is an E_ARGS failure.
func (ip *Interpreter) EvalField(rec NJRecord, instr, key string, required bool) (NJValue, Outcome) {
	node, ok := rec.Get(key)
	if !ok {
		if required {
			return nil, Failf(diagnostics.EArgs, "%s requires '%s'", instr, key)
		}
		return nil, Val(NewNull())
	}
	o := ip.Evaluate(node)
	if !o.IsValue() {
		return nil, o
	}
	return o.Value, o
}

// EvalString evaluates node and requires a string result.
func (ip *Interpreter) EvalString(node NJValue, what string) (string, Outcome) {
	o := ip.Evaluate(node)
	if !o.IsValue() {
		return "", o
	}
	s, ok := o.Value.(NJString)
	if !ok {
		return "", Failf(diagnostics.EType, "%s must be a string, got %s", what, TypeOf(o.Value))
	}
	return s.Value, o
}

// EvalNumber evaluates node and requires a number result.
func (ip *Interpreter) EvalNumber(node NJValue, what string) (float64, Outcome) {
	o := ip.Evaluate(node)
	if !o.IsValue() {
		return 0, o
	}
	n, ok := o.Value.(NJNumber)
	if !ok {
		return 0, Failf(diagnostics.EType, "%s must be a number, got %s", what, TypeOf(o.Value))
	}
	return n.Value, o
}

// EvalEach evaluates an operand list. A literal list has each element
// evaluated; any other node is evaluated once and must produce a list.
func (ip *Interpreter) EvalEach(node NJValue, what string) ([]NJValue, Outcome) {
	if list, ok := node.(NJList); ok {
		out := make([]NJValue, len(list.Items))
		for i, item := range list.Items {
			o := ip.Evaluate(item)
			if !o.IsValue() {
				return nil, o
			}
			out[i] = o.Value
		}
		return out, Val(NewNull())
	}
	o := ip.Evaluate(node)
	if !o.IsValue() {
		return nil, o
	}
	list, ok := o.Value.(NJList)
	if !ok {
		return nil, Failf(diagnostics.EArgs, "%s expects an array, got %s", what, TypeOf(o.Value))
	}
	return list.Items, o
}

// EvalMembers evaluates a structured argument. A single-key record naming
// a registered instruction is evaluated as one; any other record or list
// has each member evaluated; scalars are evaluated as they are.
func (ip *Interpreter) EvalMembers(node NJValue) (NJValue, Outcome) {
	switch n := node.(type) {
	case NJRecord:
		if len(n.Pairs) == 1 {
			if _, ok := ip.reg.Lookup(n.Pairs[0].Key); ok {
				o := ip.Evaluate(n)
				return o.Value, o
			}
		}
		out := EmptyRecord()
		for _, kv := range n.Pairs {
			o := ip.Evaluate(kv.Value)
			if !o.IsValue() {
				return nil, o
			}
			out.Set(kv.Key, o.Value)
		}
		return out, Val(out)
	case NJList:
		items := make([]NJValue, len(n.Items))
		for i, item := range n.Items {
			o := ip.Evaluate(item)
			if !o.IsValue() {
				return nil, o
			}
			items[i] = o.Value
		}
		v := NewList(items)
		return v, Val(v)
	}
	o := ip.Evaluate(node)
	return o.Value, o
}

// EvalTree evaluates node the way EvalMembers does, descending into every
// nested record and list that is not itself an instruction.
func (ip *Interpreter) EvalTree(node NJValue) (NJValue, Outcome) {
	switch n := node.(type) {
	case NJRecord:
		if len(n.Pairs) == 1 {
			if _, ok := ip.reg.Lookup(n.Pairs[0].Key); ok {
				o := ip.Evaluate(n)
				return o.Value, o
			}
		}
		out := EmptyRecord()
		for _, kv := range n.Pairs {
			v, o := ip.EvalTree(kv.Value)
			if !o.IsValue() {
				return nil, o
			}
			out.Set(kv.Key, v)
		}
		return out, Val(out)
	case NJList:
		items := make([]NJValue, len(n.Items))
		for i, item := range n.Items {
			v, o := ip.EvalTree(item)
			if !o.IsValue() {
				return nil, o
			}
			items[i] = v
		}
		v := NewList(items)
		return v, Val(v)
	}
	return node, Val(node)
}

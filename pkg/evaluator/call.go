package evaluator

import (
	"strconv"
	"strings"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
)

// CallInstruction handles function.call. The payload is either a function
// name or {name, args}; arguments are evaluated in the caller's frame.
func (ip *Interpreter) CallInstruction(payload NJValue) Outcome {
	var name string
	var argNodes []NJValue

	switch p := payload.(type) {
	case NJString:
		name = p.Value
	case NJRecord:
		nameNode, ok := p.Get("name")
		if !ok {
			return Failf(diagnostics.EArgs, "function.call requires 'name'")
		}
		n, o := ip.EvalString(nameNode, "function.call name")
		if !o.IsValue() {
			return o
		}
		name = n
		if argsNode, ok := p.Get("args"); ok {
			list, ok := argsNode.(NJList)
			if !ok {
				return Failf(diagnostics.EArgs, "function.call 'args' must be an array")
			}
			argNodes = list.Items
		}
	default:
		return Failf(diagnostics.EArgs, "function.call expects a function name or {name, args}")
	}

	args := make([]NJValue, len(argNodes))
	for i, node := range argNodes {
		o := ip.Evaluate(node)
		if !o.IsValue() {
			return o
		}
		args[i] = o.Value
	}
	return ip.CallFunction(name, args)
}

// CallFunction invokes a program function in a fresh child frame. The
// arguments are bound as $args, $1..$n and any declared parameter names.
func (ip *Interpreter) CallFunction(name string, args []NJValue) Outcome {
	fn, ok := ip.frame.Program.Lookup(name)
	if !ok {
		err := Errorf(diagnostics.EUnknownFn, "unknown function '%s'", name)
		if s := SuggestNames(name, ip.frame.Program.Names(), 3); len(s) > 0 {
			err.Hint = "did you mean '" + strings.Join(s, "', '") + "'?"
		}
		return Fail(err)
	}

	caller := ip.frame
	callee := caller.Child()
	callee.Variables["$args"] = NewList(append([]NJValue(nil), args...))
	for i, a := range args {
		callee.Variables["$"+strconv.Itoa(i+1)] = a
	}
	for i, p := range fn.Params {
		if i < len(args) {
			callee.Variables[p] = args[i]
		} else {
			callee.Variables[p] = NewNull()
		}
	}

	ip.frame = callee
	ip.depth++
	defer func() {
		ip.frame = caller
		ip.depth--
	}()

	ip.log.Debug().Str("fn", name).Int("args", len(args)).Int("depth", ip.depth).Msg("call")
	ip.Emit(TraceFnCallStart, map[string]string{"fn": name})
	o := ip.ExecStatements(fn.Body)
	ip.Emit(TraceFnCallEnd, map[string]string{"fn": name, "outcome": o.Kind.String()})

	switch o.Kind {
	case KindReturn:
		callee.Returning = o.Value
		return Val(o.Value)
	case KindValue:
		return Failf(diagnostics.ENoReturn, "function '%s' has no return value", name)
	case KindBreak, KindContinue:
		return Fail(signalEscape(o.Kind))
	}
	return o
}

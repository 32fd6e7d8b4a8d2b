package stdlib

import (
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

// evalCondition evaluates node for its truthiness. An undefined variable
// counts as false.
func evalCondition(ip *evaluator.Interpreter, node evaluator.NJValue) (bool, evaluator.Outcome) {
	o := ip.Evaluate(node)
	if o.Kind == evaluator.KindError && o.Err.Code == diagnostics.EUndefinedVar {
		return false, evaluator.Val(evaluator.NewNull())
	}
	if !o.IsValue() {
		return false, o
	}
	return evaluator.Truthiness(o.Value), o
}

// logic.and [a, b, ...] → bool, stops at the first falsy operand
func stdlibAnd(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	return shortCircuit(ip, "logic.and", payload, false)
}

// logic.or [a, b, ...] → bool, stops at the first truthy operand
func stdlibOr(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	return shortCircuit(ip, "logic.or", payload, true)
}

func shortCircuit(ip *evaluator.Interpreter, name string, payload evaluator.NJValue, stopOn bool) evaluator.Outcome {
	list, ok := payload.(evaluator.NJList)
	if !ok {
		return evaluator.Failf(diagnostics.EArgs, "%s expects an array of conditions", name)
	}
	if len(list.Items) == 0 {
		return evaluator.Failf(diagnostics.EArgs, "%s requires at least one condition", name)
	}
	for _, item := range list.Items {
		truthy, o := evalCondition(ip, item)
		if !o.IsValue() {
			return o
		}
		if truthy == stopOn {
			return evaluator.Val(evaluator.NewBool(stopOn))
		}
	}
	return evaluator.Val(evaluator.NewBool(!stopOn))
}

// logic.not value → bool
func stdlibNot(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	truthy, o := evalCondition(ip, payload)
	if !o.IsValue() {
		return o
	}
	return evaluator.Val(evaluator.NewBool(!truthy))
}

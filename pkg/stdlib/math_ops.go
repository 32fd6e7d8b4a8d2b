package stdlib

import (
	"math"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

type binaryOp func(a, b evaluator.NJValue) evaluator.NJValue

// fold evaluates the operand list of name and reduces it left to right.
func fold(ip *evaluator.Interpreter, name string, payload evaluator.NJValue, op binaryOp, empty evaluator.NJValue, single func(evaluator.NJValue) evaluator.NJValue) evaluator.Outcome {
	operands, o := ip.EvalEach(payload, name)
	if !o.IsValue() {
		return o
	}
	switch len(operands) {
	case 0:
		return evaluator.Val(empty)
	case 1:
		if single != nil {
			return evaluator.Val(single(operands[0]))
		}
		return evaluator.Val(operands[0])
	}
	acc := operands[0]
	for _, v := range operands[1:] {
		acc = op(acc, v)
	}
	return evaluator.Val(acc)
}

// math.add [a, b, ...] → a + b + ...
func stdlibMathAdd(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	return fold(ip, "math.add", payload, evaluator.Add, evaluator.NewNumber(0), nil)
}

// math.subtract [a, b, ...] → a - b - ...; [a] → -a
func stdlibMathSubtract(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	negate := func(v evaluator.NJValue) evaluator.NJValue {
		return evaluator.Subtract(evaluator.NewNumber(0), v)
	}
	return fold(ip, "math.subtract", payload, evaluator.Subtract, evaluator.NewNumber(0), negate)
}

// math.multiply [a, b, ...] → a * b * ...
func stdlibMathMultiply(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	return fold(ip, "math.multiply", payload, evaluator.Multiply, evaluator.NewNumber(1), nil)
}

// math.divide [a, b, ...] → a / b / ...; [a] → 1/a
func stdlibMathDivide(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	reciprocal := func(v evaluator.NJValue) evaluator.NJValue {
		return evaluator.Divide(evaluator.NewNumber(1), v)
	}
	return fold(ip, "math.divide", payload, evaluator.Divide, evaluator.NewNull(), reciprocal)
}

// math.modulo { dividend, divisor } | [dividend, divisor] → number | null
func stdlibMathModulo(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	if _, isList := payload.(evaluator.NJList); isList {
		operands, o := ip.EvalEach(payload, "math.modulo")
		if !o.IsValue() {
			return o
		}
		if len(operands) != 2 {
			return evaluator.Failf(diagnostics.EArgs, "math.modulo expects exactly 2 operands, got %d", len(operands))
		}
		return evaluator.Val(evaluator.Modulo(operands[0], operands[1]))
	}

	rec, o := evaluator.RecordPayload("math.modulo", payload)
	if !o.IsValue() {
		return o
	}
	dividend, o := ip.EvalField(rec, "math.modulo", "dividend", true)
	if !o.IsValue() {
		return o
	}
	divisor, o := ip.EvalField(rec, "math.modulo", "divisor", true)
	if !o.IsValue() {
		return o
	}
	return evaluator.Val(evaluator.Modulo(dividend, divisor))
}

// math.compare { left, right, operator } → bool | null
func stdlibMathCompare(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	rec, o := evaluator.RecordPayload("math.compare", payload)
	if !o.IsValue() {
		return o
	}
	left, o := ip.EvalField(rec, "math.compare", "left", true)
	if !o.IsValue() {
		return o
	}
	right, o := ip.EvalField(rec, "math.compare", "right", true)
	if !o.IsValue() {
		return o
	}
	opNode, ok := rec.Get("operator")
	if !ok {
		opNode, ok = rec.Get("op")
	}
	if !ok {
		return evaluator.Failf(diagnostics.EArgs, "math.compare requires 'operator'")
	}
	op, o := ip.EvalString(opNode, "math.compare operator")
	if !o.IsValue() {
		return o
	}

	switch op {
	case "==", "eq":
		return evaluator.Val(evaluator.NewBool(evaluator.Equal(left, right)))
	case "!=", "ne":
		return evaluator.Val(evaluator.NewBool(!evaluator.Equal(left, right)))
	}

	var test func(int) bool
	switch op {
	case ">", "gt":
		test = func(c int) bool { return c > 0 }
	case ">=", "ge":
		test = func(c int) bool { return c >= 0 }
	case "<", "lt":
		test = func(c int) bool { return c < 0 }
	case "<=", "le":
		test = func(c int) bool { return c <= 0 }
	default:
		return evaluator.Failf(diagnostics.EArgs, "math.compare: unknown operator '%s'", op)
	}
	c, comparable := evaluator.Compare(left, right)
	if !comparable {
		return evaluator.Val(evaluator.NewNull())
	}
	return evaluator.Val(evaluator.NewBool(test(c)))
}

// math.max [numbers] → number
func stdlibMathMax(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	return extremum(ip, "math.max", payload, math.Inf(-1), func(a, b float64) bool { return a > b })
}

// math.min [numbers] → number
func stdlibMathMin(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	return extremum(ip, "math.min", payload, math.Inf(1), func(a, b float64) bool { return a < b })
}

func extremum(ip *evaluator.Interpreter, name string, payload evaluator.NJValue, start float64, better func(a, b float64) bool) evaluator.Outcome {
	items, o := ip.EvalEach(payload, name)
	if !o.IsValue() {
		return o
	}
	if len(items) == 0 {
		return evaluator.Failf(diagnostics.EArgs, "%s: list must not be empty", name)
	}
	best := start
	for _, item := range items {
		num, ok := item.(evaluator.NJNumber)
		if !ok {
			return evaluator.Failf(diagnostics.EType, "%s: all elements must be numbers", name)
		}
		if better(num.Value, best) {
			best = num.Value
		}
	}
	return evaluator.Val(evaluator.NewNumber(best))
}

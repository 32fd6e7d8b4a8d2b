package stdlib

import (
	"math"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

// if { condition, then, else? } → value of the branch taken, or null
func stdlibIf(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	rec, o := evaluator.RecordPayload("if", payload)
	if !o.IsValue() {
		return o
	}
	condNode, ok := rec.Get("condition")
	if !ok {
		return evaluator.Failf(diagnostics.EArgs, "if requires 'condition'")
	}
	thenNode, ok := rec.Get("then")
	if !ok {
		return evaluator.Failf(diagnostics.EArgs, "if requires 'then'")
	}

	truthy, o := evalCondition(ip, condNode)
	if !o.IsValue() {
		return o
	}
	if truthy {
		return ip.ExecBlock(thenNode)
	}
	if elseNode, ok := rec.Get("else"); ok {
		return ip.ExecBlock(elseNode)
	}
	return evaluator.Val(evaluator.NewNull())
}

// maxLoopCount bounds loop.for; loop.while serves longer loops.
const maxLoopCount = math.MaxInt32

// loopState tracks the value a loop yields.
type loopState struct {
	last evaluator.NJValue
}

// step folds one iteration's outcome. done reports whether the loop ends,
// in which case out is the loop's outcome.
func (s *loopState) step(o evaluator.Outcome) (done bool, out evaluator.Outcome) {
	switch o.Kind {
	case evaluator.KindValue:
		s.last = o.Value
		return false, o
	case evaluator.KindContinue:
		return false, o
	case evaluator.KindBreak:
		return true, evaluator.Val(evaluator.NewNull())
	}
	return true, o
}

func (s *loopState) result() evaluator.Outcome {
	return evaluator.Val(s.last)
}

func cancelled(ip *evaluator.Interpreter) (evaluator.Outcome, bool) {
	if err := ip.Context().Err(); err != nil {
		return evaluator.Failf(diagnostics.ECancelled, "run cancelled: %v", err), true
	}
	return evaluator.Outcome{}, false
}

func loopTrace(ip *evaluator.Interpreter, kind string) func() {
	ip.Emit(evaluator.TraceLoopStart, map[string]string{"loop": kind})
	return func() { ip.Emit(evaluator.TraceLoopEnd, map[string]string{"loop": kind}) }
}

// loop.while { condition, body } → last body value, or null after break
func stdlibWhile(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	rec, o := evaluator.RecordPayload("loop.while", payload)
	if !o.IsValue() {
		return o
	}
	condNode, ok := rec.Get("condition")
	if !ok {
		return evaluator.Failf(diagnostics.EArgs, "loop.while requires 'condition'")
	}
	body, ok := rec.Get("body")
	if !ok {
		return evaluator.Failf(diagnostics.EArgs, "loop.while requires 'body'")
	}
	defer loopTrace(ip, "while")()

	state := &loopState{last: evaluator.NewNull()}
	for {
		if fail, stop := cancelled(ip); stop {
			return fail
		}
		cond := ip.Evaluate(condNode)
		if !cond.IsValue() {
			return cond
		}
		if !evaluator.Truthiness(cond.Value) {
			return state.result()
		}
		if done, out := state.step(ip.ExecBlock(body)); done {
			return out
		}
	}
}

// loop.for { count, var?, body } → last body value, or null after break
func stdlibFor(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	rec, o := evaluator.RecordPayload("loop.for", payload)
	if !o.IsValue() {
		return o
	}
	countNode, ok := rec.Get("count")
	if !ok {
		return evaluator.Failf(diagnostics.EArgs, "loop.for requires 'count'")
	}
	body, ok := rec.Get("body")
	if !ok {
		return evaluator.Failf(diagnostics.EArgs, "loop.for requires 'body'")
	}
	countNum, o := ip.EvalNumber(countNode, "loop.for count")
	if !o.IsValue() {
		return o
	}
	count, ok := evaluator.Count(countNum, maxLoopCount)
	if !ok {
		return evaluator.Failf(diagnostics.EArgs, "loop.for count must be a finite number up to %d, got %s", maxLoopCount, evaluator.FormatNumber(countNum))
	}
	varName := ""
	if varNode, ok := rec.Get("var"); ok {
		varName, o = ip.EvalString(varNode, "loop.for var")
		if !o.IsValue() {
			return o
		}
	}
	defer loopTrace(ip, "for")()

	state := &loopState{last: evaluator.NewNull()}
	for i := 0; i < count; i++ {
		if fail, stop := cancelled(ip); stop {
			return fail
		}
		if varName != "" {
			ip.Frame().SetVar(varName, evaluator.NewNumber(float64(i)))
		}
		if done, out := state.step(ip.ExecBlock(body)); done {
			return out
		}
	}
	return state.result()
}

// loop.foreach { collection, var, index?, body } → last body value, or null after break
func stdlibForeach(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	rec, o := evaluator.RecordPayload("loop.foreach", payload)
	if !o.IsValue() {
		return o
	}
	collection, o := ip.EvalField(rec, "loop.foreach", "collection", true)
	if !o.IsValue() {
		return o
	}
	varNode, ok := rec.Get("var")
	if !ok {
		return evaluator.Failf(diagnostics.EArgs, "loop.foreach requires 'var'")
	}
	varName, o := ip.EvalString(varNode, "loop.foreach var")
	if !o.IsValue() {
		return o
	}
	indexName := ""
	if indexNode, ok := rec.Get("index"); ok {
		indexName, o = ip.EvalString(indexNode, "loop.foreach index")
		if !o.IsValue() {
			return o
		}
	}
	body, ok := rec.Get("body")
	if !ok {
		return evaluator.Failf(diagnostics.EArgs, "loop.foreach requires 'body'")
	}

	var items []evaluator.NJValue
	switch c := collection.(type) {
	case evaluator.NJList:
		items = c.Items
	case evaluator.NJRecord:
		items = make([]evaluator.NJValue, len(c.Pairs))
		for i, kv := range c.Pairs {
			items[i] = evaluator.NewRecord([]evaluator.KeyValue{
				{Key: "key", Value: evaluator.NewString(kv.Key)},
				{Key: "value", Value: kv.Value},
			})
		}
	default:
		return evaluator.Failf(diagnostics.EType, "loop.foreach collection must be an array or object, got %s", evaluator.TypeOf(collection))
	}
	defer loopTrace(ip, "foreach")()

	state := &loopState{last: evaluator.NewNull()}
	for i, item := range items {
		if fail, stop := cancelled(ip); stop {
			return fail
		}
		ip.Frame().SetVar(varName, item)
		if indexName != "" {
			ip.Frame().SetVar(indexName, evaluator.NewNumber(float64(i)))
		}
		if done, out := state.step(ip.ExecBlock(body)); done {
			return out
		}
	}
	return state.result()
}

// loop.break → break signal
func stdlibBreak(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	return evaluator.Brk()
}

// loop.continue → continue signal
func stdlibContinue(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	return evaluator.Cont()
}

// return value → return signal
func stdlibReturn(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	o := ip.Evaluate(payload)
	if !o.IsValue() {
		return o
	}
	return evaluator.Ret(o.Value)
}

// throw value → raise signal
func stdlibThrow(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	o := ip.Evaluate(payload)
	if !o.IsValue() {
		return o
	}
	return evaluator.Raise(o.Value)
}

// try { try, catch?, finally? } → try value, or catch value after a throw or error
func stdlibTry(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	rec, o := evaluator.RecordPayload("try", payload)
	if !o.IsValue() {
		return o
	}
	tryNode, ok := rec.Get("try")
	if !ok {
		return evaluator.Failf(diagnostics.EArgs, "try requires 'try'")
	}

	ip.Emit(evaluator.TraceTryStart, nil)
	result := ip.ExecBlock(tryNode)

	if caught, ok := catchable(result); ok {
		if catchNode, ok := rec.Get("catch"); ok {
			result = runCatch(ip, catchNode, caught)
		}
	}

	if finallyNode, ok := rec.Get("finally"); ok {
		if f := ip.ExecBlock(finallyNode); !f.IsValue() {
			result = f
		}
	}
	ip.Emit(evaluator.TraceTryEnd, map[string]string{"outcome": result.Kind.String()})
	return result
}

// catchable returns the value bound by catch: the thrown value for a
// raise, or a {code, message} record for a runtime error.
func catchable(o evaluator.Outcome) (evaluator.NJValue, bool) {
	switch o.Kind {
	case evaluator.KindRaise:
		return o.Value, true
	case evaluator.KindError:
		if o.Err.Code == diagnostics.ECancelled {
			return nil, false
		}
		return evaluator.ErrorValue(o.Err), true
	}
	return nil, false
}

func runCatch(ip *evaluator.Interpreter, node evaluator.NJValue, caught evaluator.NJValue) evaluator.Outcome {
	// A record without "body" is a statement, so {"var": "x"} reads x.
	clause, ok := node.(evaluator.NJRecord)
	if !ok || !clause.Has("body") {
		return ip.ExecBlock(node)
	}
	if varNode, ok := clause.Get("var"); ok {
		name, ok := varNode.(evaluator.NJString)
		if !ok {
			return evaluator.Failf(diagnostics.EArgs, "catch 'var' must be a string")
		}
		ip.Frame().SetVar(name.Value, caught)
	}
	body, _ := clause.Get("body")
	return ip.ExecBlock(body)
}

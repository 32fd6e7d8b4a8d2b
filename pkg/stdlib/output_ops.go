package stdlib

import (
	"fmt"
	"math"
	"time"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

// print value → null, writes the interpolated display form and a newline
func stdlibPrint(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	o := ip.Evaluate(payload)
	if !o.IsValue() {
		return o
	}
	if _, err := fmt.Fprintln(ip.Stdout(), ip.Display(o.Value)); err != nil {
		return evaluator.Failf(diagnostics.EIO, "print: %v", err)
	}
	return evaluator.Val(evaluator.NewNull())
}

// sleep ms | { duration, unit: "ms"|"s"|"m" } → null
func stdlibSleep(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	var amount float64
	unit := time.Millisecond

	if rec, ok := payload.(evaluator.NJRecord); ok && rec.Has("duration") {
		durNode, _ := rec.Get("duration")
		n, o := ip.EvalNumber(durNode, "sleep duration")
		if !o.IsValue() {
			return o
		}
		amount = n
		if unitNode, ok := rec.Get("unit"); ok {
			u, o := ip.EvalString(unitNode, "sleep unit")
			if !o.IsValue() {
				return o
			}
			switch u {
			case "ms":
			case "s":
				unit = time.Second
			case "m":
				unit = time.Minute
			default:
				return evaluator.Failf(diagnostics.EArgs, "sleep: unknown unit '%s'", u)
			}
		}
	} else {
		n, o := ip.EvalNumber(payload, "sleep duration")
		if !o.IsValue() {
			return o
		}
		amount = n
	}
	if math.IsNaN(amount) || amount < 0 {
		return evaluator.Failf(diagnostics.EArgs, "sleep duration must be a non-negative number")
	}

	timer := time.NewTimer(evaluator.ClampDuration(amount * float64(unit)))
	defer timer.Stop()
	select {
	case <-timer.C:
		return evaluator.Val(evaluator.NewNull())
	case <-ip.Context().Done():
		return evaluator.Failf(diagnostics.ECancelled, "sleep interrupted: %v", ip.Context().Err())
	}
}

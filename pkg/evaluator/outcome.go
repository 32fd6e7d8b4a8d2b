package evaluator

import "github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"

// OutcomeKind tags the result of evaluating a node.
type OutcomeKind int

const (
	KindValue OutcomeKind = iota
	KindReturn
	KindBreak
	KindContinue
	KindRaise
	KindError
)

func (k OutcomeKind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindReturn:
		return "return"
	case KindBreak:
		return "break"
	case KindContinue:
		return "continue"
	case KindRaise:
		return "raise"
	case KindError:
		return "error"
	}
	return "unknown"
}

// Outcome is what every evaluation step produces. Anything other than
// KindValue stops the enclosing block and travels outward until a loop,
// try, or function boundary consumes it.
type Outcome struct {
	Kind  OutcomeKind
	Value NJValue
	Err   *NJRuntimeError
}

// Val wraps a plain value.
func Val(v NJValue) Outcome {
	if v == nil {
		v = NewNull()
	}
	return Outcome{Kind: KindValue, Value: v}
}

// Ret signals an early return carrying v.
func Ret(v NJValue) Outcome {
	if v == nil {
		v = NewNull()
	}
	return Outcome{Kind: KindReturn, Value: v}
}

// Brk signals loop.break.
func Brk() Outcome { return Outcome{Kind: KindBreak, Value: NewNull()} }

// Cont signals loop.continue.
func Cont() Outcome { return Outcome{Kind: KindContinue, Value: NewNull()} }

// Raise signals a user throw carrying v.
func Raise(v NJValue) Outcome {
	if v == nil {
		v = NewNull()
	}
	return Outcome{Kind: KindRaise, Value: v}
}

// Fail wraps a runtime error.
func Fail(err *NJRuntimeError) Outcome {
	return Outcome{Kind: KindError, Value: NewNull(), Err: err}
}

// Failf builds and wraps a runtime error.
func Failf(code, format string, args ...any) Outcome {
	return Fail(Errorf(code, format, args...))
}

// IsValue reports whether evaluation completed normally.
func (o Outcome) IsValue() bool { return o.Kind == KindValue }

// Result converts a top-level outcome into a value or an error. Return
// counts as success; an uncaught throw or escaped loop signal is an error.
func (o Outcome) Result() (NJValue, error) {
	switch o.Kind {
	case KindValue, KindReturn:
		return o.Value, nil
	case KindRaise:
		return nil, &NJRuntimeError{
			Code:    diagnostics.EThrown,
			Message: "uncaught throw: " + ToString(o.Value),
			Details: o.Value,
		}
	case KindError:
		return nil, o.Err
	}
	return nil, signalEscape(o.Kind)
}

func signalEscape(k OutcomeKind) *NJRuntimeError {
	return Errorf(diagnostics.ESignal, "%s outside loop", k)
}

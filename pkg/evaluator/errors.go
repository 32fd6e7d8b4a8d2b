package evaluator

import (
	"fmt"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
)

// NJRuntimeError represents a runtime error during NJIL execution.
type NJRuntimeError struct {
	Code    string
	Message string
	Hint    string
	Details NJValue
}

func (e *NJRuntimeError) Error() string {
	return e.Message
}

// Diagnostic converts the error into a diagnostic for CLI output.
func (e *NJRuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, nil, e.Hint)
}

// Errorf builds an NJRuntimeError with a formatted message.
func Errorf(code, format string, args ...any) *NJRuntimeError {
	return &NJRuntimeError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorValue renders err as the {code, message} record bound by catch.
func ErrorValue(err *NJRuntimeError) NJValue {
	pairs := []KeyValue{
		{Key: "code", Value: NewString(err.Code)},
		{Key: "message", Value: NewString(err.Message)},
	}
	if err.Details != nil {
		pairs = append(pairs, KeyValue{Key: "details", Value: err.Details})
	}
	return NewRecord(pairs)
}

package tools

import (
	"fmt"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

func argError(instr, format string, args ...any) error {
	return evaluator.Errorf(diagnostics.EArgs, "%s: %s", instr, fmt.Sprintf(format, args...))
}

// argRecord accepts either a record or a bare string, which becomes the
// value of the primary field.
func argRecord(instr string, args evaluator.NJValue, primary string) (evaluator.NJRecord, error) {
	switch a := args.(type) {
	case evaluator.NJRecord:
		return a, nil
	case evaluator.NJString:
		rec := evaluator.EmptyRecord()
		rec.Set(primary, a)
		return rec, nil
	case evaluator.NJNull:
		return evaluator.EmptyRecord(), nil
	}
	return evaluator.NJRecord{}, argError(instr, "expected a string or an object, got %s", evaluator.TypeOf(args))
}

func reqString(instr string, rec evaluator.NJRecord, key string) (string, error) {
	v, ok := rec.Get(key)
	if !ok {
		return "", argError(instr, "requires '%s'", key)
	}
	s, ok := v.(evaluator.NJString)
	if !ok {
		return "", argError(instr, "'%s' must be a string, got %s", key, evaluator.TypeOf(v))
	}
	return s.Value, nil
}

func optString(rec evaluator.NJRecord, key, def string) string {
	if v, ok := rec.Get(key); ok && !evaluator.IsNull(v) {
		return evaluator.ToString(v)
	}
	return def
}

func optNumber(rec evaluator.NJRecord, key string, def float64) float64 {
	if v, ok := rec.Get(key); ok {
		if n, ok := evaluator.ToNumber(v).(evaluator.NJNumber); ok {
			return n.Value
		}
	}
	return def
}

func optBool(rec evaluator.NJRecord, key string) bool {
	v, ok := rec.Get(key)
	return ok && evaluator.Truthiness(v)
}

func stringMap(rec evaluator.NJRecord, key string) map[string]string {
	out := map[string]string{}
	v, ok := rec.Get(key)
	if !ok {
		return out
	}
	if r, ok := v.(evaluator.NJRecord); ok {
		for _, kv := range r.Pairs {
			out[kv.Key] = evaluator.ToString(kv.Value)
		}
	}
	return out
}

func record(pairs ...evaluator.KeyValue) evaluator.NJValue {
	return evaluator.NewRecord(pairs)
}

func kv(key string, v evaluator.NJValue) evaluator.KeyValue {
	return evaluator.KeyValue{Key: key, Value: v}
}

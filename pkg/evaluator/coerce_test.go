package evaluator_test

import (
	"errors"
	"testing"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

func TestConvertTo(t *testing.T) {
	tests := []struct {
		in     string
		target string
		want   string
	}{
		{`"42"`, "number", "42"},
		{`" 2.5 "`, "number", "2.5"},
		{`"abc"`, "number", "null"},
		{`true`, "number", "1"},
		{`[1, 2, 3]`, "number", "3"},
		{`[7]`, "number", "7"},
		{`{"a": 1, "b": 2}`, "number", "2"},
		{`0`, "boolean", "false"},
		{`"no"`, "boolean", "true"},
		{`[]`, "bool", "false"},
		{`3`, "string", `"3"`},
		{`1.5`, "string", `"1.5"`},
		{`null`, "string", `"null"`},
		{`[1, "a"]`, "string", `"[1, a]"`},
		{`{"a": 1}`, "string", `"{\"a\":1}"`},
		{`"hé"`, "array", `["h","é"]`},
		{`{"k": 1}`, "array", `[{"key":"k","value":1}]`},
		{`5`, "array", `[5]`},
		{`["x", "y"]`, "object", `{"0":"x","1":"y"}`},
		{`"ab"`, "object", `{"0":"a","1":"b","length":2}`},
		{`5`, "object", `{"value":5}`},
	}
	for _, tt := range tests {
		got, err := evaluator.ConvertTo(mustJSON(t, tt.in), tt.target)
		if err != nil {
			t.Errorf("ConvertTo(%s, %s): %v", tt.in, tt.target, err)
			continue
		}
		if s := evaluator.ValueToJSONString(got); s != tt.want {
			t.Errorf("ConvertTo(%s, %s) = %s, want %s", tt.in, tt.target, s, tt.want)
		}
	}
}

func TestConvertTo_UnknownType(t *testing.T) {
	_, err := evaluator.ConvertTo(evaluator.NewNumber(1), "date")
	var rtErr *evaluator.NJRuntimeError
	if !errors.As(err, &rtErr) || rtErr.Code != diagnostics.EType {
		t.Fatalf("expected E_TYPE, got %v", err)
	}
	if rtErr.Hint == "" {
		t.Error("expected a hint listing the supported types")
	}
}

func TestTypeOf(t *testing.T) {
	tests := map[string]string{
		`null`:   "null",
		`true`:   "boolean",
		`1`:      "number",
		`"s"`:    "string",
		`[]`:     "array",
		`{}`:     "object",
		`{"a":1}`: "object",
	}
	for in, want := range tests {
		if got := evaluator.TypeOf(mustJSON(t, in)); got != want {
			t.Errorf("TypeOf(%s) = %s, want %s", in, got, want)
		}
	}
}

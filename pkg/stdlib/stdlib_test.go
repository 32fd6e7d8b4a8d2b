package stdlib_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/parser"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/stdlib"
)

// runScript runs a script document against the core pack and returns its
// value along with everything printed.
func runScript(t *testing.T, ctx context.Context, src string) (evaluator.NJValue, string, error) {
	t.Helper()
	doc, diags := parser.Parse(src, "test.json")
	if len(diags) > 0 {
		t.Fatalf("parse errors: %s", diagnostics.FormatDiagnostics(diags, true))
	}
	var out bytes.Buffer
	ip := evaluator.NewInterpreter(ctx, doc.Program, evaluator.ExecOptions{
		Registry: stdlib.NewRegistry(),
		Stdout:   &out,
		RunID:    "test",
	})
	defer ip.Close()
	var v evaluator.NJValue
	var err error
	if doc.Kind == parser.KindScript {
		v, err = ip.RunScript(doc.Script)
	} else {
		v, err = ip.RunMain()
	}
	return v, out.String(), err
}

func mustEval(t *testing.T, src string) evaluator.NJValue {
	t.Helper()
	v, _, err := runScript(t, context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}

func expectJSON(t *testing.T, v evaluator.NJValue, want string) {
	t.Helper()
	if got := evaluator.ValueToJSONString(v); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func expectErrCode(t *testing.T, err error, code string) *evaluator.NJRuntimeError {
	t.Helper()
	var rtErr *evaluator.NJRuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected %s runtime error, got %v", code, err)
	}
	if rtErr.Code != code {
		t.Fatalf("expected %s, got %s: %s", code, rtErr.Code, rtErr.Message)
	}
	return rtErr
}

type evalCase struct {
	name string
	src  string
	want string
}

func runCases(t *testing.T, cases []evalCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expectJSON(t, mustEval(t, tc.src), tc.want)
		})
	}
}

func TestPack(t *testing.T) {
	p := stdlib.Pack()
	if p.Name != stdlib.PackName {
		t.Errorf("pack name = %q", p.Name)
	}
	reg := stdlib.NewRegistry()
	for _, name := range []string{"var", "call", "foreach", "txtlink", "has_constant", "delay", "typeof"} {
		if _, ok := reg.Lookup(name); !ok {
			t.Errorf("%s is not registered", name)
		}
	}
}

func TestVariablesAndConstants(t *testing.T) {
	runCases(t, []evalCase{
		{"set and read", `[{"var.set": {"name": "x", "value": 4}}, {"var": "x"}]`, `4`},
		{"nested set", `[{"var.set": {"name": "u.tags[1]", "value": "b"}}, {"var": "u"}]`, `{"tags":[null,"b"]}`},
		{"value evaluated", `[{"var.set": {"name": "x", "value": {"math.add": [1, 1]}}}, {"var": "x"}]`, `2`},
		{"const", `[{"const.set": {"name": "K", "value": 7}}, {"const": "K"}]`, `7`},
		{"const.set.m", `[{"const.set.m": {"A": 1, "B": {"math.add": [1, 1]}}}, {"json.new": [{"const": "A"}, {"const": "B"}]}]`, `[1,2]`},
		{"const.has", `[{"const.set": {"name": "K", "value": 1}}, {"json.new": [{"const.has": "K"}, {"has_constant": "Q"}]}]`, `[true,false]`},
	})
}

func TestConstRedefined(t *testing.T) {
	_, _, err := runScript(t, context.Background(), `[
		{"const.set": {"name": "K", "value": 1}},
		{"const.set": {"name": "K", "value": 2}}
	]`)
	expectErrCode(t, err, diagnostics.EConstRedefined)
}

func TestVarSet_MissingName(t *testing.T) {
	_, _, err := runScript(t, context.Background(), `[{"var.set": {"value": 1}}]`)
	expectErrCode(t, err, diagnostics.EArgs)
}

func TestMath(t *testing.T) {
	runCases(t, []evalCase{
		{"add", `[{"math.add": [1, 2, 3]}]`, `6`},
		{"add empty", `[{"math.add": []}]`, `0`},
		{"add string", `[{"add": ["n=", 3]}]`, `"n=3"`},
		{"subtract", `[{"math.subtract": [10, 3, 2]}]`, `5`},
		{"negate", `[{"sub": [4]}]`, `-4`},
		{"multiply", `[{"math.multiply": [2, 3, 4]}]`, `24`},
		{"divide", `[{"math.divide": [12, 3]}]`, `4`},
		{"divide by zero", `[{"math.divide": [1, 0]}]`, `null`},
		{"reciprocal", `[{"div": [4]}]`, `0.25`},
		{"modulo record", `[{"math.modulo": {"dividend": 10, "divisor": 3}}]`, `1`},
		{"modulo list", `[{"mod": [10, 4]}]`, `2`},
		{"modulo zero", `[{"mod": [10, 0]}]`, `null`},
		{"max", `[{"math.max": [3, 9, 2]}]`, `9`},
		{"min", `[{"math.min": [3, 9, 2]}]`, `2`},
		{"nested", `[{"math.add": [{"math.multiply": [2, 5]}, 1]}]`, `11`},
	})
}

func TestMath_Errors(t *testing.T) {
	cases := []struct {
		src  string
		code string
	}{
		{`[{"math.modulo": [1, 2, 3]}]`, diagnostics.EArgs},
		{`[{"math.max": []}]`, diagnostics.EArgs},
		{`[{"math.min": [1, "two"]}]`, diagnostics.EType},
		{`[{"math.compare": {"left": 1, "right": 2, "operator": "<>"}}]`, diagnostics.EArgs},
		{`[{"math.compare": {"left": 1, "right": 2}}]`, diagnostics.EArgs},
	}
	for _, tc := range cases {
		_, _, err := runScript(t, context.Background(), tc.src)
		expectErrCode(t, err, tc.code)
	}
}

func TestMathCompare(t *testing.T) {
	cases := []struct {
		left, op, right string
		want            string
	}{
		{"1", "<", "2", "true"},
		{"2", "lt", "1", "false"},
		{"2", "<=", "2", "true"},
		{"3", ">", "2", "true"},
		{"2", "ge", "3", "false"},
		{"2", "==", "2", "true"},
		{`"a"`, "!=", `"b"`, "true"},
		{`"apple"`, "<", `"banana"`, "true"},
		{`[1]`, "==", `[1]`, "true"},
		{`"abc"`, "<", `true`, "null"},
	}
	for _, tc := range cases {
		src := `[{"math.compare": {"left": ` + tc.left + `, "operator": "` + tc.op + `", "right": ` + tc.right + `}}]`
		expectJSON(t, mustEval(t, src), tc.want)
	}
}

func TestLogic(t *testing.T) {
	runCases(t, []evalCase{
		{"and", `[{"logic.and": [true, 1, "x"]}]`, `true`},
		{"and falsy", `[{"and": [true, 0]}]`, `false`},
		{"or", `[{"logic.or": [false, [], "x"]}]`, `true`},
		{"or all falsy", `[{"or": [false, null, ""]}]`, `false`},
		{"not", `[{"logic.not": {}}]`, `true`},
		{"undefined is false", `[{"and": [{"var": "missing"}]}]`, `false`},
		// the second operand would fail if evaluated
		{"short circuit", `[{"or": [true, {"var": "x[-"}]}]`, `true`},
	})
	_, _, err := runScript(t, context.Background(), `[{"logic.and": []}]`)
	expectErrCode(t, err, diagnostics.EArgs)
}

func TestIf(t *testing.T) {
	runCases(t, []evalCase{
		{"then", `[{"if": {"condition": true, "then": [{"return": "yes"}], "else": [{"return": "no"}]}}]`, `"yes"`},
		{"else", `[{"if": {"condition": 0, "then": [{"return": "yes"}], "else": [{"return": "no"}]}}]`, `"no"`},
		{"no else", `[{"if": {"condition": false, "then": [{"return": 1}]}}]`, `null`},
		{"undefined var", `[{"if": {"condition": {"var": "nope"}, "then": [{"return": 1}], "else": [{"return": 2}]}}]`, `2`},
		{"branch value", `[{"if": {"condition": 1, "then": [{"math.add": [1, 1]}]}}]`, `2`},
	})
	_, _, err := runScript(t, context.Background(), `[{"if": {"condition": true}}]`)
	expectErrCode(t, err, diagnostics.EArgs)
}

func TestLoops(t *testing.T) {
	runCases(t, []evalCase{
		{"while", `[
			{"var.set": {"name": "i", "value": 0}},
			{"loop.while": {"condition": {"math.compare": {"left": {"var": "i"}, "operator": "<", "right": 4}},
				"body": [{"var.set": {"name": "i", "value": {"math.add": [{"var": "i"}, 1]}}}]}},
			{"var": "i"}
		]`, `4`},
		{"for", `[
			{"var.set": {"name": "sum", "value": 0}},
			{"loop.for": {"count": 5, "var": "i", "body": [
				{"var.set": {"name": "sum", "value": {"math.add": [{"var": "sum"}, {"var": "i"}]}}}]}},
			{"var": "sum"}
		]`, `10`},
		{"for zero", `[{"loop.for": {"count": 0, "body": [{"throw": "never"}]}}]`, `null`},
		{"foreach index", `[
			{"var.set": {"name": "out", "value": ""}},
			{"loop.foreach": {"collection": ["a", "b"], "var": "x", "index": "i", "body": [
				{"var.set": {"name": "out", "value": {"string.concat": [{"var": "out"}, {"var": "i"}, {"var": "x"}]}}}]}},
			{"var": "out"}
		]`, `"0a1b"`},
		{"foreach object", `[
			{"var.set": {"name": "keys", "value": []}},
			{"foreach": {"collection": {"json.new": {"a": 1, "b": 2}}, "var": "e", "body": [
				{"var.set": {"name": "keys", "value": {"math.add": [{"var": "keys"}, {"json.new": [{"var": "e.key"}]}]}}}]}},
			{"var": "keys"}
		]`, `["a","b"]`},
		{"break", `[
			{"var.set": {"name": "n", "value": 0}},
			{"loop.while": {"condition": true, "body": [
				{"var.set": {"name": "n", "value": {"math.add": [{"var": "n"}, 1]}}},
				{"if": {"condition": {"math.compare": {"left": {"var": "n"}, "operator": ">=", "right": 3}}, "then": [{"loop.break": null}]}}]}},
			{"var": "n"}
		]`, `3`},
		{"continue", `[
			{"var.set": {"name": "odd", "value": 0}},
			{"loop.for": {"count": 6, "var": "i", "body": [
				{"if": {"condition": {"logic.not": {"math.modulo": [{"var": "i"}, 2]}}, "then": [{"continue": null}]}},
				{"var.set": {"name": "odd", "value": {"math.add": [{"var": "odd"}, 1]}}}]}},
			{"var": "odd"}
		]`, `3`},
		{"return from loop", `[
			{"loop.foreach": {"collection": [5, 6, 7], "var": "x", "body": [
				{"if": {"condition": {"math.compare": {"left": {"var": "x"}, "operator": "==", "right": 6}}, "then": [{"return": {"var": "x"}}]}}]}},
			{"return": "missed"}
		]`, `6`},
	})
}

func TestFor_CountOutOfRange(t *testing.T) {
	for _, count := range []string{"1e300", "4294967296"} {
		_, _, err := runScript(t, context.Background(), `[{"loop.for": {"count": `+count+`, "body": []}}]`)
		expectErrCode(t, err, diagnostics.EArgs)
	}
	v := mustEval(t, `[{"loop.for": {"count": -1e300, "body": [{"throw": "never"}]}}]`)
	expectJSON(t, v, `null`)
}

func TestForeach_BadCollection(t *testing.T) {
	_, _, err := runScript(t, context.Background(), `[{"loop.foreach": {"collection": 5, "var": "x", "body": []}}]`)
	expectErrCode(t, err, diagnostics.EType)
}

func TestLoop_Cancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := runScript(t, ctx, `[{"loop.while": {"condition": true, "body": [{"sleep": 1}]}}]`)
	expectErrCode(t, err, diagnostics.ECancelled)
}

func TestTry(t *testing.T) {
	runCases(t, []evalCase{
		{"catch thrown", `[{"try": {"try": [{"throw": {"json.new": {"why": "bad"}}}],
			"catch": {"var": "e", "body": [{"return": {"var": "e.why"}}]}}}]`, `"bad"`},
		{"catch runtime error", `[{"try": {"try": [{"var": "missing"}],
			"catch": {"var": "e", "body": [{"return": {"var": "e.code"}}]}}}]`, `"E_UNDEFINED_VAR"`},
		{"catch body only", `[{"try": {"try": [{"throw": 42}], "catch": {"body": [{"return": "seen"}]}}}]`, `"seen"`},
		{"catch var statement", `[
			{"var.set": {"name": "fallback", "value": "kept"}},
			{"try": {"try": [{"throw": 42}], "catch": {"var": "fallback"}}}
		]`, `"kept"`},
		{"no error", `[{"try": {"try": [{"math.add": [1, 2]}], "catch": {"var": "e", "body": [{"return": "caught"}]}}}]`, `3`},
		{"finally runs", `[
			{"var.set": {"name": "log", "value": "start"}},
			{"try": {"try": [{"throw": "x"}], "catch": {"var": "e", "body": []},
				"finally": [{"var.set": {"name": "log", "value": "done"}}]}},
			{"var": "log"}
		]`, `"done"`},
		{"finally after return", `[
			{"var.set": {"name": "log", "value": 0}},
			{"try": {"try": [{"return": 1}], "finally": [{"var.set": {"name": "log", "value": 1}}]}}
		]`, `1`},
		{"nested rethrow", `[{"try": {
			"try": [{"try": {"try": [{"throw": "inner"}], "catch": {"var": "e", "body": [
				{"throw": {"string.concat": ["outer:", {"var": "e"}]}}]}}}],
			"catch": {"var": "e", "body": [{"return": {"var": "e"}}]}}}]`, `"outer:inner"`},
	})
}

func TestTry_Uncaught(t *testing.T) {
	_, _, err := runScript(t, context.Background(), `[{"try": {"try": [{"throw": "boom"}], "finally": []}}]`)
	rtErr := expectErrCode(t, err, diagnostics.EThrown)
	expectJSON(t, rtErr.Details, `"boom"`)
}

func TestTry_FinallyErrorWins(t *testing.T) {
	_, _, err := runScript(t, context.Background(), `[{"try": {"try": [{"return": 1}], "finally": [{"throw": "late"}]}}]`)
	rtErr := expectErrCode(t, err, diagnostics.EThrown)
	expectJSON(t, rtErr.Details, `"late"`)
}

func TestTry_CancellationNotCaught(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := runScript(t, ctx, `[{"try": {"try": [{"sleep": {"duration": 10, "unit": "s"}}],
		"catch": {"var": "e", "body": [{"return": "caught"}]}}}]`)
	expectErrCode(t, err, diagnostics.ECancelled)
}

func TestTypes(t *testing.T) {
	runCases(t, []evalCase{
		{"convert number", `[{"type.convert": {"value": "42", "type": "number"}}]`, `42`},
		{"convert bad number", `[{"convert": {"value": "abc", "type": "number"}}]`, `null`},
		{"convert bool", `[{"type.convert": {"value": [], "type": "boolean"}}]`, `false`},
		{"to string", `[{"type.string": 1.5}]`, `"1.5"`},
		{"to array", `[{"type.array": "ab"}]`, `["a","b"]`},
		{"to object", `[{"type.object": ["x"]}]`, `{"0":"x"}`},
		{"to bool", `[{"to_bool": "x"}]`, `true`},
		{"of", `[{"json.new": [{"type.of": 1}, {"typeof": "s"}, {"type.of": null}, {"type.of": {"json.new": null}}]}]`, `["number","string","null","object"]`},
	})
	_, _, err := runScript(t, context.Background(), `[{"type.convert": {"value": 1, "type": "date"}}]`)
	expectErrCode(t, err, diagnostics.EType)
}

func TestStrings(t *testing.T) {
	runCases(t, []evalCase{
		{"concat", `[{"var.set": {"name": "n", "value": 3}}, {"string.concat": ["n=", {"var": "n"}, ", ", true]}]`, `"n=3, true"`},
		{"concat alias", `[{"txtlink": ["a", "b"]}]`, `"ab"`},
		{"split", `[{"string.split": {"string": "a,b,c", "separator": ","}}]`, `["a","b","c"]`},
		{"replace", `[{"string.replace": {"string": "a-b-c", "old": "-", "new": "+"}}]`, `"a+b+c"`},
		{"trim", `[{"string.trim": "  x  "}]`, `"x"`},
		{"trim record", `[{"string.trim": {"string": "\ty\n"}}]`, `"y"`},
		{"length", `[{"string.length": "héllo"}]`, `5`},
		{"upper", `[{"string.upper": "go"}]`, `"GO"`},
		{"lower", `[{"string.lower": {"string": "GO"}}]`, `"go"`},
		{"title", `[{"string.title": "hello world"}]`, `"Hello World"`},
		{"turkish upper", `[{"string.upper": {"string": "istanbul", "language": "tr"}}]`, `"İSTANBUL"`},
		{"dutch title", `[{"string.title": {"string": "ijssel", "language": "nl"}}]`, `"IJssel"`},
		{"format", `[
			{"var.set": {"name": "who", "value": "ada"}},
			{"string.format": {"template": "{greeting}, ${var:who}! {n}", "params": {"greeting": "hi", "n": {"math.add": [1, 1]}}}}
		]`, `"hi, ada! 2"`},
	})
}

func TestStrings_Errors(t *testing.T) {
	cases := []struct {
		src  string
		code string
	}{
		{`[{"string.concat": "ab"}]`, diagnostics.EArgs},
		{`[{"string.split": {"string": "a"}}]`, diagnostics.EArgs},
		{`[{"string.upper": {"string": "x", "language": "not a tag!"}}]`, diagnostics.EArgs},
		{`[{"string.format": {"template": "x", "params": 1}}]`, diagnostics.EType},
		{`[{"string.trim": 5}]`, diagnostics.EType},
	}
	for _, tc := range cases {
		_, _, err := runScript(t, context.Background(), tc.src)
		expectErrCode(t, err, tc.code)
	}
}

func TestStringMarkdown(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{`[{"string.markdown": "# Hi"}]`, "<h1>Hi</h1>\n"},
		{`[{"string.markdown": {"string": "~~old~~"}}]`, "<p><del>old</del></p>\n"},
	}
	for _, tc := range cases {
		s, ok := mustEval(t, tc.src).(evaluator.NJString)
		if !ok || s.Value != tc.want {
			t.Errorf("%s: got %v, want %q", tc.src, s, tc.want)
		}
	}
}

func TestJSON(t *testing.T) {
	runCases(t, []evalCase{
		{"new empty", `[{"json.new": null}]`, `{}`},
		{"new record", `[{"var.set": {"name": "x", "value": 2}}, {"json.new": {"b": {"var": "x"}, "a": 1}}]`, `{"b":2,"a":1}`},
		{"new list", `[{"json.new": [{"math.add": [1, 1]}, "s"]}]`, `[2,"s"]`},
		{"get key", `[{"json.get": {"object": {"json.new": {"a": 1}}, "key": "a"}}]`, `1`},
		{"get path", `[{"json.get": {"object": {"json.parse": "{\"a\":{\"b\":[1,2]}}"}, "key": "a.b[1]"}}]`, `2`},
		{"get index", `[{"json.get": {"object": {"json.new": ["x", "y"]}, "key": 1}}]`, `"y"`},
		{"get missing", `[{"json.get": {"object": {"json.new": null}, "key": "nope"}}]`, `null`},
		{"set key", `[{"json.set": {"object": {"json.new": {"a": 1}}, "key": "b", "value": 2}}]`, `{"a":1,"b":2}`},
		{"set index", `[{"json.set": {"object": {"json.new": [1, 2]}, "key": 0, "value": 9}}]`, `[9,2]`},
		{"set copies", `[
			{"var.set": {"name": "o", "value": {"json.new": {"a": 1}}}},
			{"json.set": {"object": {"var": "o"}, "key": "a", "value": 2}},
			{"var": "o"}
		]`, `{"a":1}`},
		{"parse keeps order", `[{"json.parse": "{\"z\":1,\"a\":2}"}]`, `{"z":1,"a":2}`},
		{"stringify", `[{"json.stringify": {"json.new": {"a": [1, true]}}}]`, `"{\"a\":[1,true]}"`},
		{"stringify indent", `[{"json.stringify": {"value": {"json.new": {"a": 1}}, "indent": 2}}]`, `"{\n  \"a\": 1\n}"`},
		{"stringify indent capped", `[{"json.stringify": {"value": {"json.new": {"a": 1}}, "indent": 1e300}}]`, `"{\n          \"a\": 1\n}"`},
	})
}

func TestJSON_Errors(t *testing.T) {
	cases := []struct {
		src  string
		code string
	}{
		{`[{"json.parse": "{bad"}]`, diagnostics.EParse},
		{`[{"json.set": {"object": {"json.new": [1]}, "key": 3, "value": 0}}]`, diagnostics.EArgs},
		{`[{"json.set": {"object": {"json.new": {"a": 1}}, "key": 1, "value": 0}}]`, diagnostics.EType},
		{`[{"json.set": {"object": "s", "key": "a", "value": 0}}]`, diagnostics.EType},
		{`[{"json.new": 5}]`, diagnostics.EArgs},
	}
	for _, tc := range cases {
		_, _, err := runScript(t, context.Background(), tc.src)
		expectErrCode(t, err, tc.code)
	}
}

func TestPrint(t *testing.T) {
	_, out, err := runScript(t, context.Background(), `[
		{"var.set": {"name": "user", "value": {"json.new": {"name": "ada"}}}},
		{"const.set": {"name": "V", "value": 2}},
		{"print": "hi ${var:user.name} v${const:V} ${var:ghost} ${const:NONE}"},
		{"print": {"json.new": [1, "a"]}},
		{"print": 3}
	]`)
	if err != nil {
		t.Fatal(err)
	}
	want := "hi ada v2 undefined:ghost ${const:NONE}\n[1, a]\n3\n"
	if out != want {
		t.Errorf("stdout = %q, want %q", out, want)
	}
}

func TestSleep(t *testing.T) {
	start := time.Now()
	mustEval(t, `[{"sleep": 10}, {"delay": {"duration": 5, "unit": "ms"}}]`)
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("slept %v", elapsed)
	}

	cases := []string{
		`[{"sleep": -1}]`,
		`[{"sleep": {"duration": 1, "unit": "h"}}]`,
	}
	for _, src := range cases {
		_, _, err := runScript(t, context.Background(), src)
		expectErrCode(t, err, diagnostics.EArgs)
	}
}

func TestSleep_HugeDurationWaits(t *testing.T) {
	for _, src := range []string{`[{"sleep": 1e300}]`, `[{"sleep": {"duration": 1e18, "unit": "m"}}]`} {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, _, err := runScript(t, ctx, src)
		cancel()
		expectErrCode(t, err, diagnostics.ECancelled)
	}
}

func TestCall(t *testing.T) {
	v := mustEval(t, `{"program": {
		"main": {"body": [{"return": {"json.new": [
			{"call": {"name": "twice", "args": [4]}},
			{"function.call": {"name": "twice", "args": [{"math.add": [1, 2]}]}},
			{"func.call": "seven"}
		]}}]},
		"twice": {"params": ["n"], "body": [{"return": {"math.multiply": [{"var": "n"}, 2]}}]},
		"seven": {"body": [{"return": 7}]}
	}}`)
	expectJSON(t, v, `[8,6,7]`)
}

package tools_test

import (
	"context"
	"testing"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/stdlib"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/tools"
)

const openMemory = `{"db.open": {"driver": "sqlite", "dsn": ":memory:"}}`

func TestDB_ExecAndQuery(t *testing.T) {
	r := mustRun(t, `[
  `+openMemory+`,
  {"db.exec": "CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT, age REAL)"},
  {"db.exec": {"sql": "INSERT INTO people (name, age) VALUES (?, ?)", "params": ["ada", 36]}},
  {"var.set": {"name": "who", "value": "alan"}},
  {"var.set": {"name": "res", "value": {"db.exec": {"sql": "INSERT INTO people (name, age) VALUES (?, ?)", "params": [{"var": "who"}, 41.5]}}}},
  {"var.set": {"name": "rows", "value": {"db.query": "SELECT name, age FROM people ORDER BY id"}}},
  {"return": {"json.new": {"res": {"var": "res"}, "rows": {"var": "rows"}}}}
]`)
	res := field(t, r.value, "res")
	expectNumber(t, field(t, res, "rowsAffected"), 1)
	expectNumber(t, field(t, res, "lastInsertId"), 2)

	got := evaluator.ValueToJSONString(field(t, r.value, "rows"))
	want := `[{"name":"ada","age":36},{"name":"alan","age":41.5}]`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestDB_Transactions(t *testing.T) {
	r := mustRun(t, `[
  `+openMemory+`,
  {"db.exec": "CREATE TABLE t (v INTEGER)"},
  {"db.begin": null},
  {"db.exec": "INSERT INTO t VALUES (1)"},
  {"db.rollback": null},
  {"db.begin": null},
  {"db.exec": "INSERT INTO t VALUES (2)"},
  {"db.commit": null},
  {"db.query": "SELECT v FROM t"}
]`)
	if got := evaluator.ValueToJSONString(r.value); got != `[{"v":2}]` {
		t.Errorf("got %s", got)
	}
}

func TestDB_NamedHandles(t *testing.T) {
	r := mustRun(t, `[
  {"db.open": {"driver": "sqlite3", "dsn": ":memory:", "name": "aux"}},
  {"db.exec": {"db": "aux", "sql": "CREATE TABLE k (x TEXT)"}},
  {"db.exec": {"db": "aux", "sql": "INSERT INTO k VALUES ('y')"}},
  {"var.set": {"name": "rows", "value": {"db.query": {"db": "aux", "sql": "SELECT x FROM k"}}}},
  {"db.close": "aux"},
  {"return": {"var": "rows"}}
]`)
	if got := evaluator.ValueToJSONString(r.value); got != `[{"x":"y"}]` {
		t.Errorf("got %s", got)
	}
}

func TestDB_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
	}{
		{"unknown driver", `[{"db.open": {"driver": "oracle", "dsn": "x"}}]`, diagnostics.EArgs},
		{"not open", `[{"db.query": "SELECT 1"}]`, diagnostics.EArgs},
		{"double open", `[` + openMemory + `, ` + openMemory + `]`, diagnostics.EArgs},
		{"commit without begin", `[` + openMemory + `, {"db.commit": null}]`, diagnostics.EArgs},
		{"nested begin", `[` + openMemory + `, {"db.begin": null}, {"db.begin": null}]`, diagnostics.EArgs},
		{"bad sql", `[` + openMemory + `, {"db.exec": "NOT SQL"}]`, diagnostics.EPack},
		{"params not a list", `[` + openMemory + `, {"db.query": {"sql": "SELECT 1", "params": 3}}]`, diagnostics.EArgs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := run(t, tt.src, "")
			expectRuntimeError(t, r.err, tt.code)
		})
	}
}

func TestDB_CloseReleasesHandles(t *testing.T) {
	ip := evaluator.NewInterpreter(context.Background(), nil, evaluator.ExecOptions{Registry: stdlib.NewRegistry()})
	p, _ := tools.Lookup("db")
	if err := ip.ActivatePack(p); err != nil {
		t.Fatal(err)
	}
	stmts := []evaluator.NJValue{
		evaluator.NewRecord([]evaluator.KeyValue{{Key: "db.open", Value: evaluator.NewRecord([]evaluator.KeyValue{
			{Key: "driver", Value: evaluator.NewString("sqlite")},
			{Key: "dsn", Value: evaluator.NewString(":memory:")},
		})}}),
		evaluator.NewRecord([]evaluator.KeyValue{{Key: "db.begin", Value: evaluator.NewNull()}}),
	}
	if _, err := ip.RunScript(stmts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ip.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	_, err := ip.RunScript([]evaluator.NJValue{
		evaluator.NewRecord([]evaluator.KeyValue{{Key: "db.query", Value: evaluator.NewString("SELECT 1")}}),
	})
	expectRuntimeError(t, err, diagnostics.EArgs)
}

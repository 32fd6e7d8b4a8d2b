package evaluator_test

import (
	"testing"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

func nop(ip *evaluator.Interpreter, payload evaluator.NJValue) evaluator.Outcome {
	return evaluator.Val(evaluator.NewNull())
}

func TestRegistry_HandlerAliases(t *testing.T) {
	r := evaluator.NewRegistry()
	r.RegisterHandler(evaluator.NewInstruction("math.add", nop, "add"))

	h1, ok1 := r.Lookup("math.add")
	h2, ok2 := r.Lookup("add")
	if !ok1 || !ok2 {
		t.Fatal("expected name and alias to be registered")
	}
	if h1 != h2 {
		t.Error("alias should resolve to the same handler")
	}
	if h1.Name() != "math.add" || len(h1.Aliases()) != 1 {
		t.Errorf("handler = %s %v", h1.Name(), h1.Aliases())
	}
	if names := r.Names(); len(names) != 2 || names[0] != "add" {
		t.Errorf("Names = %v", names)
	}
}

func TestRegistry_CloneIsIndependent(t *testing.T) {
	base := evaluator.NewRegistry()
	base.Register("print", evaluator.NewInstruction("print", nop))

	clone := base.Clone()
	clone.RegisterPack(&evaluator.Pack{
		Name:     "demo",
		Handlers: []evaluator.Handler{evaluator.NewInstruction("demo.hi", nop)},
	})

	if _, ok := clone.Lookup("print"); !ok {
		t.Error("clone should keep base bindings")
	}
	if _, ok := base.Lookup("demo.hi"); ok {
		t.Error("pack registered on the clone leaked into the base")
	}
}

func TestRegistry_Suggest(t *testing.T) {
	r := evaluator.NewRegistry()
	for _, name := range []string{"string.upper", "string.lower", "math.add", "print"} {
		r.RegisterHandler(evaluator.NewInstruction(name, nop))
	}

	got := r.Suggest("strng.upper")
	if len(got) == 0 || got[0] != "string.upper" {
		t.Errorf("Suggest(strng.upper) = %v", got)
	}
	if got := r.Suggest("prnt"); len(got) == 0 || got[0] != "print" {
		t.Errorf("Suggest(prnt) = %v", got)
	}
	if got := r.Suggest("zzzz"); len(got) != 0 {
		t.Errorf("Suggest(zzzz) = %v", got)
	}
}

func TestSuggestNames_Limit(t *testing.T) {
	candidates := []string{"io.a", "io.ab", "io.abc", "io.abcd"}
	if got := evaluator.SuggestNames("io", candidates, 2); len(got) != 2 {
		t.Errorf("SuggestNames = %v", got)
	}
}

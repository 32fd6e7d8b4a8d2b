package evaluator

import (
	"sort"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
)

// Frame holds the interpreter state for one call: its variables, the
// constants visible to it, the set of activated packs and namespaces, and
// the function table.
type Frame struct {
	Variables     map[string]NJValue
	Constants     map[string]NJValue
	LoadedModules map[string]bool
	// ModuleSources maps a published namespace to the file it came from.
	ModuleSources map[string]string
	Program       *Program
	Dir           string
	Returning     NJValue
}

// NewFrame creates a top-level frame for program.
func NewFrame(program *Program, dir string) *Frame {
	if program == nil {
		program = NewProgram()
	}
	return &Frame{
		Variables:     make(map[string]NJValue),
		Constants:     make(map[string]NJValue),
		LoadedModules: make(map[string]bool),
		ModuleSources: make(map[string]string),
		Program:       program,
		Dir:           dir,
	}
}

// Child creates the frame for a function call. Variables start empty;
// constants and loaded modules are copied so the callee cannot leak
// definitions back into the caller.
func (f *Frame) Child() *Frame {
	c := &Frame{
		Variables:     make(map[string]NJValue),
		Constants:     make(map[string]NJValue, len(f.Constants)),
		LoadedModules: make(map[string]bool, len(f.LoadedModules)),
		ModuleSources: make(map[string]string, len(f.ModuleSources)),
		Program:       f.Program,
		Dir:           f.Dir,
	}
	for k, v := range f.Constants {
		c.Constants[k] = v
	}
	for k := range f.LoadedModules {
		c.LoadedModules[k] = true
	}
	for k, v := range f.ModuleSources {
		c.ModuleSources[k] = v
	}
	return c
}

// GetVar looks up a plain variable.
func (f *Frame) GetVar(name string) (NJValue, bool) {
	v, ok := f.Variables[name]
	return v, ok
}

// SetVar binds a plain variable.
func (f *Frame) SetVar(name string, v NJValue) {
	f.Variables[name] = v
}

// SetVarPath stores v at a nested path, creating the base variable as an
// empty record when it does not exist yet.
func (f *Frame) SetVarPath(path string, v NJValue) error {
	if !IsPath(path) {
		f.Variables[path] = v
		return nil
	}
	parts, err := ParsePath(path)
	if err != nil {
		return err
	}
	if parts[0].IsIndex {
		return pathError("path must start with a variable name")
	}
	base, ok := f.Variables[parts[0].Key]
	if !ok {
		base = EmptyRecord()
	}
	f.Variables[parts[0].Key] = SetPath(base, parts[1:], v)
	return nil
}

// ReadPath resolves a plain name or nested path against the variables, or
// against the constants when constant is set. The base binding must exist;
// anything below it is read leniently.
func (f *Frame) ReadPath(path string, constant bool) (NJValue, error) {
	table, code, kind := f.Variables, diagnostics.EUndefinedVar, "variable"
	if constant {
		table, code, kind = f.Constants, diagnostics.EUndefinedConst, "constant"
	}

	if !IsPath(path) {
		if v, ok := table[path]; ok {
			return v, nil
		}
		return nil, Errorf(code, "undefined %s '%s'", kind, path)
	}

	// Namespaced constants are stored flat as "ns.name".
	if v, ok := table[path]; ok {
		return v, nil
	}
	parts, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	if parts[0].IsIndex {
		return nil, pathError("path must start with a name")
	}
	// Try the longest dotted prefix that names a binding, so "math.PI.x"
	// resolves against a constant published as "math.PI".
	for n := len(parts); n >= 1; n-- {
		if !allKeys(parts[:n]) {
			continue
		}
		if base, ok := table[FormatPath(parts[:n])]; ok {
			return GetPath(base, parts[n:]), nil
		}
	}
	return nil, Errorf(code, "undefined %s '%s'", kind, parts[0].Key)
}

func allKeys(parts []PathPart) bool {
	for _, p := range parts {
		if p.IsIndex {
			return false
		}
	}
	return true
}

// HasBinding reports whether name is bound as a variable or constant.
func (f *Frame) HasBinding(name string) bool {
	if _, ok := f.Variables[name]; ok {
		return true
	}
	_, ok := f.Constants[name]
	return ok
}

// DefineConst adds a constant. Constants are write-once.
func (f *Frame) DefineConst(name string, v NJValue) error {
	if _, exists := f.Constants[name]; exists {
		return Errorf(diagnostics.EConstRedefined, "constant '%s' is already defined", name)
	}
	f.Constants[name] = v
	return nil
}

// VarNames returns the bound variable names in sorted order.
func (f *Frame) VarNames() []string {
	return sortedKeys(f.Variables)
}

// ConstNames returns the defined constant names in sorted order.
func (f *Frame) ConstNames() []string {
	return sortedKeys(f.Constants)
}

func sortedKeys(m map[string]NJValue) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

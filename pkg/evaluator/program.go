package evaluator

// Function is a user-defined function: an optional parameter list and a
// statement body.
type Function struct {
	Name   string
	Params []string
	Body   []NJValue
}

// Program is a document's function table plus its import list.
type Program struct {
	Imports   []string
	Functions map[string]*Function
	order     []string
}

// NewProgram creates an empty program.
func NewProgram() *Program {
	return &Program{Functions: make(map[string]*Function)}
}

// Add inserts fn, replacing a function of the same name.
func (p *Program) Add(fn *Function) {
	if _, exists := p.Functions[fn.Name]; !exists {
		p.order = append(p.order, fn.Name)
	}
	p.Functions[fn.Name] = fn
}

// Lookup finds a function by name.
func (p *Program) Lookup(name string) (*Function, bool) {
	fn, ok := p.Functions[name]
	return fn, ok
}

// Names returns function names in declaration order.
func (p *Program) Names() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

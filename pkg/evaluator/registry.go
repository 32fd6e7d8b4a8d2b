package evaluator

import (
	"sort"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// HandleFunc executes one instruction against its raw, unevaluated payload.
type HandleFunc func(ip *Interpreter, payload NJValue) Outcome

// Handler is an instruction implementation.
type Handler interface {
	Name() string
	Aliases() []string
	Handle(ip *Interpreter, payload NJValue) Outcome
}

type instruction struct {
	name    string
	aliases []string
	fn      HandleFunc
}

func (i *instruction) Name() string      { return i.name }
func (i *instruction) Aliases() []string { return i.aliases }
func (i *instruction) Handle(ip *Interpreter, payload NJValue) Outcome {
	return i.fn(ip, payload)
}

// NewInstruction builds a Handler from a function.
func NewInstruction(name string, fn HandleFunc, aliases ...string) Handler {
	return &instruction{name: name, aliases: aliases, fn: fn}
}

// Pack is a named bundle of handlers that can be merged into a Registry.
// Init, when set, runs once per interpreter on activation.
type Pack struct {
	Name        string
	Description string
	Handlers    []Handler
	Init        func(ip *Interpreter) error
}

// Registry maps instruction names and aliases to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds name to h, replacing any earlier binding.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// RegisterHandler binds h under its name and every alias.
func (r *Registry) RegisterHandler(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Name()] = h
	for _, a := range h.Aliases() {
		r.handlers[a] = h
	}
}

// RegisterPack registers every handler of p.
func (r *Registry) RegisterPack(p *Pack) {
	for _, h := range p.Handlers {
		r.RegisterHandler(h)
	}
}

// Lookup returns the handler bound to name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns all registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent registry with the same bindings.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := &Registry{handlers: make(map[string]Handler, len(r.handlers))}
	for k, v := range r.handlers {
		c.handlers[k] = v
	}
	return c
}

// Suggest returns up to three registered names close to name.
func (r *Registry) Suggest(name string) []string {
	return SuggestNames(name, r.Names(), 3)
}

// SuggestNames ranks candidates by fuzzy distance to target.
func SuggestNames(target string, candidates []string, limit int) []string {
	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) == 0 {
		// Also try the reverse direction so short typos still match.
		for _, c := range candidates {
			if fuzzy.MatchFold(c, target) {
				ranks = append(ranks, fuzzy.Rank{Target: c, Distance: len(target) - len(c)})
			}
		}
	}
	sort.Sort(ranks)
	out := make([]string, 0, limit)
	for _, rk := range ranks {
		if len(out) == limit {
			break
		}
		out = append(out, rk.Target)
	}
	return out
}

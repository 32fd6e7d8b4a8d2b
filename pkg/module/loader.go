// Package module loads NJIM module documents, resolves their imports and
// publishes their exports into a frame under the module's namespace.
package module

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/parser"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/validator"
)

// Extension is appended to module references that have none.
const Extension = ".njim"

// DefaultSearchPath is searched when no other paths are configured.
const DefaultSearchPath = "modules"

// Loaded is a parsed and validated module together with its resolved
// dependencies.
type Loaded struct {
	*parser.Module
	Deps  []*Loaded
	Packs []string
}

// Loader resolves, parses and caches modules. One loader may serve many
// runs; its cache is guarded by a mutex.
type Loader struct {
	SearchPaths []string
	Root        string
	Logger      zerolog.Logger

	mu          sync.Mutex
	byPath      map[string]*Loaded
	byNamespace map[string]*Loaded
	visiting    []string
}

// NewLoader creates a loader rooted at root. Relative search paths are
// resolved against root.
func NewLoader(root string, searchPaths ...string) *Loader {
	if len(searchPaths) == 0 {
		searchPaths = []string{DefaultSearchPath}
	}
	return &Loader{
		SearchPaths: searchPaths,
		Root:        root,
		Logger:      zerolog.Nop(),
		byPath:      make(map[string]*Loaded),
		byNamespace: make(map[string]*Loaded),
	}
}

// Load resolves ref relative to fromDir and the search paths, then loads
// the module and its imports.
func (l *Loader) Load(ref, fromDir string) (*Loaded, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureMaps()
	return l.load(ref, fromDir)
}

// Cached returns the module cached under namespace.
func (l *Loader) Cached(namespace string) (*Loaded, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.byNamespace[namespace]
	return m, ok
}

// Reset empties the cache so changed files are read again.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byPath = make(map[string]*Loaded)
	l.byNamespace = make(map[string]*Loaded)
	l.visiting = nil
}

func (l *Loader) ensureMaps() {
	if l.byPath == nil {
		l.byPath = make(map[string]*Loaded)
		l.byNamespace = make(map[string]*Loaded)
	}
}

func (l *Loader) load(ref, fromDir string) (*Loaded, error) {
	path, err := l.Resolve(ref, fromDir)
	if err != nil {
		return nil, err
	}
	if m, ok := l.byPath[path]; ok {
		l.Logger.Debug().Str("module", m.Name).Str("path", path).Msg("module cache hit")
		return m, nil
	}
	for i, p := range l.visiting {
		if p == path {
			chain := make([]string, 0, len(l.visiting)-i+1)
			for _, v := range l.visiting[i:] {
				chain = append(chain, filepath.Base(v))
			}
			chain = append(chain, filepath.Base(path))
			return nil, evaluator.Errorf(diagnostics.EModuleCycle, "import cycle: %s", strings.Join(chain, " -> "))
		}
	}

	l.visiting = append(l.visiting, path)
	defer func() { l.visiting = l.visiting[:len(l.visiting)-1] }()

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, evaluator.Errorf(diagnostics.EModule, "reading module '%s': %v", ref, err)
	}
	mod, diags := parser.ParseModule(string(src), path)
	if diagnostics.HasErrors(diags) {
		return nil, moduleError(ref, diags)
	}
	if diags := validator.ValidateModule(mod, validator.Options{File: path}); diagnostics.HasErrors(diags) {
		return nil, &InvalidError{Path: path, Err: moduleError(ref, diags)}
	}
	mod.Path = path

	loaded := &Loaded{Module: mod}
	dir := filepath.Dir(path)
	for _, imp := range mod.Imports {
		if name, ok := strings.CutPrefix(imp, "!"); ok {
			loaded.Packs = append(loaded.Packs, name)
			continue
		}
		dep, err := l.load(l.rootRelative(imp), dir)
		if err != nil {
			return nil, err
		}
		loaded.Deps = append(loaded.Deps, dep)
	}

	l.byPath[path] = loaded
	l.byNamespace[mod.Namespace] = loaded
	l.Logger.Debug().
		Str("module", mod.Name).
		Str("namespace", mod.Namespace).
		Str("path", path).
		Int("functions", len(mod.Functions)).
		Msg("module loaded")
	return loaded, nil
}

func moduleError(ref string, diags []diagnostics.Diagnostic) *evaluator.NJRuntimeError {
	for _, d := range diags {
		if !d.Warning {
			err := evaluator.Errorf(diagnostics.EModule, "module '%s': %s", ref, d.Message)
			err.Hint = d.Hint
			return err
		}
	}
	return evaluator.Errorf(diagnostics.EModule, "module '%s' is invalid", ref)
}

// InvalidError reports a module that parsed but failed validation. A
// program skips such an import instead of stopping.
type InvalidError struct {
	Path string
	Err  *evaluator.NJRuntimeError
}

func (e *InvalidError) Error() string { return e.Err.Error() }

func (e *InvalidError) Unwrap() error { return e.Err }

// rootRelative maps a leading "/" onto the project root when the target
// exists there.
func (l *Loader) rootRelative(ref string) string {
	if !strings.HasPrefix(ref, "/") || l.Root == "" {
		return ref
	}
	candidate := filepath.Join(l.Root, strings.TrimPrefix(ref, "/"))
	if fileExists(candidate) || fileExists(candidate+Extension) {
		return candidate
	}
	return ref
}

// Resolve finds the file a module reference names: relative to fromDir,
// then under each search path, trying the reference as written and then
// with the .njim extension.
func (l *Loader) Resolve(ref, fromDir string) (string, error) {
	candidates := []string{ref}
	if filepath.Ext(ref) == "" {
		candidates = append(candidates, ref+Extension)
	}

	var tried []string
	for _, c := range candidates {
		var bases []string
		if filepath.IsAbs(c) {
			bases = []string{""}
		} else {
			bases = append([]string{fromDir}, l.searchDirs()...)
		}
		for _, base := range bases {
			p := c
			if base != "" {
				p = filepath.Join(base, c)
			}
			tried = append(tried, p)
			if fileExists(p) {
				abs, err := filepath.Abs(p)
				if err != nil {
					return p, nil
				}
				return abs, nil
			}
		}
	}
	err := evaluator.Errorf(diagnostics.EModule, "module '%s' not found", ref)
	err.Hint = "searched " + strings.Join(tried, ", ")
	return "", err
}

func (l *Loader) searchDirs() []string {
	dirs := make([]string, 0, len(l.SearchPaths))
	for _, sp := range l.SearchPaths {
		if !filepath.IsAbs(sp) && l.Root != "" {
			sp = filepath.Join(l.Root, sp)
		}
		dirs = append(dirs, sp)
	}
	return dirs
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// String describes the module for logs and errors.
func (m *Loaded) String() string {
	return fmt.Sprintf("%s (%s)", m.Name, m.Path)
}

package module

import (
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

// PackLookup finds a builtin pack by name.
type PackLookup func(name string) (*evaluator.Pack, bool)

// Publish makes m's constants and functions visible in frame as
// namespace.name, after publishing its dependencies. A namespace is
// published at most once per frame; a second module claiming it is
// ignored with a warning.
func Publish(frame *evaluator.Frame, m *Loaded, log *zerolog.Logger) error {
	if frame.LoadedModules[m.Namespace] {
		if prev := frame.ModuleSources[m.Namespace]; prev != "" && prev != m.Path {
			log.Warn().
				Str("namespace", m.Namespace).
				Str("published", prev).
				Str("ignored", m.Path).
				Msg("namespace already published by another module")
		}
		return nil
	}
	frame.LoadedModules[m.Namespace] = true
	if frame.ModuleSources == nil {
		frame.ModuleSources = make(map[string]string)
	}
	frame.ModuleSources[m.Namespace] = m.Path

	for _, dep := range m.Deps {
		if err := Publish(frame, dep, log); err != nil {
			return err
		}
	}
	prefix := m.Namespace + "."
	for _, kv := range m.Constants.Pairs {
		if err := frame.DefineConst(prefix+kv.Key, kv.Value); err != nil {
			return err
		}
	}
	for _, fn := range m.Functions {
		frame.Program.Add(&evaluator.Function{
			Name:   prefix + fn.Name,
			Params: fn.Params,
			Body:   fn.Body,
		})
	}
	return nil
}

// Import applies one program import entry to the interpreter's frame:
// "!name" activates a builtin pack, anything else names a module file or
// an already loaded namespace.
func (l *Loader) Import(ip *evaluator.Interpreter, entry string, packs PackLookup) error {
	if name, ok := strings.CutPrefix(entry, "!"); ok {
		return activate(ip, name, packs)
	}

	frame := ip.Frame()
	if filepath.Ext(entry) == "" && !strings.ContainsAny(entry, `/\`) {
		if m, ok := l.Cached(entry); ok {
			return l.publish(ip, m, packs)
		}
	}

	m, err := l.Load(l.rootRelative(entry), frame.Dir)
	if err != nil {
		return err
	}
	return l.publish(ip, m, packs)
}

func (l *Loader) publish(ip *evaluator.Interpreter, m *Loaded, packs PackLookup) error {
	if err := activateModulePacks(ip, m, packs, make(map[*Loaded]bool)); err != nil {
		return err
	}
	if !ip.Frame().LoadedModules[m.Namespace] {
		ip.Emit(evaluator.TraceModuleLoad, map[string]string{"module": m.Name, "namespace": m.Namespace, "path": m.Path})
		ip.Logger().Debug().Str("module", m.Name).Str("namespace", m.Namespace).Msg("module published")
	}
	return Publish(ip.Frame(), m, ip.Logger())
}

func activateModulePacks(ip *evaluator.Interpreter, m *Loaded, packs PackLookup, seen map[*Loaded]bool) error {
	if seen[m] {
		return nil
	}
	seen[m] = true
	for _, dep := range m.Deps {
		if err := activateModulePacks(ip, dep, packs, seen); err != nil {
			return err
		}
	}
	for _, name := range m.Packs {
		if err := activate(ip, name, packs); err != nil {
			return err
		}
	}
	return nil
}

func activate(ip *evaluator.Interpreter, name string, packs PackLookup) error {
	var p *evaluator.Pack
	ok := false
	if packs != nil {
		p, ok = packs(name)
	}
	if !ok {
		return evaluator.Errorf(diagnostics.EUnknownPack, "unknown builtin pack '%s'", name)
	}
	return ip.ActivatePack(p)
}

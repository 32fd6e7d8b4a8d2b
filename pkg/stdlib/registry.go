// Package stdlib provides the NJIL core instruction pack: variables,
// constants, arithmetic, logic, control flow, conversions, strings and
// structured values.
package stdlib

import (
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

// PackName is the name the core pack is registered under.
const PackName = "core"

// Pack returns the core instruction pack.
func Pack() *evaluator.Pack {
	return &evaluator.Pack{
		Name:        PackName,
		Description: "variables, constants, arithmetic, logic, control flow, types, strings, json",
		Handlers:    handlers(),
	}
}

// NewRegistry creates an instruction registry holding the core pack.
func NewRegistry() *evaluator.Registry {
	reg := evaluator.NewRegistry()
	RegisterDefaults(reg)
	return reg
}

// RegisterDefaults adds every core instruction to reg.
func RegisterDefaults(reg *evaluator.Registry) {
	reg.RegisterPack(Pack())
}

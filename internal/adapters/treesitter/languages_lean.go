//go:build lean

package treesitter

// This file is included only when building with -tags lean. No grammar
// packages are linked; every grammar comes from a manifest and is loaded from
// a .so/.dylib via the DynamicLoader (purego).

// registerBuiltinGrammars is a no-op in lean builds.
func (r *Registry) registerBuiltinGrammars() {}

// registerExtendedGrammars is a no-op in lean builds.
func (r *Registry) registerExtendedGrammars() {}

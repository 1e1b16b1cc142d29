//go:build !lean

package treesitter

// This file registers the compiled-in grammars. It is included in the default
// build but excluded with -tags lean, which produces a library that only knows
// grammars loaded from a manifest at runtime.

import (
	"unsafe"

	odin "github.com/alexaandru/go-sitter-forest/odin"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	ts_c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	ts_json "github.com/tree-sitter/tree-sitter-json/bindings/go"
	ts_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	ts_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
)

// langPtr wraps a Language() call that returns unsafe.Pointer.
func langPtr(p unsafe.Pointer) *tree_sitter.Language {
	return tree_sitter.NewLanguage(p)
}

// registerBuiltinGrammars adds the reference configuration: ids 0..3.
func (r *Registry) registerBuiltinGrammars() {
	r.addGrammar(Grammar{ID: LangRust, Name: "rust", Language: langPtr(ts_rust.Language()), Query: builtinQuery("rust"), Extensions: []string{".rs"}})
	r.addGrammar(Grammar{ID: LangC, Name: "c", Language: langPtr(ts_c.Language()), Query: builtinQuery("c"), Extensions: []string{".c", ".h"}})
	r.addGrammar(Grammar{ID: LangPython, Name: "python", Language: langPtr(ts_python.Language()), Query: builtinQuery("python"), Extensions: []string{".py", ".pyw"}})
	r.addGrammar(Grammar{ID: LangOdin, Name: "odin", Language: langPtr(odin.GetLanguage()), Query: builtinQuery("odin"), Extensions: []string{".odin"}})
}

// registerExtendedGrammars adds compiled-in grammars outside the reference set.
func (r *Registry) registerExtendedGrammars() {
	r.addGrammar(Grammar{ID: LangJSON, Name: "json", Language: langPtr(ts_json.Language()), Query: builtinQuery("json"), Extensions: []string{".json", ".jsonc"}})
}

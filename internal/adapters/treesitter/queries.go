package treesitter

import (
	"embed"
	"path"
)

// Highlight query documents, one per grammar, kept as data so a grammar can be
// added or its rules revised without touching the tokenizers.
//
//go:embed queries/*.scm
var queryFS embed.FS

// builtinQuery returns the embedded query document for a grammar name.
// A missing document yields "", which compiles to a query with no patterns.
func builtinQuery(name string) string {
	data, err := queryFS.ReadFile(path.Join("queries", name+".scm"))
	if err != nil {
		return ""
	}
	return string(data)
}

package treesitter

import (
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// ParseResult is a parsed tree plus the s-expression of its root.
// When parsing fails Tree is nil, SExpr holds a placeholder and Err says why.
type ParseResult struct {
	Tree  *tree_sitter.Tree
	SExpr string
	Err   error
}

// Parse parses src and renders the root as an s-expression. Absent or
// non-UTF-8 source is parsed as the empty string rather than rejected.
// The caller must Close the result.
func (r *Registry) Parse(src []byte, id int) *ParseResult {
	if src == nil || !utf8.Valid(src) {
		src = []byte{}
	}

	g, err := r.resolve(id)
	if err != nil {
		return failed(err)
	}
	tree, err := parseTree(g, src)
	if err != nil {
		return failed(err)
	}
	return &ParseResult{Tree: tree, SExpr: tree.RootNode().ToSexp()}
}

func failed(err error) *ParseResult {
	return &ParseResult{SExpr: placeholderFor(err), Err: err}
}

// OK reports whether a tree was produced.
func (p *ParseResult) OK() bool {
	return p != nil && p.Tree != nil
}

// HasError reports whether the tree contains ERROR or MISSING nodes.
func (p *ParseResult) HasError() bool {
	return p.OK() && p.Tree.RootNode().HasError()
}

// Close releases the tree. Safe on nil and on failed results.
func (p *ParseResult) Close() {
	if p == nil || p.Tree == nil {
		return
	}
	p.Tree.Close()
	p.Tree = nil
}

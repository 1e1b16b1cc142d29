package treesitter

import (
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	"gitlab.com/tozd/go/errors"
)

// checkSource rejects absent or non-UTF-8 source.
func checkSource(src []byte) error {
	if src == nil {
		return errors.Errorf("%w: nil source", ErrInvalidInput)
	}
	if !utf8.Valid(src) {
		return errors.Errorf("%w: source is not valid UTF-8", ErrInvalidInput)
	}
	return nil
}

// parseTree parses src from scratch with a parser owned by this call.
// The caller closes the returned tree.
func parseTree(g Grammar, src []byte) (*tree_sitter.Tree, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(g.Language); err != nil {
		return nil, errors.Errorf("%w: %s: %w", ErrLanguage, g.Name, err)
	}
	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, errors.Errorf("%w: %s", ErrParseFailed, g.Name)
	}
	return tree, nil
}

// prepare validates input, resolves the grammar and parses.
func (r *Registry) prepare(src []byte, id int) (Grammar, *tree_sitter.Tree, error) {
	if err := checkSource(src); err != nil {
		return Grammar{}, nil, err
	}
	g, err := r.resolve(id)
	if err != nil {
		return Grammar{}, nil, err
	}
	tree, err := parseTree(g, src)
	if err != nil {
		return Grammar{}, nil, err
	}
	return g, tree, nil
}

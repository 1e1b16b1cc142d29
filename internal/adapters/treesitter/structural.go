package treesitter

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/corey/tsgateway/internal/domain/token"
)

// Structural emits one token per leaf node of the parse tree, classified by
// the hash of the node's kind name. It works for any grammar, with or without
// a highlight query.
//
// The traversal order is fixed: a stack seeded with the root, children pushed
// in index order and popped last-first, so sibling leaves come out in reverse
// source order. Every leaf appears exactly once; inner nodes never do.
func (r *Registry) Structural(src []byte, id int) ([]token.Token, error) {
	_, tree, err := r.prepare(src, id)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	return collectLeaves(tree.RootNode(), uint(len(src))), nil
}

// collectLeaves walks the tree with an explicit stack.
func collectLeaves(root *tree_sitter.Node, srcLen uint) []token.Token {
	tokens := make([]token.Token, 0, 256)
	stack := make([]*tree_sitter.Node, 0, 256)
	stack = append(stack, root)

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		count := n.ChildCount()
		if count == 0 {
			tokens = append(tokens, token.Span(n.StartByte(), n.EndByte(), srcLen, token.HashKind(n.Kind())))
			continue
		}
		for i := uint(0); i < count; i++ {
			if child := n.Child(i); child != nil {
				stack = append(stack, child)
			}
		}
	}
	return tokens
}

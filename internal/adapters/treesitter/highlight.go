package treesitter

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/corey/tsgateway/internal/domain/token"
)

// Highlight evaluates the grammar's highlight query over the whole tree and
// emits one token per capture, classified by the capture name.
//
// Tokens follow the query engine's match order, then capture order within a
// match. Overlapping spans from different rules are kept as-is: a name
// captured as @function is usually captured again by the trailing
// (identifier) @variable rule. Resolving that is the renderer's job.
func (r *Registry) Highlight(src []byte, id int) ([]token.Token, error) {
	g, tree, err := r.prepare(src, id)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	if g.Query == "" {
		return []token.Token{}, nil
	}
	query, err := compileQuery(g)
	if err != nil {
		return nil, err
	}
	defer query.Close()

	return collectCaptures(query, tree.RootNode(), src), nil
}

func collectCaptures(query *tree_sitter.Query, root *tree_sitter.Node, src []byte) []token.Token {
	names := query.CaptureNames()
	codes := make([]uint16, len(names))
	for i, name := range names {
		codes[i] = token.Classify(name)
	}

	cursor := tree_sitter.NewQueryCursor()
	defer cursor.Close()

	srcLen := uint(len(src))
	tokens := make([]token.Token, 0, 256)
	matches := cursor.Matches(query, root, src)
	for m := matches.Next(); m != nil; m = matches.Next() {
		for _, c := range m.Captures {
			kind := token.HashKind("")
			if int(c.Index) < len(codes) {
				kind = codes[c.Index]
			}
			tokens = append(tokens, token.Span(c.Node.StartByte(), c.Node.EndByte(), srcLen, kind))
		}
	}
	return tokens
}

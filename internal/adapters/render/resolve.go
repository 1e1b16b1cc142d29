// Package render paints highlight tokens onto source text as ANSI-styled
// output, with colours taken from a chroma theme.
//
// Highlight tokens can overlap (a function name is also an identifier). The
// painter resolves that by first-capture-wins: a byte belongs to the first
// canonical token covering it, in emission order. Query documents list their
// specific rules before the catch-all ones, so the specific kind wins.
package render

import "github.com/corey/tsgateway/internal/domain/token"

// Segment is a maximal run of bytes with one resolved kind. Kind 0 means
// no canonical token covers the run.
type Segment struct {
	Start, End int
	Kind       uint16
}

// Resolve splits src into segments using first-capture-wins. Tokens with
// non-canonical kinds are ignored, as are spans outside src.
func Resolve(src []byte, tokens []token.Token) []Segment {
	if len(src) == 0 {
		return nil
	}
	owner := make([]uint16, len(src))
	for _, tok := range tokens {
		if !token.IsCanonical(tok.Kind) {
			continue
		}
		end := min(int(tok.End), len(src))
		for i := int(tok.Start); i < end; i++ {
			if owner[i] == 0 {
				owner[i] = tok.Kind
			}
		}
	}

	var segs []Segment
	start := 0
	for i := 1; i <= len(src); i++ {
		if i == len(src) || owner[i] != owner[start] {
			segs = append(segs, Segment{Start: start, End: i, Kind: owner[start]})
			start = i
		}
	}
	return segs
}

package treesitter

import "gitlab.com/tozd/go/errors"

// Failure kinds reported by the tokenizers and Parse. Callers at the C
// boundary collapse all of them to an empty result; the distinction is kept
// for logging and for the placeholder strings returned by Parse.
var (
	ErrInvalidInput        = errors.Base("invalid input")
	ErrUnsupportedLanguage = errors.Base("unsupported language")
	ErrLanguage            = errors.Base("grammar could not be attached to parser")
	ErrParseFailed         = errors.Base("parser produced no tree")
	ErrQuery               = errors.Base("highlight query failed to compile")
)

// Placeholder s-expressions returned by Parse in place of a tree.
const (
	PlaceholderUnsupported   = "(unsupported)"
	PlaceholderLanguageError = "(language error)"
	PlaceholderParseFailed   = "(parse failed)"
)

// placeholderFor maps a Parse failure to its placeholder string.
func placeholderFor(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedLanguage):
		return PlaceholderUnsupported
	case errors.Is(err, ErrLanguage):
		return PlaceholderLanguageError
	default:
		return PlaceholderParseFailed
	}
}

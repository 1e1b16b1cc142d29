// Package ports defines the interfaces the gateway uses for its optional
// infrastructure. Concrete implementations live under internal/adapters.
package ports

import "github.com/corey/tsgateway/internal/domain/token"

// TokenCache remembers tokenizer output by (mode, language id, grammar
// fingerprint, source bytes). The fingerprint changes whenever the grammar
// bound to an id or its query changes, so stale entries are never hit.
// Only successful results are stored; a failure is recomputed every time.
// Implementations must be safe for concurrent use.
type TokenCache interface {
	// Get returns ok=false on a miss. An error means the entry exists but
	// could not be read back; callers treat it as a miss.
	Get(mode string, lang int, grammar string, src []byte) (tokens []token.Token, ok bool, err error)

	// Put stores tokens, replacing any previous entry for the same key.
	Put(mode string, lang int, grammar string, src []byte, tokens []token.Token) error

	Close() error
}

// Cache modes, one per tokenization strategy.
const (
	ModeStructural = "structural"
	ModeHighlight  = "highlight"
)

// Package treesitter tokenizes source code with tree-sitter grammars.
//
// A Registry maps small integer language ids to a grammar and a highlight
// query document. Structural walks every leaf of the parse tree; Highlight
// evaluates the query and emits one token per capture; Parse returns the tree
// and its s-expression. None of these functions log or touch the filesystem:
// failures come back as errors (see errors.go) and the caller decides how to
// degrade.
//
// The reference grammars (rust, c, python, odin) are compiled in via CGo.
// Extra grammars can be loaded at runtime from shared libraries via purego,
// described by a JSON manifest.
package treesitter

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
)

// Reference language ids. These are caller-facing and must stay stable.
const (
	LangRust   = 0
	LangC      = 1
	LangPython = 2
	LangOdin   = 3

	// LangJSON is only registered by WithExtended.
	LangJSON = 4
)

// Grammar binds a language id to its tree-sitter language and highlight query.
type Grammar struct {
	ID         int
	Name       string
	Language   *tree_sitter.Language
	Query      string
	Extensions []string
}

// Fingerprint identifies the grammar's behaviour: its name and a digest of
// its query document. Token caches key on it so an id rebound to another
// grammar, or an edited query, never serves old spans.
func (g Grammar) Fingerprint() string {
	sum := sha256.Sum256([]byte(g.Query))
	return g.Name + "@" + hex.EncodeToString(sum[:8])
}

// Registry is the id -> grammar table. It is filled during construction and
// read-only afterwards, so one Registry can serve concurrent calls.
type Registry struct {
	grammars map[int]Grammar
	extToID  map[string]int
}

// Option configures NewRegistry.
type Option func(*Registry)

// WithExtended also registers grammars beyond the reference four.
func WithExtended() Option {
	return func(r *Registry) {
		r.registerExtendedGrammars()
	}
}

// NewRegistry creates a registry with the compiled-in reference grammars.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		grammars: make(map[int]Grammar),
		extToID:  make(map[string]int),
	}
	r.registerBuiltinGrammars()
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a grammar. Ids must be unique and the language non-nil.
func (r *Registry) Register(g Grammar) error {
	if g.Language == nil {
		return errors.Errorf("grammar %d (%s): nil language", g.ID, g.Name)
	}
	if prev, ok := r.grammars[g.ID]; ok {
		return errors.Errorf("grammar %d (%s): id already bound to %s", g.ID, g.Name, prev.Name)
	}
	r.grammars[g.ID] = g
	for _, ext := range g.Extensions {
		r.extToID[strings.ToLower(ext)] = g.ID
	}
	return nil
}

// addGrammar registers a compiled-in grammar. A conflict here is a programming error.
func (r *Registry) addGrammar(g Grammar) {
	if err := r.Register(g); err != nil {
		panic(err)
	}
}

// Resolve returns the grammar for id, or false if the id is not registered.
func (r *Registry) Resolve(id int) (Grammar, bool) {
	g, ok := r.grammars[id]
	return g, ok
}

// resolve is Resolve with the unsupported-language error attached.
func (r *Registry) resolve(id int) (Grammar, error) {
	g, ok := r.grammars[id]
	if !ok {
		return Grammar{}, errors.Errorf("%w: id %d", ErrUnsupportedLanguage, id)
	}
	return g, nil
}

// IDs returns all registered language ids in ascending order.
func (r *Registry) IDs() []int {
	ids := make([]int, 0, len(r.grammars))
	for id := range r.grammars {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len returns the number of registered grammars.
func (r *Registry) Len() int {
	return len(r.grammars)
}

// ByExtension finds the grammar registered for a file path's extension.
func (r *Registry) ByExtension(path string) (Grammar, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return Grammar{}, false
	}
	id, ok := r.extToID[ext]
	if !ok {
		return Grammar{}, false
	}
	return r.Resolve(id)
}

// Check compiles every grammar's highlight query and reports all failures at once.
func (r *Registry) Check() error {
	var errs error
	for _, id := range r.IDs() {
		g := r.grammars[id]
		if g.Query == "" {
			continue
		}
		q, err := compileQuery(g)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		q.Close()
	}
	return errs
}

// compileQuery builds the tree-sitter query for g. The caller closes it.
func compileQuery(g Grammar) (*tree_sitter.Query, error) {
	q, qerr := tree_sitter.NewQuery(g.Language, g.Query)
	if qerr != nil {
		return nil, errors.Errorf("%w: %s: %s", ErrQuery, g.Name, describeQueryError(qerr))
	}
	return q, nil
}

// describeQueryError renders a tree-sitter query error with a 1-based position.
func describeQueryError(qerr *tree_sitter.QueryError) string {
	return fmt.Sprintf("%s at line %d column %d", qerr.Message, qerr.Row+1, qerr.Column+1)
}

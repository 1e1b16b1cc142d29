package treesitter

import (
	"encoding/json"
	"path/filepath"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
)

// ManifestEntry describes one runtime-loaded grammar.
type ManifestEntry struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Library    string   `json:"library,omitempty"` // default: {name}.so / {name}.dylib
	Symbol     string   `json:"symbol,omitempty"`  // default: tree_sitter_{name}
	Query      string   `json:"query"`             // path to the .scm document, relative to the manifest
	Extensions []string `json:"extensions,omitempty"`
	SHA256     string   `json:"sha256,omitempty"` // hex digest of the library; checked before loading
}

// Manifest lists grammars to add on top of the compiled-in ones.
type Manifest struct {
	Version  int             `json:"version"`
	Grammars []ManifestEntry `json:"grammars"`

	dir string // directory the manifest was read from
}

// LoadManifest reads a manifest from a JSON file.
func LoadManifest(fsys afero.Fs, path string) (*Manifest, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, errors.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Errorf("parse manifest %s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	return &m, nil
}

// queryPath resolves an entry's query path relative to the manifest.
func (m *Manifest) queryPath(e ManifestEntry) string {
	if e.Query == "" || filepath.IsAbs(e.Query) || m.dir == "" {
		return e.Query
	}
	return filepath.Join(m.dir, e.Query)
}

// Extend registers every manifest grammar. Entries that fail to load are
// skipped; their errors are returned together. Call before the registry is
// shared.
func (r *Registry) Extend(m *Manifest, loader *DynamicLoader, fsys afero.Fs) error {
	var errs error
	for _, e := range m.Grammars {
		if err := r.extendOne(m, e, loader, fsys); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (r *Registry) extendOne(m *Manifest, e ManifestEntry, loader *DynamicLoader, fsys afero.Fs) error {
	if e.Name == "" {
		return errors.Errorf("manifest grammar %d: missing name", e.ID)
	}
	if _, taken := r.grammars[e.ID]; taken {
		return errors.Errorf("manifest grammar %d (%s): id already registered", e.ID, e.Name)
	}

	var query string
	if p := m.queryPath(e); p != "" {
		data, err := afero.ReadFile(fsys, p)
		if err != nil {
			return errors.Errorf("manifest grammar %d (%s): read query: %w", e.ID, e.Name, err)
		}
		query = string(data)
	}

	lib := GrammarLib{Name: e.Name, Library: e.Library, Symbol: e.Symbol}
	if e.SHA256 != "" {
		if err := loader.verify(lib, e.SHA256); err != nil {
			return errors.Errorf("manifest grammar %d (%s): %w", e.ID, e.Name, err)
		}
	}

	lang, err := loader.Load(lib)
	if err != nil {
		return err
	}

	return r.Register(Grammar{
		ID:         e.ID,
		Name:       e.Name,
		Language:   lang,
		Query:      query,
		Extensions: e.Extensions,
	})
}

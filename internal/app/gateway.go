// Package app wires the tokenizers to their optional infrastructure: the
// grammar manifest, the token cache, the parse dump and logging. It is the
// Go-side boundary used by both the C shared library and the CLI.
//
// The gateway never returns tokenizer errors. A failed tokenization is
// logged and reported as an empty token list; a failed parse carries its
// placeholder s-expression.
package app

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/corey/tsgateway/internal/adapters/bbolt"
	"github.com/corey/tsgateway/internal/adapters/treesitter"
	"github.com/corey/tsgateway/internal/domain/token"
	"github.com/corey/tsgateway/internal/ports"
)

// Gateway is the top-level container wiring the registry to its adapters.
type Gateway struct {
	Registry *treesitter.Registry
	Cache    ports.TokenCache // nil = no caching
	Loader   *treesitter.DynamicLoader

	dumper *Dumper // nil = dumps disabled
	log    zerolog.Logger
}

// New creates a Gateway with all dependencies wired. Grammar manifest
// problems are logged and skipped; only a cache that cannot be opened is fatal.
func New(cfg Config) (*Gateway, error) {
	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	var opts []treesitter.Option
	if cfg.Extended {
		opts = append(opts, treesitter.WithExtended())
	}

	g := &Gateway{
		Registry: treesitter.NewRegistry(opts...),
		Loader:   treesitter.NewDynamicLoader(cfg.GrammarPaths),
		log:      cfg.Logger,
	}

	if cfg.Manifest != "" {
		g.extend(fs, cfg.Manifest)
	}
	if cfg.Dump {
		g.dumper = NewDumper(fs, cfg.DumpDir)
	}
	if cfg.CachePath != "" {
		store, err := bbolt.NewStore(cfg.CachePath)
		if err != nil {
			return nil, errors.Errorf("open token cache: %w", err)
		}
		g.Cache = store
	}
	return g, nil
}

// NewWithRegistry wraps an existing registry with no cache, dump or manifest.
func NewWithRegistry(reg *treesitter.Registry, log zerolog.Logger) *Gateway {
	return &Gateway{Registry: reg, log: log}
}

// extend registers the manifest's grammars on top of the compiled-in ones.
func (g *Gateway) extend(fs afero.Fs, path string) {
	if _, err := fs.Stat(path); errors.Is(err, os.ErrNotExist) {
		g.log.Debug().Str("manifest", path).Msg("no grammar manifest")
		return
	}
	m, err := treesitter.LoadManifest(fs, path)
	if err != nil {
		g.log.Warn().Err(err).Str("manifest", path).Msg("grammar manifest ignored")
		return
	}
	if err := g.Registry.Extend(m, g.Loader, fs); err != nil {
		g.log.Warn().Err(err).Str("manifest", path).Msg("some manifest grammars were skipped")
	}
	g.log.Debug().Ints("ids", g.Registry.IDs()).Msg("grammar registry ready")
}

// Logger returns the gateway's logger.
func (g *Gateway) Logger() zerolog.Logger {
	return g.log
}

// Close releases the token cache.
func (g *Gateway) Close() error {
	if g.Cache == nil {
		return nil
	}
	return g.Cache.Close()
}

// Tokens runs the structural tokenizer. Any failure yields an empty list.
func (g *Gateway) Tokens(src []byte, id int) []token.Token {
	return g.tokenize(ports.ModeStructural, src, id, g.Registry.Structural)
}

// HighlightTokens runs the query-based highlighter. Any failure yields an empty list.
func (g *Gateway) HighlightTokens(src []byte, id int) []token.Token {
	return g.tokenize(ports.ModeHighlight, src, id, g.Registry.Highlight)
}

// tokenize consults the cache only for ids the registry currently resolves;
// an unknown id goes straight to run, which reports it unsupported.
func (g *Gateway) tokenize(mode string, src []byte, id int, run func([]byte, int) ([]token.Token, error)) []token.Token {
	var fingerprint string
	if gr, ok := g.Registry.Resolve(id); ok {
		fingerprint = gr.Fingerprint()
	}
	cached := g.Cache != nil && fingerprint != ""

	if cached && src != nil {
		tokens, ok, err := g.Cache.Get(mode, id, fingerprint, src)
		if err != nil {
			g.log.Debug().Err(err).Str("mode", mode).Int("lang", id).Msg("token cache read failed")
		} else if ok {
			return tokens
		}
	}

	tokens, err := run(src, id)
	if err != nil {
		g.logFailure(mode, id, err)
		return nil
	}

	if cached {
		if err := g.Cache.Put(mode, id, fingerprint, src, tokens); err != nil {
			g.log.Warn().Err(err).Str("mode", mode).Int("lang", id).Msg("token cache write failed")
		}
	}
	return tokens
}

// Parse parses src and, when dumps are enabled, writes the s-expression to
// the dump directory. Dump failures are logged, never returned. The caller
// must Close the result.
func (g *Gateway) Parse(src []byte, id int) *treesitter.ParseResult {
	res := g.Registry.Parse(src, id)
	if res.Err != nil {
		g.logFailure("parse", id, res.Err)
		return res
	}
	if g.dumper != nil {
		path, err := g.dumper.Write(id, res.SExpr)
		if err != nil {
			g.log.Warn().Err(err).Int("lang", id).Msg("parse dump not written")
		} else {
			g.log.Debug().Str("path", path).Int("lang", id).Msg("parse dump written")
		}
	}
	return res
}

// Languages returns the registered language ids in ascending order.
func (g *Gateway) Languages() []int {
	return g.Registry.IDs()
}

// DumpPath returns where Parse writes the dump for id, or "" when dumps are off.
func (g *Gateway) DumpPath(id int) string {
	if g.dumper == nil {
		return ""
	}
	return g.dumper.Path(id)
}

// logFailure logs at warn for grammar or query defects, which an operator can
// fix, and at debug for bad caller input.
func (g *Gateway) logFailure(op string, id int, err error) {
	ev := g.log.Debug()
	if errors.Is(err, treesitter.ErrQuery) || errors.Is(err, treesitter.ErrLanguage) || errors.Is(err, treesitter.ErrParseFailed) {
		ev = g.log.Warn()
	}
	ev.Err(err).Str("op", op).Int("lang", id).Msg("tokenization failed")
}

//go:build !lean

package app

import (
	"bytes"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/tsgateway/internal/adapters/treesitter"
	"github.com/corey/tsgateway/internal/domain/token"
	"github.com/corey/tsgateway/internal/ports"
)

// memCache is an in-memory ports.TokenCache that counts calls.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]token.Token
	gets    int
	puts    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]token.Token)}
}

func (c *memCache) key(mode string, lang int, grammar string, src []byte) string {
	return mode + "|" + strconv.Itoa(lang) + "|" + grammar + "|" + string(src)
}

func (c *memCache) Get(mode string, lang int, grammar string, src []byte) ([]token.Token, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	tokens, ok := c.entries[c.key(mode, lang, grammar, src)]
	return tokens, ok, nil
}

func (c *memCache) Put(mode string, lang int, grammar string, src []byte, tokens []token.Token) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	c.entries[c.key(mode, lang, grammar, src)] = tokens
	return nil
}

func (c *memCache) Close() error { return nil }

// newTestGateway builds a gateway on an in-memory filesystem with a captured log.
func newTestGateway(t *testing.T, mutate func(*Config)) (*Gateway, afero.Fs, *bytes.Buffer) {
	t.Helper()
	fs := afero.NewMemMapFs()
	logs := &bytes.Buffer{}

	cfg := DefaultConfig("/proj")
	cfg.Fs = fs
	cfg.Logger = NewLogger(logs, zerolog.DebugLevel, false)
	if mutate != nil {
		mutate(&cfg)
	}

	g, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })
	return g, fs, logs
}

func TestGateway_Tokens(t *testing.T) {
	g, _, _ := newTestGateway(t, nil)
	src := []byte("fn double(x:i32)->i32{x*2}")

	tokens := g.Tokens(src, treesitter.LangRust)
	require.NotEmpty(t, tokens)
	for _, tok := range tokens {
		assert.NotZero(t, tok.Kind)
		assert.LessOrEqual(t, int(tok.End), len(src))
	}

	hl := g.HighlightTokens(src, treesitter.LangRust)
	assert.NotEmpty(t, hl)
}

func TestGateway_FailuresCollapseToEmpty(t *testing.T) {
	g, _, logs := newTestGateway(t, nil)

	assert.Empty(t, g.Tokens([]byte("fn main() {}"), 999))
	assert.Empty(t, g.HighlightTokens([]byte("fn main() {}"), 999))
	assert.Empty(t, g.Tokens(nil, treesitter.LangRust))
	assert.Empty(t, g.HighlightTokens([]byte{0xff}, treesitter.LangC))

	assert.Contains(t, logs.String(), "unsupported language")
	assert.Contains(t, logs.String(), `"level":"debug"`)
	assert.NotContains(t, logs.String(), `"level":"warn"`)
}

func TestGateway_BrokenQueryLogsWarning(t *testing.T) {
	g, _, logs := newTestGateway(t, nil)
	rust, _ := g.Registry.Resolve(treesitter.LangRust)
	require.NoError(t, g.Registry.Register(treesitter.Grammar{
		ID: 77, Name: "broken", Language: rust.Language, Query: "(nope) @function",
	}))

	assert.Empty(t, g.HighlightTokens([]byte("fn main() {}"), 77))
	assert.NotEmpty(t, g.Tokens([]byte("fn main() {}"), 77), "structural path ignores the query")

	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), "highlight query failed to compile")
	assert.Contains(t, logs.String(), `"lang":77`)
}

func TestGateway_ParseWritesDump(t *testing.T) {
	g, fs, _ := newTestGateway(t, func(c *Config) { c.DumpDir = "/dumps" })

	res := g.Parse([]byte("int main(void) { return 0; }"), treesitter.LangC)
	defer res.Close()
	require.True(t, res.OK())

	path := filepath.Join("/dumps", "parse_lang1_tree.ast")
	assert.Equal(t, path, g.DumpPath(treesitter.LangC))
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, res.SExpr, string(data))

	// Dumps are overwritten per language.
	res2 := g.Parse([]byte("int x;"), treesitter.LangC)
	defer res2.Close()
	data, err = afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, res2.SExpr, string(data))
}

func TestGateway_ParseFailureNoDump(t *testing.T) {
	g, fs, _ := newTestGateway(t, func(c *Config) { c.DumpDir = "/dumps" })

	res := g.Parse([]byte("fn main() {}"), 999)
	defer res.Close()
	assert.Equal(t, treesitter.PlaceholderUnsupported, res.SExpr)
	assert.Nil(t, res.Tree)

	exists, err := afero.Exists(fs, g.DumpPath(999))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGateway_DumpDisabled(t *testing.T) {
	g, fs, _ := newTestGateway(t, func(c *Config) { c.Dump = false })

	res := g.Parse([]byte("x = 1"), treesitter.LangPython)
	defer res.Close()
	require.True(t, res.OK())
	assert.Equal(t, "", g.DumpPath(treesitter.LangPython))

	exists, err := afero.DirExists(fs, "/proj/.tsgateway/out")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGateway_DumpFailureIsLoggedNotReturned(t *testing.T) {
	logs := &bytes.Buffer{}
	cfg := DefaultConfig("/proj")
	cfg.Fs = afero.NewReadOnlyFs(afero.NewMemMapFs())
	cfg.Logger = NewLogger(logs, zerolog.DebugLevel, false)
	g, err := New(cfg)
	require.NoError(t, err)

	res := g.Parse([]byte("fn main() {}"), treesitter.LangRust)
	defer res.Close()
	assert.True(t, res.OK())
	assert.NoError(t, res.Err)
	assert.Contains(t, logs.String(), "parse dump not written")
}

func TestGateway_Cache(t *testing.T) {
	g, _, _ := newTestGateway(t, nil)
	cache := newMemCache()
	g.Cache = cache
	src := []byte("def f():\n    return 1\n")

	first := g.Tokens(src, treesitter.LangPython)
	again := g.Tokens(src, treesitter.LangPython)
	assert.Equal(t, first, again)
	assert.Equal(t, 2, cache.gets)
	assert.Equal(t, 1, cache.puts, "second call is served from the cache")

	g.HighlightTokens(src, treesitter.LangPython)
	assert.Equal(t, 2, cache.puts, "modes are cached separately")

	g.Tokens(src, 999)
	g.Tokens(src, 999)
	assert.Equal(t, 2, cache.puts, "failures are not cached")
	assert.Equal(t, 3, cache.gets, "unknown ids never reach the cache")
}

func TestGateway_CacheFollowsRegistry(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	cfg.Dump = false
	cfg.Extended = true
	cfg.CachePath = filepath.Join(t.TempDir(), "cache.db")
	src := []byte(`{"a": 1}`)

	g, err := New(cfg)
	require.NoError(t, err)
	require.NotEmpty(t, g.Tokens(src, treesitter.LangJSON))
	require.NotEmpty(t, g.HighlightTokens(src, treesitter.LangJSON))
	require.NoError(t, g.Close())

	// Same cache, JSON no longer registered.
	cfg.Extended = false
	g, err = New(cfg)
	require.NoError(t, err)
	defer g.Close()

	_, registered := g.Registry.Resolve(treesitter.LangJSON)
	require.False(t, registered)
	assert.Empty(t, g.Tokens(src, treesitter.LangJSON))
	assert.Empty(t, g.HighlightTokens(src, treesitter.LangJSON))
}

func TestGateway_CacheKeyedByGrammar(t *testing.T) {
	cache := newMemCache()
	src := []byte("fn main() {}")

	// gatewayWith binds id 70 to the rust language with the given query.
	gatewayWith := func(query string) *Gateway {
		reg := treesitter.NewRegistry()
		rust, _ := reg.Resolve(treesitter.LangRust)
		require.NoError(t, reg.Register(treesitter.Grammar{
			ID: 70, Name: "rust-min", Language: rust.Language, Query: query,
		}))
		g := NewWithRegistry(reg, zerolog.Nop())
		g.Cache = cache
		return g
	}

	fns := gatewayWith("(function_item name: (identifier) @function)").HighlightTokens(src, 70)
	require.Len(t, fns, 1)
	assert.Equal(t, token.KindFunction, fns[0].Kind)

	// Same id and source, edited query: the old entry must not be served.
	kw := gatewayWith(`(function_item "fn" @keyword)`).HighlightTokens(src, 70)
	require.Len(t, kw, 1)
	assert.Equal(t, token.KindKeyword, kw[0].Kind)
	assert.Equal(t, 2, cache.puts)
}

func TestGateway_BboltCache(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "cache.db")
	cfg := DefaultConfig(t.TempDir())
	cfg.Dump = false
	cfg.CachePath = cachePath

	g, err := New(cfg)
	require.NoError(t, err)
	src := []byte("fn main() {}")
	want := g.Tokens(src, treesitter.LangRust)
	require.NoError(t, g.Close())

	g, err = New(cfg)
	require.NoError(t, err)
	defer g.Close()

	got, ok, err := g.Cache.Get(ports.ModeStructural, treesitter.LangRust, rustFingerprint(t, g), src)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestNew_Manifest(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		g, _, logs := newTestGateway(t, nil)
		assert.Equal(t, 4, g.Registry.Len())
		assert.Contains(t, logs.String(), "no grammar manifest")
	})

	t.Run("malformed", func(t *testing.T) {
		g, _, logs := newTestGateway(t, func(c *Config) {
			require.NoError(t, afero.WriteFile(c.Fs, c.Manifest, []byte("{"), 0644))
		})
		assert.Equal(t, 4, g.Registry.Len())
		assert.Contains(t, logs.String(), "grammar manifest ignored")
	})

	t.Run("unloadable grammar", func(t *testing.T) {
		g, _, logs := newTestGateway(t, func(c *Config) {
			c.GrammarPaths = []string{t.TempDir()}
			require.NoError(t, afero.WriteFile(c.Fs, c.Manifest,
				[]byte(`{"version":1,"grammars":[{"id":9,"name":"toml"}]}`), 0644))
		})
		assert.Equal(t, 4, g.Registry.Len())
		assert.Contains(t, logs.String(), "some manifest grammars were skipped")
		assert.Contains(t, logs.String(), "not found in search paths")
	})
}

func TestNew_Extended(t *testing.T) {
	g, _, _ := newTestGateway(t, func(c *Config) { c.Extended = true })
	assert.NotEmpty(t, g.Tokens([]byte(`{"a": 1}`), treesitter.LangJSON))
}

func TestNewWithRegistry(t *testing.T) {
	g := NewWithRegistry(treesitter.NewRegistry(), zerolog.Nop())
	res := g.Parse([]byte("x"), treesitter.LangPython)
	defer res.Close()
	assert.True(t, res.OK())
	assert.Equal(t, "", g.DumpPath(treesitter.LangPython))
	assert.NoError(t, g.Close())
}

func rustFingerprint(t *testing.T, g *Gateway) string {
	t.Helper()
	rust, ok := g.Registry.Resolve(treesitter.LangRust)
	require.True(t, ok)
	return rust.Fingerprint()
}

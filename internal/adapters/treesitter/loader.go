package treesitter

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	"gitlab.com/tozd/go/errors"
)

// DynamicLoader loads tree-sitter grammars from shared libraries (.so on Linux,
// .dylib on macOS) using purego. It searches configured paths for grammar files
// and caches loaded languages for reuse.
type DynamicLoader struct {
	searchPaths []string
	mu          sync.Mutex
	loaded      map[string]*tree_sitter.Language
	handles     []uintptr
}

// NewDynamicLoader creates a loader that searches the given paths for grammar
// shared libraries. Paths are searched in order; first match wins.
func NewDynamicLoader(searchPaths []string) *DynamicLoader {
	return &DynamicLoader{
		searchPaths: searchPaths,
		loaded:      make(map[string]*tree_sitter.Language),
	}
}

// DefaultGrammarPaths returns the default search paths for grammar shared libraries.
// Project-local (.tsgateway/grammars/) is searched first, then global (~/.tsgateway/grammars/).
func DefaultGrammarPaths(projectRoot string) []string {
	var paths []string
	if projectRoot != "" {
		paths = append(paths, filepath.Join(projectRoot, ".tsgateway", "grammars"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".tsgateway", "grammars"))
	}
	return paths
}

// LibExtension returns the shared library extension for the current platform.
func LibExtension() string {
	if runtime.GOOS == "darwin" {
		return ".dylib"
	}
	return ".so"
}

// CSymbolName returns the C function exported by a grammar library:
// tree_sitter_{name} with dashes folded to underscores.
func CSymbolName(lang string) string {
	return "tree_sitter_" + strings.ReplaceAll(lang, "-", "_")
}

// GrammarLib says which library and symbol hold a grammar. Empty fields fall back
// to {Name}{LibExtension()} and CSymbolName(Name).
type GrammarLib struct {
	Name    string
	Library string
	Symbol  string
}

func (s GrammarLib) library() string {
	if s.Library != "" {
		return s.Library
	}
	return s.Name + LibExtension()
}

func (s GrammarLib) symbol() string {
	if s.Symbol != "" {
		return s.Symbol
	}
	return CSymbolName(s.Name)
}

// LoadGrammar loads a grammar by name using the default library and symbol names.
func (dl *DynamicLoader) LoadGrammar(lang string) (*tree_sitter.Language, error) {
	return dl.Load(GrammarLib{Name: lang})
}

// Load loads the grammar described by lib. Results are cached by library
// path and symbol; subsequent calls return the cached language.
func (dl *DynamicLoader) Load(lib GrammarLib) (*tree_sitter.Language, error) {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	soPath := dl.find(lib.library())
	if soPath == "" {
		return nil, errors.Errorf("grammar %q: shared library %s not found in search paths", lib.Name, lib.library())
	}

	symName := lib.symbol()
	key := soPath + "#" + symName
	if cached, ok := dl.loaded[key]; ok {
		return cached, nil
	}

	handle, err := purego.Dlopen(soPath, purego.RTLD_LAZY)
	if err != nil {
		return nil, errors.Errorf("grammar %q: dlopen %s: %w", lib.Name, soPath, err)
	}
	dl.handles = append(dl.handles, handle)

	sym, err := purego.Dlsym(handle, symName)
	if err != nil {
		return nil, errors.Errorf("grammar %q: dlsym %s: %w", lib.Name, symName, err)
	}

	var langFunc func() uintptr
	purego.RegisterFunc(&langFunc, sym)

	ptr := langFunc()
	if ptr == 0 {
		return nil, errors.Errorf("grammar %q: %s() returned null", lib.Name, symName)
	}

	// Convert uintptr from C (purego) to unsafe.Pointer without triggering go vet's
	// unsafeptr check. ptr is a static TSLanguage* owned by the library, not Go memory.
	language := tree_sitter.NewLanguage(*(*unsafe.Pointer)(unsafe.Pointer(&ptr)))
	dl.loaded[key] = language
	return language, nil
}

// find resolves a library name against the search paths. Absolute names are
// used as-is when they exist.
func (dl *DynamicLoader) find(library string) string {
	if filepath.IsAbs(library) {
		if _, err := os.Stat(library); err == nil {
			return library
		}
		return ""
	}
	for _, dir := range dl.searchPaths {
		candidate := filepath.Join(dir, library)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// verify checks the library for lib against a hex SHA-256 digest. A missing
// library is left for Load to report.
func (dl *DynamicLoader) verify(lib GrammarLib, want string) error {
	path := dl.find(lib.library())
	if path == "" {
		return nil
	}
	got, err := HashFile(path)
	if err != nil {
		return errors.Errorf("hash %s: %w", path, err)
	}
	if !strings.EqualFold(got, want) {
		return errors.Errorf("%s: checksum mismatch (have %s, want %s)", path, got, want)
	}
	return nil
}

// HashFile returns the hex SHA-256 digest of a file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// GrammarPath returns the path to the shared library for a language, or "" if not found.
func (dl *DynamicLoader) GrammarPath(lang string) string {
	return dl.find(GrammarLib{Name: lang}.library())
}

// InstalledGrammars returns language names found as shared libraries in the search paths.
func (dl *DynamicLoader) InstalledGrammars() []string {
	ext := LibExtension()
	seen := make(map[string]bool)
	var names []string
	for _, dir := range dl.searchPaths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
				continue
			}
			lang := strings.TrimSuffix(e.Name(), ext)
			if !seen[lang] {
				seen[lang] = true
				names = append(names, lang)
			}
		}
	}
	return names
}

// Close forgets all loaded grammars. Libraries stay mapped: languages handed
// out earlier may still back live trees.
func (dl *DynamicLoader) Close() {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	dl.handles = nil
	dl.loaded = make(map[string]*tree_sitter.Language)
}

// SearchPaths returns the configured search paths.
func (dl *DynamicLoader) SearchPaths() []string {
	return dl.searchPaths
}

package app

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Paths holds all resolved filesystem paths for the .tsgateway/ project directory.
// All fields are pre-computed strings.
type Paths struct {
	Root string // .tsgateway/

	OutDir      string // .tsgateway/out/
	GrammarsDir string // .tsgateway/grammars/
	QueriesDir  string // .tsgateway/queries/

	Cache    string // .tsgateway/cache.db
	Manifest string // .tsgateway/grammars.json
}

// NewPaths constructs all resolved paths from a project root directory.
func NewPaths(projectRoot string) *Paths {
	root := filepath.Join(projectRoot, ".tsgateway")
	return &Paths{
		Root: root,

		OutDir:      filepath.Join(root, "out"),
		GrammarsDir: filepath.Join(root, "grammars"),
		QueriesDir:  filepath.Join(root, "queries"),

		Cache:    filepath.Join(root, "cache.db"),
		Manifest: filepath.Join(root, "grammars.json"),
	}
}

// EnsureDirs creates all subdirectories under .tsgateway/. Idempotent.
func (p *Paths) EnsureDirs() error {
	for _, d := range []string{p.Root, p.OutDir, p.GrammarsDir, p.QueriesDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// legacyDumpGlob matches parse dumps written to {root}/out/ by older builds.
const legacyDumpGlob = "parse_lang*_tree.ast"

// MigrateDumps moves parse dumps from the legacy {projectRoot}/out/ directory
// into OutDir. Returns the number of files moved. Idempotent: skips files
// whose destination already exists.
func (p *Paths) MigrateDumps(projectRoot string) (int, error) {
	legacy := filepath.Join(projectRoot, "out")
	matches, err := doublestar.Glob(os.DirFS(legacy), legacyDumpGlob)
	if err != nil || len(matches) == 0 {
		return 0, nil
	}
	if err := os.MkdirAll(p.OutDir, 0755); err != nil {
		return 0, err
	}

	count := 0
	for _, name := range matches {
		dst := filepath.Join(p.OutDir, name)
		// Don't overwrite existing destination.
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		if err := os.Rename(filepath.Join(legacy, name), dst); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

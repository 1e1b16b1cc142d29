//go:build ignore

// gen-manifest walks a grammar directory, hashes every .so/.dylib, and writes
// a grammars.json manifest that tsgateway can load with --manifest.
//
// Usage: go run scripts/gen-manifest.go [--dir .tsgateway/grammars] [--out .tsgateway/grammars.json] [--start-id 100]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/corey/tsgateway/internal/adapters/treesitter"
)

func main() {
	dir := flag.String("dir", ".tsgateway/grammars", "Directory containing grammar .so/.dylib files")
	out := flag.String("out", ".tsgateway/grammars.json", "Output manifest file")
	startID := flag.Int("start-id", 100, "Language id given to the first grammar")
	flag.Parse()

	entries, err := os.ReadDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading directory %s: %v\n", *dir, err)
		os.Exit(1)
	}

	var libs []string
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".so" && ext != ".dylib") {
			continue
		}
		libs = append(libs, entry.Name())
	}
	sort.Strings(libs)

	outDir := filepath.Dir(*out)
	manifest := treesitter.Manifest{Version: 1}
	id := *startID
	for _, lib := range libs {
		name := strings.TrimPrefix(strings.TrimSuffix(lib, filepath.Ext(lib)), "libtree-sitter-")

		path := filepath.Join(*dir, lib)
		sum, err := treesitter.HashFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error hashing %s: %v\n", path, err)
			continue
		}

		entry := treesitter.ManifestEntry{
			ID:      id,
			Name:    name,
			Library: lib,
			SHA256:  sum,
		}
		// Queries are looked up next to the manifest.
		query := filepath.Join("queries", name+".scm")
		if _, err := os.Stat(filepath.Join(outDir, query)); err == nil {
			entry.Query = query
		} else {
			fmt.Fprintf(os.Stderr, "note: no %s, %s gets structural tokens only\n", query, name)
		}
		manifest.Grammars = append(manifest.Grammars, entry)
		id++
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error marshaling manifest: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, append(data, '\n'), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", *out, err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s with %d grammars\n", *out, len(manifest.Grammars))
}

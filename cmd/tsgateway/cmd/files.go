package cmd

import (
	"io"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"

	"github.com/corey/tsgateway/internal/adapters/treesitter"
)

// expandArgs expands glob arguments ("src/**/*.rs") into file paths. Plain
// paths pass through even if they do not exist; a glob matching nothing is
// an error.
func expandArgs(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, arg := range args {
		if !hasMeta(arg) {
			add(arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Errorf("glob %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, errors.Errorf("glob %q matched no files", arg)
		}
		sort.Strings(matches)
		for _, m := range matches {
			add(m)
		}
	}
	return files, nil
}

func hasMeta(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

// langFor picks the language id for a file: the explicit id when >= 0,
// otherwise the grammar registered for the file's extension.
func langFor(reg *treesitter.Registry, path string, explicit int) (int, error) {
	if explicit >= 0 {
		return explicit, nil
	}
	g, ok := reg.ByExtension(path)
	if !ok {
		return 0, errors.Errorf("%s: no grammar for this extension (use --lang)", path)
	}
	return g.ID, nil
}

// readSource reads a file, or stdin for "-".
func readSource(path string) ([]byte, error) {
	if path == "-" {
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, errors.Errorf("read stdin: %w", err)
		}
		return src, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("read %s: %w", path, err)
	}
	return src, nil
}

package app

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// Dumper writes parse s-expressions to {dir}/parse_lang{id}_tree.ast,
// overwriting the previous dump for the same language.
type Dumper struct {
	fs  afero.Fs
	dir string
}

// NewDumper creates a dumper writing under dir on fs.
func NewDumper(fs afero.Fs, dir string) *Dumper {
	return &Dumper{fs: fs, dir: dir}
}

// Path returns the dump file for a language id.
func (d *Dumper) Path(id int) string {
	return filepath.Join(d.dir, fmt.Sprintf("parse_lang%d_tree.ast", id))
}

// Write stores sexpr and returns the file written.
func (d *Dumper) Write(id int, sexpr string) (string, error) {
	if err := d.fs.MkdirAll(d.dir, 0755); err != nil {
		return "", errors.Errorf("create dump dir: %w", err)
	}
	path := d.Path(id)
	if err := afero.WriteFile(d.fs, path, []byte(sexpr), 0644); err != nil {
		return "", errors.Errorf("write dump: %w", err)
	}
	return path, nil
}

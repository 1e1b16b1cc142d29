// tsgateway tokenizes source files with tree-sitter grammars.
// It is the command-line face of the same gateway the C shared library exports.
package main

import (
	"os"

	"github.com/corey/tsgateway/cmd/tsgateway/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

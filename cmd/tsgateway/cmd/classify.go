package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/corey/tsgateway/internal/domain/token"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <name>...",
	Short: "Show the kind code for capture or node names",
	Example: `  tsgateway classify function keyword.directive fn
  tsgateway classify source_file`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCODE\tSOURCE")
		for _, name := range args {
			code := token.Classify(name)
			source := "hash"
			if token.IsCanonical(code) && code != token.HashKind(name) {
				source = "canonical"
			}
			fmt.Fprintf(w, "%s\t%d\t%s\n", name, code, source)
		}
		return w.Flush()
	},
}

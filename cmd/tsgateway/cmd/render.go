package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/corey/tsgateway/internal/adapters/render"
)

var flagTheme string

var renderCmd = &cobra.Command{
	Use:   "render <file|glob>...",
	Short: "Print files with syntax colors from their highlight tokens",
	Long: `Highlight each file and print it with ANSI colors. Where captures overlap,
the first capture wins. Themes are chroma style names (monokai, dracula, github, ...).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandArgs(args)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		theme, err := render.LoadTheme(lipgloss.NewRenderer(out), flagTheme)
		if err != nil {
			return err
		}

		gw, err := newGateway(cmd, nil)
		if err != nil {
			return err
		}
		defer gw.Close()

		for i, path := range files {
			id, err := langFor(gw.Registry, path, flagLang)
			if err != nil {
				return err
			}
			src, err := readSource(path)
			if err != nil {
				return err
			}
			if len(files) > 1 {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "==> %s <==\n", path)
			}
			fmt.Fprint(out, render.Paint(src, gw.HighlightTokens(src, id), theme))
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().IntVarP(&flagLang, "lang", "l", -1, "language id (default: detect from extension)")
	renderCmd.Flags().StringVar(&flagTheme, "theme", render.DefaultTheme, "chroma style name")
}

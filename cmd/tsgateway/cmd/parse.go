package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/corey/tsgateway/internal/app"
)

var flagNoDump bool

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Print the parse tree as an s-expression",
	Long: `Parse a file and print its tree as an s-expression. Unless --no-dump is
given, the s-expression is also written to .tsgateway/out/parse_lang{id}_tree.ast.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		gw, err := newGateway(cmd, func(cfg *app.Config) {
			if flagNoDump {
				cfg.Dump = false
			}
		})
		if err != nil {
			return err
		}
		defer gw.Close()
		if !flagNoDump {
			migrateDumps(cmd)
		}

		id, err := langFor(gw.Registry, path, flagLang)
		if err != nil {
			return err
		}
		src, err := readSource(path)
		if err != nil {
			return err
		}

		res := gw.Parse(src, id)
		defer res.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, res.SExpr)
		if res.Err != nil {
			return res.Err
		}
		if res.HasError() {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: tree contains syntax errors\n", path)
		}
		if dump := gw.DumpPath(id); dump != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "dump: %s\n", dump)
		}
		return nil
	},
}

func init() {
	parseCmd.Flags().IntVarP(&flagLang, "lang", "l", -1, "language id (default: detect from extension)")
	parseCmd.Flags().BoolVar(&flagNoDump, "no-dump", false, "do not write the parse dump file")
}

// migrateDumps moves dumps left in {root}/out/ by older builds into .tsgateway/out/.
func migrateDumps(cmd *cobra.Command) {
	root := projectRoot()
	log := zerolog.Ctx(cmd.Context())
	n, err := app.NewPaths(root).MigrateDumps(root)
	if err != nil {
		log.Warn().Err(err).Msg("legacy parse dumps not migrated")
		return
	}
	if n > 0 {
		log.Info().Int("moved", n).Msg("migrated legacy parse dumps")
	}
}

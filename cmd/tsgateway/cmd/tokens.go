package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/corey/tsgateway/internal/app"
	"github.com/corey/tsgateway/internal/domain/token"
)

var (
	flagLang   int
	flagFormat string
)

var tokensCmd = &cobra.Command{
	Use:   "tokens <file|glob>...",
	Short: "Print structural tokens (one per leaf node)",
	Long: `Print one token per leaf node of each file's parse tree. Kinds are the
16-bit hash of the node kind name. Use "-" to read stdin (requires --lang).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTokenize(cmd, args, (*app.Gateway).Tokens)
	},
}

var highlightCmd = &cobra.Command{
	Use:   "highlight <file|glob>...",
	Short: "Print highlight tokens (one per query capture)",
	Long: `Evaluate the language's highlight query and print one token per capture.
Overlapping spans are printed as produced; see "render" for a resolved view.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTokenize(cmd, args, (*app.Gateway).HighlightTokens)
	},
}

func init() {
	for _, c := range []*cobra.Command{tokensCmd, highlightCmd} {
		c.Flags().IntVarP(&flagLang, "lang", "l", -1, "language id (default: detect from extension)")
		c.Flags().StringVarP(&flagFormat, "format", "f", formatTable, "output format: table, json, bin")
	}
}

func runTokenize(cmd *cobra.Command, args []string, tokenize func(*app.Gateway, []byte, int) []token.Token) error {
	format, err := parseFormat(flagFormat)
	if err != nil {
		return err
	}
	files, err := expandArgs(args)
	if err != nil {
		return err
	}

	gw, err := newGateway(cmd, nil)
	if err != nil {
		return err
	}
	defer gw.Close()
	log := zerolog.Ctx(cmd.Context())

	out := newTokenWriter(cmd.OutOrStdout(), format)
	for _, path := range files {
		id, err := langFor(gw.Registry, path, flagLang)
		if err != nil {
			return err
		}
		src, err := readSource(path)
		if err != nil {
			return err
		}
		tokens := tokenize(gw, src, id)
		log.Debug().Str("file", path).Int("lang", id).Int("tokens", len(tokens)).Msg("tokenized")
		if err := out.Write(path, src, tokens); err != nil {
			return err
		}
	}
	return out.Flush()
}

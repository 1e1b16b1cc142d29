package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/corey/tsgateway/internal/app"
)

// Persistent flags shared by every subcommand.
var (
	flagLogLevel string
	flagManifest string
	flagExtended bool
	flagCache    bool
)

var rootCmd = &cobra.Command{
	Use:   "tsgateway",
	Short: "tsgateway: tree-sitter token spans for external renderers",
	Long: `Tokenize source with tree-sitter grammars, either structurally (every leaf
node) or through per-language highlight queries, and print the spans.

Language ids: 0 rust, 1 c, 2 python, 3 odin (4 json with --extended).`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogger,
}

// projectRoot returns the project root (cwd by default).
func projectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return dir
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error); default from "+app.EnvLogLevel+" or warn")
	pf.StringVar(&flagManifest, "manifest", "", "grammar manifest to load (default .tsgateway/grammars.json)")
	pf.BoolVar(&flagExtended, "extended", false, "also register grammars beyond the reference set")
	pf.BoolVar(&flagCache, "cache", false, "cache token lists in .tsgateway/cache.db")

	rootCmd.AddCommand(tokensCmd)
	rootCmd.AddCommand(highlightCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(grammarCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stopCmd)
}

// loadConfig builds the gateway config: defaults, then environment, then flags.
func loadConfig() (app.Config, error) {
	root := projectRoot()
	cfg := app.DefaultConfig(root)
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if flagLogLevel != "" {
		lvl, err := zerolog.ParseLevel(strings.ToLower(flagLogLevel))
		if err != nil {
			return cfg, errors.Errorf("--log-level: %w", err)
		}
		cfg.LogLevel = lvl
	}
	if flagManifest != "" {
		cfg.Manifest = flagManifest
	}
	if flagExtended {
		cfg.Extended = true
	}
	if flagCache {
		paths := app.NewPaths(root)
		if err := paths.EnsureDirs(); err != nil {
			return cfg, errors.Errorf("create %s: %w", paths.Root, err)
		}
		cfg.CachePath = paths.Cache
	}
	return cfg, nil
}

// setupLogger stores a stderr logger in the command context.
func setupLogger(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel, isTTY(cmd.ErrOrStderr()))
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logger.WithContext(ctx))
	return nil
}

// newGateway builds the gateway for a command. mutate may adjust the config.
func newGateway(cmd *cobra.Command, mutate func(*app.Config)) (*app.Gateway, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg.Logger = *zerolog.Ctx(cmd.Context())
	if mutate != nil {
		mutate(&cfg)
	}
	return app.New(cfg)
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var grammarCmd = &cobra.Command{
	Use:   "grammar",
	Short: "Inspect registered tree-sitter grammars",
	Long:  "List registered grammars, check their highlight queries, and show where runtime grammars are loaded from.",
}

var grammarListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered and installed grammars",
	RunE:  runGrammarList,
}

var grammarCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Compile every highlight query and report failures",
	RunE:  runGrammarCheck,
}

var grammarPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show grammar search paths",
	RunE:  runGrammarPath,
}

func init() {
	grammarCmd.AddCommand(grammarListCmd)
	grammarCmd.AddCommand(grammarCheckCmd)
	grammarCmd.AddCommand(grammarPathCmd)
}

func runGrammarList(cmd *cobra.Command, args []string) error {
	gw, err := newGateway(cmd, nil)
	if err != nil {
		return err
	}
	defer gw.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nRegistered (%d languages)\n", gw.Registry.Len())
	fmt.Fprintln(out, strings.Repeat("─", 50))
	for _, id := range gw.Registry.IDs() {
		g, _ := gw.Registry.Resolve(id)
		query := "Q"
		if g.Query == "" {
			query = " "
		}
		fmt.Fprintf(out, "  %3d %s %-12s %s\n", id, query, g.Name, strings.Join(g.Extensions, " "))
	}

	installed := gw.Loader.InstalledGrammars()
	if len(installed) > 0 {
		fmt.Fprintf(out, "\nInstalled libraries (%d)\n", len(installed))
		fmt.Fprintln(out, strings.Repeat("─", 50))
		for _, name := range installed {
			fmt.Fprintf(out, "  %-14s %s\n", name, gw.Loader.GrammarPath(name))
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Q = has highlight query")
	fmt.Fprintf(out, "Search paths: %s\n", strings.Join(gw.Loader.SearchPaths(), ", "))
	return nil
}

func runGrammarCheck(cmd *cobra.Command, args []string) error {
	gw, err := newGateway(cmd, nil)
	if err != nil {
		return err
	}
	defer gw.Close()

	errs := multierr.Errors(gw.Registry.Check())
	for _, e := range errs {
		fmt.Fprintf(cmd.OutOrStdout(), "  FAIL %v\n", e)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d highlight queries failed to compile", len(errs), gw.Registry.Len())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "all %d grammars OK\n", gw.Registry.Len())
	return nil
}

func runGrammarPath(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	for _, p := range cfg.GrammarPaths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "manifest: %s\n", cfg.Manifest)
	return nil
}

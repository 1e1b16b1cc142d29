package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/corey/tsgateway/internal/adapters/fsnotify"
	"github.com/corey/tsgateway/internal/app"
	"github.com/corey/tsgateway/internal/domain/token"
	"github.com/corey/tsgateway/internal/ports"
)

var flagWatchHighlight bool

var watchCmd = &cobra.Command{
	Use:   "watch <file|glob>...",
	Short: "Re-tokenize files whenever they change",
	Long: `Watch files and print a token summary each time one is saved. Bursts of
writes are coalesced. Stop with Ctrl-C.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVarP(&flagLang, "lang", "l", -1, "language id (default: detect from extension)")
	watchCmd.Flags().BoolVar(&flagWatchHighlight, "highlight", false, "use highlight tokens instead of structural ones")
}

func runWatch(cmd *cobra.Command, args []string) error {
	files, err := expandArgs(args)
	if err != nil {
		return err
	}

	gw, err := newGateway(cmd, func(cfg *app.Config) { cfg.Dump = false })
	if err != nil {
		return err
	}
	defer gw.Close()
	log := zerolog.Ctx(cmd.Context())

	langs := make(map[string]int, len(files))
	for _, path := range files {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		id, err := langFor(gw.Registry, path, flagLang)
		if err != nil {
			return err
		}
		langs[abs] = id
	}

	tokenize := gw.Tokens
	mode := ports.ModeStructural
	if flagWatchHighlight {
		tokenize = gw.HighlightTokens
		mode = ports.ModeHighlight
	}

	var outMu sync.Mutex
	report := func(path string) {
		id := langs[path]
		src, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("watched file unreadable")
			return
		}
		tokens := tokenize(src, id)
		outMu.Lock()
		defer outMu.Unlock()
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d %s tokens%s\n", path, len(tokens), mode, canonicalSummary(tokens))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Stop()

	paths := make([]string, 0, len(langs))
	for abs := range langs {
		paths = append(paths, abs)
	}
	sort.Strings(paths)
	for _, abs := range paths {
		report(abs)
	}
	if err := watcher.Watch(paths, report); err != nil {
		return err
	}
	log.Info().Int("files", len(paths)).Msg("watching")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}

// canonicalSummary counts tokens with a canonical kind, e.g. " (12 keyword, 3 string)".
func canonicalSummary(tokens []token.Token) string {
	counts := make(map[uint16]int)
	var order []uint16
	for _, t := range tokens {
		if !token.IsCanonical(t.Kind) {
			continue
		}
		if counts[t.Kind] == 0 {
			order = append(order, t.Kind)
		}
		counts[t.Kind]++
	}
	if len(order) == 0 {
		return ""
	}
	s := " ("
	for i, k := range order {
		if i > 0 {
			s += ", "
		}
		name, _ := token.KindName(k)
		s += fmt.Sprintf("%d %s", counts[k], name)
	}
	return s + ")"
}

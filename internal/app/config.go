package app

import (
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"

	"github.com/corey/tsgateway/internal/adapters/treesitter"
)

// Environment overrides, applied on top of DefaultConfig.
const (
	EnvDump        = "TSGATEWAY_DUMP"         // bool: write parse dumps
	EnvDumpDir     = "TSGATEWAY_DUMP_DIR"     // dump directory
	EnvLogLevel    = "TSGATEWAY_LOG_LEVEL"    // zerolog level name
	EnvGrammarPath = "TSGATEWAY_GRAMMAR_PATH" // list of grammar library dirs, os.PathListSeparator
	EnvManifest    = "TSGATEWAY_MANIFEST"     // grammar manifest file
	EnvCache       = "TSGATEWAY_CACHE"        // token cache file; empty disables
	EnvExtended    = "TSGATEWAY_EXTENDED"     // bool: register grammars beyond the reference set
)

// Config holds everything needed to build a Gateway.
type Config struct {
	ProjectRoot string

	Dump    bool   // write parse dumps (default: true)
	DumpDir string // default: .tsgateway/out

	LogLevel zerolog.Level // default: warn

	GrammarPaths []string // search paths for runtime grammar libraries
	Manifest     string   // grammar manifest; a missing file is not an error
	Extended     bool     // also register compiled-in grammars beyond ids 0..3

	CachePath string // bbolt token cache; empty disables caching

	Fs     afero.Fs       // default: the OS filesystem
	Logger zerolog.Logger // default: disabled
}

// DefaultConfig returns the configuration for a project root.
func DefaultConfig(projectRoot string) Config {
	p := NewPaths(projectRoot)
	return Config{
		ProjectRoot:  projectRoot,
		Dump:         true,
		DumpDir:      p.OutDir,
		LogLevel:     zerolog.WarnLevel,
		GrammarPaths: treesitter.DefaultGrammarPaths(projectRoot),
		Manifest:     p.Manifest,
	}
}

// ApplyEnv overrides fields from environment variables read through lookup
// (normally os.LookupEnv). Malformed values are reported together and leave
// the field unchanged.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs error

	if v, ok := lookup(EnvDump); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = multierr.Append(errs, errors.Errorf("%s: %w", EnvDump, err))
		} else {
			c.Dump = b
		}
	}
	if v, ok := lookup(EnvDumpDir); ok && v != "" {
		c.DumpDir = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(v)))
		if err != nil {
			errs = multierr.Append(errs, errors.Errorf("%s: %w", EnvLogLevel, err))
		} else {
			c.LogLevel = lvl
		}
	}
	if v, ok := lookup(EnvGrammarPath); ok && v != "" {
		c.GrammarPaths = filepath.SplitList(v)
	}
	if v, ok := lookup(EnvManifest); ok {
		c.Manifest = v
	}
	if v, ok := lookup(EnvCache); ok {
		c.CachePath = v
	}
	if v, ok := lookup(EnvExtended); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = multierr.Append(errs, errors.Errorf("%s: %w", EnvExtended, err))
		} else {
			c.Extended = b
		}
	}
	return errs
}

// NewLogger builds the process logger. Console output is for humans at a
// terminal; otherwise one JSON object per line.
func NewLogger(w io.Writer, level zerolog.Level, console bool) zerolog.Logger {
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("service", "tsgateway").Logger()
}

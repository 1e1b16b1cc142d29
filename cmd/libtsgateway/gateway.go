package main

import (
	"os"
	"runtime/cgo"
	"sync"
	"unsafe"

	"github.com/rs/zerolog"

	"github.com/corey/tsgateway/internal/adapters/cbuf"
	"github.com/corey/tsgateway/internal/adapters/treesitter"
	"github.com/corey/tsgateway/internal/app"
)

// gateway is built on first use from the process environment and never torn down.
var gateway = sync.OnceValue(func() *app.Gateway {
	root, err := os.Getwd()
	if err != nil {
		root = "."
	}
	cfg := app.DefaultConfig(root)
	envErr := cfg.ApplyEnv(os.LookupEnv)
	cfg.Logger = app.NewLogger(os.Stderr, cfg.LogLevel, false)
	if envErr != nil {
		cfg.Logger.Warn().Err(envErr).Msg("ignoring malformed environment settings")
	}

	gw, err := app.New(cfg)
	if err != nil {
		cfg.Logger.Warn().Err(err).Str("path", cfg.CachePath).Msg("token cache disabled")
		cfg.CachePath = ""
		gw, err = app.New(cfg)
	}
	if err != nil {
		// Only the cache can fail construction, and it is off by now.
		gw = app.NewWithRegistry(treesitter.NewRegistry(), cfg.Logger)
	}
	return gw
})

// tokenBuffer tokenizes the C string at source and moves the tokens onto the
// C heap. Any failure, including a panic, yields (nil, 0).
func tokenBuffer(source unsafe.Pointer, id int, highlight bool) (ptr unsafe.Pointer, n int) {
	gw := gateway()
	defer recoverTo(gw.Logger(), "tokens", func() { ptr, n = nil, 0 })

	src := cbuf.GoBytes(source)
	if src == nil {
		return nil, 0
	}
	if highlight {
		return cbuf.Produce(gw.HighlightTokens(src, id))
	}
	return cbuf.Produce(gw.Tokens(src, id))
}

// parseHandle parses the C string at source. The tree comes back as a
// cgo.Handle (0 when parsing failed) and the s-expression as a C string.
// After a panic exactly one placeholder string is outstanding.
func parseHandle(source unsafe.Pointer, id int) (tree uintptr, sexpr unsafe.Pointer) {
	gw := gateway()
	var res *treesitter.ParseResult
	defer recoverTo(gw.Logger(), "parse", func() {
		if tree != 0 {
			cgo.Handle(tree).Delete()
		}
		res.Close()
		cbuf.FreeString(sexpr)
		tree, sexpr = 0, cbuf.CString(treesitter.PlaceholderParseFailed)
	})

	res = gw.Parse(cbuf.GoBytes(source), id)
	sexpr = cbuf.CString(res.SExpr)
	if onParsed != nil {
		onParsed(res)
	}
	if !res.OK() {
		return 0, sexpr
	}
	return uintptr(cgo.NewHandle(res)), sexpr
}

// onParsed, when set, sees every result after its s-expression is copied out.
var onParsed func(*treesitter.ParseResult)

// freeResult releases what parseHandle returned. Zero and nil are skipped.
func freeResult(tree uintptr, sexpr unsafe.Pointer) {
	if tree != 0 {
		h := cgo.Handle(tree)
		if res, ok := h.Value().(*treesitter.ParseResult); ok {
			res.Close()
		}
		h.Delete()
	}
	cbuf.FreeString(sexpr)
}

// recoverTo stops a panic at the C boundary, logs it and runs reset.
func recoverTo(log zerolog.Logger, op string, reset func()) {
	if r := recover(); r != nil {
		log.Error().Interface("panic", r).Str("op", op).Msg("recovered at C boundary")
		reset()
	}
}

package web

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"io/fs"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/corey/tsgateway/internal/adapters/render"
	"github.com/corey/tsgateway/internal/adapters/socket"
	"github.com/corey/tsgateway/internal/domain/token"
)

// maxBody bounds a request body.
const maxBody = 16 << 20

// Language describes one registered grammar for the preview page.
type Language struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Extensions []string `json:"extensions,omitempty"`
}

// Server serves the JSON API and the preview page over HTTP.
type Server struct {
	gw       socket.Gateway
	langs    []Language
	log      zerolog.Logger
	listener net.Listener
	httpSrv  *http.Server
	port     int
	started  time.Time
	stopOnce sync.Once
}

// NewServer creates an HTTP server backed by gw. langs is what the preview
// page offers.
func NewServer(gw socket.Gateway, langs []Language, log zerolog.Logger) *Server {
	return &Server{gw: gw, langs: langs, log: log}
}

// DefaultPort computes a project-specific port: 19000 + (hash(abs_path) % 1000).
func DefaultPort(projectRoot string) int {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		abs = projectRoot
	}
	h := sha256.Sum256([]byte(abs))
	n := uint32(h[0])<<24 | uint32(h[1])<<16 | uint32(h[2])<<8 | uint32(h[3])
	return 19000 + int(n%1000)
}

// Handler returns the routes without binding a listener.
func (s *Server) Handler() http.Handler {
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err) // embedded at build time
	}
	mux := http.NewServeMux()
	mux.Handle("GET /", http.FileServerFS(static))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/languages", s.handleLanguages)
	mux.HandleFunc("POST /api/tokens", s.tokensHandler(s.gw.Tokens))
	mux.HandleFunc("POST /api/highlight", s.tokensHandler(s.gw.HighlightTokens))
	mux.HandleFunc("POST /api/parse", s.handleParse)
	mux.HandleFunc("POST /api/render", s.handleRender)
	return mux
}

// Start begins listening on 127.0.0.1 at the preferred port (0 picks one).
func (s *Server) Start(preferredPort int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", preferredPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	s.port = ln.Addr().(*net.TCPAddr).Port
	s.started = time.Now()
	s.httpSrv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("http server stopped")
		}
	}()
	s.log.Info().Str("url", s.URL()).Msg("http listening")
	return nil
}

// Stop gracefully shuts down the HTTP server. Idempotent.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if s.httpSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.httpSrv.Shutdown(ctx)
		}
	})
}

// Port returns the bound port number.
func (s *Server) Port() int {
	return s.port
}

// URL returns the preview page URL.
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.port)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// readSource returns the request body and the ?lang= id.
func readSource(w http.ResponseWriter, r *http.Request) ([]byte, int, bool) {
	lang, err := strconv.Atoi(r.URL.Query().Get("lang"))
	if err != nil {
		http.Error(w, `{"error":"lang query parameter must be an integer"}`, http.StatusBadRequest)
		return nil, 0, false
	}
	src, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		http.Error(w, `{"error":"request body too large or unreadable"}`, http.StatusRequestEntityTooLarge)
		return nil, 0, false
	}
	return src, lang, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, socket.HealthResult{
		Status:    "ok",
		Languages: s.gw.Languages(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.langs)
}

func (s *Server) tokensHandler(run func([]byte, int) []token.Token) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src, lang, ok := readSource(w, r)
		if !ok {
			return
		}
		tokens := run(src, lang)
		out := socket.TokensResult{Tokens: make([][3]uint32, len(tokens)), Count: len(tokens)}
		for i, t := range tokens {
			out.Tokens[i] = [3]uint32{t.Start, t.End, uint32(t.Kind)}
		}
		writeJSON(w, out)
	}
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	src, lang, ok := readSource(w, r)
	if !ok {
		return
	}
	res := s.gw.Parse(src, lang)
	defer res.Close()
	writeJSON(w, socket.ParseResult{SExpr: res.SExpr, OK: res.OK(), HasErrors: res.HasError()})
}

// handleRender returns the source as HTML with one span per resolved
// highlight segment, classed tk-{kind}.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	src, lang, ok := readSource(w, r)
	if !ok {
		return
	}
	tokens := s.gw.HighlightTokens(src, lang)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Token-Count", strconv.Itoa(len(tokens)))
	io.WriteString(w, renderHTML(src, tokens))
}

func renderHTML(src []byte, tokens []token.Token) string {
	var b strings.Builder
	for _, seg := range render.Resolve(src, tokens) {
		text := html.EscapeString(string(src[seg.Start:seg.End]))
		name, ok := token.KindName(seg.Kind)
		if !ok {
			b.WriteString(text)
			continue
		}
		fmt.Fprintf(&b, `<span class="tk-%s">%s</span>`, strings.ReplaceAll(name, ".", "_"), text)
	}
	return b.String()
}

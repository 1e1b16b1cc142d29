package socket

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/corey/tsgateway/internal/adapters/treesitter"
	"github.com/corey/tsgateway/internal/domain/token"
)

// Gateway is what the server needs from the application layer.
// Implementations must be safe for concurrent use.
type Gateway interface {
	Tokens(src []byte, id int) []token.Token
	HighlightTokens(src []byte, id int) []token.Token
	Parse(src []byte, id int) *treesitter.ParseResult
	DumpPath(id int) string
	Languages() []int
}

// Server listens on a Unix socket and answers tokenization requests.
type Server struct {
	gw       Gateway
	log      zerolog.Logger
	listener net.Listener
	sockPath string
	started  time.Time
	requests atomic.Int64
	rate     *RateTracker

	done         chan struct{}
	shutdownCh   chan struct{} // closed when a remote shutdown request is received
	shutdownOnce sync.Once
	stopOnce     sync.Once
	wg           sync.WaitGroup

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

// NewServer creates a server backed by gw.
func NewServer(gw Gateway, sockPath string, log zerolog.Logger) *Server {
	return &Server{
		gw:         gw,
		log:        log,
		sockPath:   sockPath,
		rate:       NewRateTracker(10 * time.Minute),
		done:       make(chan struct{}),
		shutdownCh: make(chan struct{}),
		conns:      make(map[net.Conn]struct{}),
	}
}

// Start begins listening on the Unix socket. A socket file nobody answers on
// is treated as stale and replaced.
func (s *Server) Start() error {
	if _, err := os.Stat(s.sockPath); err == nil {
		conn, err := net.DialTimeout("unix", s.sockPath, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return errors.Errorf("server already running at %s", s.sockPath)
		}
		os.Remove(s.sockPath)
	}

	ln, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return errors.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.started = time.Now()

	s.wg.Add(1)
	go s.acceptLoop()

	s.log.Info().Str("socket", s.sockPath).Msg("listening")
	return nil
}

// Stop closes the listener and every open connection, waits for in-flight
// requests and removes the socket file. Idempotent.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			s.listener.Close()
		}
		s.connMu.Lock()
		for conn := range s.conns {
			conn.Close()
		}
		s.connMu.Unlock()
		s.wg.Wait()
		os.Remove(s.sockPath)
	})
	return nil
}

// ShutdownCh is closed when a client sends a shutdown request. The owner
// selects on it alongside OS signals and then calls Stop.
func (s *Server) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// Addr returns the socket path the server is listening on.
func (s *Server) Addr() string {
	return s.sockPath
}

// Accept failures back off from minBackoff, doubling up to maxBackoff.
const (
	minBackoff = 5 * time.Millisecond
	maxBackoff = time.Second
)

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	var backoff time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			backoff = nextBackoff(backoff)
			s.log.Warn().Err(err).Dur("retry", backoff).Msg("accept failed")
			select {
			case <-s.done:
				return
			case <-time.After(backoff):
			}
			continue
		}
		backoff = 0
		if !s.track(conn) {
			conn.Close()
			continue
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return minBackoff
	}
	if d *= 2; d > maxBackoff {
		return maxBackoff
	}
	return d
}

// track registers an open connection so Stop can close it. It refuses new
// connections once Stop has begun.
func (s *Server) track(conn net.Conn) bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	select {
	case <-s.done:
		return false
	default:
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.connMu.Lock()
	delete(s.conns, conn)
	s.connMu.Unlock()
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxMessage)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(conn, Response{Error: "invalid request JSON"})
			continue
		}

		s.requests.Add(1)
		resp := s.handleRequest(req)
		s.writeResponse(conn, resp)

		if req.Method == MethodShutdown {
			s.shutdownOnce.Do(func() { close(s.shutdownCh) })
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.log.Debug().Err(err).Msg("connection closed")
	}
}

func (s *Server) handleRequest(req Request) Response {
	switch req.Method {
	case MethodTokens:
		return s.handleTokens(req, s.gw.Tokens)
	case MethodHighlight:
		return s.handleTokens(req, s.gw.HighlightTokens)
	case MethodParse:
		return s.handleParse(req)
	case MethodClassify:
		return s.handleClassify(req)
	case MethodHealth:
		return s.handleHealth(req)
	case MethodShutdown:
		return Response{ID: req.ID, Result: struct{}{}}
	default:
		return Response{ID: req.ID, Error: fmt.Sprintf("unknown method: %s", req.Method)}
	}
}

// decodeParams re-marshals the generic params into dst.
func decodeParams(req Request, dst interface{}) error {
	data, err := json.Marshal(req.Params)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func (s *Server) handleTokens(req Request, run func([]byte, int) []token.Token) Response {
	var params SourceParams
	if err := decodeParams(req, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid " + req.Method + " params"}
	}
	start := time.Now()
	tokens := run(params.Source, params.Lang)
	s.rate.Record(time.Since(start), len(params.Source))
	return Response{ID: req.ID, Result: encodeTokens(tokens)}
}

func (s *Server) handleParse(req Request) Response {
	var params SourceParams
	if err := decodeParams(req, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid parse params"}
	}
	start := time.Now()
	res := s.gw.Parse(params.Source, params.Lang)
	defer res.Close()
	s.rate.Record(time.Since(start), len(params.Source))

	out := ParseResult{SExpr: res.SExpr, OK: res.OK(), HasErrors: res.HasError()}
	if out.OK {
		out.DumpPath = s.gw.DumpPath(params.Lang)
	}
	return Response{ID: req.ID, Result: out}
}

func (s *Server) handleClassify(req Request) Response {
	var params ClassifyParams
	if err := decodeParams(req, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid classify params"}
	}
	out := ClassifyResult{Kinds: make(map[string]uint16, len(params.Names))}
	for _, name := range params.Names {
		out.Kinds[name] = token.Classify(name)
	}
	return Response{ID: req.ID, Result: out}
}

func (s *Server) handleHealth(req Request) Response {
	return Response{ID: req.ID, Result: HealthResult{
		Status:    "ok",
		Languages: s.gw.Languages(),
		Requests:  s.requests.Load(),
		UsPerKiB:  s.rate.MicrosPerKiB(),
		Uptime:    time.Since(s.started).Truncate(time.Second).String(),
	}}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Warn().Err(err).Str("id", resp.ID).Msg("response not encodable")
		return
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		s.log.Debug().Err(err).Msg("response not delivered")
	}
}

// Package socket serves the gateway over a Unix socket for callers that cannot
// load the shared library. The protocol is newline-delimited JSON: each
// message is one JSON object followed by \n.
package socket

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"

	"github.com/corey/tsgateway/internal/domain/token"
)

// SocketPath returns the Unix socket path for a given project root.
// Format: /tmp/tsgateway-{first12hex}.sock
func SocketPath(projectRoot string) string {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		abs = projectRoot
	}
	h := sha256.Sum256([]byte(abs))
	return fmt.Sprintf("/tmp/tsgateway-%x.sock", h[:6])
}

// Method names for the protocol.
const (
	MethodTokens    = "tokens"
	MethodHighlight = "highlight"
	MethodParse     = "parse"
	MethodClassify  = "classify"
	MethodHealth    = "health"
	MethodShutdown  = "shutdown"
)

// maxMessage bounds one request or response line.
const maxMessage = 16 << 20

// Request is the wire format for client-to-server messages.
type Request struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Response is the wire format for server-to-client messages.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// SourceParams is the params for tokens, highlight and parse. Source travels
// as base64 so non-UTF-8 input reaches the tokenizer unchanged.
type SourceParams struct {
	Source []byte `json:"source"`
	Lang   int    `json:"lang"`
}

// TokensResult is the result of a tokens or highlight request. Each token is
// [start, end, kind].
type TokensResult struct {
	Tokens [][3]uint32 `json:"tokens"`
	Count  int         `json:"count"`
}

// ParseResult is the result of a parse request. OK is false when SExpr is a
// placeholder.
type ParseResult struct {
	SExpr     string `json:"sexpr"`
	OK        bool   `json:"ok"`
	HasErrors bool   `json:"has_errors,omitempty"`
	DumpPath  string `json:"dump_path,omitempty"`
}

// ClassifyParams is the params for a classify request.
type ClassifyParams struct {
	Names []string `json:"names"`
}

// ClassifyResult maps each requested name to its kind code.
type ClassifyResult struct {
	Kinds map[string]uint16 `json:"kinds"`
}

// HealthResult is the result of a health request.
type HealthResult struct {
	Status    string  `json:"status"`
	Languages []int   `json:"languages"`
	Requests  int64   `json:"requests"`
	UsPerKiB  float64 `json:"us_per_kib,omitempty"` // median tokenize time per KiB of source
	Uptime    string  `json:"uptime"`
}

func encodeTokens(tokens []token.Token) TokensResult {
	out := TokensResult{Tokens: make([][3]uint32, len(tokens)), Count: len(tokens)}
	for i, t := range tokens {
		out.Tokens[i] = [3]uint32{t.Start, t.End, uint32(t.Kind)}
	}
	return out
}

// Decode converts the wire form back into tokens.
func (r TokensResult) Decode() []token.Token {
	tokens := make([]token.Token, len(r.Tokens))
	for i, t := range r.Tokens {
		tokens[i] = token.Token{Start: t[0], End: t[1], Kind: uint16(t[2])}
	}
	return tokens
}

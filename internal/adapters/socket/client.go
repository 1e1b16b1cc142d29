package socket

import (
	"bufio"
	"encoding/json"
	"net"
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/corey/tsgateway/internal/domain/token"
)

// Client talks to a tsgateway server over a Unix socket.
type Client struct {
	sockPath string
}

// NewClient creates a client that will connect to the given socket path.
func NewClient(sockPath string) *Client {
	return &Client{sockPath: sockPath}
}

// Tokens requests structural tokens for src.
func (c *Client) Tokens(src []byte, lang int) ([]token.Token, error) {
	return c.tokens(MethodTokens, src, lang)
}

// Highlight requests highlight tokens for src.
func (c *Client) Highlight(src []byte, lang int) ([]token.Token, error) {
	return c.tokens(MethodHighlight, src, lang)
}

func (c *Client) tokens(method string, src []byte, lang int) ([]token.Token, error) {
	var result TokensResult
	if err := c.do(method, SourceParams{Source: src, Lang: lang}, &result); err != nil {
		return nil, err
	}
	return result.Decode(), nil
}

// Parse requests the s-expression for src.
func (c *Client) Parse(src []byte, lang int) (*ParseResult, error) {
	var result ParseResult
	if err := c.do(MethodParse, SourceParams{Source: src, Lang: lang}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Classify requests kind codes for capture or node names.
func (c *Client) Classify(names ...string) (map[string]uint16, error) {
	var result ClassifyResult
	if err := c.do(MethodClassify, ClassifyParams{Names: names}, &result); err != nil {
		return nil, err
	}
	return result.Kinds, nil
}

// Health sends a health check request.
func (c *Client) Health() (*HealthResult, error) {
	var result HealthResult
	if err := c.do(MethodHealth, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Shutdown asks the server to exit.
func (c *Client) Shutdown() error {
	_, err := c.call(Request{ID: "1", Method: MethodShutdown})
	return err
}

// Ping checks if the server is reachable.
func (c *Client) Ping() bool {
	conn, err := net.DialTimeout("unix", c.sockPath, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// do sends one request and decodes its result into dst.
func (c *Client) do(method string, params, dst interface{}) error {
	resp, err := c.call(Request{ID: "1", Method: method, Params: params})
	if err != nil {
		return err
	}
	data, err := json.Marshal(resp.Result)
	if err != nil {
		return errors.Errorf("marshal result: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errors.Errorf("unmarshal result: %w", err)
	}
	return nil
}

func (c *Client) call(req Request) (*Response, error) {
	return c.callWithTimeout(req, 5*time.Second)
}

func (c *Client) callWithTimeout(req Request, timeout time.Duration) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.sockPath, 2*time.Second)
	if err != nil {
		return nil, errors.Errorf("connect: %w", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(timeout))

	data, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Errorf("marshal request: %w", err)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return nil, errors.Errorf("write: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxMessage)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, errors.Errorf("read: %w", err)
		}
		return nil, errors.New("empty response")
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, errors.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != "" {
		return nil, errors.Errorf("server error: %s", resp.Error)
	}
	return &resp, nil
}

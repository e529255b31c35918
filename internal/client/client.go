// Package client is a typed wrapper over the exam platform's REST API.
//
// Every Client value carries its own credentials. Clone one with As to act
// as another user; nothing is shared through globals.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/DanixMP/Azmooneh/internal/auth"
	"github.com/DanixMP/Azmooneh/internal/response"
	"github.com/DanixMP/Azmooneh/internal/validator"
	"github.com/rs/zerolog"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// Client talks to one backend with one set of credentials.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  auth.TokenSource
	log     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithTokenSource sets the credentials used for authenticated calls.
func WithTokenSource(src auth.TokenSource) Option {
	return func(c *Client) { c.tokens = src }
}

// WithLogger sets the logger. The client logs every request at debug level.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log.With().Str("component", "api_client").Logger() }
}

// New creates a client for the API rooted at baseURL,
// e.g. "http://localhost:8000/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// As returns a copy of the client that authenticates with src.
func (c *Client) As(src auth.TokenSource) *Client {
	cp := *c
	cp.tokens = src
	return &cp
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// ────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ────────────────────────────────────────────────────────────────────────────

// call describes one request.
type call struct {
	method string
	path   string
	body   interface{}
	out    interface{}
	anon   bool // send without Authorization
}

// check validates an outgoing payload.
func check(v interface{}) error {
	if fields := validator.Struct(v); len(fields) > 0 {
		e := response.New(response.ErrValidation)
		e.Fields = fields
		return e
	}
	return nil
}

func (c *Client) do(ctx context.Context, cl call) error {
	reqID := response.NewRequestID()

	var body io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", cl.method, cl.path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", cl.method, cl.path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", acceptEncoding)
	req.Header.Set(response.HeaderRequestID, reqID)
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if !cl.anon {
		if c.tokens == nil {
			return response.New(response.ErrUnauthorized)
		}
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("get token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", cl.method, cl.path, ctxErr)
		}
		c.log.Debug().Err(err).Str("request_id", reqID).Str("method", cl.method).Str("path", cl.path).Msg("Request failed")
		return response.NewNetworkError(err, reqID)
	}
	defer resp.Body.Close()

	if id := resp.Header.Get(response.HeaderRequestID); id != "" {
		reqID = id
	}

	data, err := readBody(resp)

	c.log.Debug().
		Str("request_id", reqID).
		Str("method", cl.method).
		Str("path", cl.path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("API request")

	if err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return response.FromHTTP(resp.StatusCode, nil, reqID)
		}
		return response.NewDecodeError(resp.StatusCode, err, reqID)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return response.FromHTTP(resp.StatusCode, data, reqID)
	}

	if cl.out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, cl.out); err != nil {
			return response.NewDecodeError(resp.StatusCode, err, reqID)
		}
	}
	return nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Configuration constants for the Solace API.
const (
	// DefaultTimeout is the default timeout for non-streaming API requests.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed response body size for
	// non-streaming reads.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

var (
	// sharedHTTPClient serves plain request/response calls.
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient serves streaming requests (no timeout,
	// lifetime controlled via context).
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured indicates the server URL or credential is not set.
	ErrNotConfigured = errors.New("backend not configured")

	// ErrStreamActive indicates the conversation already has a response
	// in flight.
	ErrStreamActive = errors.New("conversation already streaming")
)

// TransportError wraps a network-level failure reaching the server.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServerError is a non-2xx response or an explicit error frame.
type ServerError struct {
	Status  int // 0 for in-stream error frames
	Message string
}

func (e *ServerError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("server error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server error: %s", e.Message)
}

// ProtocolError is a frame the client could not interpret. Individual
// malformed frames are skipped; ProtocolError surfaces only when the
// whole response is unusable.
type ProtocolError struct {
	Line string
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error on %q: %v", e.Line, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// =============================================================================
// CLIENT
// =============================================================================

// TokenProvider returns the current bearer credential. Indirection lets a
// hot-reloaded config feed fresh tokens to in-flight clients.
type TokenProvider func() string

// Client holds connection parameters for the Solace server. Construct with
// NewClient and the With* builders.
type Client struct {
	baseURL string
	token   TokenProvider
	logger  *slog.Logger
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   func() string { return "" },
		logger:  logger.With("component", "backend"),
	}
}

// WithToken sets a static bearer credential.
func (c *Client) WithToken(token string) *Client {
	c.token = func() string { return token }
	return c
}

// WithTokenProvider sets a dynamic bearer credential source.
func (c *Client) WithTokenProvider(provider TokenProvider) *Client {
	if provider != nil {
		c.token = provider
	}
	return c
}

// IsConfigured returns true when the client can make requests.
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.token() != ""
}

// BaseURL returns the configured server base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Authorize applies the bearer credential and standard headers to a
// request built outside this package.
func (c *Client) Authorize(req *http.Request) {
	c.setHeaders(req)
}

// AuthHeader returns headers carrying the bearer credential, for
// transports that dial outside net/http.
func (c *Client) AuthHeader() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.token())
	h.Set("User-Agent", "solace-tui")
	return h
}

// Do sends a non-streaming request on the shared pooled client.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return sharedHTTPClient.Do(req)
}

// setHeaders applies the standard headers to an outgoing request.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token())
	req.Header.Set("User-Agent", "solace-tui")
}

// handleErrorResponse converts a non-2xx response into a ServerError,
// capping how much of the body is kept.
func (c *Client) handleErrorResponse(status int, body io.Reader) error {
	raw, _ := io.ReadAll(io.LimitReader(body, 4096))
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &ServerError{Status: status, Message: msg}
}

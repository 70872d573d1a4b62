// Package remote talks to the trading backend over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/krisalay/resilient-client/types"
)

// IdempotencyHeader carries the action ID on every write so a replayed
// action the backend already applied is recognised as a duplicate.
const IdempotencyHeader = "Idempotency-Key"

// StatusError is a non-2xx response.
type StatusError struct {
	Method   string
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Endpoint, e.Code, e.Body)
}

// Retriable reports whether sending the same request later may succeed.
func (e *StatusError) Retriable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

type Option func(*HTTPExecutor)

// WithHTTPClient replaces the default client. Its Timeout wins over the
// executor's.
func WithHTTPClient(c *http.Client) Option {
	return func(e *HTTPExecutor) { e.client = c }
}

// WithHeader adds a header to every request (e.g. Authorization).
func WithHeader(key, value string) Option {
	return func(e *HTTPExecutor) { e.headers.Set(key, value) }
}

/*
HTTPExecutor delivers QueuedActions and fetches read endpoints.

Endpoints are joined to baseURL. Request and response bodies are JSON; a
response that is not JSON is returned as a string, an empty one as nil.
*/
type HTTPExecutor struct {
	baseURL string
	client  *http.Client
	headers http.Header
	logger  *zap.Logger
}

func NewHTTPExecutor(baseURL string, timeout time.Duration, logger *zap.Logger, opts ...Option) *HTTPExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &HTTPExecutor{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		headers: make(http.Header),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *HTTPExecutor) Execute(ctx context.Context, action types.QueuedAction) (any, error) {
	var body io.Reader
	if len(action.Payload) > 0 {
		body = bytes.NewReader(action.Payload)
	}
	req, err := e.newRequest(ctx, action.Method, action.Endpoint, body)
	if err != nil {
		return nil, err
	}
	if action.ID != "" {
		req.Header.Set(IdempotencyHeader, action.ID)
	}
	return e.do(req)
}

// Fetcher returns a GET of endpoint for use on the read path.
func (e *HTTPExecutor) Fetcher(endpoint string) types.Fetcher {
	return func(ctx context.Context) (any, error) {
		req, err := e.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		return e.do(req)
	}
}

func (e *HTTPExecutor) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	if method == "" {
		method = http.MethodPost
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, endpoint, err)
	}
	for k, vs := range e.headers {
		req.Header[k] = vs
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (e *HTTPExecutor) do(req *http.Request) (any, error) {
	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", req.Method, req.URL.Path, err)
	}

	e.logger.Debug("remote call",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Method:   req.Method,
			Endpoint: req.URL.Path,
			Code:     resp.StatusCode,
			Body:     strings.TrimSpace(string(raw)),
		}
	}
	return decode(raw), nil
}

func decode(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

// HTTP implements Transport over HTTP JSON-RPC.
type HTTP struct {
	url    string
	client *http.Client
	header http.Header
	nextID atomic.Uint64
}

// HTTPOption configures an HTTP transport.
type HTTPOption func(*HTTP)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		if c != nil {
			h.client = c
		}
	}
}

// WithStaticHeader sets a header sent on every request.
func WithStaticHeader(key, value string) HTTPOption {
	return func(h *HTTP) {
		h.header.Set(key, value)
	}
}

// NewHTTP creates an HTTP transport targeting the given JSON-RPC endpoint.
func NewHTTP(url string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		url:    url,
		client: &http.Client{},
		header: make(http.Header),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// URL returns the endpoint this transport posts to.
func (h *HTTP) URL() string {
	return h.url
}

// Call sends an HTTP JSON-RPC request and returns the result bytes.
// Headers attached to ctx with WithHeader override static headers.
func (h *HTTP) Call(ctx context.Context, method string, params ...any) ([]byte, error) {
	body, err := json.Marshal(newRequest(h.nextID.Add(1), method, params))
	if err != nil {
		return nil, fmt.Errorf("transport/http: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("transport/http: create request: %w", err)
	}
	for k, v := range h.header {
		httpReq.Header[k] = v
	}
	for k, v := range HeaderFromContext(ctx) {
		httpReq.Header[k] = v
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transport/http: send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transport/http: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body := string(respBody)
		if len(body) > 256 {
			body = body[:256]
		}
		return nil, fmt.Errorf("transport/http: HTTP %d: %s", resp.StatusCode, body)
	}

	var rpcResp jsonRPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("transport/http: unmarshal response (status %d): %w", resp.StatusCode, err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}

// ErrSubscribeUnsupported is returned by HTTP.Subscribe.
var ErrSubscribeUnsupported = errors.New("transport/http: subscriptions not supported over HTTP")

// Subscribe is not supported over HTTP and always returns ErrSubscribeUnsupported.
func (h *HTTP) Subscribe(_ context.Context, _ string, _ ...any) (<-chan []byte, func(), error) {
	return nil, nil, ErrSubscribeUnsupported
}

// Close releases idle connections held by the underlying client.
func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

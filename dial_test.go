package rpcware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/hedeqiang/rpcware"
	"github.com/hedeqiang/rpcware/config"
	"github.com/hedeqiang/rpcware/middleware"
)

type seenRequest struct {
	Method string
	Header http.Header
}

func newNode(t *testing.T) (*httptest.Server, func() []seenRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []seenRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			ID     uint64 `json:"id"`
			Method string `json:"method"`
		}
		_ = json.Unmarshal(body, &req)

		mu.Lock()
		seen = append(seen, seenRequest{Method: req.Method, Header: r.Header.Clone()})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": "0x1"})
	}))
	t.Cleanup(srv.Close)

	return srv, func() []seenRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]seenRequest(nil), seen...)
	}
}

func TestDial_ConfiguredStack(t *testing.T) {
	srv, seen := newNode(t)

	cfg := config.Default()
	cfg.Endpoint = srv.URL
	cfg.Headers = map[string]string{"X-Api-Key": "k1"}
	cfg.BearerToken = "secret"
	cfg.Middleware.Metrics = true
	cfg.Middleware.AllowMethods = []string{"eth_chainId"}
	cfg.Middleware.CircuitBreaker.Enabled = true
	cfg.Middleware.RateLimit.Enabled = true
	cfg.Middleware.RateLimit.RequestsPerSecond = 1000

	var logs bytes.Buffer
	reg := prometheus.NewRegistry()
	inner := middleware.NewMetrics()

	c, err := rpcware.Dial(cfg,
		rpcware.WithLogger(zerolog.New(&logs).Level(zerolog.DebugLevel)),
		rpcware.WithRegisterer(reg),
		rpcware.WithMiddleware(inner),
	)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	res, err := c.Call(context.Background(), "eth_chainId")
	if err != nil || string(res) != `"0x1"` {
		t.Fatalf("Call() = %s, %v", res, err)
	}

	_, err = c.Call(context.Background(), "eth_sendRawTransaction", "0x00")
	if !errors.Is(err, middleware.ErrMethodNotAllowed) {
		t.Fatalf("error = %v, want ErrMethodNotAllowed", err)
	}

	reqs := seen()
	if len(reqs) != 1 {
		t.Fatalf("node saw %d requests, want 1", len(reqs))
	}
	h := reqs[0].Header
	if h.Get("Authorization") != "Bearer secret" || h.Get("X-Api-Key") != "k1" {
		t.Errorf("headers = %v", h)
	}
	if len(h.Get(middleware.RequestIDHeader)) != 36 {
		t.Errorf("X-Request-ID = %q", h.Get(middleware.RequestIDHeader))
	}

	if inner.Calls() != 1 {
		t.Errorf("innermost middleware saw %d calls, want 1", inner.Calls())
	}

	if !strings.Contains(logs.String(), `"method":"eth_chainId"`) || !strings.Contains(logs.String(), "method not allowed") {
		t.Errorf("logs = %s", logs.String())
	}

	count, err := testutil.GatherAndCount(reg, "rpcware_rpc_requests_total")
	if err != nil || count != 2 {
		t.Errorf("requests_total series = %d, %v; want 2", count, err)
	}
}

func TestDial_Errors(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		want     error
	}{
		{"missing", "", rpcware.ErrMissingEndpoint},
		{"scheme", "ftp://node.example.org", rpcware.ErrUnsupportedScheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Endpoint = tt.endpoint
			if _, err := rpcware.Dial(cfg); !errors.Is(err, tt.want) {
				t.Errorf("Dial() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDial_DuplicateMetricsRegistration(t *testing.T) {
	cfg := config.Default()
	cfg.Endpoint = "http://127.0.0.1:8545"
	cfg.Middleware.Metrics = true
	reg := prometheus.NewRegistry()

	if _, err := rpcware.Dial(cfg, rpcware.WithRegisterer(reg)); err != nil {
		t.Fatalf("first Dial() error = %v", err)
	}
	if _, err := rpcware.Dial(cfg, rpcware.WithRegisterer(reg)); err == nil {
		t.Error("expected registration conflict on second Dial")
	}
}

func TestDial_WebSocketIsLazy(t *testing.T) {
	cfg := config.Default()
	cfg.Endpoint = "ws://127.0.0.1:1"
	cfg.Middleware.Logging = false

	c, err := rpcware.Dial(cfg)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

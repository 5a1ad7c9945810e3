package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "rpcware.yaml", `
endpoint: https://rpc.example.org
timeout: 5s
bearer_token: tok
headers:
  x-api-key: abc
log:
  level: debug
  format: console
middleware:
  tracing: true
  metrics: true
  timeout: 2s
  allow_methods: [eth_chainId, eth_blockNumber]
  rate_limit:
    enabled: true
    requests_per_second: 25
    burst: 5
    wait: true
  circuit_breaker:
    enabled: true
    threshold: 3
    reset_timeout: 1m
`)

	cfg, err := Load(LoadOptions{ConfigFile: path, EnvFile: writeFile(t, ".env", "")})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Endpoint != "https://rpc.example.org" || cfg.Timeout != 5*time.Second || cfg.BearerToken != "tok" {
		t.Errorf("top-level = %+v", cfg)
	}
	if cfg.Headers["x-api-key"] != "abc" {
		t.Errorf("headers = %v", cfg.Headers)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "console" || cfg.Log.Output != "stderr" {
		t.Errorf("log = %+v", cfg.Log)
	}

	m := cfg.Middleware
	if !m.RequestID || !m.Logging || !m.Tracing || !m.Metrics {
		t.Errorf("toggles = %+v", m)
	}
	if m.Timeout != 2*time.Second {
		t.Errorf("middleware timeout = %v", m.Timeout)
	}
	if !reflect.DeepEqual(m.AllowMethods, []string{"eth_chainId", "eth_blockNumber"}) {
		t.Errorf("allow_methods = %v", m.AllowMethods)
	}
	if !m.RateLimit.Enabled || m.RateLimit.RequestsPerSecond != 25 || m.RateLimit.Burst != 5 || !m.RateLimit.Wait {
		t.Errorf("rate_limit = %+v", m.RateLimit)
	}
	if !m.CircuitBreaker.Enabled || m.CircuitBreaker.Threshold != 3 || m.CircuitBreaker.ResetTimeout != time.Minute {
		t.Errorf("circuit_breaker = %+v", m.CircuitBreaker)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "rpcware.yaml", "endpoint: https://file.example.org\n")
	t.Setenv("RPCWARE_ENDPOINT", "wss://env.example.org")
	t.Setenv("RPCWARE_MIDDLEWARE_TIMEOUT", "750ms")
	t.Setenv("RPCWARE_MIDDLEWARE_RATE_LIMIT_ENABLED", "true")
	t.Setenv("RPCWARE_LOG_LEVEL", "warn")

	cfg, err := Load(LoadOptions{ConfigFile: path, EnvFile: writeFile(t, ".env", "")})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Endpoint != "wss://env.example.org" {
		t.Errorf("endpoint = %q", cfg.Endpoint)
	}
	if cfg.Middleware.Timeout != 750*time.Millisecond {
		t.Errorf("timeout = %v", cfg.Middleware.Timeout)
	}
	if !cfg.Middleware.RateLimit.Enabled || cfg.Middleware.RateLimit.RequestsPerSecond != 10 {
		t.Errorf("rate_limit = %+v", cfg.Middleware.RateLimit)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	env := writeFile(t, "custom.env", "RPCWARE_ENDPOINT=http://localhost:8545\nRPCWARE_BEARER_TOKEN=from-dotenv\n")
	t.Setenv("RPCWARE_ENDPOINT", "")
	os.Unsetenv("RPCWARE_ENDPOINT")
	t.Cleanup(func() { os.Unsetenv("RPCWARE_BEARER_TOKEN") })

	cfg, err := Load(LoadOptions{EnvFile: env})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Endpoint != "http://localhost:8545" || cfg.BearerToken != "from-dotenv" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts func(t *testing.T) LoadOptions
		want string
	}{
		{
			name: "missing file",
			opts: func(t *testing.T) LoadOptions {
				return LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")}
			},
			want: "config: read",
		},
		{
			name: "missing env file",
			opts: func(t *testing.T) LoadOptions {
				return LoadOptions{EnvFile: filepath.Join(t.TempDir(), "nope.env")}
			},
			want: "config: load env file",
		},
		{
			name: "missing endpoint",
			opts: func(t *testing.T) LoadOptions {
				return LoadOptions{ConfigFile: writeFile(t, "c.yaml", "timeout: 1s\n")}
			},
			want: "Config.Endpoint",
		},
		{
			name: "bad log level",
			opts: func(t *testing.T) LoadOptions {
				return LoadOptions{ConfigFile: writeFile(t, "c.yaml", "endpoint: http://x\nlog:\n  level: loud\n")}
			},
			want: "Config.Log.Level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts(t)
			if opts.EnvFile == "" {
				opts.EnvFile = writeFile(t, ".env", "")
			}
			_, err := Load(opts)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults with endpoint", func(*Config) {}, true},
		{"websocket endpoint", func(c *Config) { c.Endpoint = "wss://node.example.org/ws" }, true},
		{"not a url", func(c *Config) { c.Endpoint = "node" }, false},
		{"rate limit without rate", func(c *Config) {
			c.Middleware.RateLimit.Enabled = true
			c.Middleware.RateLimit.RequestsPerSecond = 0
		}, false},
		{"breaker without threshold", func(c *Config) {
			c.Middleware.CircuitBreaker.Enabled = true
			c.Middleware.CircuitBreaker.Threshold = 0
		}, false},
		{"negative timeout", func(c *Config) { c.Middleware.Timeout = -time.Second }, false},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Endpoint = "https://rpc.example.org"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() error = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestLoad_Overrides(t *testing.T) {
	path := writeFile(t, "rpcware.toml", "endpoint = \"https://file.example.org\"\n\n[middleware]\nmetrics = false\n")
	t.Setenv("RPCWARE_ENDPOINT", "https://env.example.org")

	cfg, err := Load(LoadOptions{
		ConfigFile: path,
		EnvFile:    writeFile(t, ".env", ""),
		Overrides: map[string]any{
			"endpoint":           "http://flag.example.org",
			"middleware.metrics": true,
		},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Endpoint != "http://flag.example.org" || !cfg.Middleware.Metrics {
		t.Errorf("cfg = %+v", cfg)
	}
}

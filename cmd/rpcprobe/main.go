// Command rpcprobe sends JSON-RPC calls through a configured middleware chain.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hedeqiang/rpcware"
	"github.com/hedeqiang/rpcware/config"
	"github.com/hedeqiang/rpcware/eth"
	"github.com/hedeqiang/rpcware/internal/logging"
)

var version = "dev"

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config      string `short:"c" help:"Path to a YAML, TOML or JSON config file." env:"RPCWARE_CONFIG" type:"path"`
	EnvFile     string `help:"Path to a .env file." type:"path"`
	Endpoint    string `short:"e" help:"Node URL (overrides config)."`
	LogLevel    string `help:"Log level: debug|info|warn|error (overrides config)."`
	MetricsAddr string `help:"Serve Prometheus metrics on this address, e.g. :9100."`

	Call        CallCmd          `cmd:"" help:"Call a JSON-RPC method and print the raw result."`
	BlockNumber BlockNumberCmd   `cmd:"" name:"block-number" help:"Print the latest block number."`
	Version     kong.VersionFlag `help:"Print version and exit."`
}

// probeFlags repeat a command for continuous probing.
type probeFlags struct {
	Count    int           `default:"1" help:"Number of calls; 0 repeats until interrupted."`
	Interval time.Duration `default:"5s" help:"Delay between repeated calls."`
}

// CallCmd calls an arbitrary method.
type CallCmd struct {
	Method string   `arg:"" help:"JSON-RPC method, e.g. eth_chainId."`
	Params []string `arg:"" optional:"" help:"Parameters; valid JSON is sent as-is, anything else as a string."`
	probeFlags
}

// Run executes the call.
func (c *CallCmd) Run(a *app) error {
	params := parseParams(c.Params)
	return a.repeat(c.probeFlags, func(ctx context.Context) error {
		res, err := a.client.Call(ctx, c.Method, params...)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(a.out, string(res))
		return err
	})
}

// BlockNumberCmd prints the chain head.
type BlockNumberCmd struct {
	probeFlags
}

// Run executes the query.
func (c *BlockNumberCmd) Run(a *app) error {
	ec := eth.New(a.client)
	return a.repeat(c.probeFlags, func(ctx context.Context) error {
		n, err := ec.BlockNumber(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(a.out, n)
		return err
	})
}

type app struct {
	ctx    context.Context
	client *rpcware.Client
	log    zerolog.Logger
	out    io.Writer
}

// repeat runs fn count times (forever when count is 0), pausing between runs.
// Failures are logged and the last one is returned.
func (a *app) repeat(p probeFlags, fn func(ctx context.Context) error) error {
	var lastErr error
	for i := 0; p.Count == 0 || i < p.Count; i++ {
		if i > 0 {
			select {
			case <-a.ctx.Done():
				return lastErr
			case <-time.After(p.Interval):
			}
		}
		if err := fn(a.ctx); err != nil {
			a.log.Error().Err(err).Int("attempt", i+1).Msg("probe failed")
			lastErr = err
		}
	}
	return lastErr
}

func parseParams(args []string) []any {
	params := make([]any, len(args))
	for i, arg := range args {
		if json.Valid([]byte(arg)) {
			params[i] = json.RawMessage(arg)
		} else {
			params[i] = arg
		}
	}
	return params
}

func overrides(cli *CLI) map[string]any {
	o := make(map[string]any)
	if cli.Endpoint != "" {
		o["endpoint"] = cli.Endpoint
	}
	if cli.LogLevel != "" {
		o["log.level"] = cli.LogLevel
	}
	if cli.MetricsAddr != "" {
		o["middleware.metrics"] = true
	}
	return o
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("rpcprobe"),
		kong.Description("Send JSON-RPC calls through an rpcware middleware chain."),
		kong.Vars{"version": version},
		kong.UsageOnError(),
	)
	os.Exit(run(kctx, &cli))
}

// run executes the selected command and returns the process exit code.
// Deferred cleanup runs before main exits.
func run(kctx *kong.Context, cli *CLI) int {
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: cli.Config,
		EnvFile:    cli.EnvFile,
		Overrides:  overrides(cli),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	log := logging.New(cfg.Log).With().Str("service", "rpcprobe").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	client, err := rpcware.Dial(*cfg, rpcware.WithLogger(log), rpcware.WithRegisterer(reg))
	if err != nil {
		log.Error().Err(err).Msg("dial")
		return 1
	}
	defer client.Close()

	if cli.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cli.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		log.Info().Str("addr", cli.MetricsAddr).Msg("serving metrics")
	}

	if err := kctx.Run(&app{ctx: ctx, client: client, log: log, out: os.Stdout}); err != nil {
		return 1
	}
	return 0
}

// Example: basic — query Ethereum through a small middleware chain.
//
// Usage:
//
//	ETH_RPC_URL=https://eth-mainnet.alchemyapi.io/v2/YOUR_KEY go run ./example/basic
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/hedeqiang/rpcware"
	"github.com/hedeqiang/rpcware/eth"
	mw "github.com/hedeqiang/rpcware/middleware"
	"github.com/hedeqiang/rpcware/transport"
)

func main() {
	rpcURL := os.Getenv("ETH_RPC_URL")
	if rpcURL == "" {
		log.Fatal("ETH_RPC_URL environment variable is required")
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(zerolog.DebugLevel)
	counters := mw.NewMetrics()

	// 1. Wrap the HTTP transport; the first middleware is outermost.
	client := rpcware.NewBuilder(transport.NewHTTP(rpcURL)).
		With(mw.RequestID()).
		With(mw.NewLogger(logger)).
		WithShared(counters).
		With(mw.NewRateLimitWait(rate.Limit(5), 1)).
		WithFunc(func(ctx context.Context, req *mw.Request, next mw.Next) (json.RawMessage, error) {
			// Answer eth_chainId locally.
			if req.Method == "eth_chainId" {
				return json.RawMessage(`"0x1"`), nil
			}
			return next(ctx, req)
		}).
		Build()
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Use the typed client on top of the chain.
	ec := eth.New(client)

	id, err := ec.ChainID(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("chain id:", id)

	usdt, err := eth.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	if err != nil {
		log.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		n, err := ec.BlockNumber(ctx)
		if err != nil {
			log.Fatal(err)
		}
		bal, err := ec.GetBalance(ctx, usdt, eth.Latest)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("[block %d] usdt contract balance=%s wei\n", n, bal)

		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}

	fmt.Printf("calls=%d ok=%d failed=%d\n", counters.Calls(), counters.Succeeded(), counters.Failed())
}

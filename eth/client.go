package eth

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/hedeqiang/rpcware/transport"
)

// Client is a typed Ethereum JSON-RPC client.
type Client struct {
	transport transport.Transport
}

// New creates an Ethereum client that sends every call through t.
// Pass an *rpcware.Client to run calls through a middleware chain.
func New(t transport.Transport) *Client {
	return &Client{transport: t}
}

func (c *Client) call(ctx context.Context, out any, method string, params ...any) error {
	result, err := c.transport.Call(ctx, method, params...)
	if err != nil {
		return fmt.Errorf("eth: %s: %w", method, err)
	}
	if err := json.Unmarshal(result, out); err != nil {
		return fmt.Errorf("eth: %s: decode result: %w", method, err)
	}
	return nil
}

func (c *Client) callUint64(ctx context.Context, method string, params ...any) (uint64, error) {
	var s string
	if err := c.call(ctx, &s, method, params...); err != nil {
		return 0, err
	}
	n, err := parseUint64(s)
	if err != nil {
		return 0, fmt.Errorf("eth: %s: %w", method, err)
	}
	return n, nil
}

// ChainID returns the EIP-155 chain id.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	return c.callUint64(ctx, "eth_chainId")
}

// BlockNumber returns the latest block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.callUint64(ctx, "eth_blockNumber")
}

// GetBalance returns the balance of addr in wei at the given block.
func (c *Client) GetBalance(ctx context.Context, addr Address, block BlockTag) (*big.Int, error) {
	var s string
	if err := c.call(ctx, &s, "eth_getBalance", addr.Hex(), string(block)); err != nil {
		return nil, err
	}
	b, err := parseBig(s)
	if err != nil {
		return nil, fmt.Errorf("eth: eth_getBalance: %w", err)
	}
	return b, nil
}

// SendRawTransaction submits a signed transaction and returns its hash.
func (c *Client) SendRawTransaction(ctx context.Context, signed []byte) (Hash, error) {
	var s string
	if err := c.call(ctx, &s, "eth_sendRawTransaction", encodeHex(signed)); err != nil {
		return Hash{}, err
	}
	h, err := HexToHash(s)
	if err != nil {
		return Hash{}, fmt.Errorf("eth: eth_sendRawTransaction: %w", err)
	}
	return h, nil
}

// GetLogs retrieves historical logs matching the query.
func (c *Client) GetLogs(ctx context.Context, q Query) ([]Log, error) {
	var raw []rpcLog
	if err := c.call(ctx, &raw, "eth_getLogs", q.params()); err != nil {
		return nil, err
	}

	logs := make([]Log, len(raw))
	for i := range raw {
		l, err := raw[i].toLog()
		if err != nil {
			return nil, fmt.Errorf("eth: eth_getLogs: log %d: %w", i, err)
		}
		logs[i] = l
	}
	return logs, nil
}

// rpcLog is the JSON-RPC representation of a log.
type rpcLog struct {
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	BlockNumber string   `json:"blockNumber"`
	BlockHash   string   `json:"blockHash"`
	TxHash      string   `json:"transactionHash"`
	TxIndex     string   `json:"transactionIndex"`
	LogIndex    string   `json:"logIndex"`
	Removed     bool     `json:"removed"`
}

func (rl *rpcLog) toLog() (Log, error) {
	var (
		l   Log
		err error
	)
	l.Removed = rl.Removed

	if l.Address, err = HexToAddress(rl.Address); err != nil {
		return l, fmt.Errorf("address: %w", err)
	}

	l.Topics = make([]Hash, len(rl.Topics))
	for i, t := range rl.Topics {
		if l.Topics[i], err = HexToHash(t); err != nil {
			return l, fmt.Errorf("topic %d: %w", i, err)
		}
	}

	if rl.Data != "" && rl.Data != "0x" {
		if l.Data, err = decodeHex(rl.Data); err != nil {
			return l, fmt.Errorf("data: %w", err)
		}
	}

	// Pending logs omit block fields.
	if rl.BlockNumber != "" {
		if l.BlockNumber, err = parseUint64(rl.BlockNumber); err != nil {
			return l, fmt.Errorf("blockNumber: %w", err)
		}
	}
	if rl.BlockHash != "" {
		if l.BlockHash, err = HexToHash(rl.BlockHash); err != nil {
			return l, fmt.Errorf("blockHash: %w", err)
		}
	}
	if rl.TxHash != "" {
		if l.TxHash, err = HexToHash(rl.TxHash); err != nil {
			return l, fmt.Errorf("transactionHash: %w", err)
		}
	}
	if rl.TxIndex != "" {
		idx, err := parseUint64(rl.TxIndex)
		if err != nil {
			return l, fmt.Errorf("transactionIndex: %w", err)
		}
		l.TxIndex = uint(idx)
	}
	if rl.LogIndex != "" {
		idx, err := parseUint64(rl.LogIndex)
		if err != nil {
			return l, fmt.Errorf("logIndex: %w", err)
		}
		l.LogIndex = uint(idx)
	}

	return l, nil
}

// Package eth provides a typed Ethereum JSON-RPC surface over any transport,
// including a middleware-wrapped rpcware.Client.
package eth

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrInvalidHex is returned when a hex string cannot be decoded.
var ErrInvalidHex = errors.New("eth: invalid hex")

// Hash represents a 32-byte hash.
type Hash [32]byte

// Address represents a 20-byte account address.
type Address [20]byte

// Hex returns the 0x-prefixed lowercase encoding.
func (h Hash) Hex() string { return encodeHex(h[:]) }

// Hex returns the 0x-prefixed lowercase encoding.
func (a Address) Hex() string { return encodeHex(a[:]) }

// HexToHash parses a 0x-prefixed hash. Shorter input is left-padded.
func HexToHash(s string) (Hash, error) {
	var h Hash
	b, err := decodeHex(s)
	if err != nil {
		return h, err
	}
	if len(b) > len(h) {
		return h, fmt.Errorf("%w: %d bytes for a hash", ErrInvalidHex, len(b))
	}
	copy(h[:], padLeft(b, len(h)))
	return h, nil
}

// HexToAddress parses a 0x-prefixed address.
func HexToAddress(s string) (Address, error) {
	var a Address
	b, err := decodeHex(s)
	if err != nil {
		return a, err
	}
	if len(b) != len(a) {
		return a, fmt.Errorf("%w: %d bytes for an address", ErrInvalidHex, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// Log represents a single event log emitted by a contract.
type Log struct {
	Address     Address
	Topics      []Hash
	Data        []byte
	BlockNumber uint64
	BlockHash   Hash
	TxHash      Hash
	TxIndex     uint
	LogIndex    uint
	// Removed is set when the log was reverted by a reorganisation.
	Removed bool
}

// Query describes an eth_getLogs filter.
type Query struct {
	Addresses []Address
	// Topics holds one entry per position; hashes within an entry are OR-matched
	// and an empty entry matches anything.
	Topics    [][]Hash
	FromBlock *uint64
	ToBlock   *uint64
}

// QueryOption configures a Query.
type QueryOption func(*Query)

// NewQuery creates a Query with the given options applied.
func NewQuery(opts ...QueryOption) Query {
	var q Query
	for _, opt := range opts {
		opt(&q)
	}
	return q
}

// WithAddresses adds contract addresses to filter on.
func WithAddresses(addrs ...Address) QueryOption {
	return func(q *Query) {
		q.Addresses = append(q.Addresses, addrs...)
	}
}

// WithTopics sets the topic filters.
func WithTopics(topics ...[]Hash) QueryOption {
	return func(q *Query) {
		q.Topics = topics
	}
}

// WithBlockRange sets both the starting and ending block numbers.
func WithBlockRange(from, to uint64) QueryOption {
	return func(q *Query) {
		q.FromBlock = &from
		q.ToBlock = &to
	}
}

// params converts q into the JSON-RPC filter object.
func (q Query) params() map[string]any {
	params := make(map[string]any)

	if q.FromBlock != nil {
		params["fromBlock"] = encodeUint64(*q.FromBlock)
	}
	if q.ToBlock != nil {
		params["toBlock"] = encodeUint64(*q.ToBlock)
	}

	switch len(q.Addresses) {
	case 0:
	case 1:
		params["address"] = q.Addresses[0].Hex()
	default:
		addrs := make([]string, len(q.Addresses))
		for i, a := range q.Addresses {
			addrs[i] = a.Hex()
		}
		params["address"] = addrs
	}

	if len(q.Topics) > 0 {
		topics := make([]any, len(q.Topics))
		for i, ts := range q.Topics {
			switch len(ts) {
			case 0:
				topics[i] = nil
			case 1:
				topics[i] = ts[0].Hex()
			default:
				hashes := make([]string, len(ts))
				for j, h := range ts {
					hashes[j] = h.Hex()
				}
				topics[i] = hashes
			}
		}
		params["topics"] = topics
	}

	return params
}

// BlockTag names a block for state queries.
type BlockTag string

const (
	Latest   BlockTag = "latest"
	Pending  BlockTag = "pending"
	Earliest BlockTag = "earliest"
)

// BlockNumber returns the tag for a specific block height.
func BlockNumber(n uint64) BlockTag {
	return BlockTag(encodeUint64(n))
}

func parseBig(s string) (*big.Int, error) {
	b, ok := new(big.Int).SetString(trimHexPrefix(s), 16)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	return b, nil
}

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClosed is returned by calls on a closed WebSocket transport.
var ErrClosed = errors.New("transport/ws: connection closed")

const unsubscribeTimeout = 5 * time.Second

// WebSocket implements Transport over a WebSocket connection.
type WebSocket struct {
	url    string
	dialer *websocket.Dialer
	conn   *websocket.Conn
	mu     sync.Mutex // serialises writes
	nextID atomic.Uint64

	connOnce sync.Once
	connErr  error

	routeMu sync.Mutex
	pending map[uint64]pendingCall
	subs    map[string]chan []byte

	closed    chan struct{}
	closeOnce sync.Once
}

// NewWebSocket creates a WebSocket transport.
// The connection is established lazily on the first Call or Subscribe;
// headers attached to that first context are sent with the handshake.
func NewWebSocket(url string) *WebSocket {
	return &WebSocket{
		url:     url,
		dialer:  websocket.DefaultDialer,
		pending: make(map[uint64]pendingCall),
		subs:    make(map[string]chan []byte),
		closed:  make(chan struct{}),
	}
}

// connect establishes the WebSocket connection (called lazily, at most once).
func (ws *WebSocket) connect(ctx context.Context) error {
	ws.connOnce.Do(func() {
		conn, _, err := ws.dialer.DialContext(ctx, ws.url, HeaderFromContext(ctx))
		if err != nil {
			ws.connErr = fmt.Errorf("transport/ws: dial: %w", err)
			return
		}
		ws.conn = conn
		go ws.readLoop()
	})
	return ws.connErr
}

// pendingCall is an in-flight request. When sub is set, a successful response
// registers sub under the returned subscription id before the next message is read.
type pendingCall struct {
	resp chan jsonRPCResponse
	sub  chan []byte
}

// Call sends a JSON-RPC request over WebSocket and waits for the response.
func (ws *WebSocket) Call(ctx context.Context, method string, params ...any) ([]byte, error) {
	return ws.call(ctx, pendingCall{resp: make(chan jsonRPCResponse, 1)}, method, params)
}

func (ws *WebSocket) call(ctx context.Context, pc pendingCall, method string, params []any) ([]byte, error) {
	if err := ws.connect(ctx); err != nil {
		return nil, err
	}

	id := ws.nextID.Add(1)
	ws.routeMu.Lock()
	ws.pending[id] = pc
	ws.routeMu.Unlock()

	defer func() {
		ws.routeMu.Lock()
		delete(ws.pending, id)
		ws.routeMu.Unlock()
	}()

	ws.mu.Lock()
	err := ws.conn.WriteJSON(newRequest(id, method, params))
	ws.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("transport/ws: write: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp := <-pc.resp:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-ws.closed:
		return nil, ErrClosed
	}
}

// Subscribe sends a subscription request and returns a channel receiving the
// result payload of every notification for that subscription.
func (ws *WebSocket) Subscribe(ctx context.Context, method string, params ...any) (<-chan []byte, func(), error) {
	ch := make(chan []byte, 64)
	result, err := ws.call(ctx, pendingCall{resp: make(chan jsonRPCResponse, 1), sub: ch}, method, params)
	if err != nil {
		ws.dropSub(ch)
		return nil, nil, err
	}

	var subID string
	if err := json.Unmarshal(result, &subID); err != nil {
		return nil, nil, fmt.Errorf("transport/ws: parse subscription id: %w", err)
	}

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			ws.routeMu.Lock()
			_, live := ws.subs[subID]
			delete(ws.subs, subID)
			if live {
				close(ch)
			}
			ws.routeMu.Unlock()

			ctx, cancel := context.WithTimeout(context.Background(), unsubscribeTimeout)
			defer cancel()
			_, _ = ws.Call(ctx, "eth_unsubscribe", subID)
		})
	}

	return ch, unsub, nil
}

// dropSub removes ch if the node's answer registered it after the caller gave
// up, and cancels the subscription on the node.
func (ws *WebSocket) dropSub(ch chan []byte) {
	ws.routeMu.Lock()
	var subID string
	for id, c := range ws.subs {
		if c == ch {
			subID = id
			delete(ws.subs, id)
			close(ch)
			break
		}
	}
	ws.routeMu.Unlock()
	if subID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), unsubscribeTimeout)
	defer cancel()
	_, _ = ws.Call(ctx, "eth_unsubscribe", subID)
}

// Close terminates the WebSocket connection. It is safe to call more than once.
func (ws *WebSocket) Close() error {
	// Prevent a later lazy dial and order the read of ws.conn below.
	ws.connOnce.Do(func() { ws.connErr = ErrClosed })

	var err error
	ws.closeOnce.Do(func() {
		close(ws.closed)
		if ws.conn != nil {
			err = ws.conn.Close()
		}
	})
	return err
}

type wsEnvelope struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error,omitempty"`
}

type wsNotification struct {
	Subscription string          `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

// readLoop reads messages from the WebSocket and routes them to waiting callers.
func (ws *WebSocket) readLoop() {
	defer ws.shutdownSubs()

	for {
		_, message, err := ws.conn.ReadMessage()
		if err != nil {
			ws.closeOnce.Do(func() {
				close(ws.closed)
			})
			return
		}

		var env wsEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			continue
		}

		if env.Method == "eth_subscription" {
			var n wsNotification
			if err := json.Unmarshal(env.Params, &n); err != nil {
				continue
			}
			ws.routeMu.Lock()
			if ch, ok := ws.subs[n.Subscription]; ok {
				select {
				case ch <- []byte(n.Result):
				default:
				}
			}
			ws.routeMu.Unlock()
			continue
		}

		if env.ID != 0 {
			ws.routeMu.Lock()
			if pc, ok := ws.pending[env.ID]; ok {
				if pc.sub != nil && env.Error == nil {
					var subID string
					if json.Unmarshal(env.Result, &subID) == nil {
						ws.subs[subID] = pc.sub
					}
				}
				select {
				case pc.resp <- jsonRPCResponse{ID: env.ID, Result: env.Result, Error: env.Error}:
				default:
				}
			}
			ws.routeMu.Unlock()
		}
	}
}

// shutdownSubs closes every live subscription channel once the connection is gone.
func (ws *WebSocket) shutdownSubs() {
	ws.routeMu.Lock()
	defer ws.routeMu.Unlock()
	for id, ch := range ws.subs {
		close(ch)
		delete(ws.subs, id)
	}
}

// Package ws implements the terminal bridge over a WebSocket JSON-RPC
// connection. Requests carry a monotonically increasing id; responses are
// correlated back to the waiting caller by that id, so calls from
// concurrent flows multiplex over one connection. A lost connection fails
// all in-flight calls and reconnects in the background with backoff.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtomtong/comfyTrade/bridge"
	"github.com/tomtomtong/comfyTrade/errors"
	"github.com/tomtomtong/comfyTrade/metric"
	"github.com/tomtomtong/comfyTrade/pkg/retry"
)

// Options configures the WebSocket terminal client.
type Options struct {
	URL            string
	DialTimeout    time.Duration
	RequestTimeout time.Duration
}

// DefaultOptions returns options suitable for a terminal bridge on the
// local machine.
func DefaultOptions(url string) Options {
	return Options{
		URL:            url,
		DialTimeout:    5 * time.Second,
		RequestTimeout: 10 * time.Second,
	}
}

// request is one outbound RPC frame.
type request struct {
	ID     uint64 `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// response is one inbound RPC frame. Error is a transport or protocol
// level failure; broker rejections travel inside Result as an OrderResult
// with Success=false.
type response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Client is a bridge.Terminal backed by a WebSocket connection.
type Client struct {
	opts    Options
	logger  *slog.Logger
	metrics *metric.Metrics

	nextID    atomic.Uint64
	connected atomic.Bool

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu      sync.Mutex
	pending map[uint64]chan response

	closeOnce sync.Once
	closing   chan struct{}
}

var _ bridge.Terminal = (*Client)(nil)

// NewClient creates a client. metrics may be nil. Connect must be called
// before any RPC.
func NewClient(opts Options, logger *slog.Logger, metrics *metric.Metrics) (*Client, error) {
	if opts.URL == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "ws", "NewClient",
			"bridge URL is required")
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		opts:    opts,
		logger:  logger,
		metrics: metrics,
		pending: make(map[uint64]chan response),
		closing: make(chan struct{}),
	}, nil
}

// Connect dials the terminal bridge, retrying transient failures until
// the context is cancelled. On success the read loop starts and the
// client reconnects on its own after connection loss.
func (c *Client) Connect(ctx context.Context) error {
	err := retry.Do(ctx, retry.Persistent(), func() error {
		return c.dial(ctx)
	})
	if err != nil {
		return errors.WrapTransient(err, "ws", "Connect", "dial terminal bridge")
	}
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.opts.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		c.logger.Warn("Bridge dial failed", "url", c.opts.URL, "error", err)
		return err
	}

	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()
	c.connected.Store(true)
	c.metrics.SetBridgeConnected(true)

	c.logger.Info("Connected to terminal bridge", "url", c.opts.URL)
	go c.readLoop(conn)
	return nil
}

// readLoop dispatches responses to waiting callers until the connection
// drops, then fails all in-flight calls and starts the reconnect loop.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var resp response
		if err := conn.ReadJSON(&resp); err != nil {
			c.handleDisconnect(err)
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()

		if ok {
			ch <- resp
		}
	}
}

func (c *Client) handleDisconnect(cause error) {
	c.connected.Store(false)
	c.metrics.SetBridgeConnected(false)

	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[uint64]chan response)
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- response{Error: "connection lost"}
	}

	select {
	case <-c.closing:
		return
	default:
	}

	c.logger.Warn("Bridge connection lost, reconnecting", "error", cause)
	go c.reconnect()
}

func (c *Client) reconnect() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-c.closing
		cancel()
	}()

	err := retry.Do(ctx, retry.Persistent(), func() error {
		return c.dial(ctx)
	})
	if err != nil {
		select {
		case <-c.closing:
		default:
			c.logger.Error("Bridge reconnect gave up", "error", err)
		}
	}
}

// Close shuts the client down. In-flight calls fail with a connection
// loss error.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closing)
		c.connected.Store(false)
		c.metrics.SetBridgeConnected(false)

		c.writeMu.Lock()
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
		c.writeMu.Unlock()
	})
	return nil
}

// IsConnected reports whether the bridge connection is up.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// call performs one RPC and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	start := time.Now()
	err := c.doCall(ctx, method, params, out)

	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordBridgeRequest(method, status, time.Since(start))
	return err
}

func (c *Client) doCall(ctx context.Context, method string, params, out any) error {
	if !c.connected.Load() {
		return errors.WrapTransient(errors.ErrNotConnected, "ws", "call", method)
	}

	id := c.nextID.Add(1)
	ch := make(chan response, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	conn := c.conn
	var err error
	if conn == nil {
		err = errors.ErrNotConnected
	} else {
		conn.SetWriteDeadline(time.Now().Add(c.opts.RequestTimeout))
		err = conn.WriteJSON(request{ID: id, Method: method, Params: params})
	}
	c.writeMu.Unlock()

	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return errors.WrapTransient(err, "ws", "call", "send "+method)
	}

	timer := time.NewTimer(c.opts.RequestTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return errors.WrapTransient(ctx.Err(), "ws", "call", method+" cancelled")

	case <-timer.C:
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return errors.WrapTransient(errors.ErrConnectionTimeout, "ws", "call",
			fmt.Sprintf("%s timed out after %v", method, c.opts.RequestTimeout))

	case resp := <-ch:
		if resp.Error != "" {
			return errors.WrapTransient(errors.ErrConnectionLost, "ws", "call",
				method+": "+resp.Error)
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return errors.Wrap(err, "ws", "call", "decode "+method+" response")
		}
		return nil
	}
}

// AccountInfo returns the current account snapshot.
func (c *Client) AccountInfo(ctx context.Context) (*bridge.AccountInfo, error) {
	var info bridge.AccountInfo
	if err := c.call(ctx, "account_info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Positions returns all open positions.
func (c *Client) Positions(ctx context.Context) ([]bridge.Position, error) {
	var positions []bridge.Position
	if err := c.call(ctx, "positions", nil, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// ClosedPositions returns positions closed in the given window, optionally
// filtered by symbol.
func (c *Client) ClosedPositions(ctx context.Context, from, to time.Time, symbol string) ([]bridge.ClosedPosition, error) {
	params := map[string]any{
		"from": from.Unix(),
		"to":   to.Unix(),
	}
	if symbol != "" {
		params["symbol"] = symbol
	}

	var closed []bridge.ClosedPosition
	if err := c.call(ctx, "closed_positions", params, &closed); err != nil {
		return nil, err
	}
	return closed, nil
}

// Quote returns the current bid/ask for a symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (*bridge.Quote, error) {
	var quote bridge.Quote
	if err := c.call(ctx, "quote", map[string]any{"symbol": symbol}, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// SymbolInfo returns the trading properties of a symbol.
func (c *Client) SymbolInfo(ctx context.Context, symbol string) (*bridge.SymbolInfo, error) {
	var info bridge.SymbolInfo
	if err := c.call(ctx, "symbol_info", map[string]any{"symbol": symbol}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ExecuteOrder sends a market order. Broker rejections come back as a
// result with Success=false, not an error.
func (c *Client) ExecuteOrder(ctx context.Context, req bridge.OrderRequest) (*bridge.OrderResult, error) {
	var result bridge.OrderResult
	if err := c.call(ctx, "order_execute", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ClosePosition closes an open position by ticket.
func (c *Client) ClosePosition(ctx context.Context, ticket int64) (*bridge.OrderResult, error) {
	var result bridge.OrderResult
	if err := c.call(ctx, "position_close", map[string]any{"ticket": ticket}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ModifyPosition updates the stop-loss and take-profit of an open position.
func (c *Client) ModifyPosition(ctx context.Context, ticket int64, stopLoss, takeProfit float64) (*bridge.OrderResult, error) {
	params := map[string]any{
		"ticket":      ticket,
		"stop_loss":   stopLoss,
		"take_profit": takeProfit,
	}

	var result bridge.OrderResult
	if err := c.call(ctx, "position_modify", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

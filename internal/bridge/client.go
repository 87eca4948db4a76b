// Package bridge is the agent-side client for the host command channel: a
// single lazily-dialed TCP connection carrying one request at a time, with
// per-call deadlines and teardown-on-timeout semantics. A torn-down
// connection is never reused; the next call redials.
package bridge

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soundops/dawlink/core/logx"
	"github.com/soundops/dawlink/core/reconnect"
	"github.com/soundops/dawlink/internal/metrics"
	"github.com/soundops/dawlink/internal/wire"
)

// Config controls dialing and call deadlines. Mutating commands get the
// longer deadline: the host may be mid-undo-step or rendering when they
// land.
type Config struct {
	Addr            string
	DialTimeout     time.Duration
	CallTimeout     time.Duration
	MutatingTimeout time.Duration
}

// SetDefaults fills unset fields with the stock deadlines.
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:9877"
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 3 * time.Second
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = 12 * time.Second
	}
	if c.MutatingTimeout == 0 {
		c.MutatingTimeout = 30 * time.Second
	}
}

// Client issues synchronous calls over one connection. The mutex enforces
// the single in-flight rule: a second caller blocks until the prior
// response (or teardown) completes.
type Client struct {
	cfg        Config
	isMutating func(string) bool

	mu       sync.Mutex
	conn     net.Conn
	enc      *wire.Encoder
	dec      *wire.Decoder
	attempts int
	greeting map[string]any
}

// New builds a client. isMutating supplies the retry-safety metadata from
// the command registry; a nil func treats every command as mutating.
func New(cfg Config, isMutating func(string) bool) *Client {
	cfg.SetDefaults()
	if isMutating == nil {
		isMutating = func(string) bool { return true }
	}
	return &Client{cfg: cfg, isMutating: isMutating}
}

// Connected reports whether a live connection is held.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Greeting returns the handshake payload from the current connection.
func (c *Client) Greeting() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.greeting
}

// Close drops the connection; the next call redials.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardown()
}

// Call sends one command and blocks for its response. Read-only commands
// are retried once across a redial after a transport failure; mutating
// commands and timeouts never retry, because the host may have executed
// the command even though the response was lost.
func (c *Client) Call(ctx context.Context, cmdType string, params map[string]any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	result, err := c.callLocked(ctx, cmdType, params)
	outcome := "ok"
	if err != nil {
		outcome = string(wire.Coerce(err).Kind)
	}
	metrics.BridgeCall(cmdType, outcome, time.Since(start).Seconds())
	return result, err
}

func (c *Client) callLocked(ctx context.Context, cmdType string, params map[string]any) (any, error) {
	mutating := c.isMutating(cmdType)

	result, err := c.roundTrip(ctx, cmdType, params)
	if err == nil || mutating || !retryable(err) {
		return result, err
	}

	// One retry for read-only commands: the common failure is a stale
	// socket left over from a host restart.
	logx.Log.Debug().Str("type", cmdType).Err(err).Msg("retrying read-only command after redial")
	select {
	case <-time.After(reconnect.Delay(0)):
	case <-ctx.Done():
		return nil, wire.Errorf(wire.KindUnavailable, "bridge call canceled: %v", ctx.Err())
	}
	return c.roundTrip(ctx, cmdType, params)
}

// retryable reports whether the failure happened at the transport layer
// with no response in flight. Timeouts are excluded: the command may be
// executing still.
func retryable(err error) bool {
	return wire.IsKind(err, wire.KindUnavailable)
}

func (c *Client) roundTrip(ctx context.Context, cmdType string, params map[string]any) (any, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	timeout := c.cfg.CallTimeout
	if c.isMutating(cmdType) {
		timeout = c.cfg.MutatingTimeout
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		c.teardown()
		return nil, wire.Errorf(wire.KindUnavailable, "set deadline: %v", err)
	}

	req := wire.Request{ID: uuid.NewString(), Type: cmdType, Params: params}
	if err := c.enc.Encode(req); err != nil {
		c.teardown()
		return nil, wire.Errorf(wire.KindUnavailable, "send %s: %v", cmdType, err)
	}

	resp, err := c.dec.DecodeResponse()
	if err != nil {
		defer c.teardown()
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, wire.Errorf(wire.KindTimeout, "no response to %s within %s; connection dropped", cmdType, timeout)
		}
		if wire.IsKind(err, wire.KindProtocol) {
			return nil, err
		}
		return nil, wire.Errorf(wire.KindUnavailable, "receive %s: %v", cmdType, err)
	}

	if err := resp.Err(); err != nil {
		// A structured handler error leaves the connection healthy.
		return nil, err
	}
	return resp.Result, nil
}

// ensureConnected dials lazily and consumes the greeting frame.
func (c *Client) ensureConnected(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	if c.attempts > 0 {
		metrics.BridgeReconnect()
	}

	dialer := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Addr)
	if err != nil {
		c.attempts++
		return wire.Errorf(wire.KindUnavailable, "host not reachable at %s: %v", c.cfg.Addr, err)
	}

	enc := wire.NewEncoder(conn)
	dec := wire.NewDecoder(conn)

	// The host announces itself before the first request.
	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.DialTimeout))
	greeting, err := dec.DecodeResponse()
	if err != nil {
		conn.Close()
		c.attempts++
		return wire.Errorf(wire.KindUnavailable, "no greeting from %s: %v", c.cfg.Addr, err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	c.conn = conn
	c.enc = enc
	c.dec = dec
	c.attempts = 0
	if m, ok := greeting.Result.(map[string]any); ok {
		c.greeting = m
	}
	logx.Log.Info().Str("addr", c.cfg.Addr).Any("greeting", c.greeting).Msg("connected to host")
	return nil
}

func (c *Client) teardown() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.enc = nil
		c.dec = nil
	}
}

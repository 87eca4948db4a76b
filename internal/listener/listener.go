// Package listener runs the host-side transport: one accepting TCP socket,
// at most one live peer, and a strict read-dispatch-respond cycle. Handler
// execution is marshalled onto the host tick loop; the listener goroutines
// only move bytes.
package listener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/soundops/dawlink/core/logx"
	"github.com/soundops/dawlink/internal/dispatch"
	"github.com/soundops/dawlink/internal/host"
	"github.com/soundops/dawlink/internal/wire"
)

// Greeting is the first envelope written on every accepted connection, a
// handshake the bridge client may read and log.
func Greeting(version string) wire.Response {
	return wire.OK("", map[string]any{
		"service": "dawlink-host",
		"version": version,
	})
}

// Listener owns the accept socket and the active peer connection. A second
// connection supersedes the first: the host object model has one writer,
// and a crashed agent must not wedge the port with a dead socket.
type Listener struct {
	registry *dispatch.Registry
	sched    host.Scheduler
	version  string

	mu   sync.Mutex
	ln   net.Listener
	peer net.Conn
}

// New builds a listener dispatching into reg on sched.
func New(reg *dispatch.Registry, sched host.Scheduler, version string) *Listener {
	return &Listener{registry: reg, sched: sched, version: version}
}

// Serve binds addr and accepts until ctx is canceled. A bind failure is
// returned immediately: the host cannot silently run without its command
// channel. Peer-level failures are logged and survived.
func (l *Listener) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listener: bind %s: %w", addr, err)
	}
	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()
	logx.Log.Info().Str("addr", ln.Addr().String()).Msg("command listener ready")

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			logx.Log.Warn().Err(err).Msg("accept failed")
			continue
		}
		l.adopt(conn)
		go l.serveConn(ctx, conn)
	}
}

// Addr reports the bound address, for callers that bound port 0.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Close shuts the accept socket and the active peer.
func (l *Listener) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln != nil {
		l.ln.Close()
	}
	if l.peer != nil {
		l.peer.Close()
		l.peer = nil
	}
}

// adopt makes conn the active peer, superseding any prior one.
func (l *Listener) adopt(conn net.Conn) {
	l.mu.Lock()
	prior := l.peer
	l.peer = conn
	l.mu.Unlock()
	if prior != nil {
		logx.Log.Warn().
			Str("old", prior.RemoteAddr().String()).
			Str("new", conn.RemoteAddr().String()).
			Msg("new agent connection supersedes the previous one")
		prior.Close()
	}
	logx.Log.Info().Str("peer", conn.RemoteAddr().String()).Msg("agent connected")
}

func (l *Listener) release(conn net.Conn) {
	l.mu.Lock()
	if l.peer == conn {
		l.peer = nil
	}
	l.mu.Unlock()
	conn.Close()
}

// serveConn runs the per-connection cycle: read one request, execute it on
// the host tick, write the response, repeat. Handler errors come back as
// error envelopes and keep the connection open; protocol errors drop it.
func (l *Listener) serveConn(ctx context.Context, conn net.Conn) {
	defer l.release(conn)

	enc := wire.NewEncoder(conn)
	dec := wire.NewDecoder(conn)

	if err := enc.Encode(Greeting(l.version)); err != nil {
		logx.Log.Warn().Err(err).Msg("greeting write failed")
		return
	}

	for {
		req, err := dec.DecodeRequest()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				logx.Log.Info().Str("peer", conn.RemoteAddr().String()).Msg("agent disconnected")
			case wire.IsKind(err, wire.KindProtocol):
				// Best effort: tell the peer why before dropping it.
				logx.Log.Warn().Err(err).Msg("protocol error, dropping connection")
				_ = enc.Encode(wire.Fail("", err))
			case errors.Is(err, net.ErrClosed):
			default:
				logx.Log.Warn().Err(err).Msg("read failed")
			}
			return
		}

		logx.Log.Debug().Str("type", req.Type).Str("id", req.ID).Msg("command received")

		var resp wire.Response
		if err := l.sched.Do(ctx, func() {
			resp = l.registry.Dispatch(req)
		}); err != nil {
			resp = wire.Fail(req.ID, wire.Errorf(wire.KindInternal, "host scheduler unavailable: %v", err))
		}

		if err := enc.Encode(resp); err != nil {
			logx.Log.Warn().Err(err).Msg("response write failed")
			return
		}
	}
}

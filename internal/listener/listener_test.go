package listener

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/soundops/dawlink/internal/bridge"
	"github.com/soundops/dawlink/internal/dispatch"
	"github.com/soundops/dawlink/internal/host"
	"github.com/soundops/dawlink/internal/wire"
)

func testRegistry() *dispatch.Registry {
	reg := dispatch.NewRegistry()
	reg.Register(dispatch.Handler{
		Name: "ping",
		Func: func(map[string]any) (any, error) {
			return map[string]any{"pong": true}, nil
		},
	})
	reg.Register(dispatch.Handler{
		Name:     "fail",
		Mutating: true,
		Func: func(map[string]any) (any, error) {
			return nil, wire.Errorf(wire.KindHostState, "track index 99 out of range")
		},
	})
	reg.Register(dispatch.Handler{
		Name: "boom",
		Func: func(map[string]any) (any, error) {
			panic("kaboom")
		},
	})
	return reg
}

// startListener serves a test registry on an ephemeral port and returns the
// bound address.
func startListener(t *testing.T) string {
	t.Helper()
	loop := host.NewTickLoop()
	t.Cleanup(loop.Close)

	l := New(testRegistry(), loop, "test")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := l.Serve(ctx, "127.0.0.1:0"); err != nil {
			t.Errorf("Serve: %v", err)
		}
	}()
	t.Cleanup(func() { cancel(); <-done })

	deadline := time.Now().Add(2 * time.Second)
	for l.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("listener did not bind")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return l.Addr().String()
}

func newClient(addr string) *bridge.Client {
	return bridge.New(bridge.Config{
		Addr:        addr,
		DialTimeout: time.Second,
		CallTimeout: 2 * time.Second,
	}, func(string) bool { return false })
}

func TestRoundTrip(t *testing.T) {
	addr := startListener(t)
	c := newClient(addr)
	defer c.Close()

	result, err := c.Call(context.Background(), "ping", nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	m, ok := result.(map[string]any)
	if !ok || m["pong"] != true {
		t.Fatalf("result = %#v", result)
	}
	if g := c.Greeting(); g["service"] != "dawlink-host" {
		t.Fatalf("greeting = %#v", g)
	}
}

func TestHandlerErrorKeepsConnectionOpen(t *testing.T) {
	addr := startListener(t)
	c := newClient(addr)
	defer c.Close()

	_, err := c.Call(context.Background(), "fail", nil)
	if !wire.IsKind(err, wire.KindHostState) {
		t.Fatalf("want host_state error, got %v", err)
	}
	if !c.Connected() {
		t.Fatal("handler error tore down the connection")
	}
	if _, err := c.Call(context.Background(), "ping", nil); err != nil {
		t.Fatalf("follow-up call: %v", err)
	}
}

func TestUnknownCommand(t *testing.T) {
	addr := startListener(t)
	c := newClient(addr)
	defer c.Close()

	_, err := c.Call(context.Background(), "no_such_command", map[string]any{"x": 1})
	if !wire.IsKind(err, wire.KindUnknownCommand) {
		t.Fatalf("want unknown_command, got %v", err)
	}
	we := wire.Coerce(err)
	if !strings.Contains(we.Message, "Unknown") {
		t.Fatalf("message %q does not mention Unknown", we.Message)
	}
}

func TestPanicIsRecovered(t *testing.T) {
	addr := startListener(t)
	c := newClient(addr)
	defer c.Close()

	_, err := c.Call(context.Background(), "boom", nil)
	if !wire.IsKind(err, wire.KindInternal) {
		t.Fatalf("want internal error, got %v", err)
	}
	if _, err := c.Call(context.Background(), "ping", nil); err != nil {
		t.Fatalf("listener did not survive the panic: %v", err)
	}
}

// TestResponseEnvelopeShape drives the listener over a raw socket and checks
// that every response carries exactly one of result/message.
func TestResponseEnvelopeShape(t *testing.T) {
	addr := startListener(t)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	r := bufio.NewReader(conn)

	readEnvelope := func() map[string]any {
		t.Helper()
		line, err := r.ReadBytes('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var m map[string]any
		if err := json.Unmarshal(line, &m); err != nil {
			t.Fatalf("bad frame %q: %v", line, err)
		}
		return m
	}
	readEnvelope() // greeting

	for _, cmd := range []string{"ping", "fail", "boom", "nope"} {
		if _, err := conn.Write([]byte(`{"type":"` + cmd + `"}` + "\n")); err != nil {
			t.Fatal(err)
		}
		m := readEnvelope()
		_, hasResult := m["result"]
		_, hasMessage := m["message"]
		if hasResult == hasMessage {
			t.Fatalf("%s: envelope %v must have exactly one of result/message", cmd, m)
		}
		switch m["status"] {
		case "ok":
			if !hasResult {
				t.Fatalf("%s: ok without result", cmd)
			}
		case "error":
			if !hasMessage {
				t.Fatalf("%s: error without message", cmd)
			}
		default:
			t.Fatalf("%s: bad status %v", cmd, m["status"])
		}
	}
}

func TestProtocolErrorDropsConnection(t *testing.T) {
	addr := startListener(t)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	r := bufio.NewReader(conn)
	if _, err := r.ReadBytes('\n'); err != nil { // greeting
		t.Fatal(err)
	}

	if _, err := conn.Write([]byte("this is not json\n")); err != nil {
		t.Fatal(err)
	}
	line, err := r.ReadBytes('\n')
	if err != nil {
		t.Fatalf("expected an error envelope before the drop: %v", err)
	}
	var resp wire.Response
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("bad frame: %v", err)
	}
	if resp.Status != wire.StatusError || resp.Kind != wire.KindProtocol {
		t.Fatalf("want protocol error envelope, got %+v", resp)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := r.ReadBytes('\n'); err == nil {
		t.Fatal("connection stayed open after a protocol error")
	}
}

func TestSecondConnectionSupersedes(t *testing.T) {
	addr := startListener(t)

	first, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()
	fr := bufio.NewReader(first)
	if _, err := fr.ReadBytes('\n'); err != nil {
		t.Fatal(err)
	}

	second := newClient(addr)
	defer second.Close()
	if _, err := second.Call(context.Background(), "ping", nil); err != nil {
		t.Fatalf("superseding connection: %v", err)
	}

	// The first peer is closed, never silently multiplexed.
	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := fr.ReadBytes('\n'); err == nil {
		t.Fatal("first connection survived a superseding peer")
	}
}

func TestBindFailureIsFatal(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	loop := host.NewTickLoop()
	defer loop.Close()
	l := New(testRegistry(), loop, "test")
	if err := l.Serve(context.Background(), ln.Addr().String()); err == nil {
		t.Fatal("Serve on an occupied port must fail")
	}
}

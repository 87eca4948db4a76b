package dispatch

import (
	"strings"
	"testing"

	"github.com/soundops/dawlink/internal/wire"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	r.Register(Handler{
		Name:     "echo",
		Required: []string{"text"},
		Func: func(p map[string]any) (any, error) {
			return map[string]any{"text": p["text"]}, nil
		},
	})
	r.Register(Handler{
		Name:     "set_tempo",
		Mutating: true,
		Required: []string{"tempo"},
		Func: func(p map[string]any) (any, error) {
			return map[string]any{"tempo": p["tempo"]}, nil
		},
	})
	r.Register(Handler{
		Name: "explode",
		Func: func(p map[string]any) (any, error) {
			panic("kaboom")
		},
	})
	r.Register(Handler{
		Name: "bad_state",
		Func: func(p map[string]any) (any, error) {
			return nil, wire.Errorf(wire.KindHostState, "track index 99 out of range")
		},
	})
	return r
}

// assertWellFormed checks the envelope invariant: exactly one of
// result/message, matching the status.
func assertWellFormed(t *testing.T, resp wire.Response) {
	t.Helper()
	switch resp.Status {
	case wire.StatusOK:
		if resp.Result == nil || resp.Message != "" {
			t.Fatalf("ok response must carry result and no message: %+v", resp)
		}
	case wire.StatusError:
		if resp.Message == "" || resp.Result != nil {
			t.Fatalf("error response must carry message and no result: %+v", resp)
		}
	default:
		t.Fatalf("unexpected status %q", resp.Status)
	}
}

func TestDispatchSuccess(t *testing.T) {
	r := newTestRegistry(t)
	resp := r.Dispatch(wire.Request{ID: "1", Type: "echo", Params: map[string]any{"text": "hi"}})
	assertWellFormed(t, resp)
	if resp.Status != wire.StatusOK {
		t.Fatalf("expected ok, got %+v", resp)
	}
	if resp.ID != "1" {
		t.Fatalf("response did not echo request id: %+v", resp)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	r := newTestRegistry(t)
	for _, params := range []map[string]any{nil, {}, {"anything": 1}} {
		resp := r.Dispatch(wire.Request{Type: "no_such_command", Params: params})
		assertWellFormed(t, resp)
		if resp.Kind != wire.KindUnknownCommand {
			t.Fatalf("expected unknown_command, got %+v", resp)
		}
		if !strings.Contains(resp.Message, "Unknown") {
			t.Fatalf("message must mention Unknown: %q", resp.Message)
		}
	}
}

func TestDispatchMissingParam(t *testing.T) {
	r := newTestRegistry(t)
	resp := r.Dispatch(wire.Request{Type: "echo"})
	assertWellFormed(t, resp)
	if resp.Kind != wire.KindInvalidParams {
		t.Fatalf("expected invalid_params, got %+v", resp)
	}
	if !strings.Contains(resp.Message, "text") {
		t.Fatalf("message must name the offending field: %q", resp.Message)
	}
}

func TestDispatchRecoversPanics(t *testing.T) {
	r := newTestRegistry(t)
	resp := r.Dispatch(wire.Request{Type: "explode"})
	assertWellFormed(t, resp)
	if resp.Kind != wire.KindInternal {
		t.Fatalf("expected internal kind, got %+v", resp)
	}
	if !strings.Contains(resp.Message, "kaboom") {
		t.Fatalf("panic value lost: %q", resp.Message)
	}
}

func TestDispatchHostStateError(t *testing.T) {
	r := newTestRegistry(t)
	resp := r.Dispatch(wire.Request{Type: "bad_state"})
	assertWellFormed(t, resp)
	if resp.Kind != wire.KindHostState {
		t.Fatalf("expected host_state, got %+v", resp)
	}
}

func TestIsMutating(t *testing.T) {
	r := newTestRegistry(t)
	if r.IsMutating("echo") {
		t.Fatal("echo is read-only")
	}
	if !r.IsMutating("set_tempo") {
		t.Fatal("set_tempo mutates")
	}
	if !r.IsMutating("unregistered") {
		t.Fatal("unknown commands must be treated as mutating")
	}
}

func TestCommandsSorted(t *testing.T) {
	r := newTestRegistry(t)
	names := r.Commands()
	if len(names) != 4 {
		t.Fatalf("expected 4 commands, got %v", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("commands not sorted: %v", names)
		}
	}
}

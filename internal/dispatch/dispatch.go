// Package dispatch routes request envelopes to registered command handlers
// and converts every failure mode into a structured error response. Nothing
// escapes the dispatch boundary: unknown commands, bad parameters, handler
// errors, and panics all come back as envelopes.
package dispatch

import (
	"fmt"
	"sort"
	"sync"

	"github.com/soundops/dawlink/core/logx"
	"github.com/soundops/dawlink/internal/metrics"
	"github.com/soundops/dawlink/internal/wire"
)

// HandlerFunc executes one command against host state. It runs on the host
// tick, so it must not block on I/O.
type HandlerFunc func(params map[string]any) (any, error)

// Handler couples a handler function with its registry metadata. Mutating
// handlers are never retried by the bridge client; Required params are
// checked for presence before the handler runs.
type Handler struct {
	Name     string
	Mutating bool
	Required []string
	Func     HandlerFunc
}

// Registry is the static command table. Registration happens at startup;
// dispatching is read-only and safe from the listener goroutine.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register installs a handler. Duplicate names are a programming error.
func (r *Registry) Register(h Handler) {
	if h.Name == "" || h.Func == nil {
		panic("dispatch: handler needs a name and a func")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.handlers[h.Name]; dup {
		panic(fmt.Sprintf("dispatch: duplicate handler %q", h.Name))
	}
	r.handlers[h.Name] = h
}

// IsMutating reports whether the named command mutates host state. Unknown
// commands report true: when in doubt, do not retry.
func (r *Registry) IsMutating(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	if !ok {
		return true
	}
	return h.Mutating
}

// Commands lists registered command names, sorted.
func (r *Registry) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch executes one request and always returns a well-formed response
// envelope carrying exactly one of result/message.
func (r *Registry) Dispatch(req wire.Request) (resp wire.Response) {
	r.mu.RLock()
	h, ok := r.handlers[req.Type]
	r.mu.RUnlock()
	if !ok {
		metrics.Dispatch(req.Type, wire.StatusError)
		return wire.Fail(req.ID, wire.Errorf(wire.KindUnknownCommand, "Unknown command type: %s", req.Type))
	}

	defer func() {
		if rec := recover(); rec != nil {
			logx.Log.Error().Str("type", req.Type).Any("panic", rec).Msg("handler panicked")
			metrics.Dispatch(req.Type, wire.StatusError)
			resp = wire.Fail(req.ID, wire.Errorf(wire.KindInternal, "handler %s panicked: %v", req.Type, rec))
		}
	}()

	for _, field := range h.Required {
		if _, present := req.Params[field]; !present {
			metrics.Dispatch(req.Type, wire.StatusError)
			return wire.Fail(req.ID, wire.InvalidParam(field, "missing required parameter %q for %s", field, req.Type))
		}
	}

	result, err := h.Func(req.Params)
	if err != nil {
		logx.Log.Debug().Str("type", req.Type).Err(err).Msg("handler error")
		metrics.Dispatch(req.Type, wire.StatusError)
		return wire.Fail(req.ID, err)
	}
	metrics.Dispatch(req.Type, wire.StatusOK)
	return wire.OK(req.ID, result)
}

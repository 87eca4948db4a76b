// Package handlers implements the command vocabulary executed against the
// host object model. Each command is declared once with its metadata
// (mutating flag, required params) and bound to a session at registration;
// the same declarations feed the bridge client's retry policy.
package handlers

import (
	"encoding/json"
	"math"

	"github.com/soundops/dawlink/internal/dispatch"
	"github.com/soundops/dawlink/internal/host"
	"github.com/soundops/dawlink/internal/wire"
)

// Service carries the state commands operate on.
type Service struct {
	Session *host.Session
	Version string
}

type def struct {
	name     string
	mutating bool
	required []string
	fn       func(s *Service, p map[string]any) (any, error)
}

func allDefs() []def {
	var defs []def
	defs = append(defs, sessionDefs...)
	defs = append(defs, trackDefs...)
	defs = append(defs, deviceDefs...)
	return defs
}

// Register installs every command on reg, bound to svc.
func Register(reg *dispatch.Registry, svc *Service) {
	for _, d := range allDefs() {
		d := d
		reg.Register(dispatch.Handler{
			Name:     d.name,
			Mutating: d.mutating,
			Required: d.required,
			Func: func(p map[string]any) (any, error) {
				return d.fn(svc, p)
			},
		})
	}
}

// IsMutating reports the retry-safety metadata for a command name. Unknown
// names count as mutating so they are never retried.
func IsMutating(name string) bool {
	for _, d := range allDefs() {
		if d.name == name {
			return d.mutating
		}
	}
	return true
}

// Param accessors. Required fields are presence-checked by the dispatcher;
// these enforce types and handle optional fields.

func intArg(p map[string]any, name string, def int) (int, error) {
	raw, ok := p[name]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, wire.InvalidParam(name, "expected an integer, got %v", v)
		}
		return int(v), nil
	case int:
		return v, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, wire.InvalidParam(name, "expected an integer, got %q", v.String())
		}
		return int(n), nil
	default:
		return 0, wire.InvalidParam(name, "expected an integer, got %T", raw)
	}
}

func floatArg(p map[string]any, name string, def float64) (float64, error) {
	raw, ok := p[name]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, wire.InvalidParam(name, "expected a number, got %q", v.String())
		}
		return f, nil
	default:
		return 0, wire.InvalidParam(name, "expected a number, got %T", raw)
	}
}

func strArg(p map[string]any, name, def string) (string, error) {
	raw, ok := p[name]
	if !ok || raw == nil {
		return def, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", wire.InvalidParam(name, "expected a string, got %T", raw)
	}
	return s, nil
}

func boolArg(p map[string]any, name string, def bool) (bool, error) {
	raw, ok := p[name]
	if !ok || raw == nil {
		return def, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, wire.InvalidParam(name, "expected a boolean, got %T", raw)
	}
	return b, nil
}

// Package wire defines the request/response envelopes exchanged between the
// bridge client and the host listener, the framing codec that carries them
// over a TCP byte stream, and the error kinds shared by both sides.
package wire

import (
	"errors"
	"fmt"
)

// Envelope statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Request selects a handler by Type and carries handler-defined Params.
// ID is optional; the bridge client fills it with a fresh uuid so log lines
// on both sides can be correlated. Correlation on the wire itself is
// positional: a connection has at most one request in flight.
type Request struct {
	ID     string         `json:"id,omitempty"`
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

// Response carries exactly one of Result (status "ok") or Message
// (status "error"). Kind is the machine-checkable error kind; Field names
// the offending parameter for invalid_params errors.
type Response struct {
	ID      string `json:"id,omitempty"`
	Status  string `json:"status"`
	Result  any    `json:"result,omitempty"`
	Kind    Kind   `json:"kind,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

// OK builds a success response. A nil result is promoted to an empty map so
// the envelope always carries exactly one of result/message.
func OK(id string, result any) Response {
	if result == nil {
		result = map[string]any{}
	}
	return Response{ID: id, Status: StatusOK, Result: result}
}

// Fail builds an error response from err, coercing non-wire errors to
// KindInternal.
func Fail(id string, err error) Response {
	we := Coerce(err)
	return Response{ID: id, Status: StatusError, Kind: we.Kind, Field: we.Field, Message: we.Message}
}

// Err reconstructs the typed error carried by an error response, or nil for
// a success response.
func (r Response) Err() error {
	if r.Status != StatusError {
		return nil
	}
	kind := r.Kind
	if kind == "" {
		kind = KindInternal
	}
	return &Error{Kind: kind, Field: r.Field, Message: r.Message}
}

// Kind identifies a failure class. Kinds are stable protocol strings;
// callers branch on them, messages are for humans.
type Kind string

const (
	// KindProtocol marks a malformed frame. The connection that produced
	// it must be dropped; byte-level resync is not attempted.
	KindProtocol Kind = "protocol"
	// KindUnknownCommand marks a request type with no registered handler.
	KindUnknownCommand Kind = "unknown_command"
	// KindInvalidParams marks a missing or malformed parameter; Field
	// names the offender.
	KindInvalidParams Kind = "invalid_params"
	// KindHostState marks a handler precondition failure against live host
	// state (bad index, missing device), with the host's message when
	// available.
	KindHostState Kind = "host_state"
	// KindTimeout marks a call that produced no response within its
	// deadline. The connection is torn down and not reused.
	KindTimeout Kind = "timeout"
	// KindInvalidSpec marks a degenerate parameter range (min == max where
	// a ratio is required).
	KindInvalidSpec Kind = "invalid_spec"
	// KindUnavailable marks a failed dial: the host listener is not
	// reachable at all.
	KindUnavailable Kind = "unavailable"
	// KindInternal marks an unclassified handler failure or a recovered
	// panic at the dispatch boundary.
	KindInternal Kind = "internal"
)

// Error is the typed error shared across the bridge. It round-trips through
// the response envelope: Fail flattens it, Response.Err rebuilds it.
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (param %q)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Errorf builds an Error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// InvalidParam builds an invalid_params error naming the offending field.
func InvalidParam(field, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidParams, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Coerce returns err as *Error, wrapping foreign errors as KindInternal.
func Coerce(err error) *Error {
	var we *Error
	if errors.As(err, &we) {
		return we
	}
	return &Error{Kind: KindInternal, Message: err.Error()}
}

// IsKind reports whether err is a wire error of the given kind.
func IsKind(err error, kind Kind) bool {
	var we *Error
	return errors.As(err, &we) && we.Kind == kind
}

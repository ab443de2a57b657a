package code

import (
	"errors"
	"fmt"
)

// Errors from the taxonomy in spec §7, shared by sched, handlers, firmware,
// and pipeline, so that all four can participate in a single errors.Is
// chain without import cycles.
var (
	// ErrCancelled is raised by cooperative cancellation: a scheduler wait,
	// a firmware flush/call, or an expression evaluation observed that its
	// channel (or the whole process) was cancelled.
	ErrCancelled = errors.New("code: cancelled")

	// ErrNotSupported marks a code that is intentionally unhandled (e.g.
	// M998): it becomes an Error message, not a propagated exception.
	ErrNotSupported = errors.New("code: not supported")

	// ErrProtocol indicates an internal state-machine invariant violation
	// (e.g. ProcessInternally invoked with a forbidden keyword). Treat as
	// panic-equivalent: it should never occur given correct callers.
	ErrProtocol = errors.New("code: protocol invariant violated")
)

// HandlerErrorf wraps an error encountered while running an internal
// handler (§7 HandlerError): logged, then rethrown, with the code not
// forwarded to firmware.
func HandlerErrorf(format string, args ...any) error {
	return &wrapped{kind: "handler error", err: fmt.Errorf(format, args...)}
}

// TransportErrorf wraps a firmware dispatch failure (§7 TransportError).
func TransportErrorf(format string, args ...any) error {
	return &wrapped{kind: "transport error", err: fmt.Errorf(format, args...)}
}

type wrapped struct {
	kind string
	err  error
}

func (w *wrapped) Error() string { return w.kind + ": " + w.err.Error() }
func (w *wrapped) Unwrap() error { return w.err }

// ParseError is raised by Parse when the input is lexically malformed.
// It follows the wrap-and-unwrap shape used throughout this module for
// domain errors: a short reason plus an optional underlying cause.
type ParseError struct {
	Reason string
	Input  string
	Pos    int
	err    error
}

func (e *ParseError) Error() string {
	if e.err != nil {
		return e.Reason + ": " + e.err.Error()
	}
	return e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.err
}

func parseErr(reason, input string, pos int) error {
	return &ParseError{Reason: reason, Input: input, Pos: pos}
}

// ParameterTypeError is raised by a Parameter's typed accessor when the raw
// value cannot be interpreted as the requested type.
type ParameterTypeError struct {
	Letter byte
	Raw    string
	Kind   string
	err    error
}

func (e *ParameterTypeError) Error() string {
	letter := "<unnamed>"
	if e.Letter != 0 {
		letter = string(e.Letter)
	}
	msg := "parameter " + letter + "=" + e.Raw + " is not a valid " + e.Kind
	if e.err != nil {
		msg += ": " + e.err.Error()
	}
	return msg
}

func (e *ParameterTypeError) Unwrap() error {
	return e.err
}

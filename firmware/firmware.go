// Package firmware defines the boundary between the execution core and the
// controller transport (C6). The transport implementation itself (serial,
// SPI, network) is an external collaborator outside this module's scope;
// this package only fixes the interface the pipeline depends on, plus a
// loopback double useful for standalone operation and tests.
package firmware

import (
	"context"

	"github.com/joeycumines/mctl/channel"
	"github.com/joeycumines/mctl/code"
)

// Interface is implemented by the controller transport. Implementations
// must not block the caller of ProcessCode/Flush beyond enqueueing the
// request; the actual wait happens on the returned Future.
type Interface interface {
	// ProcessCode dispatches c to the controller and resolves once the
	// controller reports completion (or failure).
	ProcessCode(ctx context.Context, c *code.Code) *Future[*code.CodeResult]
	// Flush resolves once every code previously dispatched on ch has been
	// acknowledged by the controller, or immediately if c is non-nil and
	// only that single code need be flushed.
	Flush(ctx context.Context, ch channel.Channel, c *code.Code) *Future[bool]
}

// Loopback is a trivial Interface: every code resolves immediately with a
// single Success message echoing its rendered form. Flush always succeeds.
// It exists for standalone operation (no real controller attached) and for
// pipeline tests.
type Loopback struct {
	// Handle, if set, is consulted before the default echo behaviour,
	// letting tests script specific responses.
	Handle func(c *code.Code) (*code.CodeResult, error)
}

func (l *Loopback) ProcessCode(ctx context.Context, c *code.Code) *Future[*code.CodeResult] {
	if l.Handle != nil {
		res, err := l.Handle(c)
		return Resolved(res, err)
	}
	return Resolved(code.NewResult().Add(code.Success, code.Render(c)), nil)
}

func (l *Loopback) Flush(ctx context.Context, ch channel.Channel, c *code.Code) *Future[bool] {
	return Resolved(true, nil)
}

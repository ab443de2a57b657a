// Package pipeline implements the execution pipeline (C7): the single
// entry point, Execute, that every code from every channel passes through,
// wiring together scheduling (sched), interception (intercept), internal
// handlers (handlers), the macro runtime (macro), and the firmware
// transport (firmware), per §4.7.
package pipeline

import (
	"context"

	"github.com/joeycumines/mctl/code"
	"github.com/joeycumines/mctl/firmware"
	"github.com/joeycumines/mctl/handlers"
	"github.com/joeycumines/mctl/intercept"
	"github.com/joeycumines/mctl/macro"
	"github.com/joeycumines/mctl/mlog"
	"github.com/joeycumines/mctl/sched"
)

// Pipeline owns every collaborator a code's execution touches.
type Pipeline struct {
	Scheduler *sched.Scheduler
	Intercept *intercept.Bus
	Handlers  *handlers.Context
	Firmware  firmware.Interface
	Macros    *macro.Arena
	Logger    *mlog.Logger

	// AwaitingAck reports whether c.Channel currently has an outstanding
	// message-box prompt, consulted for scheduler classification.
	AwaitingAck func(c *code.Code) bool
}

// Execute runs c through the full pipeline and returns its final result.
// The caller passes a code that has not yet been admitted: Execute itself
// performs admission into the channel's processing order as its first act,
// matching §4.7's numbered steps.
func (p *Pipeline) Execute(ctx context.Context, c *code.Code) (*code.CodeResult, error) {
	awaiting := false
	if p.AwaitingAck != nil {
		awaiting = p.AwaitingAck(c)
	}

	admission, err := p.Scheduler.Admit(ctx, c, awaiting)
	if err != nil {
		return nil, err
	}
	defer admission.Release()

	runCtx := admission.Context()

	result, err := p.run(runCtx, c, admission)

	p.Intercept.NotifyExecuted(runCtx, c, result)
	if p.Logger != nil {
		mlog.LogExecuted(p.Logger, c, result)
	}
	return result, err
}

// run carries out §4.7's Pre-intercept / internal-handle / Post-intercept /
// firmware-dispatch sequence. admission.BeginFinish is called once the
// code is committed to one of those final two paths, releasing the
// start-lock (for buffered codes) so the next same-class admission can
// begin while this code is still awaiting its own completion.
func (p *Pipeline) run(ctx context.Context, c *code.Code, admission *sched.Admission) (*code.CodeResult, error) {
	if res, done, err := p.intercept(ctx, intercept.Pre, c); done {
		return res, err
	}

	res, err := p.ProcessInternally(ctx, c)
	if err != nil {
		return nil, err
	}
	if res != nil {
		c.Flags = c.Flags.Set(code.InternallyProcessed)
		if err := admission.BeginFinish(c.Flags.Has(code.Unbuffered)); err != nil {
			return nil, err
		}
		return res, nil
	}

	if pres, done, err := p.intercept(ctx, intercept.Post, c); done {
		return pres, err
	}

	if err := admission.BeginFinish(c.Flags.Has(code.Unbuffered)); err != nil {
		return nil, err
	}
	return p.dispatchFirmware(ctx, c)
}

// intercept runs the Pre or Post interceptor chain for c. done reports
// whether the chain short-circuited normal processing (Resolve or Cancel);
// when done is false the caller should continue the pipeline.
func (p *Pipeline) intercept(ctx context.Context, mode intercept.Mode, c *code.Code) (*code.CodeResult, bool, error) {
	if p.Intercept == nil {
		return nil, false, nil
	}
	d, err := p.Intercept.Run(ctx, mode, c)
	if err != nil {
		return nil, true, err
	}
	switch d.Verdict {
	case intercept.Resolve:
		c.Flags = c.Flags.Set(code.ResolvedByInterceptor)
		if mode == intercept.Pre {
			c.Flags = c.Flags.Set(code.IsPreProcessed)
		} else {
			c.Flags = c.Flags.Set(code.IsPostProcessed)
		}
		return d.Result, true, nil
	case intercept.Cancel:
		return nil, true, code.ErrCancelled
	default:
		return nil, false, nil
	}
}

// ProcessInternally dispatches c to package handlers, returning (nil, nil)
// if c has no internal handler so the caller forwards it to firmware.
func (p *Pipeline) ProcessInternally(ctx context.Context, c *code.Code) (*code.CodeResult, error) {
	if p.Handlers == nil {
		return nil, nil
	}
	return handlers.Dispatch(ctx, p.Handlers, c)
}

func (p *Pipeline) dispatchFirmware(ctx context.Context, c *code.Code) (*code.CodeResult, error) {
	if p.Firmware == nil {
		return code.NewResult(), nil
	}
	fut := p.Firmware.ProcessCode(ctx, c)
	return fut.Await(ctx)
}

// Package sched implements the per-channel scheduler (C3): ordering locks
// that enforce issue-order and finish-order invariants across the four
// priority classes, while preserving pipelining, plus per-channel and
// process-wide cancellation.
package sched

import (
	"context"
	"sync/atomic"

	"github.com/joeycumines/mctl/channel"
	"github.com/joeycumines/mctl/code"
)

const numClasses = int(code.Prioritized) + 1

// Gate is the per-macro serialization primitive consulted instead of the
// global Macro class lock when a code carries a MacroHandle (§4.3, §4.8).
// It is held for the code's full lifetime (start through finish), giving
// sibling-only serialization without participating in the channel's Macro
// class FIFO.
type Gate interface {
	Lock(ctx context.Context) error
	Unlock()
}

// MacroGateResolver looks up the Gate for a MacroHandle. It is supplied by
// package macro, which owns the arena of executing macros; sched never
// imports macro, avoiding a cycle per the handle/arena design note in §9.
type MacroGateResolver func(code.MacroHandle) Gate

type cancelSource struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Scheduler is the process-wide singleton holding the start/finish lock
// matrix and per-channel cancellation sources, owned by the daemon and
// shared by reference into every request handler (§9).
type Scheduler struct {
	root        context.Context
	start       [channel.Count][numClasses]*fairMutex
	finish      [channel.Count][numClasses]*fairMutex
	cancels     [channel.Count]atomic.Pointer[cancelSource]
	macroGateFn MacroGateResolver
}

// New constructs a Scheduler. root bounds the lifetime of every
// per-channel cancellation context; cancelling root cancels every channel.
func New(root context.Context, macroGateFn MacroGateResolver) *Scheduler {
	if root == nil {
		root = context.Background()
	}
	s := &Scheduler{root: root, macroGateFn: macroGateFn}
	for _, ch := range channel.All() {
		for class := 0; class < numClasses; class++ {
			s.start[ch][class] = newFairMutex()
			s.finish[ch][class] = newFairMutex()
		}
		ctx, cancel := context.WithCancel(root)
		s.cancels[ch].Store(&cancelSource{ctx: ctx, cancel: cancel})
	}
	return s
}

// SetMacroGateResolver wires the macro runtime in after construction, to
// break the sched<->macro initialization cycle (the macro runtime itself
// may want a *Scheduler).
func (s *Scheduler) SetMacroGateResolver(fn MacroGateResolver) {
	s.macroGateFn = fn
}

// CancelPending atomically swaps the cancellation source for ch, cancelling
// the old one so that any waiter not yet past admission fails with
// ErrCancelled. Codes already past their start-lock are unaffected until
// they next await on a.Context().Done().
func (s *Scheduler) CancelPending(ch channel.Channel) {
	old := s.cancels[ch].Load()
	ctx, cancel := context.WithCancel(s.root)
	s.cancels[ch].Store(&cancelSource{ctx: ctx, cancel: cancel})
	if old != nil {
		old.cancel()
	}
}

// CancelAll cancels every channel (process-wide cancellation, §5).
func (s *Scheduler) CancelAll() {
	for _, ch := range channel.All() {
		s.CancelPending(ch)
	}
}

func (s *Scheduler) channelContext(ch channel.Channel) context.Context {
	return s.cancels[ch].Load().ctx
}

// classify implements the first-match-wins rules of §4.3.
func classify(c *code.Code, awaitingAck bool) code.InternalCodeType {
	switch {
	case c.Flags.Has(code.IsPrioritized):
		return code.Prioritized
	case c.Flags.Has(code.IsFromMacro):
		return code.Macro
	case awaitingAck && !isM0OrM1(c):
		return code.Acknowledgement
	default:
		return code.Regular
	}
}

func isM0OrM1(c *code.Code) bool {
	return c.Type == code.MCode && c.Major != nil && (*c.Major == 0 || *c.Major == 1)
}

// Classify exposes the classification rule for callers that need to know a
// code's class before admission (e.g. for metrics or logging).
func Classify(c *code.Code, awaitingAck bool) code.InternalCodeType {
	return classify(c, awaitingAck)
}

func mergeCancel(parent, other context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := make(chan struct{})
	go func() {
		select {
		case <-other.Done():
			cancel()
		case <-stop:
		}
	}()
	return ctx, func() {
		close(stop)
		cancel()
	}
}

// Admission represents a code's held ordering locks between admission and
// release.
type Admission struct {
	s          *Scheduler
	ch         channel.Channel
	class      code.InternalCodeType
	ctx        context.Context
	cancelMerge context.CancelFunc
	bypass     bool
	gate       Gate
	startHeld  bool
	finishHeld bool
}

// Channel is the channel this admission was granted on.
func (a *Admission) Channel() channel.Channel { return a.ch }

// Class is the priority class this admission was granted under.
func (a *Admission) Class() code.InternalCodeType { return a.class }

// Context is cancelled when the owning channel (or the whole process) is
// cancelled; the pipeline should pass it to every subsequent await point
// (firmware Flush/ProcessCode, expression evaluation, interception).
func (a *Admission) Context() context.Context { return a.ctx }

// Admit requests an ordering slot for c on its channel, per §4.3 steps 1-2.
// awaitingAck reports whether the channel is currently waiting on a
// message-box acknowledgement (M0/M1 excepted from that class).
func (s *Scheduler) Admit(ctx context.Context, c *code.Code, awaitingAck bool) (*Admission, error) {
	if isBypass(ctx) {
		// Self-deadlock avoidance: an interceptor's own nested code skips
		// ordering entirely.
		return &Admission{s: s, ch: c.Channel, bypass: true, ctx: ctx, cancelMerge: func() {}}, nil
	}

	class := classify(c, awaitingAck)
	chCtx := s.channelContext(c.Channel)
	mergedCtx, cancel := mergeCancel(ctx, chCtx)

	a := &Admission{s: s, ch: c.Channel, class: class, ctx: mergedCtx, cancelMerge: cancel}

	if class == code.Macro && c.Macro != code.NoMacro && s.macroGateFn != nil {
		if gate := s.macroGateFn(c.Macro); gate != nil {
			if err := gate.Lock(mergedCtx); err != nil {
				cancel()
				return nil, code.ErrCancelled
			}
			a.gate = gate
			return a, nil
		}
	}

	if err := s.start[c.Channel][class].Lock(mergedCtx); err != nil {
		cancel()
		return nil, code.ErrCancelled
	}
	a.startHeld = true
	return a, nil
}

// BeginFinish acquires the finish-lock and, unless unbuffered, releases the
// start-lock so that the next admission on this (channel, class) can begin
// concurrently (§4.3 step 3). Finish-lock must always be acquired before
// the start-lock is released, to preserve completion ordering.
func (a *Admission) BeginFinish(unbuffered bool) error {
	if a.bypass || a.gate != nil {
		return nil
	}
	if err := a.s.finish[a.ch][a.class].Lock(a.ctx); err != nil {
		return code.ErrCancelled
	}
	a.finishHeld = true
	if !unbuffered {
		a.s.start[a.ch][a.class].Unlock()
		a.startHeld = false
	}
	return nil
}

// Release returns every lock still held by this admission. It must be
// called exactly once, after CodeExecuted returns (§4.3 step 4), on every
// path including cancellation.
func (a *Admission) Release() {
	if a.bypass {
		return
	}
	if a.gate != nil {
		a.gate.Unlock()
		a.cancelMerge()
		return
	}
	if a.startHeld {
		a.s.start[a.ch][a.class].Unlock()
		a.startHeld = false
	}
	if a.finishHeld {
		a.s.finish[a.ch][a.class].Unlock()
		a.finishHeld = false
	}
	a.cancelMerge()
}

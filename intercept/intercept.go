// Package intercept implements the interception protocol (C4): plugin
// connections may subscribe to Pre, Post, or Executed views of codes
// flowing through a channel, and Pre/Post subscribers may resolve, ignore,
// or cancel the code under consideration.
package intercept

import (
	"context"
	"errors"
	"sync"

	"github.com/joeycumines/mctl/channel"
	"github.com/joeycumines/mctl/code"
	"github.com/joeycumines/mctl/sched"
)

// Mode selects which phase of a code's lifecycle an interceptor observes.
type Mode uint8

const (
	// Pre interceptors run before a code is dispatched to firmware or an
	// internal handler, and may Resolve/Ignore/Cancel it.
	Pre Mode = iota
	// Post interceptors run after internal processing but before firmware
	// dispatch for codes headed to firmware, and may likewise decide.
	Post
	// Executed interceptors are notified after a code has fully finished
	// (internally or via firmware) and cannot alter its outcome.
	Executed
)

// Verdict is the decision a Pre/Post interceptor returns for a code.
type Verdict uint8

const (
	// Ignore means the interceptor has no opinion; the bus asks the next
	// interceptor, or falls through to normal processing if none remain.
	Ignore Verdict = iota
	// Resolve supplies a final CodeResult for the code, short-circuiting
	// normal processing.
	Resolve
	// Cancel aborts the code with ErrCancelled, short-circuiting normal
	// processing.
	Cancel
)

var ErrNoInterceptor = errors.New("intercept: no connection registered for this mode")

// Decision is what a Pre/Post interceptor returns from Intercept.
type Decision struct {
	Verdict Verdict
	Result  *code.CodeResult
}

// Interceptor is implemented by a plugin connection.
type Interceptor interface {
	// Intercept is invoked with the code under consideration. ctx carries
	// sched.WithBypass for any nested code the interceptor itself emits
	// over the same connection, per §4.3's self-deadlock rule.
	Intercept(ctx context.Context, c *code.Code) (Decision, error)
	// Notify is invoked for Executed-mode subscriptions; the return value
	// is ignored.
	Notify(ctx context.Context, c *code.Code, result *code.CodeResult)
}

type registration struct {
	mode        Mode
	channels    map[channel.Channel]bool // nil means all channels
	interceptor Interceptor
}

// Bus fans a code out to registered interceptors in registration order,
// per mode, stopping at the first non-Ignore verdict for Pre/Post.
type Bus struct {
	mu   sync.RWMutex
	regs []*registration

	activeMu sync.Mutex
	active   map[channel.Channel]*code.Code // code currently being intercepted, per channel
}

func NewBus() *Bus {
	return &Bus{active: make(map[channel.Channel]*code.Code)}
}

// Registration is an opaque handle returned by Register, used to Deregister.
type Registration struct {
	b   *Bus
	reg *registration
}

// Register subscribes interceptor to mode on the given channels (nil/empty
// means every channel).
func (b *Bus) Register(mode Mode, channels []channel.Channel, interceptor Interceptor) *Registration {
	reg := &registration{mode: mode, interceptor: interceptor}
	if len(channels) > 0 {
		reg.channels = make(map[channel.Channel]bool, len(channels))
		for _, ch := range channels {
			reg.channels[ch] = true
		}
	}
	b.mu.Lock()
	b.regs = append(b.regs, reg)
	b.mu.Unlock()
	return &Registration{b: b, reg: reg}
}

// Deregister removes a prior registration.
func (r *Registration) Deregister() {
	b := r.b
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, reg := range b.regs {
		if reg == r.reg {
			b.regs = append(b.regs[:i], b.regs[i+1:]...)
			return
		}
	}
}

func (b *Bus) matching(mode Mode, ch channel.Channel) []*registration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []*registration
	for _, reg := range b.regs {
		if reg.mode != mode {
			continue
		}
		if reg.channels != nil && !reg.channels[ch] {
			continue
		}
		out = append(out, reg)
	}
	return out
}

// Run fans c out to every interceptor registered for mode (Pre or Post) on
// c.Channel, in registration order, returning the first non-Ignore
// decision. ErrNoInterceptor-equivalent "no decision" is signalled by a
// zero Decision and a nil error.
func (b *Bus) Run(ctx context.Context, mode Mode, c *code.Code) (Decision, error) {
	b.setActive(c.Channel, c)
	defer b.clearActive(c.Channel)

	ictx := sched.WithBypass(ctx)
	for _, reg := range b.matching(mode, c.Channel) {
		d, err := reg.interceptor.Intercept(ictx, c)
		if err != nil {
			return Decision{}, err
		}
		if d.Verdict != Ignore {
			return d, nil
		}
	}
	return Decision{Verdict: Ignore}, nil
}

// NotifyExecuted fans the finished code and its result out to every
// Executed-mode interceptor for c.Channel. Errors from Notify are not
// possible by construction (Notify has no return); this exists purely for
// side effects such as logging or UI updates.
func (b *Bus) NotifyExecuted(ctx context.Context, c *code.Code, result *code.CodeResult) {
	for _, reg := range b.matching(Executed, c.Channel) {
		reg.interceptor.Notify(ctx, c, result)
	}
}

func (b *Bus) setActive(ch channel.Channel, c *code.Code) {
	b.activeMu.Lock()
	b.active[ch] = c
	b.activeMu.Unlock()
}

func (b *Bus) clearActive(ch channel.Channel) {
	b.activeMu.Lock()
	delete(b.active, ch)
	b.activeMu.Unlock()
}

// GetCodeBeingIntercepted returns the code currently under interception on
// ch, if any, letting an interceptor's own nested emission find the code it
// is wrapping (§4.5).
func (b *Bus) GetCodeBeingIntercepted(ch channel.Channel) (*code.Code, bool) {
	b.activeMu.Lock()
	defer b.activeMu.Unlock()
	c, ok := b.active[ch]
	return c, ok
}

// Package macro implements the macro-file execution contract (C8): each
// running macro gets a stable MacroHandle, a private serialization gate
// consumed by package sched in place of the global Macro class lock, and a
// FIFO queue of its own pending lines. Handles are held in an arena
// (map keyed by MacroHandle) rather than codes holding direct pointers to
// each other, avoiding the cyclic references a naive parent/child linked
// structure would need (§9 design note).
package macro

import (
	"bufio"
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/mctl/channel"
	"github.com/joeycumines/mctl/code"
)

// Gate implements sched.Gate: a simple binary lock held for a macro code's
// full lifetime, serializing only the codes belonging to the same macro.
type Gate struct {
	token chan struct{}
}

func newGate() *Gate {
	g := &Gate{token: make(chan struct{}, 1)}
	g.token <- struct{}{}
	return g
}

func (g *Gate) Lock(ctx context.Context) error {
	select {
	case <-g.token:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gate) Unlock() {
	select {
	case g.token <- struct{}{}:
	default:
	}
}

// Macro is one running macro-file execution.
type Macro struct {
	Handle  code.MacroHandle
	Path    string
	Channel channel.Channel
	Parent  code.MacroHandle // NoMacro if top-level

	gate   *Gate
	src    *bufio.Scanner
	closer io.Closer

	aborted atomic.Bool
}

// NextLine returns the next raw source line of the macro file, io.EOF when
// exhausted.
func (m *Macro) NextLine() (string, error) {
	if m.aborted.Load() {
		return "", io.EOF
	}
	if !m.src.Scan() {
		if err := m.src.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return m.src.Text(), nil
}

// Abort marks the macro so subsequent NextLine calls report io.EOF,
// implementing the `abort` keyword and M99's forced return.
func (m *Macro) Abort() {
	m.aborted.Store(true)
}

// Close releases the underlying file handle, if any.
func (m *Macro) Close() error {
	if m.closer != nil {
		return m.closer.Close()
	}
	return nil
}

// Arena owns every currently running macro, keyed by handle.
type Arena struct {
	mu      sync.Mutex
	next    code.MacroHandle
	running map[code.MacroHandle]*Macro
}

// NewArena constructs an empty Arena.
func NewArena() *Arena {
	return &Arena{running: make(map[code.MacroHandle]*Macro)}
}

// Start registers a new macro reading from r, returning its Macro value.
// The caller owns r's lifecycle unless it also implements io.Closer, in
// which case Macro.Close will close it.
func (a *Arena) Start(path string, ch channel.Channel, parent code.MacroHandle, r io.Reader) *Macro {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	h := a.next
	m := &Macro{
		Handle:  h,
		Path:    path,
		Channel: ch,
		Parent:  parent,
		gate:    newGate(),
		src:     bufio.NewScanner(r),
	}
	if c, ok := r.(io.Closer); ok {
		m.closer = c
	}
	a.running[h] = m
	return m
}

// Get looks up a running macro by handle.
func (a *Arena) Get(h code.MacroHandle) (*Macro, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.running[h]
	return m, ok
}

// Finish removes a macro from the arena and closes its source, once its
// FIFO of lines has been fully drained or it was aborted.
func (a *Arena) Finish(h code.MacroHandle) error {
	a.mu.Lock()
	m, ok := a.running[h]
	delete(a.running, h)
	a.mu.Unlock()
	if !ok {
		return nil
	}
	return m.Close()
}

// GateResolver returns a handle-to-gate lookup bound to this arena. Its
// result type is an unnamed interface rather than sched.Gate, so the daemon
// wraps it in a sched.MacroGateResolver before passing it to
// sched.New/SetMacroGateResolver.
func (a *Arena) GateResolver() func(code.MacroHandle) interface {
	Lock(ctx context.Context) error
	Unlock()
} {
	return func(h code.MacroHandle) interface {
		Lock(ctx context.Context) error
		Unlock()
	} {
		m, ok := a.Get(h)
		if !ok {
			return nil
		}
		return m.gate
	}
}

package sched_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/mctl/channel"
	"github.com/joeycumines/mctl/code"
	"github.com/joeycumines/mctl/sched"
)

func mustCode(t *testing.T, src string, ch channel.Channel) *code.Code {
	t.Helper()
	c, err := code.Parse(src, ch)
	require.NoError(t, err)
	return c
}

// TestScheduler_OrderPreservation checks §8 property 3: codes admitted in a
// given order on the same channel and class finish in that same order.
func TestScheduler_OrderPreservation(t *testing.T) {
	s := sched.New(context.Background(), nil)

	const n = 8
	var mu sync.Mutex
	var finishOrder []int

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		// Admit and BeginFinish happen on the admitting goroutine itself,
		// one at a time: BeginFinish releases the start-lock (once the
		// finish-lock is held), letting the next admission proceed while
		// this one's simulated work is still in flight.
		a, err := s.Admit(context.Background(), mustCode(t, "G1 X1", channel.HTTP), false)
		require.NoError(t, err)
		require.NoError(t, a.BeginFinish(false))

		wg.Add(1)
		go func(i int, a *sched.Admission) {
			defer wg.Done()
			time.Sleep(time.Duration(n-i) * time.Millisecond)
			mu.Lock()
			finishOrder = append(finishOrder, i)
			mu.Unlock()
			a.Release()
		}(i, a)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		assert.Equal(t, i, finishOrder[i], "finish order must equal admission order")
	}
}

// TestScheduler_PriorityOvertake checks §8 property 4: a Prioritized code
// admitted after a blocked Regular code on the same channel is still
// admitted (different class lock), i.e. it is not queued behind Regular.
func TestScheduler_PriorityOvertake(t *testing.T) {
	s := sched.New(context.Background(), nil)

	regular := mustCode(t, "G1 X1", channel.HTTP)
	aReg, err := s.Admit(context.Background(), regular, false)
	require.NoError(t, err)
	defer aReg.Release()

	prioritized := mustCode(t, "M112", channel.HTTP)
	prioritized.Flags = prioritized.Flags.Set(code.IsPrioritized)

	done := make(chan struct{})
	go func() {
		aPrio, err := s.Admit(context.Background(), prioritized, false)
		assert.NoError(t, err)
		if aPrio != nil {
			aPrio.Release()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("prioritized admission blocked behind regular class")
	}
}

// TestScheduler_MacroIsolation checks §8 property 5: two codes belonging to
// different macro handles proceed concurrently when a gate resolver scopes
// locking per handle, rather than sharing one global Macro class lock.
func TestScheduler_MacroIsolation(t *testing.T) {
	gates := map[code.MacroHandle]*testGate{
		1: newTestGate(),
		2: newTestGate(),
	}
	s := sched.New(context.Background(), func(h code.MacroHandle) sched.Gate {
		return gates[h]
	})

	codeFor := func(handle code.MacroHandle) *code.Code {
		c := mustCode(t, "G1 X1", channel.HTTP)
		c.Flags = c.Flags.Set(code.IsFromMacro)
		c.Macro = handle
		return c
	}

	a1, err := s.Admit(context.Background(), codeFor(1), false)
	require.NoError(t, err)
	defer a1.Release()

	done := make(chan struct{})
	go func() {
		a2, err := s.Admit(context.Background(), codeFor(2), false)
		assert.NoError(t, err)
		if a2 != nil {
			a2.Release()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("distinct macro handles must not share a gate")
	}
}

// TestScheduler_CancellationSafety checks §8 property 6: cancelling a
// channel unblocks any code still waiting on that channel's start-lock.
func TestScheduler_CancellationSafety(t *testing.T) {
	s := sched.New(context.Background(), nil)

	holder, err := s.Admit(context.Background(), mustCode(t, "G1 X1", channel.HTTP), false)
	require.NoError(t, err)
	defer holder.Release()

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Admit(context.Background(), mustCode(t, "G1 X2", channel.HTTP), false)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	s.CancelPending(channel.HTTP)

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, code.ErrCancelled)
	case <-time.After(time.Second):
		t.Fatal("cancellation did not unblock waiting admission")
	}
}

func TestScheduler_Bypass(t *testing.T) {
	s := sched.New(context.Background(), nil)
	ctx := sched.WithBypass(context.Background())
	a, err := s.Admit(ctx, mustCode(t, "G1 X1", channel.HTTP), false)
	require.NoError(t, err)
	require.NoError(t, a.BeginFinish(false))
	a.Release()
}

type testGate struct {
	mu sync.Mutex
}

func newTestGate() *testGate { return &testGate{} }

func (g *testGate) Lock(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.mu.Lock()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *testGate) Unlock() {
	g.mu.Unlock()
}

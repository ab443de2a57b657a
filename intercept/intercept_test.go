package intercept_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/mctl/channel"
	"github.com/joeycumines/mctl/code"
	"github.com/joeycumines/mctl/intercept"
)

type fakeInterceptor struct {
	verdict  intercept.Verdict
	result   *code.CodeResult
	notified []*code.Code
}

func (f *fakeInterceptor) Intercept(ctx context.Context, c *code.Code) (intercept.Decision, error) {
	return intercept.Decision{Verdict: f.verdict, Result: f.result}, nil
}

func (f *fakeInterceptor) Notify(ctx context.Context, c *code.Code, result *code.CodeResult) {
	f.notified = append(f.notified, c)
}

func mustCode(t *testing.T, src string) *code.Code {
	t.Helper()
	c, err := code.Parse(src, channel.HTTP)
	require.NoError(t, err)
	return c
}

func TestBus_FirstNonIgnoreWins(t *testing.T) {
	b := intercept.NewBus()
	ignorer := &fakeInterceptor{verdict: intercept.Ignore}
	resolver := &fakeInterceptor{verdict: intercept.Resolve, result: code.NewResult().Add(code.Success, "ok")}
	b.Register(intercept.Pre, nil, ignorer)
	b.Register(intercept.Pre, nil, resolver)

	d, err := b.Run(context.Background(), intercept.Pre, mustCode(t, "G1 X1"))
	require.NoError(t, err)
	assert.Equal(t, intercept.Resolve, d.Verdict)
	assert.True(t, d.Result.IsSuccessful())
}

func TestBus_AllIgnoreFallsThrough(t *testing.T) {
	b := intercept.NewBus()
	b.Register(intercept.Pre, nil, &fakeInterceptor{verdict: intercept.Ignore})
	d, err := b.Run(context.Background(), intercept.Pre, mustCode(t, "G1 X1"))
	require.NoError(t, err)
	assert.Equal(t, intercept.Ignore, d.Verdict)
}

func TestBus_ChannelScoping(t *testing.T) {
	b := intercept.NewBus()
	usbOnly := &fakeInterceptor{verdict: intercept.Cancel}
	b.Register(intercept.Pre, []channel.Channel{channel.USB}, usbOnly)

	d, err := b.Run(context.Background(), intercept.Pre, mustCode(t, "G1 X1"))
	require.NoError(t, err)
	assert.Equal(t, intercept.Ignore, d.Verdict, "HTTP channel code must not see a USB-scoped interceptor")
}

func TestBus_Deregister(t *testing.T) {
	b := intercept.NewBus()
	f := &fakeInterceptor{verdict: intercept.Cancel}
	reg := b.Register(intercept.Pre, nil, f)
	reg.Deregister()

	d, err := b.Run(context.Background(), intercept.Pre, mustCode(t, "G1 X1"))
	require.NoError(t, err)
	assert.Equal(t, intercept.Ignore, d.Verdict)
}

func TestBus_ExecutedNotify(t *testing.T) {
	b := intercept.NewBus()
	f := &fakeInterceptor{}
	b.Register(intercept.Executed, nil, f)
	c := mustCode(t, "G1 X1")
	b.NotifyExecuted(context.Background(), c, code.NewResult())
	require.Len(t, f.notified, 1)
	assert.Same(t, c, f.notified[0])
}

func TestBus_GetCodeBeingIntercepted(t *testing.T) {
	b := intercept.NewBus()
	var seen bool
	b.Register(intercept.Pre, nil, interceptorFunc(func(ctx context.Context, c *code.Code) (intercept.Decision, error) {
		active, ok := b.GetCodeBeingIntercepted(channel.HTTP)
		seen = ok && active == c
		return intercept.Decision{Verdict: intercept.Ignore}, nil
	}))
	_, err := b.Run(context.Background(), intercept.Pre, mustCode(t, "G1 X1"))
	require.NoError(t, err)
	assert.True(t, seen)

	_, ok := b.GetCodeBeingIntercepted(channel.HTTP)
	assert.False(t, ok, "active code must be cleared after Run returns")
}

type interceptorFunc func(ctx context.Context, c *code.Code) (intercept.Decision, error)

func (f interceptorFunc) Intercept(ctx context.Context, c *code.Code) (intercept.Decision, error) {
	return f(ctx, c)
}

func (f interceptorFunc) Notify(ctx context.Context, c *code.Code, result *code.CodeResult) {}

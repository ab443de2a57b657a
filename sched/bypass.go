package sched

import "context"

type bypassKey struct{}

// WithBypass marks ctx as belonging to a nested code emitted by an
// interceptor while it is itself being dispatched over the same
// connection. Admit skips ordering entirely for such codes, per §4.3: "If
// the current task is itself executing as an interceptor on this
// connection, skip ordering entirely (no locks) to prevent self-deadlock".
func WithBypass(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassKey{}, true)
}

func isBypass(ctx context.Context) bool {
	v, _ := ctx.Value(bypassKey{}).(bool)
	return v
}

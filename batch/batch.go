// Package batch adapts github.com/joeycumines/go-utilpkg/microbatch to coalesce
// firmware sends: several codes admitted back to back on the same channel
// can be pipelined onto the wire in one microbatch rather than one
// round trip each, while each caller still gets its own result via
// JobResult.Wait (§4.6's pipelining requirement).
package batch

import (
	"context"
	"time"

	"github.com/joeycumines/go-utilpkg/microbatch"

	"github.com/joeycumines/mctl/code"
)

// Job is one code queued for firmware dispatch; Result is filled in by the
// Sender before the batch processor returns.
type Job struct {
	Code   *code.Code
	Result *code.CodeResult
	Err    error
}

// Sender performs the actual wire write for an entire batch of jobs,
// filling in Result/Err for each. It is supplied by the firmware
// transport binding.
type Sender func(ctx context.Context, jobs []*Job) error

// Batcher coalesces codes destined for firmware into microbatches.
type Batcher struct {
	b *microbatch.Batcher[*Job]
}

// Config mirrors microbatch.BatcherConfig, exposed so callers needn't
// import microbatch directly just to tune batching.
type Config struct {
	MaxSize        int
	FlushInterval  time.Duration
	MaxConcurrency int
}

// New constructs a Batcher. config may be nil to accept microbatch's
// defaults (16 jobs or 50ms, whichever first, concurrency 1).
func New(config *Config, send Sender) *Batcher {
	var mc *microbatch.BatcherConfig
	if config != nil {
		mc = &microbatch.BatcherConfig{
			MaxSize:        config.MaxSize,
			FlushInterval:  config.FlushInterval,
			MaxConcurrency: config.MaxConcurrency,
		}
	}
	return &Batcher{b: microbatch.NewBatcher(mc, microbatch.BatchProcessor[*Job](func(ctx context.Context, jobs []*Job) error {
		return send(ctx, jobs)
	}))}
}

// Submit enqueues c for dispatch, returning a handle whose Wait blocks
// until the surrounding batch has been sent and this job's Result/Err are
// populated.
func (bt *Batcher) Submit(ctx context.Context, c *code.Code) (*Job, error) {
	job := &Job{Code: c}
	res, err := bt.b.Submit(ctx, job)
	if err != nil {
		return nil, err
	}
	if err := res.Wait(ctx); err != nil {
		return nil, err
	}
	return res.Job, nil
}

// Close releases resources, dropping any batch in flight.
func (bt *Batcher) Close() error {
	return bt.b.Close()
}

// Shutdown drains pending batches before returning, per
// microbatch.Batcher.Shutdown.
func (bt *Batcher) Shutdown(ctx context.Context) error {
	return bt.b.Shutdown(ctx)
}

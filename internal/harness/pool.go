package harness

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// pool runs tasks on at most workers goroutines. The first task error cancels the pool's context so no further
// tasks are submitted; tasks already running are left to finish.
type pool struct {
	group *errgroup.Group
	ctx   context.Context
}

func newPool(ctx context.Context, workers int) *pool {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(max(workers, 1))
	return &pool{group: group, ctx: ctx}
}

// Go blocks until a worker is free. It returns false once the pool has been cancelled.
func (p *pool) Go(task func(ctx context.Context) error) bool {
	if p.ctx.Err() != nil {
		return false
	}
	p.group.Go(func() error {
		return task(p.ctx)
	})
	return true
}

func (p *pool) Context() context.Context {
	return p.ctx
}

func (p *pool) Wait() error {
	return p.group.Wait()
}

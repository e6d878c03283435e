package stabforest

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TaskRuntime is the only scheduling surface ParallelJoin uses to fan
// work out: it never spawns a goroutine directly. Submit enqueues a unit
// of work; Join waits for every submitted task to finish (or ctx to be
// done) and returns the first error encountered, if any.
type TaskRuntime interface {
	Submit(task func() error)
	Join(ctx context.Context) error
}

// InlineRuntime runs every submitted task synchronously, on the calling
// goroutine, inside Submit itself. Useful for debugging a parallel join
// without any actual concurrency. Join reports the first task error.
type InlineRuntime struct {
	err error
}

// NewInlineRuntime returns a TaskRuntime with no concurrency.
func NewInlineRuntime() *InlineRuntime {
	return &InlineRuntime{}
}

func (r *InlineRuntime) Submit(task func() error) {
	if err := task(); err != nil && r.err == nil {
		r.err = err
	}
}

func (r *InlineRuntime) Join(_ context.Context) error {
	return r.err
}

// GoroutinePerTaskRuntime spawns one goroutine per submitted task, with
// no cap on concurrency.
type GoroutinePerTaskRuntime struct {
	g *errgroup.Group
}

// NewGoroutinePerTaskRuntime returns a TaskRuntime with unbounded
// goroutine-per-task concurrency.
func NewGoroutinePerTaskRuntime() *GoroutinePerTaskRuntime {
	return &GoroutinePerTaskRuntime{g: &errgroup.Group{}}
}

func (r *GoroutinePerTaskRuntime) Submit(task func() error) {
	r.g.Go(task)
}

func (r *GoroutinePerTaskRuntime) Join(ctx context.Context) error {
	return waitErrgroup(ctx, r.g)
}

// BoundedPoolRuntime runs submitted tasks across a fixed number of
// workers, using a buffered channel as a semaphore the way
// internal/packagemanager/manager.go bounds concurrent fetches in
// SeleniaProject-Orizon.
type BoundedPoolRuntime struct {
	g   *errgroup.Group
	ctx context.Context
	sem chan struct{}
	log *zap.Logger
}

// NewBoundedPoolRuntime returns a TaskRuntime that runs at most workers
// tasks at a time. Submitted tasks observe ctx's cancellation.
func NewBoundedPoolRuntime(ctx context.Context, workers int, log *zap.Logger) *BoundedPoolRuntime {
	g, gctx := errgroup.WithContext(ctx)
	return &BoundedPoolRuntime{
		g:   g,
		ctx: gctx,
		sem: make(chan struct{}, workers),
		log: orNop(log),
	}
}

func (r *BoundedPoolRuntime) Submit(task func() error) {
	r.g.Go(func() error {
		select {
		case r.sem <- struct{}{}:
		case <-r.ctx.Done():
			return r.ctx.Err()
		}
		defer func() { <-r.sem }()

		if err := task(); err != nil {
			r.log.Warn("stab-forest: task failed", zap.Error(err))
			return err
		}
		return nil
	})
}

func (r *BoundedPoolRuntime) Join(ctx context.Context) error {
	return waitErrgroup(ctx, r.g)
}

func waitErrgroup(ctx context.Context, g *errgroup.Group) error {
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

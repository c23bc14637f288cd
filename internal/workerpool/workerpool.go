// Package workerpool provides the optional shared-memory chunked worker
// pool the local kernel (C2) may use inside one process (§5: "the local
// kernel may use a shared-memory worker pool inside one process; the
// reducer tree is oblivious to this").
//
// Adapted from itohio-EasyRobot's generics/helpers.WorkerPool: chunked
// dispatch over a numeric range with bounded concurrency and first-error
// propagation, rebuilt on golang.org/x/sync/errgroup and
// golang.org/x/sync/semaphore instead of a hand-rolled channel/sync.Pool
// job queue.
package workerpool

import (
	"context"

	"github.com/ctfgo/ctf/internal/errs"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Callback processes the half-open chunk [start, end).
type Callback func(start, end int) error

// Pool bounds how many chunks of a range run concurrently. A nil *Pool
// means "run serially" -- kernel.Execute treats it that way so callers
// that don't care about parallelism don't need a sentinel pool.
type Pool struct {
	workers   int
	chunkSize int
	sem       *semaphore.Weighted
}

// New creates a Pool that runs up to `workers` chunks concurrently, each
// covering at most chunkSize elements of the range passed to Run. A
// chunkSize <= 0 means "one chunk per worker slot" (computed from the
// range length in Run).
func New(workers, chunkSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers, chunkSize: chunkSize, sem: semaphore.NewWeighted(int64(workers))}
}

func (p *Pool) chunk(total int) int {
	if p.chunkSize > 0 {
		return p.chunkSize
	}
	size := (total + p.workers - 1) / p.workers
	if size < 1 {
		size = 1
	}
	return size
}

// Run splits [0,total) into chunks and runs fn over each concurrently,
// bounded by the pool's weighted semaphore, returning the first error.
func (p *Pool) Run(ctx context.Context, total int, fn Callback) error {
	if fn == nil {
		return errs.New(errs.InvalidInput, "workerpool: nil callback")
	}
	if total <= 0 {
		return nil
	}
	if p == nil {
		return fn(0, total)
	}

	chunkSize := p.chunk(total)
	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < total; start += chunkSize {
		end := start + chunkSize
		if end > total {
			end = total
		}
		start, end := start, end
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		g.Go(func() error {
			defer p.sem.Release(1)
			return fn(start, end)
		})
	}
	return g.Wait()
}

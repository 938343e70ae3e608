package qorus

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// SessionPool bounds how many sessions sharing one read-only mmapped
// ModelFile may run Forward concurrently. A process may host multiple
// sessions by giving each its own arena and KV cache; the weight mmap
// is immutable and safely shareable across sessions by reference.
// Each Model is still single-threaded within its own Forward call; the
// pool only arbitrates how many distinct Models run at once.
type SessionPool struct {
	file *ModelFile
	sem  *semaphore.Weighted
}

// NewSessionPool wraps an already-loaded ModelFile, allowing up to
// maxConcurrent sessions to run Forward at the same time.
func NewSessionPool(file *ModelFile, maxConcurrent int64) *SessionPool {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &SessionPool{file: file, sem: semaphore.NewWeighted(maxConcurrent)}
}

// NewSession builds a fresh Model (its own arena and KV cache) over
// the pool's shared ModelFile, ready for BuildGraph.
func (p *SessionPool) NewSession(maxWindow uint64) (*Model, error) {
	arena, err := NewArena(defaultArenaSize(p.file.Header, max1(maxWindow)))
	if err != nil {
		return nil, err
	}
	return &Model{File: p.file, Arena: arena, state: StateLoaded}, nil
}

func max1(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	return n
}

// RunAll prepares n independent sessions (each with its own arena and
// KV cache over the pool's shared weights) and runs fn on each,
// bounded to the pool's concurrency limit. It returns the first error
// encountered, cancelling the remaining work, in the style of
// golang.org/x/sync/errgroup.
func (p *SessionPool) RunAll(ctx context.Context, n int, maxWindow uint64, fn func(ctx context.Context, session *Model) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := p.sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer p.sem.Release(1)

			session, err := p.NewSession(maxWindow)
			if err != nil {
				return err
			}
			defer func() { session.File = nil }() // don't close the pool's shared mmap

			if err := session.BuildGraph(); err != nil {
				return err
			}
			if err := session.AllocKVCache(); err != nil {
				return err
			}
			return fn(ctx, session)
		})
	}
	return g.Wait()
}

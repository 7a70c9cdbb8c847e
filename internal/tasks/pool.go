package tasks

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/roster/internal/shared"
)

const (
	DefaultPoolSize = 5
	MaxPoolSize     = 10
)

// Pool runs submitted tasks on a fixed number of worker goroutines.
//
// The queue is unbounded, so [Submit] never blocks the caller.
type Pool struct {
	size   int
	logger *log.Logger

	mu     sync.Mutex
	ready  *sync.Cond
	closed bool
	queue  []func()
	wg     sync.WaitGroup
}

// NewPool starts size workers. Sizes below 1 fall back to [DefaultPoolSize]; sizes above [MaxPoolSize] are capped.
func NewPool(size int, logger *log.Logger) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	if size > MaxPoolSize {
		size = MaxPoolSize
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	p := &Pool{
		size:   size,
		logger: logger,
	}
	p.ready = sync.NewCond(&p.mu)

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.ready.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		job := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()

		job()
	}
}

// Pending returns the number of queued tasks no worker has started yet.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Close stops accepting tasks and waits for queued and running tasks to finish. It is safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.ready.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()
}

// enqueue queues job for a worker without blocking, reporting false once the pool is closed.
func (p *Pool) enqueue(job func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	p.queue = append(p.queue, job)
	p.ready.Signal()
	return true
}

// Submit queues fn on the pool and returns a future for its result.
//
// fn receives ctx. If ctx is done before a worker starts fn, the future resolves with ctx.Err() and fn never runs.
func Submit[T any](p *Pool, ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()

	job := func() {
		if err := ctx.Err(); err != nil {
			var zero T
			f.resolve(zero, err)
			return
		}

		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("task panicked", "panic", r, "stack", string(debug.Stack()))
				var zero T
				f.resolve(zero, shared.UnknownError("task panicked", fmt.Errorf("%v", r)))
			}
		}()

		v, err := fn(ctx)
		f.resolve(v, err)
	}

	if !p.enqueue(job) {
		var zero T
		f.resolve(zero, shared.ErrPoolClosed)
	}

	return f
}

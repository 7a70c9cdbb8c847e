package tasks

import (
	"context"
	"sync"
)

// Future is the eventual result of a task submitted to a [Pool].
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a future that is already complete.
func Resolved[T any](value T, err error) *Future[T] {
	f := newFuture[T]()
	f.resolve(value, err)
	return f
}

// resolve records the outcome. Only the first call has any effect.
func (f *Future[T]) resolve(value T, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task completes or ctx is done, whichever comes first.
// Giving up on the wait does not cancel the task.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then delivers the result to cb through d once the task completes. cb runs exactly once.
func (f *Future[T]) Then(d Dispatcher, cb func(T, error)) {
	go func() {
		<-f.done
		d.Dispatch(func() { cb(f.value, f.err) })
	}()
}

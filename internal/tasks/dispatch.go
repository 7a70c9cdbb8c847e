package tasks

import (
	"sync"
)

// Dispatcher decides which goroutine runs a completion callback.
type Dispatcher interface {
	Dispatch(fn func())
}

// Inline runs callbacks immediately on the calling goroutine.
type Inline struct{}

func (Inline) Dispatch(fn func()) { fn() }

// DispatchFunc adapts a plain function to [Dispatcher], e.g. a bubbletea program's Send.
type DispatchFunc func(fn func())

func (d DispatchFunc) Dispatch(fn func()) { d(fn) }

// Loop runs posted callbacks one at a time, in order, on a single goroutine.
//
// The queue is unbounded so a callback may post further callbacks without deadlocking.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
	done   chan struct{}
}

// NewLoop starts the loop goroutine.
func NewLoop() *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

// Dispatch queues fn. Callbacks posted after [Loop.Close] are dropped and Dispatch reports nothing.
func (l *Loop) Dispatch(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Close runs every callback queued so far, then stops the loop.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)

	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		closed := l.closed
		l.mu.Unlock()

		for _, fn := range batch {
			fn()
		}

		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-l.wake
	}
}

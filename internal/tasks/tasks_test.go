package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/roster/internal/shared"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPool(t *testing.T) {
	t.Run("size is clamped", func(t *testing.T) {
		tc := map[int]int{-1: DefaultPoolSize, 0: DefaultPoolSize, 3: 3, 10: 10, 50: MaxPoolSize}
		for in, want := range tc {
			p := NewPool(in, nil)
			assert.Equal(t, want, p.Size(), "NewPool(%d)", in)
			p.Close()
		}
	})

	t.Run("returns task results", func(t *testing.T) {
		p := NewPool(2, nil)
		defer p.Close()

		f := Submit(p, context.Background(), func(ctx context.Context) (int, error) {
			return 42, nil
		})

		v, err := f.Wait(waitCtx(t))
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	})

	t.Run("returns task errors", func(t *testing.T) {
		p := NewPool(1, nil)
		defer p.Close()

		boom := errors.New("boom")
		f := Submit(p, context.Background(), func(ctx context.Context) (string, error) {
			return "", boom
		})

		_, err := f.Wait(waitCtx(t))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("never exceeds its size", func(t *testing.T) {
		const size = 3
		p := NewPool(size, nil)
		defer p.Close()

		var running, peak atomic.Int32
		futures := make([]*Future[struct{}], 20)
		for i := range futures {
			futures[i] = Submit(p, context.Background(), func(ctx context.Context) (struct{}, error) {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return struct{}{}, nil
			})
		}

		for _, f := range futures {
			_, err := f.Wait(waitCtx(t))
			require.NoError(t, err)
		}
		assert.LessOrEqual(t, peak.Load(), int32(size))
	})

	t.Run("cancelled before start never runs", func(t *testing.T) {
		p := NewPool(1, nil)
		defer p.Close()

		release := make(chan struct{})
		blocker := Submit(p, context.Background(), func(ctx context.Context) (struct{}, error) {
			<-release
			return struct{}{}, nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		var ran atomic.Bool
		f := Submit(p, ctx, func(ctx context.Context) (int, error) {
			ran.Store(true)
			return 1, nil
		})
		cancel()
		close(release)

		_, err := blocker.Wait(waitCtx(t))
		require.NoError(t, err)

		_, err = f.Wait(waitCtx(t))
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, ran.Load())
	})

	t.Run("panics become unknown errors", func(t *testing.T) {
		p := NewPool(1, nil)
		defer p.Close()

		f := Submit(p, context.Background(), func(ctx context.Context) (int, error) {
			panic("kaboom")
		})

		_, err := f.Wait(waitCtx(t))
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrUnknown)
		assert.Contains(t, err.Error(), "kaboom")

		f2 := Submit(p, context.Background(), func(ctx context.Context) (int, error) { return 7, nil })
		v, err := f2.Wait(waitCtx(t))
		require.NoError(t, err, "worker should survive a panic")
		assert.Equal(t, 7, v)
	})

	t.Run("close drains queued work", func(t *testing.T) {
		p := NewPool(1, nil)

		var count atomic.Int32
		for range 5 {
			Submit(p, context.Background(), func(ctx context.Context) (struct{}, error) {
				time.Sleep(time.Millisecond)
				count.Add(1)
				return struct{}{}, nil
			})
		}

		p.Close()
		p.Close()
		assert.Equal(t, int32(5), count.Load())
	})

	t.Run("submit never blocks on a busy pool", func(t *testing.T) {
		p := NewPool(1, nil)
		defer p.Close()

		release := make(chan struct{})
		block := func(ctx context.Context) (struct{}, error) {
			<-release
			return struct{}{}, nil
		}

		submitted := make(chan []*Future[struct{}], 1)
		go func() {
			var fs []*Future[struct{}]
			for range 100 {
				fs = append(fs, Submit(p, context.Background(), block))
			}
			submitted <- fs
		}()

		var futures []*Future[struct{}]
		select {
		case futures = <-submitted:
		case <-time.After(2 * time.Second):
			close(release)
			t.Fatal("Submit blocked while every worker was busy")
		}
		assert.GreaterOrEqual(t, p.Pending(), 99)

		close(release)
		for _, f := range futures {
			_, err := f.Wait(waitCtx(t))
			require.NoError(t, err)
		}
		assert.Zero(t, p.Pending())
	})

	t.Run("submit after close", func(t *testing.T) {
		p := NewPool(1, nil)
		p.Close()

		f := Submit(p, context.Background(), func(ctx context.Context) (int, error) { return 1, nil })
		_, err := f.Wait(waitCtx(t))
		assert.ErrorIs(t, err, shared.ErrPoolClosed)
	})
}

func TestFuture(t *testing.T) {
	t.Run("wait honours context", func(t *testing.T) {
		f := newFuture[int]()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := f.Wait(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		select {
		case <-f.Done():
			t.Fatal("future should still be pending")
		default:
		}
	})

	t.Run("resolves once", func(t *testing.T) {
		f := newFuture[int]()
		f.resolve(1, nil)
		f.resolve(2, errors.New("late"))

		v, err := f.Wait(waitCtx(t))
		require.NoError(t, err)
		assert.Equal(t, 1, v)
	})

	t.Run("then fires exactly once", func(t *testing.T) {
		p := NewPool(2, nil)
		defer p.Close()

		var calls atomic.Int32
		done := make(chan int, 2)

		f := Submit(p, context.Background(), func(ctx context.Context) (int, error) { return 9, nil })
		f.Then(Inline{}, func(v int, err error) {
			calls.Add(1)
			done <- v
		})

		select {
		case v := <-done:
			assert.Equal(t, 9, v)
		case <-time.After(5 * time.Second):
			t.Fatal("callback never fired")
		}

		time.Sleep(10 * time.Millisecond)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("resolved", func(t *testing.T) {
		f := Resolved("ok", nil)
		v, err := f.Wait(waitCtx(t))
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
	})
}

func TestLoop(t *testing.T) {
	t.Run("runs callbacks in order on one goroutine", func(t *testing.T) {
		l := NewLoop()

		var (
			mu    sync.Mutex
			order []int
		)
		for i := range 50 {
			l.Dispatch(func() {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
			})
		}
		l.Close()

		require.Len(t, order, 50)
		for i, v := range order {
			assert.Equal(t, i, v)
		}
	})

	t.Run("callbacks never overlap", func(t *testing.T) {
		l := NewLoop()
		p := NewPool(4, nil)

		var active, overlaps atomic.Int32
		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			f := Submit(p, context.Background(), func(ctx context.Context) (int, error) { return 1, nil })
			f.Then(l, func(int, error) {
				defer wg.Done()
				if active.Add(1) > 1 {
					overlaps.Add(1)
				}
				time.Sleep(time.Millisecond)
				active.Add(-1)
			})
		}

		wg.Wait()
		p.Close()
		l.Close()
		assert.Zero(t, overlaps.Load())
	})

	t.Run("callback may dispatch again", func(t *testing.T) {
		l := NewLoop()
		done := make(chan struct{})

		l.Dispatch(func() {
			l.Dispatch(func() { close(done) })
		})

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("nested dispatch never ran")
		}
		l.Close()
	})

	t.Run("dispatch after close is dropped", func(t *testing.T) {
		l := NewLoop()
		l.Close()

		var ran atomic.Bool
		l.Dispatch(func() { ran.Store(true) })
		l.Close()
		assert.False(t, ran.Load())
	})
}

func TestProgressUpdate_NonBlocking(t *testing.T) {
	t.Run("full channel drops updates", func(t *testing.T) {
		ch := make(chan ProgressUpdate, 1)

		done := make(chan struct{})
		go func() {
			for i := range 10 {
				SendProgress(ch, MergeRecordUpdate(i+1, 10, "S100", "added"))
			}
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("SendProgress blocked on a full channel")
		}

		update := <-ch
		assert.Equal(t, MergeRecords, update.Phase)
		assert.Equal(t, "[1/10] S100: added", update.Message)
	})

	t.Run("nil channel", func(t *testing.T) {
		assert.NotPanics(t, func() { SendProgress(nil, CompletedUpdate("done", nil)) })
	})

	t.Run("phase names", func(t *testing.T) {
		assert.Equal(t, "read_file", ReadFile.String())
		assert.Equal(t, "merge_records", MergeRecords.String())
		assert.Equal(t, "complete", Complete.String())
		assert.Equal(t, "", Phase(99).String())
	})
}

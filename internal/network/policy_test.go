package network

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequential(t *testing.T) {
	t.Run("runs tasks in order", func(t *testing.T) {
		var order []int
		tasks := make([]Task, 5)
		for i := range tasks {
			tasks[i] = func(context.Context) { order = append(order, i) }
		}

		require.NoError(t, Sequential().Run(context.Background(), tasks))
		assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	})

	t.Run("stops when the context is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		var ran int
		tasks := []Task{
			func(context.Context) { ran++; cancel() },
			func(context.Context) { ran++ },
		}

		err := Sequential().Run(ctx, tasks)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, ran)
	})
}

func TestBounded(t *testing.T) {
	t.Run("limit of one is sequential", func(t *testing.T) {
		assert.Equal(t, "sequential", Bounded(1).Name())
		assert.Equal(t, "sequential", Bounded(0).Name())
		assert.Equal(t, "bounded", Bounded(3).Name())
	})

	t.Run("never exceeds the limit", func(t *testing.T) {
		var running, peak int32
		var mu sync.Mutex
		done := make([]bool, 12)

		tasks := make([]Task, len(done))
		for i := range tasks {
			tasks[i] = func(context.Context) {
				n := atomic.AddInt32(&running, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&running, -1)

				mu.Lock()
				done[i] = true
				mu.Unlock()
			}
		}

		require.NoError(t, Bounded(3).Run(context.Background(), tasks))

		assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
		for i, d := range done {
			assert.True(t, d, "task %d did not run", i)
		}
	})

	t.Run("returns the context error", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := Bounded(2).Run(ctx, []Task{func(context.Context) {}})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPutGetFIFOOrder(t *testing.T) {
	q := New[int](3)

	require.NoError(t, q.Put(1))
	require.NoError(t, q.Put(2))
	require.NoError(t, q.Put(3))
	assert.ErrorIs(t, q.Put(4), ErrFull)

	ctx := context.Background()
	for _, want := range []int{1, 2, 3} {
		got, ok := q.Get(ctx)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestPeekIsNonDestructive(t *testing.T) {
	q := New[int](2)
	require.NoError(t, q.Put(7))

	ctx := context.Background()
	v, ok := q.Peek(ctx)
	require.True(t, ok)
	assert.Equal(t, 7, v)
	assert.Equal(t, 1, q.Count())

	q.Release()
	assert.Equal(t, 0, q.Count())
}

func TestGetTimesOutWhenEmpty(t *testing.T) {
	q := New[int](1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := q.Get(ctx)
	assert.False(t, ok)
}

func TestGetWakesOnConcurrentPut(t *testing.T) {
	q := New[int](1)

	done := make(chan int, 1)
	go func() {
		v, ok := q.Get(context.Background())
		if !ok {
			done <- -1

			return
		}
		done <- v
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.Put(42))

	select {
	case v := <-done:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("Get never woke up")
	}
}

func TestDrainEmptiesQueue(t *testing.T) {
	q := New[int](3)
	require.NoError(t, q.Put(1))
	require.NoError(t, q.Put(2))

	q.Drain()
	assert.Equal(t, 0, q.Count())
}

// Any sequence of Put/Release respects capacity and FIFO order.
func TestQueueCapacityProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 8).Draw(t, "capacity")
		q := New[int](capacity)

		var model []int

		ops := rapid.SliceOfN(rapid.IntRange(0, 1), 1, 50).Draw(t, "ops")
		for _, op := range ops {
			if op == 0 {
				v := rapid.Int().Draw(t, "value")
				err := q.Put(v)
				if len(model) >= capacity {
					assert.ErrorIs(t, err, ErrFull)
				} else {
					require.NoError(t, err)
					model = append(model, v)
				}
			} else if len(model) > 0 {
				q.Release()
				model = model[1:]
			}

			assert.Equal(t, len(model), q.Count())
		}
	})
}

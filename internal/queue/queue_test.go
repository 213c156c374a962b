package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopFIFOPerProducer(t *testing.T) {
	q := New[int](0)
	for i := 0; i < 5; i++ {
		require.True(t, q.Push(i))
	}
	for i := 0; i < 5; i++ {
		v, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestTryPopOnEmpty(t *testing.T) {
	q := New[string](0)
	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestPopTimeoutExpires(t *testing.T) {
	q := New[int](0)
	start := time.Now()
	_, ok := q.PopTimeout(30 * time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestShutdownDrainsThenStops(t *testing.T) {
	q := New[int](0)
	require.True(t, q.Push(1))
	require.True(t, q.Push(2))
	q.Shutdown()

	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = q.Pop()
	assert.False(t, ok, "queue should report empty after shutdown drains")

	assert.False(t, q.Push(3), "push after shutdown must be a no-op")
}

func TestRestartAllowsPushAgain(t *testing.T) {
	q := New[int](0)
	q.Shutdown()
	assert.False(t, q.Push(1))
	q.Restart()
	assert.True(t, q.Push(1))
}

func TestBoundedPushBlocksUntilSpace(t *testing.T) {
	q := New[int](1)
	require.True(t, q.Push(1))

	var wg sync.WaitGroup
	wg.Add(1)
	pushed := make(chan bool, 1)
	go func() {
		defer wg.Done()
		pushed <- q.Push(2)
	}()

	time.Sleep(20 * time.Millisecond)
	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	wg.Wait()
	assert.True(t, <-pushed)
}

func TestConcurrentProducersConsumers(t *testing.T) {
	q := New[int](100)
	const n = 1000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			q.Push(i)
		}
		q.Shutdown()
	}()

	count := 0
	for {
		_, ok := q.Pop()
		if !ok {
			break
		}
		count++
	}
	wg.Wait()
	assert.Equal(t, n, count)
}

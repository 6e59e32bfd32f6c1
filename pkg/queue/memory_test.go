package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryQueue_order(t *testing.T) {
	q := NewInMemoryQueue(4)
	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))
	require.NoError(t, q.Enqueue(3))
	assert.Equal(t, 3, q.Size())

	first, err := q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	rest, err := q.ReadAllMessages()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{2, 3}, rest)
	assert.Equal(t, 0, q.Size())
}

func TestInMemoryQueue_bounds(t *testing.T) {
	q := NewInMemoryQueue(1)
	require.NoError(t, q.Enqueue("a"))
	assert.ErrorIs(t, q.Enqueue("b"), ErrQueueFull)

	require.NoError(t, q.ClearQueue())
	_, err := q.Dequeue()
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestInMemoryQueue_concurrentProducers(t *testing.T) {
	q := NewInMemoryQueue(1000)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.NoError(t, q.Enqueue(i*100+j))
			}
		}(i)
	}
	wg.Wait()

	items, err := q.ReadAllMessages()
	require.NoError(t, err)
	assert.Len(t, items, 500)
}

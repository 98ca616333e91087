package fifoqueue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBasic(t *testing.T) {
	t.Run("order", func(t *testing.T) {
		q := New[string]()
		require.EqualValues(t, 0, q.Len())
		require.NoError(t, q.Write("one"))
		require.EqualValues(t, 1, q.Len())
		require.NoError(t, q.Write("two"))
		require.EqualValues(t, 2, q.Len())
		e, ok := q.read()
		require.True(t, ok)
		require.EqualValues(t, "one", e)
		require.EqualValues(t, 1, q.Len())
		e, ok = q.read()
		require.True(t, ok)
		require.EqualValues(t, "two", e)
		require.EqualValues(t, 0, q.Len())
	})
	t.Run("closed", func(t *testing.T) {
		q := New[string]()
		require.NoError(t, q.Write("one"))
		q.Close()
		q.Close()
		require.True(t, q.IsClosed())
		require.ErrorIs(t, q.Write("two"), ErrClosed)

		e, ok := q.read()
		require.True(t, ok)
		require.EqualValues(t, "one", e)
		_, ok = q.read()
		require.False(t, ok)
	})
	t.Run("many", func(t *testing.T) {
		q := New[int]()
		for i := 0; i < 10000; i++ {
			require.NoError(t, q.Write(i))
			require.EqualValues(t, i+1, q.Len())
		}
		for i := 0; i < 10000; i++ {
			ib, ok := q.read()
			require.True(t, ok)
			require.EqualValues(t, i, ib)
		}
		require.EqualValues(t, 0, q.Len())
	})
	t.Run("batches", func(t *testing.T) {
		q := New[int]()
		for i := 0; i < 10; i++ {
			require.NoError(t, q.Write(i))
		}
		q.Close()
		sizes := make([]int, 0)
		all := make([]int, 0)
		q.ConsumeBatches(4, func(batch []int) {
			sizes = append(sizes, len(batch))
			all = append(all, batch...)
		})
		require.EqualValues(t, []int{4, 4, 2}, sizes)
		for i := range all {
			require.EqualValues(t, i, all[i])
		}
	})
}

func TestMultiThread1(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		for i := 0; i < 100; i++ {
			_ = q.Write(i)
		}
		q.Close()
	}()
	count := 0
	go func() {
		for i := 0; i < 10000; i++ {
			ib, ok := q.read()
			if !ok {
				break
			}
			require.EqualValues(t, i, ib)
			count++
			time.Sleep(1 * time.Millisecond)
		}
		wg.Done()
	}()
	wg.Wait()
	require.EqualValues(t, 100, count)
	require.EqualValues(t, 0, q.Len())
}

func TestMultiThread2(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		for i := 0; i < 100; i++ {
			_ = q.Write(i)
		}
		q.Close()
	}()
	count := 0
	go func() {
		q.Consume(func(e int) {
			count++
			time.Sleep(1 * time.Millisecond)
		})
		wg.Done()
	}()
	wg.Wait()
	require.EqualValues(t, 100, count)
	require.EqualValues(t, 0, q.Len())
}

func TestManyReaders(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup
	var mutex sync.Mutex
	count := 0
	for r := 0; r < 5; r++ {
		wg.Add(1)
		go func() {
			q.ConsumeBatches(3, func(batch []int) {
				mutex.Lock()
				count += len(batch)
				mutex.Unlock()
			})
			wg.Done()
		}()
	}
	for i := 0; i < 1000; i++ {
		require.NoError(t, q.Write(i))
	}
	q.Close()
	wg.Wait()
	require.EqualValues(t, 1000, count)
}

func BenchmarkRW(b *testing.B) {
	q := New[int]()
	for i := 0; i < b.N; i++ {
		_ = q.Write(i)
	}
	for i := 0; i < b.N; i++ {
		_, _ = q.read()
	}
}

package batch

import (
	"context"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlices_Completeness(t *testing.T) {
	for n := 0; n <= 23; n++ {
		for _, size := range []int{1, 2, 3, 5, 7, 30} {
			items := make([]int, n)
			for i := range items {
				items[i] = i * 10
			}

			var batches [][]int
			for b := range Slices(items, size) {
				batches = append(batches, b)
			}

			require.Len(t, batches, Count(n, size), "n=%d size=%d", n, size)

			var joined []int
			for _, b := range batches {
				assert.NotEmpty(t, b)
				assert.LessOrEqual(t, len(b), size)
				joined = append(joined, b...)
			}
			if n == 0 {
				assert.Empty(t, joined)
				continue
			}
			assert.Equal(t, items, joined, "n=%d size=%d", n, size)
		}
	}
}

func TestSlices_DefaultSize(t *testing.T) {
	items := make([]int, 12)
	var sizes []int
	for b := range Slices(items, 0) {
		sizes = append(sizes, len(b))
	}
	assert.Equal(t, []int{5, 5, 2}, sizes)
}

func TestSlices_StopsEarly(t *testing.T) {
	calls := 0
	for range Slices([]int{1, 2, 3, 4, 5, 6}, 2) {
		calls++
		break
	}
	assert.Equal(t, 1, calls)
}

func TestSlices_BatchesAreCopies(t *testing.T) {
	items := []int{1, 2, 3}
	for b := range Slices(items, 2) {
		b[0] = 99
	}
	assert.Equal(t, []int{1, 2, 3}, items)
}

func TestKeyed_PreservesAssociationsInKeyOrder(t *testing.T) {
	m := map[int]string{7: "g", 1: "a", 3: "c", 2: "b", 9: "i", 4: "d"}

	var batches [][]Entry[int, string]
	for b := range Keyed(m, 4) {
		batches = append(batches, b)
	}
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 4)
	assert.Len(t, batches[1], 2)

	var keys []int
	for _, b := range batches {
		for _, e := range b {
			assert.Equal(t, m[e.Key], e.Value)
			keys = append(keys, e.Key)
		}
	}
	assert.Equal(t, []int{1, 2, 3, 4, 7, 9}, keys)
}

func TestCount(t *testing.T) {
	assert.Equal(t, 0, Count(0, 5))
	assert.Equal(t, 1, Count(5, 5))
	assert.Equal(t, 2, Count(6, 5))
	assert.Equal(t, 3, Count(11, 0))
}

func TestProcess_OrderedResults(t *testing.T) {
	batches := slices.Collect(Slices([]int{1, 2, 3, 4, 5, 6, 7}, 2))

	results := Process(context.Background(), batches, 3, func(_ context.Context, i int, b []int) int {
		// Later batches finish first.
		time.Sleep(time.Duration(len(batches)-i) * time.Millisecond)
		sum := 0
		for _, v := range b {
			sum += v
		}
		return sum
	})
	assert.Equal(t, []int{3, 7, 11, 7}, results)
}

func TestProcess_BoundedWorkers(t *testing.T) {
	batches := make([][]int, 12)
	var active, peak atomic.Int32

	Process(context.Background(), batches, 2, func(_ context.Context, _ int, _ []int) struct{} {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		active.Add(-1)
		return struct{}{}
	})
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestProcess_Empty(t *testing.T) {
	out := Process(context.Background(), [][]int(nil), 4, func(context.Context, int, []int) int { return 1 })
	assert.Nil(t, out)
}

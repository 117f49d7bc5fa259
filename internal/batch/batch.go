// Package batch splits collections into bounded-size batches and processes
// them on a bounded worker pool.
package batch

import (
	"cmp"
	"context"
	"iter"
	"slices"

	conciter "github.com/sourcegraph/conc/iter"
)

// DefaultSize is the batch size used when a non-positive size is requested.
const DefaultSize = 5

// Entry is one key/value pair of a keyed batch.
type Entry[K cmp.Ordered, V any] struct {
	Key   K
	Value V
}

// Count returns the number of batches n items split into.
func Count(n, size int) int {
	size = normalize(size)
	if n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Slices lazily yields consecutive sub-slices of items with at most size elements.
// Yielded batches are copies; callers may keep or modify them.
func Slices[T any](items []T, size int) iter.Seq[[]T] {
	size = normalize(size)
	return func(yield func([]T) bool) {
		for start := 0; start < len(items); start += size {
			end := min(start+size, len(items))
			if !yield(slices.Clone(items[start:end])) {
				return
			}
		}
	}
}

// Keyed lazily yields batches of map entries in ascending key order.
func Keyed[K cmp.Ordered, V any](m map[K]V, size int) iter.Seq[[]Entry[K, V]] {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	entries := make([]Entry[K, V], len(keys))
	for i, k := range keys {
		entries[i] = Entry[K, V]{Key: k, Value: m[k]}
	}
	return Slices(entries, size)
}

// Process runs fn once per batch using at most workers goroutines and returns
// the results in batch order. fn receives the zero-based batch index. Each
// invocation must only touch its own batch; the returned slice is the single
// place results are combined.
func Process[T, R any](ctx context.Context, batches [][]T, workers int, fn func(ctx context.Context, index int, batch []T) R) []R {
	if len(batches) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = 1
	}

	jobs := make([]job[T], len(batches))
	for i, b := range batches {
		jobs[i] = job[T]{index: i, batch: b}
	}

	mapper := conciter.Mapper[job[T], R]{MaxGoroutines: workers}
	return mapper.Map(jobs, func(j *job[T]) R {
		return fn(ctx, j.index, j.batch)
	})
}

type job[T any] struct {
	index int
	batch []T
}

func normalize(size int) int {
	if size <= 0 {
		return DefaultSize
	}
	return size
}

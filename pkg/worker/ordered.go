// Package worker runs independent jobs on a bounded set of goroutines while
// keeping results in submission order.
package worker

import (
	"context"
	"sync"
)

// Func processes one item. It receives the item's index in the input.
type Func[T, R any] func(ctx context.Context, index int, item T) R

// Ordered applies fn to every item using at most workers goroutines and
// returns the results in input order. Every item is processed; fn is
// expected to honour ctx itself. With one worker or one item it runs inline.
func Ordered[T, R any](ctx context.Context, workers int, items []T, fn Func[T, R]) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}
	if workers > len(items) {
		workers = len(items)
	}
	if workers <= 1 {
		for i, item := range items {
			results[i] = fn(ctx, i, item)
		}
		return results
	}

	jobs := make(chan int, len(items))
	for i := range items {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				// Each index is written by exactly one goroutine.
				results[i] = fn(ctx, i, items[i])
			}
		}()
	}
	wg.Wait()

	return results
}

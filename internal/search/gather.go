package search

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

const defaultMaxParallel = 6

type outcome[T any] struct {
	value T
	err   error
}

// gatherAll runs tasks with at most limit in flight and waits for all of
// them. Each task's value and error land at its own index, so callers see
// results in task order. A failing task never cancels its siblings; tasks
// that could not start because ctx ended report ctx.Err().
func gatherAll[T any](ctx context.Context, limit int64, tasks []func(context.Context) (T, error)) []outcome[T] {
	results := make([]outcome[T], len(tasks))
	if len(tasks) == 0 {
		return results
	}
	if limit <= 0 {
		limit = defaultMaxParallel
	}
	sem := semaphore.NewWeighted(limit)
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task func(context.Context) (T, error)) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i].err = err
				return
			}
			defer sem.Release(1)
			value, err := task(ctx)
			results[i] = outcome[T]{value: value, err: err}
		}(i, task)
	}

	wg.Wait()
	return results
}

package async

import (
	"context"
)

// Task is a unit of work run by Gather.
type Task[U any] func(ctx context.Context) (U, error)

type outcome[U any] struct {
	index  int
	result U
	err    error
}

// Gather runs all tasks concurrently and returns their results in argument order,
// regardless of the order in which they complete.
//
// The first task error is returned as soon as it is observed; Gather does not wait
// for the remaining tasks. Their context is canceled and whatever they return later
// is dropped.
func Gather[U any](ctx context.Context, tasks ...Task[U]) ([]U, error) {
	for _, task := range tasks {
		if task == nil {
			return nil, ErrNilTask
		}
	}

	results := make([]U, len(tasks))
	if len(tasks) == 0 {
		return results, nil
	}

	ctx, cancel := context.WithCancel(ctx)

	// Buffered so that stragglers never block after an early return.
	done := make(chan outcome[U], len(tasks))

	for i, task := range tasks {
		go func(index int, task Task[U]) {
			// Tasks scheduled after a sibling failed skip their work entirely.
			if err := ctx.Err(); err != nil {
				done <- outcome[U]{index: index, err: err}
				return
			}
			res, err := task(ctx)
			done <- outcome[U]{index: index, result: res, err: err}
		}(i, task)
	}

	for range tasks {
		out := <-done
		if out.err != nil {
			cancel()
			return nil, out.err
		}
		results[out.index] = out.result
	}
	cancel()

	return results, nil
}

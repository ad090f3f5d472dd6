// Package async provides a small structured-concurrency helper for fanning work
// out to goroutines and collecting the results.
//
// Gather starts every Task in its own goroutine and fans the results back in by
// argument position, so callers can rely on results[i] belonging to tasks[i]
// whatever the completion order was. It is fail-fast: the first error is
// returned immediately, the context handed to the remaining tasks is canceled
// and their late results are discarded.
//
// # Usage
//
//	import "github.com/dmitrymomot/s3upload/pkg/async"
//
//	results, err := async.Gather(ctx,
//	    func(ctx context.Context) (string, error) { return lookupBucket(ctx) },
//	    func(ctx context.Context) (string, error) { return generateKey(ctx) },
//	)
//	if err != nil {
//	    return err
//	}
//	bucket, key := results[0], results[1]
//
// # Error Handling
//
// Task errors are returned unchanged. ErrNilTask is returned before anything is
// started if one of the tasks is nil.
//
// # Performance Considerations
//
// One goroutine is spawned per task and the result channel is buffered to the
// number of tasks, so goroutines that finish after an early return never block
// and are not leaked.
package async

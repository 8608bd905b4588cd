// Package worker runs blocking ledger calls off the request goroutines on a
// bounded set of slots shared by the whole process.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/ghaleb-d/sol-transfer/internal/telemetry"
	"golang.org/x/sync/semaphore"
)

// ErrJobPanicked is returned when a job panicked instead of returning
var ErrJobPanicked = errors.New("blocking job panicked")

// Pool bounds how many blocking jobs run at once
type Pool struct {
	slots *semaphore.Weighted
	size  int64
}

// NewPool creates a pool with size slots
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		slots: semaphore.NewWeighted(int64(size)),
		size:  int64(size),
	}
}

// Size returns the number of slots
func (p *Pool) Size() int {
	return int(p.size)
}

type result[T any] struct {
	value T
	err   error
}

// Run executes fn on a pool slot and waits for its result.
//
// fn receives a context that keeps ctx's values but is never cancelled, so a
// caller that goes away does not abort work already handed to the ledger. In
// that case Run returns ctx.Err() and the job finishes in the background,
// releasing its slot when done.
func Run[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if err := p.slots.Acquire(ctx, 1); err != nil {
		return zero, fmt.Errorf("failed to acquire worker slot: %w", err)
	}

	done := make(chan result[T], 1)
	jobCtx := context.WithoutCancel(ctx)

	go func() {
		telemetry.BlockingJobsInFlight.Inc()
		defer func() {
			telemetry.BlockingJobsInFlight.Dec()
			p.slots.Release(1)
		}()
		defer func() {
			if r := recover(); r != nil {
				telemetry.BlockingJobsPanicked.Inc()
				telemetry.Logger.ErrorContext(jobCtx, "blocking job panicked",
					"panic", r,
					"stack", string(debug.Stack()),
				)
				done <- result[T]{err: fmt.Errorf("%w: %v", ErrJobPanicked, r)}
			}
		}()

		value, err := fn(jobCtx)
		done <- result[T]{value: value, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ReturnsJobResult(t *testing.T) {
	pool := NewPool(2)

	value, err := Run(context.Background(), pool, func(ctx context.Context) (uint64, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), value)

	_, err = Run(context.Background(), pool, func(ctx context.Context) (uint64, error) {
		return 0, errors.New("node unreachable")
	})
	assert.EqualError(t, err, "node unreachable")
}

func TestRun_RecoversPanic(t *testing.T) {
	pool := NewPool(1)

	_, err := Run(context.Background(), pool, func(ctx context.Context) (string, error) {
		panic("boom")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJobPanicked)

	// The slot must have been released.
	value, err := Run(context.Background(), pool, func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
}

func TestRun_BoundsConcurrency(t *testing.T) {
	pool := NewPool(2)

	var running, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Run(context.Background(), pool, func(ctx context.Context) (struct{}, error) {
				n := atomic.AddInt32(&running, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return struct{}{}, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	assert.Equal(t, 2, pool.Size())
}

func TestRun_CallerCancellationDoesNotAbortJob(t *testing.T) {
	pool := NewPool(1)
	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	finished := make(chan error, 1)

	go func() {
		<-time.After(10 * time.Millisecond)
		cancel()
	}()

	_, err := Run(ctx, pool, func(jobCtx context.Context) (int, error) {
		<-release
		finished <- jobCtx.Err()
		return 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	select {
	case jobErr := <-finished:
		assert.NoError(t, jobErr, "job context must not be cancelled with the caller")
	case <-time.After(time.Second):
		t.Fatal("job never finished")
	}
}

func TestRun_CancelledWhileWaitingForSlot(t *testing.T) {
	pool := NewPool(1)
	release := make(chan struct{})
	defer close(release)

	go Run(context.Background(), pool, func(ctx context.Context) (int, error) {
		<-release
		return 0, nil
	})
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	called := false
	_, err := Run(ctx, pool, func(ctx context.Context) (int, error) {
		called = true
		return 0, nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

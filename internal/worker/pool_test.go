package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResult struct {
	id  int
	err error
}

func (r *stubResult) Err() error { return r.err }

type stubJob struct {
	id       int
	duration time.Duration
	fail     bool
	started  func()
}

func (j *stubJob) Run(ctx context.Context) Result {
	if j.started != nil {
		j.started()
	}
	if j.duration > 0 {
		select {
		case <-time.After(j.duration):
		case <-ctx.Done():
			return &stubResult{id: j.id, err: ctx.Err()}
		}
	}
	if j.fail {
		return &stubResult{id: j.id, err: errors.New("job error")}
	}
	return &stubResult{id: j.id}
}

func TestNewPool_Workers(t *testing.T) {
	assert.Equal(t, 5, NewPool(context.Background(), 5).workers)
	assert.Equal(t, 1, NewPool(context.Background(), 0).workers)
	assert.Equal(t, 1, NewPool(context.Background(), -3).workers)
}

func TestPool_PreservesSubmissionOrder(t *testing.T) {
	pool := NewPool(context.Background(), 4)
	pool.Start()

	const count = 40
	for i := 0; i < count; i++ {
		// later jobs finish first
		require.True(t, pool.Submit(&stubJob{id: i, duration: time.Duration(count-i) * 100 * time.Microsecond}))
	}

	results := pool.Wait()
	require.Len(t, results, count)
	for i, r := range results {
		assert.Equal(t, i, r.(*stubResult).id)
	}
}

func TestPool_ManyJobsDoNotDeadlock(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	done := make(chan []Result)
	go func() {
		for i := 0; i < 500; i++ {
			pool.Submit(&stubJob{id: i})
		}
		done <- pool.Wait()
	}()

	select {
	case results := <-done:
		assert.Len(t, results, 500)
	case <-time.After(5 * time.Second):
		t.Fatal("pool deadlocked")
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const workers = 3
	pool := NewPool(context.Background(), workers)
	pool.Start()

	var current, peak atomic.Int32
	for i := 0; i < 30; i++ {
		pool.Submit(&stubJob{
			id:       i,
			duration: 5 * time.Millisecond,
			started: func() {
				n := current.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.AfterFunc(4*time.Millisecond, func() { current.Add(-1) })
			},
		})
	}
	pool.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(workers))
}

func TestPool_Errors(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	pool.Submit(&stubJob{id: 0, fail: true})
	pool.Submit(&stubJob{id: 1})

	results := pool.Wait()
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err())
	assert.NoError(t, results[1].Err())
}

func TestPool_SubmitAfterWait(t *testing.T) {
	pool := NewPool(context.Background(), 1)
	pool.Start()
	pool.Wait()

	assert.False(t, pool.Submit(&stubJob{}))
}

func TestPool_Shutdown(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	started := make(chan struct{})
	pool.Submit(&stubJob{duration: time.Minute, started: func() { close(started) }})
	<-started

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not return")
	}
	assert.False(t, pool.Submit(&stubJob{}))
}

func TestPool_ParentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)
	pool.Start()

	started := make(chan struct{})
	pool.Submit(&stubJob{duration: time.Minute, started: func() { close(started) }})
	<-started
	cancel()

	results := pool.Wait()
	require.Len(t, results, 1)
	if results[0] != nil {
		assert.ErrorIs(t, results[0].Err(), context.Canceled)
	}
}

package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	seen := make([]string, 0)
	done := make(chan struct{}, 3)

	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		seen = append(seen, job.ID)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{ID: id, Type: "noop"}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})

	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "mail-1"}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, QueueConfig{})
	err := q.Enqueue(Job{ID: "x"})
	assert.Error(t, err)
}

func TestQueueFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("full", func(ctx context.Context, job Job) error {
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer func() {
		close(block)
		q.Stop()
	}()

	require.NoError(t, q.Enqueue(Job{ID: "1"}))
	// the worker may or may not have picked up job 1 yet; keep filling until the buffer rejects
	var err error
	for i := 0; i < 3 && err == nil; i++ {
		err = q.Enqueue(Job{ID: "n"})
	}
	assert.ErrorIs(t, err, ErrQueueFull)
}

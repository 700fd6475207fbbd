package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) handle(_ context.Context, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, job.Path)
	if job.Path == "bad.pdf" {
		return errors.New("boom")
	}
	return nil
}

func TestQueue_ProcessesAndDrains(t *testing.T) {
	rec := &recorder{}
	q := NewQueue(rec.handle, nil, WithWorkers(3), WithQueueSize(8))
	assert.False(t, q.Started())
	q.Start()
	q.Start()
	assert.True(t, q.Started())

	for _, p := range []string{"a.pdf", "b.pdf", "bad.pdf"} {
		require.NoError(t, q.Enqueue(t.Context(), Job{Path: p}))
	}
	require.NoError(t, q.Shutdown(t.Context()))
	assert.False(t, q.Started())

	assert.ElementsMatch(t, []string{"a.pdf", "b.pdf", "bad.pdf"}, rec.paths)
	st := q.Stats()
	assert.Equal(t, int64(3), st.Enqueued)
	assert.Equal(t, int64(2), st.Processed)
	assert.Equal(t, int64(1), st.Failed)

	assert.ErrorIs(t, q.Enqueue(t.Context(), Job{Path: "late.pdf"}), ErrClosed)
	require.NoError(t, q.Shutdown(t.Context()), "second shutdown is a no-op")
}

func TestQueue_SkipsPendingDuplicates(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	count := 0
	q := NewQueue(func(ctx context.Context, job Job) error {
		<-release
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}, nil, WithWorkers(1))
	q.Start()

	require.NoError(t, q.Enqueue(t.Context(), Job{Path: "a.pdf"}))
	require.NoError(t, q.Enqueue(t.Context(), Job{Path: "a.pdf"}))
	require.NoError(t, q.Enqueue(t.Context(), Job{Path: "a.pdf", Force: true}))
	close(release)
	require.NoError(t, q.Shutdown(t.Context()))

	assert.Equal(t, 2, count)
	assert.Equal(t, int64(1), q.Stats().Skipped)
}

func TestQueue_JobTimeout(t *testing.T) {
	var got error
	q := NewQueue(func(ctx context.Context, job Job) error {
		<-ctx.Done()
		got = ctx.Err()
		return got
	}, nil, WithWorkers(1), WithProcessTimeout(20*time.Millisecond))
	q.Start()

	require.NoError(t, q.Enqueue(t.Context(), Job{Path: "slow.pdf"}))
	require.NoError(t, q.Shutdown(t.Context()))
	assert.ErrorIs(t, got, context.DeadlineExceeded)
	assert.Equal(t, int64(1), q.Stats().Failed)
}

func TestQueue_FullBufferRespectsContext(t *testing.T) {
	q := NewQueue(func(context.Context, Job) error { return nil }, nil, WithWorkers(1), WithQueueSize(1))

	require.NoError(t, q.Enqueue(t.Context(), Job{Path: "a.pdf"}))
	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Enqueue(ctx, Job{Path: "b.pdf"}), context.DeadlineExceeded)

	// Shutdown on a queue that never started still drains the buffer.
	require.NoError(t, q.Shutdown(t.Context()))
	assert.Equal(t, int64(1), q.Stats().Processed)
}

package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned by Enqueue after Shutdown.
var ErrClosed = errors.New("queue is shutting down")

// Job is one input file to run through the pipeline.
type Job struct {
	Path        string
	Force       bool // enqueue even if the path is already pending
	SubmittedAt time.Time
	TraceID     string
}

// Handler processes one job.
type Handler func(ctx context.Context, job Job) error

// Stats are cumulative counters.
type Stats struct {
	Enqueued  int64
	Processed int64
	Failed    int64
	Skipped   int64
}

// Queue feeds jobs to a fixed pool of workers.
type Queue struct {
	handler Handler
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch      chan Job
	wg      sync.WaitGroup
	once    sync.Once
	started atomic.Bool

	mu      sync.RWMutex
	closed  bool
	pending map[string]struct{}
	pmu     sync.Mutex

	enqueued, processed, failed, skipped atomic.Int64
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// NewQueue builds a stopped queue; call Start to launch the workers.
func NewQueue(handler Handler, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		handler: handler,
		logger:  logger,
		workers: 2,
		timeout: 10 * time.Minute,
		ch:      make(chan Job, 256),
		pending: map[string]struct{}{},
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Start launches the workers. Calling it again is a no-op.
func (q *Queue) Start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.work(i + 1)
		}
		q.started.Store(true)
		q.logger.Info("queue.started", "workers", q.workers)
	})
}

// Started reports whether the workers are running.
func (q *Queue) Started() bool { return q.started.Load() }

func (q *Queue) work(workerID int) {
	defer q.wg.Done()
	q.logger.Debug("queue.worker.started", "worker_id", workerID)

	for job := range q.ch {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		err := q.handler(ctx, job)
		cancel()
		q.release(job.Path)

		if err != nil {
			q.failed.Add(1)
			q.logger.Error("queue.job.failed", "worker_id", workerID, "path", job.Path, "trace_id", job.TraceID, "error", err)
			continue
		}
		q.processed.Add(1)
		q.logger.Info("queue.job.ok",
			"worker_id", workerID,
			"path", job.Path,
			"wait_ms", start.Sub(job.SubmittedAt).Milliseconds(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
	q.logger.Debug("queue.worker.stopped", "worker_id", workerID)
}

// Enqueue submits job, blocking while the buffer is full. A path that is
// already pending is skipped unless job.Force is set.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "path", job.Path)
		return ErrClosed
	}
	if !q.claim(job) {
		q.skipped.Add(1)
		q.logger.Debug("queue.enqueue.duplicate", "path", job.Path)
		return nil
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	select {
	case q.ch <- job:
	default:
		q.logger.Warn("queue.full", "path", job.Path, "capacity", cap(q.ch))
		select {
		case q.ch <- job:
		case <-ctx.Done():
			q.release(job.Path)
			return ctx.Err()
		}
	}
	q.enqueued.Add(1)
	q.logger.Info("queue.enqueued", "path", job.Path, "force", job.Force)
	return nil
}

func (q *Queue) claim(job Job) bool {
	q.pmu.Lock()
	defer q.pmu.Unlock()
	if _, ok := q.pending[job.Path]; ok && !job.Force {
		return false
	}
	q.pending[job.Path] = struct{}{}
	return true
}

func (q *Queue) release(path string) {
	q.pmu.Lock()
	delete(q.pending, path)
	q.pmu.Unlock()
}

// Stats returns the counters so far.
func (q *Queue) Stats() Stats {
	return Stats{
		Enqueued:  q.enqueued.Load(),
		Processed: q.processed.Load(),
		Failed:    q.failed.Load(),
		Skipped:   q.skipped.Load(),
	}
}

// Shutdown stops accepting jobs and waits for the workers to drain the
// buffer, or for ctx to end.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	// A queue that never started still has to drain.
	q.Start()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
		return ctx.Err()
	case <-done:
		q.started.Store(false)
		q.logger.Info("queue.shutdown.drained", "processed", q.processed.Load(), "failed", q.failed.Load())
		return nil
	}
}

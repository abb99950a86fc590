package async

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AjayaPrabhu/lcablesync/internal/common"
	"github.com/AjayaPrabhu/lcablesync/internal/ingest"
	"github.com/AjayaPrabhu/lcablesync/internal/pipeline"
)

// ProcessorQueue reads queued files and runs them through a DocumentProcessor
// on a fixed pool of workers.
type ProcessorQueue struct {
	proc    DocumentProcessor
	sink    Sink
	logger  *slog.Logger
	workers int
	timeout time.Duration
	read    ingest.ReadConfig

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool

	processed atomic.Int64
	failed    atomic.Int64
	sinkErrs  atomic.Int64
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

// WithProcessTimeout bounds one document from read to sink. The pipeline
// returns a PARTIAL result when the bound is hit.
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}
func WithReadConfig(cfg ingest.ReadConfig) Option {
	return func(q *ProcessorQueue) { q.read = cfg }
}

// NewProcessorQueue starts the workers. sink may be nil, in which case
// results are only logged.
func NewProcessorQueue(proc DocumentProcessor, sink Sink, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = SinkFunc(func(context.Context, *pipeline.Result) error { return nil })
	}
	q := &ProcessorQueue{
		proc:    proc,
		sink:    sink,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)
				for job := range q.ch {
					q.handle(workerID, job)
				}
				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) handle(workerID int, job Job) {
	logger := q.logger.With("worker_id", workerID, "path", job.Path)
	if job.TraceID != "" {
		logger = logger.With("trace_id", job.TraceID)
	}
	ctx, cancel := common.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	src, err := ingest.ReadWithRetry(ctx, job.Path, q.read, logger)
	if err != nil {
		q.failed.Add(1)
		logger.Error("document unavailable", "error", err)
		return
	}

	res, err := q.proc.Run(ctx, pipeline.Document{
		Name: filepath.Base(src.Path),
		Data: src.Data,
		Path: src.Path,
		Hash: src.HashHex,
	})
	if res == nil {
		q.failed.Add(1)
		logger.Error("processing failed", "error", err)
		return
	}
	if err != nil {
		logger.Warn("document unreadable", "error", err)
	}

	// The run may have consumed the whole deadline; the result still goes out.
	saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer saveCancel()
	if err := q.sink.Save(saveCtx, res); err != nil {
		q.sinkErrs.Add(1)
		logger.Error("failed to save result", "run_id", res.RunID, "error", err)
		return
	}
	q.processed.Add(1)
	logger.Info("processed document",
		"run_id", res.RunID,
		"status", res.Status,
		"route", res.Route,
		"paths", len(res.Paths),
		"queued_for", time.Since(job.SubmittedAt).Round(time.Millisecond),
	)
}

// Enqueue blocks while the queue is full, until ctx ends.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queued document", "path", job.Path)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to drain or for
// ctx to end.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}

// Stats returns a snapshot of the worker counters.
func (q *ProcessorQueue) Stats() Stats {
	return Stats{
		Processed: q.processed.Load(),
		Failed:    q.failed.Load(),
		SinkErrs:  q.sinkErrs.Load(),
	}
}

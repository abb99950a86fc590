package async

import (
	"context"
	"errors"
	"time"

	"github.com/AjayaPrabhu/lcablesync/internal/pipeline"
)

// ErrQueueClosed is returned by Enqueue after Shutdown has started.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job asks for one document on disk to be processed.
type Job struct {
	Path        string
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// DocumentProcessor runs the extraction pipeline. *pipeline.Processor
// satisfies it.
type DocumentProcessor interface {
	Run(ctx context.Context, doc pipeline.Document) (*pipeline.Result, error)
}

// Sink receives every result a worker produces, including FAILED ones.
type Sink interface {
	Save(ctx context.Context, res *pipeline.Result) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, res *pipeline.Result) error

func (f SinkFunc) Save(ctx context.Context, res *pipeline.Result) error { return f(ctx, res) }

// Stats counts what the workers have done so far.
type Stats struct {
	Processed int64 // results handed to the sink
	Failed    int64 // documents that never produced a result
	SinkErrs  int64
}

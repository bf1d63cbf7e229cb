package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/medrecords/internal/common"
	"github.com/joseph-ayodele/medrecords/internal/entity"
	"github.com/joseph-ayodele/medrecords/internal/pipeline"
)

// Processor runs the pipeline for one document.
type Processor interface {
	Process(ctx context.Context, doc entity.RawDocument, sink pipeline.Sink) (*pipeline.Result, error)
}

// Store is the part of the document store the queue writes through.
type Store interface {
	Save(ctx context.Context, rec *entity.DocumentRecord) error
	GetByOwnerAndHash(ctx context.Context, ownerID, hash string) (*entity.DocumentRecord, error)
}

// Outcome is reported once per job after it has been handled.
type Outcome struct {
	Job       Job
	Result    *pipeline.Result
	Record    *entity.DocumentRecord
	Duplicate bool
	Err       error
}

var _ Queue = (*ProcessorQueue)(nil)

type ProcessorQueue struct {
	proc    Processor
	store   Store
	logger  *slog.Logger
	workers int
	timeout time.Duration
	onDone  func(Outcome)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
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

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithOnDone registers a callback invoked from the worker goroutine.
func WithOnDone(fn func(Outcome)) Option {
	return func(q *ProcessorQueue) { q.onDone = fn }
}

// NewProcessorQueue starts the workers. store may be nil, in which case
// results are only reported through WithOnDone.
func NewProcessorQueue(proc Processor, store Store, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		store:   store,
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
					out := q.handle(workerID, job)
					if q.onDone != nil {
						q.onDone(out)
					}
				}
				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) handle(workerID int, job Job) Outcome {
	out := Outcome{Job: job}
	log := q.logger.With("worker_id", workerID, "job_id", job.ID, "name", job.Document.Name, "trace_id", job.TraceID)

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	if q.store != nil && !job.Force {
		existing, err := q.store.GetByOwnerAndHash(ctx, job.OwnerID, job.Document.ContentHash())
		if err == nil && existing != nil {
			log.Info("skipping duplicate document", "existing_id", existing.ID)
			out.Record, out.Duplicate = existing, true
			return out
		}
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			log.Warn("duplicate lookup failed", "error", err)
		}
	}

	res, err := q.proc.Process(ctx, job.Document, job.Sink)
	out.Result, out.Err = res, err
	switch {
	case err != nil && common.IsCancellation(err):
		log.Warn("processing cancelled", "error", err)
		return out
	case err != nil:
		log.Error("processing failed", "error", err)
	default:
		log.Info("processed document successfully", "method", res.ProcessingMethod, "document_type", res.Analysis.DocumentType)
	}
	if res == nil || q.store == nil {
		return out
	}

	rec := res.Record(job.OwnerID, job.Document.SourcePath)
	// The timeout only bounds processing.
	if serr := q.store.Save(context.Background(), rec); serr != nil {
		log.Error("failed to persist result", "error", serr)
		out.Err = errors.Join(out.Err, serr)
		return out
	}
	out.Record = rec
	return out
}

// Enqueue blocks while the queue is full until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "name", job.Document.Name)
		return ErrQueueClosed
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued document for processing", "job_id", job.ID, "name", job.Document.Name, "force", job.Force)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "name", job.Document.Name)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish or ctx to end.
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

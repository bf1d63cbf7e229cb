package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/medrecords/internal/entity"
	"github.com/joseph-ayodele/medrecords/internal/pipeline"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one document waiting to be processed and stored.
type Job struct {
	ID          uuid.UUID
	OwnerID     string
	Document    entity.RawDocument
	Force       bool // process even if the owner already has these bytes
	SubmittedAt time.Time
	TraceID     string
	Sink        pipeline.Sink // optional progress receiver
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

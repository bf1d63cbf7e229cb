package pipeline

import (
	"context"
	"sync"

	"github.com/joseph-ayodele/medrecords/constants"
)

// Event is one progress notification.
type Event struct {
	Stage   constants.Stage `json:"stage"`
	Percent int             `json:"percent"`
}

// Sink receives progress events. Emit must not block.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

var stageOrder = map[constants.Stage]int{
	constants.StagePreprocessing: 0,
	constants.StageExtracting:    1,
	constants.StageAnalyzing:     2,
	constants.StageComplete:      3,
}

// monotonic forwards events whose stage and percent never go backwards and
// drops exact repeats.
type monotonic struct {
	next    Sink
	started bool
	last    Event
}

func newMonotonic(next Sink) *monotonic {
	if next == nil {
		next = Discard
	}
	return &monotonic{next: next}
}

func (m *monotonic) Emit(e Event) {
	e.Percent = min(max(e.Percent, 0), 100)
	if m.started {
		if stageOrder[e.Stage] < stageOrder[m.last.Stage] || e.Percent < m.last.Percent {
			return
		}
		if e == m.last {
			return
		}
	}
	m.started = true
	m.last = e
	m.next.Emit(e)
}

// Stream is a Sink backed by an unbounded queue and drained through a
// channel. Emit never waits on the reader; events keep their order.
type Stream struct {
	mu     sync.Mutex
	queue  []Event
	closed bool
	wake   chan struct{}
	out    chan Event
}

// NewStream starts the forwarding goroutine. It stops when Close has been
// called and the queue is drained, or when ctx is done; either way C is closed.
func NewStream(ctx context.Context) *Stream {
	s := &Stream{wake: make(chan struct{}, 1), out: make(chan Event)}
	go s.forward(ctx)
	return s
}

// C returns the channel events are delivered on.
func (s *Stream) C() <-chan Event { return s.out }

func (s *Stream) Emit(e Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, e)
	s.mu.Unlock()
	s.signal()
}

// Close marks the end of the stream. Queued events are still delivered.
func (s *Stream) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.signal()
}

func (s *Stream) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Stream) forward(ctx context.Context) {
	defer close(s.out)
	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		closed := s.closed
		s.mu.Unlock()

		for _, e := range batch {
			select {
			case s.out <- e:
			case <-ctx.Done():
				return
			}
		}
		if closed && len(batch) == 0 {
			return
		}
		if len(batch) > 0 {
			continue
		}
		select {
		case <-s.wake:
		case <-ctx.Done():
			return
		}
	}
}

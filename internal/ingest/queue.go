package ingest

import (
	"errors"
	"sync"
	"time"

	"recwatch/internal/dedup"
)

var (
	// ErrQueueStopped reports a push after Stop.
	ErrQueueStopped = errors.New("ingest queue stopped")
	// ErrDuplicate reports a push for a path that is already pending or in flight.
	ErrDuplicate = errors.New("candidate already queued")
)

// Candidate is a replay file observed at creation time.
type Candidate struct {
	Path   string
	Source string
	Mode   string
	SeenAt time.Time
}

type slot struct {
	candidate Candidate
	stop      bool
}

// Queue is an unbounded FIFO with a single consumer. Push never blocks;
// Pop blocks until an item or the stop sentinel is available.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []slot
	pending  map[string]struct{}
	inFlight map[string]struct{}
	stopped  bool
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	q := &Queue{
		pending:  make(map[string]struct{}),
		inFlight: make(map[string]struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends c. A path that is already pending or being processed is
// rejected with ErrDuplicate so one file never occupies two pipeline states.
func (q *Queue) Push(c Candidate) error {
	key := dedup.Key(c.Path)
	if key == "" {
		return errors.New("candidate path cannot be empty")
	}
	c.Path = key

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return ErrQueueStopped
	}
	if _, ok := q.pending[key]; ok {
		return ErrDuplicate
	}
	if _, ok := q.inFlight[key]; ok {
		return ErrDuplicate
	}
	q.pending[key] = struct{}{}
	q.items = append(q.items, slot{candidate: c})
	q.cond.Signal()
	return nil
}

// Pop removes the oldest entry, blocking while the queue is empty. It
// returns ok=false once the stop sentinel is dequeued. A popped candidate is
// in flight until Done is called with its path.
func (q *Queue) Pop() (Candidate, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		q.cond.Wait()
	}
	next := q.items[0]
	q.items[0] = slot{}
	q.items = q.items[1:]
	if next.stop {
		return Candidate{}, false
	}
	delete(q.pending, next.candidate.Path)
	q.inFlight[next.candidate.Path] = struct{}{}
	return next.candidate, true
}

// Done releases an in-flight path so a later create event can queue it again.
func (q *Queue) Done(path string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inFlight, dedup.Key(path))
}

// Stop enqueues the sentinel. Candidates already queued are still delivered
// before it; later pushes fail with ErrQueueStopped. Stop is idempotent.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return
	}
	q.stopped = true
	q.items = append(q.items, slot{stop: true})
	q.cond.Signal()
}

// Len reports the number of queued candidates, excluding the sentinel.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nlqbot/nlq-server/internal/domain"
)

// DefaultTurnTimeout bounds one turn's resolution end to end, model
// calls and retrieval included.
const DefaultTurnTimeout = 2 * time.Minute

// turnQueueSize bounds how many turns a single connection may have
// waiting. A client this far ahead of its own answers is misbehaving.
const turnQueueSize = 16

// Dispatcher hands inbound turns to the orchestrator in the background,
// one worker per connection. Turns from the same connection resolve
// strictly in arrival order; turns from different connections run
// concurrently. The dispatcher also carries each connection's sticky
// unsafe flag across turns, since the transport rebuilds the session
// from the client's message list on every request.
type Dispatcher struct {
	orc     *Orchestrator
	timeout time.Duration
	log     *slog.Logger

	mu      sync.Mutex
	workers map[string]*worker
}

type worker struct {
	queue  chan []domain.Turn
	unsafe bool // owned by the worker goroutine
}

// NewDispatcher creates a dispatcher. A zero timeout falls back to
// DefaultTurnTimeout.
func NewDispatcher(orc *Orchestrator, timeout time.Duration, log *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTurnTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		orc:     orc,
		timeout: timeout,
		log:     log,
		workers: make(map[string]*worker),
	}
}

// Dispatch enqueues one turn for background resolution and returns
// immediately. The turns slice is the client's full view of the
// conversation, latest turn last.
func (d *Dispatcher) Dispatch(connectionID string, turns []domain.Turn) {
	d.mu.Lock()
	w, ok := d.workers[connectionID]
	if !ok {
		w = &worker{queue: make(chan []domain.Turn, turnQueueSize)}
		d.workers[connectionID] = w
		go d.run(connectionID, w)
	}
	d.mu.Unlock()

	select {
	case w.queue <- turns:
	default:
		// The client must not wait forever for a reply that will never
		// come; the dropped turn is answered with the fixed apology.
		d.log.Warn("turn queue full, dropping turn", "connection_id", connectionID)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		d.orc.sendMessage(ctx, connectionID, domain.ApologyMessage)
		cancel()
	}
}

// Forget drops the connection's worker and sticky state. Call it when
// the connection closes; a queued turn that has not started yet is
// discarded with it.
func (d *Dispatcher) Forget(connectionID string) {
	d.mu.Lock()
	w, ok := d.workers[connectionID]
	if ok {
		delete(d.workers, connectionID)
	}
	d.mu.Unlock()
	if ok {
		close(w.queue)
	}
}

func (d *Dispatcher) run(connectionID string, w *worker) {
	for turns := range w.queue {
		session := domain.NewSession(turns)
		if w.unsafe {
			session.MarkUnsafe()
		}

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		d.orc.Resolve(ctx, connectionID, session)
		cancel()

		if session.Unsafe() {
			w.unsafe = true
		}
	}
}

package facade

import (
	"context"
	"log/slog"
	"sync"
)

// op is one deferred persistence call.
type op struct {
	name string
	key  string
	run  func(ctx context.Context) error
}

// writer applies persistence calls one at a time in submission order, so
// the durable copy sees writes in the order the cache did.
type writer struct {
	mu       sync.Mutex
	idle     *sync.Cond
	queue    []op
	inflight int
	closed   bool
	wake     chan struct{}
	done     chan struct{}
	ctx      context.Context
	log      *slog.Logger
}

func newWriter(ctx context.Context, log *slog.Logger) *writer {
	w := &writer{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		ctx:  ctx,
		log:  log,
	}
	w.idle = sync.NewCond(&w.mu)
	go w.loop()
	return w
}

// submit queues o. It reports false once the writer is closed.
func (w *writer) submit(o op) bool {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.log.Warn("write after close dropped", "op", o.name, "key", o.key)
		return false
	}
	w.inflight++
	w.queue = append(w.queue, o)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return true
}

// wait blocks until every submitted op has run.
func (w *writer) wait() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.inflight > 0 {
		w.idle.Wait()
	}
}

// close drains the queue and stops the loop.
func (w *writer) close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.closed = true
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	<-w.done
}

func (w *writer) loop() {
	defer close(w.done)
	for range w.wake {
		for {
			w.mu.Lock()
			if len(w.queue) == 0 {
				closed := w.closed
				w.mu.Unlock()
				if closed {
					return
				}
				break
			}
			o := w.queue[0]
			w.queue = w.queue[1:]
			w.mu.Unlock()

			if err := o.run(w.ctx); err != nil {
				w.log.Warn("persist failed", "op", o.name, "key", o.key, "error", err)
			}
			w.mu.Lock()
			w.inflight--
			if w.inflight == 0 {
				w.idle.Broadcast()
			}
			w.mu.Unlock()
		}
	}
}

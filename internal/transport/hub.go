// Package transport carries messages between the page, the bridge and the
// gateway: a page-visible broadcast bus and the bridge's gateway ports.
package transport

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// Subscriber receives the values broadcast on one topic.
type Subscriber[T any] struct {
	ID    ulid.ULID
	Topic string
	Ch    chan T
	Done  chan struct{}
}

// ConnInfo holds subscription metadata
type ConnInfo[T any] struct {
	ConnectedAt time.Time
	Subscriber  *Subscriber[T]
}

// topicSubs holds the subscribers of one topic
type topicSubs[T any] struct {
	mu sync.RWMutex
	m  map[ulid.ULID]ConnInfo[T]
}

// Hub fans values out to the subscribers of a topic. A subscriber whose
// outbox is full misses the value; drops are counted.
type Hub[T any] struct {
	mu          sync.RWMutex
	subscribers map[string]*topicSubs[T]
	connIndex   map[ulid.ULID]string
	bufferSize  int
	log         *slog.Logger
	dropped     uint64
}

// NewHub creates a hub whose subscribers buffer up to bufferSize values.
func NewHub[T any](bufferSize int, log *slog.Logger) *Hub[T] {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Hub[T]{
		subscribers: make(map[string]*topicSubs[T]),
		connIndex:   make(map[ulid.ULID]string),
		bufferSize:  bufferSize,
		log:         log,
	}
}

// Subscribe registers a new subscriber for topic. The returned cancel func
// unsubscribes it and closes its channels.
func (h *Hub[T]) Subscribe(topic string) (*Subscriber[T], func()) {
	id := ulid.Make()
	if h.log.Enabled(context.Background(), slog.LevelDebug) {
		h.log.Debug("subscribing", "conn_id", id.String(), "topic", topic)
	}

	sub := &Subscriber[T]{
		ID:    id,
		Topic: topic,
		Ch:    make(chan T, h.bufferSize),
		Done:  make(chan struct{}),
	}

	h.mu.Lock()
	bucket, exists := h.subscribers[topic]
	if !exists {
		bucket = &topicSubs[T]{m: make(map[ulid.ULID]ConnInfo[T])}
		h.subscribers[topic] = bucket
	}
	bucket.mu.Lock()
	bucket.m[id] = ConnInfo[T]{ConnectedAt: time.Now(), Subscriber: sub}
	bucket.mu.Unlock()
	h.connIndex[id] = topic
	h.mu.Unlock()

	return sub, func() { h.Unsubscribe(id) }
}

// Unsubscribe removes a subscriber and closes its channels. Unknown ids are ignored.
func (h *Hub[T]) Unsubscribe(id ulid.ULID) {
	h.mu.Lock()
	topic, ok := h.connIndex[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.connIndex, id)

	bucket := h.subscribers[topic]
	var (
		info   ConnInfo[T]
		exists bool
	)
	if bucket != nil {
		bucket.mu.Lock()
		info, exists = bucket.m[id]
		delete(bucket.m, id)
		if len(bucket.m) == 0 {
			delete(h.subscribers, topic)
		}
		bucket.mu.Unlock()
	}
	h.mu.Unlock()

	if exists {
		close(info.Subscriber.Ch)
		close(info.Subscriber.Done)
		if h.log.Enabled(context.Background(), slog.LevelDebug) {
			h.log.Debug("unsubscribed", "conn_id", id.String(), "topic", topic)
		}
	}
}

// Broadcast delivers v to every subscriber of topic and returns how many
// subscribers received it.
func (h *Hub[T]) Broadcast(topic string, v T) int {
	bucket := h.bucket(topic)
	if bucket == nil {
		return 0
	}

	delivered := 0
	bucket.mu.RLock()
	for id, info := range bucket.m {
		if sendOrDrop(info.Subscriber.Ch, v) {
			delivered++
			continue
		}
		atomic.AddUint64(&h.dropped, 1)
		h.log.Warn("outbox full, dropping value", "conn_id", id.String(), "topic", topic)
	}
	bucket.mu.RUnlock()
	return delivered
}

// SubscriberCount returns the number of subscribers across all topics.
func (h *Hub[T]) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connIndex)
}

// Stats returns current counters for observability and tests.
func (h *Hub[T]) Stats() (subscribers int, dropped uint64) {
	return h.SubscriberCount(), atomic.LoadUint64(&h.dropped)
}

// sendOrDrop is the only place that can decide to drop a value.
func sendOrDrop[T any](ch chan T, v T) bool {
	select {
	case ch <- v:
		return true
	default:
		return false
	}
}

func (h *Hub[T]) bucket(topic string) *topicSubs[T] {
	h.mu.RLock()
	b := h.subscribers[topic]
	h.mu.RUnlock()
	return b
}

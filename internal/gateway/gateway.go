// Package gateway is the only component with write access to the durable
// key/value store. It answers storage requests relayed by bridges and fans
// control signals out to them.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"postit/internal/kv"
	"postit/internal/protocol"
	"postit/internal/services/postit"
	"postit/internal/transport"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every key owned by the sticky-note data.
const Namespace = "postit:"

// NotesKey is the default key of get/set and the source of getByUrl/listUrls.
const NotesKey = Namespace + postit.NotesKey

const (
	outcomeOK      = "ok"
	outcomeError   = "error"
	outcomeIgnored = "ignored"
)

// Call is one inbound request. Reply receives at most one response.
type Call struct {
	Request protocol.Request
	Reply   func(protocol.Response)
}

// Gateway answers storage requests against a kv.Store.
type Gateway struct {
	store         kv.Store
	hub           *transport.Hub[protocol.Control]
	log           *slog.Logger
	rejectUnknown bool

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithRejectUnknown makes the gateway answer unknown actions with an error
// instead of leaving them unanswered.
func WithRejectUnknown(reject bool) Option {
	return func(g *Gateway) { g.rejectUnknown = reject }
}

// WithControlBuffer sets the per-bridge control outbox size.
func WithControlBuffer(n int) Option {
	return func(g *Gateway) { g.hub = transport.NewHub[protocol.Control](n, g.log) }
}

// New creates a gateway over store.
func New(store kv.Store, log *slog.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		store: store,
		log:   log,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postit_gateway_requests_total",
				Help: "Storage requests handled by the gateway",
			},
			[]string{"action", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "postit_gateway_request_duration_seconds",
				Help:    "Time spent answering storage requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action"},
		),
	}
	g.hub = transport.NewHub[protocol.Control](16, log)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Collectors returns the gateway metrics for registration.
func (g *Gateway) Collectors() []prometheus.Collector {
	return []prometheus.Collector{g.requests, g.duration}
}

// Handle answers req. ok is false when the action is unknown and the
// gateway is not configured to reject it; such requests get no response.
func (g *Gateway) Handle(ctx context.Context, req protocol.Request) (resp protocol.Response, ok bool) {
	if !req.Action.Known() {
		g.requests.WithLabelValues("unknown", outcomeIgnored).Inc()
		if !g.rejectUnknown {
			g.log.Debug("ignoring unknown action", "action", req.Action)
			return protocol.Response{}, false
		}
		return protocol.Fail(fmt.Errorf("%w: %q", protocol.ErrUnknownAction, req.Action)), true
	}

	start := time.Now()
	data, err := g.dispatch(ctx, req)
	g.duration.WithLabelValues(string(req.Action)).Observe(time.Since(start).Seconds())

	if err != nil {
		g.requests.WithLabelValues(string(req.Action), outcomeError).Inc()
		g.log.Error("storage request failed", "action", req.Action, "key", req.Key, "error", err)
		return protocol.Fail(err), true
	}
	g.requests.WithLabelValues(string(req.Action), outcomeOK).Inc()
	return protocol.OK(data), true
}

// Serve answers calls until ctx is done or calls is closed. Each call runs
// on its own goroutine so a slow store never blocks the inbound channel.
func (g *Gateway) Serve(ctx context.Context, calls <-chan Call) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case call, open := <-calls:
			if !open {
				return nil
			}
			go func() {
				if resp, ok := g.Handle(ctx, call.Request); ok && call.Reply != nil {
					call.Reply(resp)
				}
			}()
		}
	}
}

// Subscribe registers a bridge for the control signals of tab.
func (g *Gateway) Subscribe(tab string) (*transport.Subscriber[protocol.Control], func()) {
	return g.hub.Subscribe(tab)
}

// Toggle asks every bridge of tab to flip the overlay. It returns the number
// of bridges reached.
func (g *Gateway) Toggle(tab string) int {
	n := g.hub.Broadcast(tab, protocol.Control{Type: protocol.ControlToggle})
	g.log.Debug("toggle sent", "tab", tab, "bridges", n)
	return n
}

// Bridges returns the number of subscribed bridges.
func (g *Gateway) Bridges() int {
	return g.hub.SubscriberCount()
}

func (g *Gateway) dispatch(ctx context.Context, req protocol.Request) (json.RawMessage, error) {
	switch req.Action {
	case protocol.ActionGet:
		v, found, err := g.store.Get(ctx, keyOrDefault(req.Key))
		if err != nil || !found {
			return nil, err
		}
		return v, nil

	case protocol.ActionSet:
		v := req.Value
		if len(v) == 0 {
			v = json.RawMessage("null")
		}
		return nil, g.store.Set(ctx, keyOrDefault(req.Key), v)

	case protocol.ActionGetAll:
		all, err := g.store.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(all)

	case protocol.ActionRemove:
		// nothing to remove without a key
		if req.Key == "" {
			return nil, nil
		}
		return nil, g.store.Remove(ctx, req.Key)

	case protocol.ActionClear:
		return nil, g.store.Clear(ctx)

	case protocol.ActionGetByURL:
		c, err := g.collection(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(c.Page(req.URL))

	case protocol.ActionListURLs:
		c, err := g.collection(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(c.URLs())
	}
	return nil, protocol.ErrUnknownAction
}

func (g *Gateway) collection(ctx context.Context) (postit.Collection, error) {
	raw, found, err := g.store.Get(ctx, NotesKey)
	if err != nil {
		return nil, err
	}
	if !found {
		return postit.Collection{}, nil
	}
	var c postit.Collection
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode %s: %w", NotesKey, err)
	}
	return c, nil
}

func keyOrDefault(key string) string {
	if key == "" {
		return NotesKey
	}
	return key
}

package transport

import (
	"context"
	"log/slog"

	"postit/internal/protocol"
)

// DefaultWindowBuffer is the per-listener outbox of a Window.
const DefaultWindowBuffer = 256

const windowTopic = "window"

// Window is the page-visible broadcast channel. Every listener, including
// the poster, sees every posted message in posting order.
type Window struct {
	url string
	hub *Hub[protocol.Message]
}

// NewWindow creates the channel of the page at url.
func NewWindow(url string, log *slog.Logger) *Window {
	return &Window{url: url, hub: NewHub[protocol.Message](DefaultWindowBuffer, log)}
}

// URL returns the address of the page.
func (w *Window) URL() string { return w.url }

// Post broadcasts msg to all current listeners.
func (w *Window) Post(msg protocol.Message) {
	w.hub.Broadcast(windowTopic, msg)
}

// Listen calls fn for every message posted after Listen returns, one at a
// time, until ctx is done or stop is called. fn must not block for long.
func (w *Window) Listen(ctx context.Context, fn func(protocol.Message)) (stop func()) {
	sub, cancel := w.hub.Subscribe(windowTopic)
	go func() {
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case msg, ok := <-sub.Ch:
				if !ok {
					return
				}
				fn(msg)
			}
		}
	}()
	return cancel
}

// Listeners returns the number of active listeners.
func (w *Window) Listeners() int {
	return w.hub.SubscriberCount()
}

// Package bridge relays storage requests from an untrusted page to the
// privileged gateway and posts the correlated answers back to the page.
package bridge

import (
	"context"
	"log/slog"

	"postit/internal/protocol"
)

// Gateway is the bridge's privileged channel.
type Gateway interface {
	Send(ctx context.Context, req protocol.Request) (protocol.Response, error)
	// Controls is closed when the channel goes away.
	Controls() <-chan protocol.Control
}

// Page is the page-visible channel.
type Page interface {
	URL() string
	Post(msg protocol.Message)
	Listen(ctx context.Context, fn func(protocol.Message)) (stop func())
}

// Bridge forwards requests one to one. It keeps no queue and no state
// beyond the requests in flight.
type Bridge struct {
	page Page
	gw   Gateway
	log  *slog.Logger
}

// New creates a bridge between page and gw.
func New(page Page, gw Gateway, log *slog.Logger) *Bridge {
	return &Bridge{page: page, gw: gw, log: log}
}

// Run announces the bridge to the page and relays messages until ctx is
// done. Requests still in flight at that point are abandoned unanswered.
func (b *Bridge) Run(ctx context.Context) error {
	stop := b.page.Listen(ctx, func(msg protocol.Message) {
		if msg.Type != protocol.TypeStorage || msg.Request == nil {
			return
		}
		req := *msg.Request
		req.URL = b.page.URL()
		go b.relay(ctx, msg.ID, req)
	})
	defer stop()

	b.page.Post(protocol.Signal(protocol.TypeExtensionReady))
	b.log.Debug("bridge ready", "url", b.page.URL())

	controls := b.gw.Controls()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-controls:
			if !ok {
				controls = nil
				b.log.Warn("gateway control channel closed")
				continue
			}
			if c.Type == protocol.ControlToggle {
				b.page.Post(protocol.Signal(protocol.TypeToggle))
			}
		}
	}
}

func (b *Bridge) relay(ctx context.Context, id uint64, req protocol.Request) {
	resp, err := b.gw.Send(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		b.log.Warn("gateway request failed", "id", id, "action", req.Action, "error", err)
		resp = protocol.Fail(err)
	}
	b.page.Post(protocol.StorageResponse(id, resp))
}

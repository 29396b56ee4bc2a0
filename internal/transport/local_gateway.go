package transport

import (
	"context"
	"sync"

	"postit/internal/protocol"
)

// Handler is the in-process side of a gateway.
type Handler interface {
	// Handle answers req; ok is false when the gateway does not answer.
	Handle(ctx context.Context, req protocol.Request) (resp protocol.Response, ok bool)
	// Subscribe registers for the control signals sent to tab.
	Subscribe(tab string) (*Subscriber[protocol.Control], func())
}

// LocalGateway connects a bridge to a gateway running in the same process.
type LocalGateway struct {
	h        Handler
	sub      *Subscriber[protocol.Control]
	cancel   func()
	closeOne sync.Once
}

// NewLocalGateway subscribes to the control signals of tab on h.
func NewLocalGateway(h Handler, tab string) *LocalGateway {
	sub, cancel := h.Subscribe(tab)
	return &LocalGateway{h: h, sub: sub, cancel: cancel}
}

// Send forwards req to the gateway. A request the gateway leaves unanswered
// blocks until ctx is done.
func (g *LocalGateway) Send(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	resp, ok := g.h.Handle(ctx, req)
	if ok {
		return resp, nil
	}
	<-ctx.Done()
	return protocol.Response{}, ctx.Err()
}

// Controls delivers control signals until Close.
func (g *LocalGateway) Controls() <-chan protocol.Control {
	return g.sub.Ch
}

// Close unsubscribes from control signals and closes the Controls channel.
func (g *LocalGateway) Close() error {
	g.closeOne.Do(g.cancel)
	return nil
}

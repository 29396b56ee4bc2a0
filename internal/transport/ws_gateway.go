package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"postit/internal/clock"
	"postit/internal/pending"
	"postit/internal/protocol"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	controlBuffer  = 16
)

// ErrGatewayClosed is returned by Send once the connection is gone.
var ErrGatewayClosed = errors.New("gateway connection closed")

// WSOptions configures a WSGateway.
type WSOptions struct {
	Tab     string
	Token   string
	Timeout time.Duration
	Clock   clock.Clock
	Log     *slog.Logger
	Dialer  *websocket.Dialer
}

// WSGateway connects a bridge to a remote gateway over a websocket.
// Requests are correlated by id, so responses may arrive in any order.
type WSGateway struct {
	conn     *websocket.Conn
	writeMu  sync.Mutex
	pending  *pending.Table[protocol.Response]
	controls chan protocol.Control
	log      *slog.Logger
	done     chan struct{}
	closeOne sync.Once
}

// DialWS opens the gateway channel at rawURL for opts.Tab.
func DialWS(ctx context.Context, rawURL string, opts WSOptions) (*WSGateway, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway url: %w", err)
	}
	q := u.Query()
	if opts.Tab != "" {
		q.Set("tab", opts.Tab)
	}
	u.RawQuery = q.Encode()

	header := http.Header{}
	if opts.Token != "" {
		header.Set("Authorization", "Bearer "+opts.Token)
	}

	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("dial gateway: %w", err)
	}
	return newWSGateway(conn, opts), nil
}

func newWSGateway(conn *websocket.Conn, opts WSOptions) *WSGateway {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Log == nil {
		opts.Log = slog.New(slog.DiscardHandler)
	}
	g := &WSGateway{
		conn:     conn,
		pending:  pending.New[protocol.Response](opts.Clock, opts.Timeout),
		controls: make(chan protocol.Control, controlBuffer),
		log:      opts.Log,
		done:     make(chan struct{}),
	}
	go g.readLoop()
	return g
}

// Send writes req and waits for its correlated response, the request
// timeout or ctx, whichever comes first.
func (g *WSGateway) Send(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	id, ch := g.pending.Register()

	if err := g.write(protocol.Frame{ID: id, Request: &req}); err != nil {
		g.pending.Reject(id, err)
	}

	select {
	case r := <-ch:
		return r.Value, r.Err
	case <-ctx.Done():
		g.pending.Reject(id, ctx.Err())
		return protocol.Response{}, ctx.Err()
	}
}

// Controls delivers control signals until the connection closes.
func (g *WSGateway) Controls() <-chan protocol.Control {
	return g.controls
}

// Done is closed once the connection is gone.
func (g *WSGateway) Done() <-chan struct{} {
	return g.done
}

// Close sends a close frame and tears the connection down.
func (g *WSGateway) Close() error {
	var err error
	g.closeOne.Do(func() {
		g.writeMu.Lock()
		_ = g.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		_ = g.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		g.writeMu.Unlock()
		err = g.conn.Close()
	})
	<-g.done
	return err
}

func (g *WSGateway) write(f protocol.Frame) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	if err := g.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return g.conn.WriteJSON(f)
}

func (g *WSGateway) readLoop() {
	defer close(g.done)
	defer close(g.controls)

	for {
		var f protocol.Frame
		if err := g.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.log.Warn("gateway connection lost", "error", err)
			}
			g.pending.Close(fmt.Errorf("%w: %v", ErrGatewayClosed, err))
			return
		}

		switch {
		case f.Response != nil:
			if !g.pending.Resolve(f.ID, *f.Response) {
				g.log.Debug("discarding response for unknown request", "id", f.ID)
			}
		case f.Control != nil:
			select {
			case g.controls <- *f.Control:
			default:
				g.log.Warn("control channel full, dropping signal", "type", f.Control.Type)
			}
		default:
			g.log.Debug("ignoring unexpected frame", "id", f.ID)
		}
	}
}

package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"postit/cmd/server/handlers/httperr"
	"postit/internal/gateway"
	"postit/internal/logger"
	"postit/internal/protocol"
	"postit/internal/transport"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const (
	wsWriteTimeout     = 10 * time.Second
	wsPingInterval     = 25 * time.Second
	wsPingWriteTimeout = 5 * time.Second

	localsTab       = "tab"
	localsParentCtx = "parentCtx"
)

// Gateway is the part of the gateway the websocket endpoint talks to.
type Gateway interface {
	Subscribe(tab string) (*transport.Subscriber[protocol.Control], func())
	Toggle(tab string) int
}

// WebSocketHandlers serves the privileged gateway channel. Requests read
// from a connection are queued on calls; the gateway answers them in any
// order and each answer is written back with its request id.
type WebSocketHandlers struct {
	gw    Gateway
	calls chan<- gateway.Call
}

// NewWebSocketHandlers creates new gateway websocket handlers
func NewWebSocketHandlers(gw Gateway, calls chan<- gateway.Call) *WebSocketHandlers {
	return &WebSocketHandlers{gw: gw, calls: calls}
}

// WSUpgrade checks the upgrade request and records the tab it serves.
// @Summary Privileged gateway channel
// @Description Websocket carrying storage request/response frames and control frames for one tab
// @Tags gateway
// @Param tab query string true "Tab id"
// @Failure 400 {object} httperr.E
// @Failure 426 {object} httperr.E
// @Router /ws/gateway [get]
func (h *WebSocketHandlers) WSUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		logger.L().Warn("websocket upgrade required", "handler", "WSUpgrade", "path", c.Path())
		return httperr.Fail(httperr.ErrUpgradeRequired)
	}

	tab := c.Query("tab")
	if tab == "" {
		logger.L().Warn("missing tab in websocket upgrade", "handler", "WSUpgrade", "path", c.Path())
		return httperr.Fail(httperr.ErrMissingTab)
	}

	c.Locals(localsTab, tab)
	c.Locals(localsParentCtx, c.UserContext())
	return c.Next()
}

// wsConn serializes writes to one websocket.
type wsConn struct {
	c   *websocket.Conn
	tab string
	mu  sync.Mutex
}

func (w *wsConn) write(f protocol.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.c.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return w.c.WriteJSON(f)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.c.SetWriteDeadline(time.Now().Add(wsPingWriteTimeout)); err != nil {
		return err
	}
	return w.c.WriteMessage(websocket.PingMessage, nil)
}

// WSGateway handles one bridge connection.
func (h *WebSocketHandlers) WSGateway(c *websocket.Conn) {
	tab, _ := c.Locals(localsTab).(string)
	parentCtx, ok := c.Locals(localsParentCtx).(context.Context)
	if !ok {
		parentCtx = context.Background()
	}

	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	conn := &wsConn{c: c, tab: tab}

	sub, unsubscribe := h.gw.Subscribe(tab)
	defer unsubscribe()

	logger.L().Info("gateway connection established", "tab", tab, "conn_id", sub.ID.String())

	go h.handleControls(ctx, conn, sub)

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ping.C:
				if err := conn.ping(); err != nil {
					logger.L().Warn("failed to write ping message", "error", err, "tab", tab)
					return
				}
			}
		}
	}()

	h.handleIncoming(ctx, conn)

	logger.L().Info("gateway connection closed", "tab", tab, "conn_id", sub.ID.String())
}

// handleControls forwards the tab's control signals to the bridge.
func (h *WebSocketHandlers) handleControls(ctx context.Context, conn *wsConn, sub *transport.Subscriber[protocol.Control]) {
	for {
		select {
		case ctl, ok := <-sub.Ch:
			if !ok {
				return
			}
			if err := conn.write(protocol.Frame{Control: &ctl}); err != nil {
				logger.L().Error("failed to write control frame", "error", err, "tab", conn.tab)
				return
			}
		case <-sub.Done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// handleIncoming reads request frames until the connection drops.
func (h *WebSocketHandlers) handleIncoming(ctx context.Context, conn *wsConn) {
	for {
		_, data, err := conn.c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.L().Error("websocket error", "error", err, "tab", conn.tab)
			}
			return
		}

		var f protocol.Frame
		if err := json.Unmarshal(data, &f); err != nil || f.Request == nil {
			logger.L().Warn("dropping malformed frame", "tab", conn.tab, "error", err)
			continue
		}

		id := f.ID
		call := gateway.Call{
			Request: *f.Request,
			Reply: func(resp protocol.Response) {
				if err := conn.write(protocol.Frame{ID: id, Response: &resp}); err != nil {
					logger.L().Warn("failed to write response frame", "error", err, "tab", conn.tab, "id", id)
				}
			},
		}

		select {
		case h.calls <- call:
		case <-ctx.Done():
			return
		}
	}
}

// ToggleResponse reports how many bridges received a toggle.
type ToggleResponse struct {
	Bridges int `json:"bridges" example:"1"`
}

// Toggle sends the overlay toggle signal to every bridge of a tab
// @Summary Toggle the overlay of a tab
// @Tags gateway
// @Produce json
// @Param tab path string true "Tab id"
// @Success 202 {object} ToggleResponse
// @Router /tabs/{tab}/toggle [post]
func (h *WebSocketHandlers) Toggle(c *fiber.Ctx) error {
	tab := c.Params("tab")
	if tab == "" {
		return httperr.Fail(httperr.ErrMissingTab)
	}
	n := h.gw.Toggle(tab)
	return c.Status(fiber.StatusAccepted).JSON(ToggleResponse{Bridges: n})
}

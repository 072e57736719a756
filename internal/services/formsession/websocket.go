package formsession

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"

	"survey-drafts/internal/drafts"
	"survey-drafts/internal/logger"
	"survey-drafts/internal/middleware"
	"survey-drafts/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler attaches sockets to form sessions
type WebSocketHandler struct {
	registry *Registry
	hub      *Hub
	log      *logger.Logger
}

func NewWebSocketHandler(registry *Registry, hub *Hub, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{registry: registry, hub: hub, log: log.With("component", "WebSocketHandler")}
}

// HandleSession upgrades GET /ws/sessions/{sid}
func (h *WebSocketHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := mux.Vars(r)["sid"]

	session, err := h.registry.Get(sid)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	if !sameOperator(session.Operator(), middleware.OperatorFromContext(ctx)) {
		middleware.WriteError(w, http.StatusForbidden, "forbidden", "session belongs to another operator")
		return
	}

	ctx, span := middleware.StartSpan(ctx, "WebSocket.Connect", attribute.String("session.id", sid))
	defer span.End()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "session_id", sid, "error", err)
		middleware.AddSpanError(ctx, err)
		return
	}

	client := &Client{Conn: conn, Send: make(chan []byte, 64), Session: session, hub: h.hub}
	h.hub.Register(client)

	// detach from the request; the pumps outlive the handler
	pumpCtx := context.WithoutCancel(ctx)
	go client.WritePump()
	go client.ReadPump(pumpCtx, h.registry, h.log)

	h.log.Info("websocket attached", "session_id", sid)
}

// ReadPump applies inbound messages. When the last socket of a session
// goes away the session is unloaded, like a closed browser tab.
func (c *Client) ReadPump(ctx context.Context, registry *Registry, log *logger.Logger) {
	sid := c.Session.ID()
	defer func() {
		remaining := c.hub.Unregister(c)
		_ = c.Conn.Close()
		if remaining == 0 {
			_ = registry.Close(sid)
		}
	}()

	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read failed", "session_id", sid, "error", err)
			}
			return
		}

		msgCtx, span := middleware.StartSpan(ctx, "WebSocket.ProcessMessage",
			attribute.String("session.id", sid),
			attribute.Int("message.size", len(raw)),
		)
		c.handle(msgCtx, raw)
		span.End()
	}
}

func (c *Client) handle(ctx context.Context, raw []byte) {
	var msg models.InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.reply(models.SessionMessage{Type: models.MessageTypeError, Error: "malformed message"})
		return
	}

	switch msg.Type {
	case models.InboundInput:
		if err := c.Session.Input(ctx, msg.Events); err != nil {
			middleware.AddSpanError(ctx, err)
			c.reply(models.SessionMessage{Type: models.MessageTypeError, Error: err.Error()})
		}
	case models.InboundSave:
		d, err := c.Session.Save(ctx)
		switch {
		case err == nil:
			c.reply(models.SessionMessage{Type: models.MessageTypeSaved, DraftID: d.ID})
		case errors.Is(err, drafts.ErrSessionNotFound):
			c.reply(models.SessionMessage{Type: models.MessageTypeError, Error: err.Error()})
		default:
			c.reply(models.SessionMessage{Type: models.MessageTypeError, DraftID: d.ID, Error: "draft could not be saved"})
		}
	default:
		c.reply(models.SessionMessage{Type: models.MessageTypeError, Error: "unknown message type " + msg.Type})
	}
}

func (c *Client) reply(msg models.SessionMessage) {
	c.hub.Send(c.Session.ID(), msg)
}

// WritePump drains Send and keeps the connection alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

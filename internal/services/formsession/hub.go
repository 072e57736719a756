package formsession

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"survey-drafts/internal/logger"
	"survey-drafts/internal/models"
)

/*
LEARNING: PUSH HUB

Sockets attached to form sessions are tracked here. The hub is the list
refresh collaborator of the draft bridge: when drafts of an operator change,
every socket of that operator gets a drafts_changed message so its list view
reloads.

One goroutine owns the client map; register, unregister and broadcast go
through channels so no lock is held while writing to a slow client.
*/

// Client is one socket attached to a form session
type Client struct {
	Conn    *websocket.Conn
	Send    chan []byte
	Session *FormSession
	hub     *Hub
}

// BroadcastMessage targets one session or every session of an operator
type BroadcastMessage struct {
	SessionID string
	Operator  *models.Operator
	ByOwner   bool
	Message   []byte
}

type Hub struct {
	clients    map[string]map[*Client]bool // session id -> clients
	register   chan *Client
	unregister chan unregisterRequest
	broadcast  chan *BroadcastMessage
	mu         sync.RWMutex
	done       chan struct{}
	once       sync.Once
	log        *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan unregisterRequest),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
		log:        log.With("component", "Hub"),
	}
}

// Start runs the event loop
func (h *Hub) Start() {
	go func() {
		for {
			select {
			case <-h.done:
				return
			case c := <-h.register:
				h.handleRegister(c)
			case req := <-h.unregister:
				req.remaining <- h.handleUnregister(req.client)
			case msg := <-h.broadcast:
				h.handleBroadcast(msg)
			}
		}
	}()
	h.log.Info("push hub started")
}

func (h *Hub) handleRegister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sid := c.Session.ID()
	if h.clients[sid] == nil {
		h.clients[sid] = make(map[*Client]bool)
	}
	h.clients[sid][c] = true
	h.log.Debug("socket attached", "session_id", sid, "sockets", len(h.clients[sid]))
}

func (h *Hub) handleUnregister(c *Client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
	return len(h.clients[c.Session.ID()])
}

func (h *Hub) removeLocked(c *Client) {
	sid := c.Session.ID()
	clients, ok := h.clients[sid]
	if !ok || !clients[c] {
		return
	}
	delete(clients, c)
	close(c.Send)
	if len(clients) == 0 {
		delete(h.clients, sid)
	}
	h.log.Debug("socket detached", "session_id", sid, "remaining", len(clients))
}

func (h *Hub) handleBroadcast(msg *BroadcastMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sid, clients := range h.clients {
		if !msg.ByOwner && sid != msg.SessionID {
			continue
		}
		for c := range clients {
			if msg.ByOwner && !sameOperator(c.Session.Operator(), msg.Operator) {
				continue
			}
			select {
			case c.Send <- msg.Message:
			default:
				h.log.Warn("socket buffer full, dropping client", "session_id", sid)
				h.removeLocked(c)
			}
		}
	}
}

func sameOperator(a, b *models.Operator) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}

// Send pushes a message to the sockets of one session
func (h *Hub) Send(sessionID string, msg models.SessionMessage) {
	h.enqueue(&BroadcastMessage{SessionID: sessionID, Message: encode(msg)})
}

// RefreshDrafts tells every socket of op that its draft list changed
func (h *Hub) RefreshDrafts(op *models.Operator) {
	h.enqueue(&BroadcastMessage{
		Operator: op,
		ByOwner:  true,
		Message:  encode(models.SessionMessage{Type: models.MessageTypeDraftsChanged}),
	})
}

func (h *Hub) enqueue(msg *BroadcastMessage) {
	select {
	case <-h.done:
	case h.broadcast <- msg:
	default:
		h.log.Warn("broadcast queue full, message dropped")
	}
}

// Clients returns the number of sockets attached to a session
func (h *Hub) Clients(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// Shutdown stops the loop and closes every socket
func (h *Hub) Shutdown() {
	h.once.Do(func() {
		close(h.done)

		h.mu.Lock()
		defer h.mu.Unlock()
		for _, clients := range h.clients {
			for c := range clients {
				close(c.Send)
				if c.Conn != nil {
					_ = c.Conn.Close()
				}
			}
		}
		h.clients = make(map[string]map[*Client]bool)
		h.log.Info("push hub stopped")
	})
}

func encode(msg models.SessionMessage) []byte {
	b, _ := json.Marshal(msg)
	return b
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

type unregisterRequest struct {
	client    *Client
	remaining chan int
}

// Unregister detaches c and returns how many sockets its session still has
func (h *Hub) Unregister(c *Client) int {
	req := unregisterRequest{client: c, remaining: make(chan int, 1)}
	select {
	case h.unregister <- req:
		return <-req.remaining
	case <-h.done:
		return 0
	}
}

package websocket

import (
	"encoding/json"
	"net/http"
	"sync"

	"pharmacy/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for dev simplicity
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event types pushed to connected clients.
const (
	EventLowStock    = "low_stock"
	EventSaleCreated = "sale_created"
)

// Event is the wire format for hub notifications.
type Event struct {
	Type     string `json:"type"`
	TenantID string `json:"tenant_id"`
	BranchID string `json:"branch_id,omitempty"`
	Payload  any    `json:"payload"`
}

// Client represents a single connected WebSocket client, pinned to the
// tenant its token belongs to.
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	TenantID string
}

type tenantMessage struct {
	tenantID string
	data     []byte
}

// Hub maintains the set of active clients and fans events out to them.
// Delivery is partitioned by tenant id: a client only ever receives events
// for its own tenant.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan tenantMessage
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
}

// NewHub initializes a new WS Hub instance
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan tenantMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run starts the core dispatch loop for WebSocket events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logrus.WithField("tenant_id", client.TenantID).Debug("websocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if client.TenantID != msg.tenantID {
					continue
				}
				select {
				case client.Send <- msg.data:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Notify pushes an event to every client of the given tenant. Fire-and-forget:
// a marshal failure is logged and dropped, it never fails the caller.
func (h *Hub) Notify(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).Warn("websocket event marshal failed")
		return
	}
	select {
	case h.broadcast <- tenantMessage{tenantID: event.TenantID, data: data}:
	default:
		logrus.Warn("websocket broadcast queue full, event dropped")
	}
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		w, err := c.Conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		_, _ = w.Write(message)

		// Fast track writing queued messages
		n := len(c.Send)
		for i := 0; i < n; i++ {
			_, _ = w.Write([]byte{'\n'})
			_, _ = w.Write(<-c.Send)
		}

		if err := w.Close(); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		_ = c.Conn.Close()
	}()
	for {
		// Just reading to keep connection alive or handle client messages if necessary
		_, _, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).Debug("websocket read error")
			}
			break
		}
	}
}

// ServeWs handles websocket requests from the peer. Browsers cannot set an
// Authorization header on the upgrade request, so the access token arrives
// as a query parameter and is verified the same way the pipeline verifies it.
func ServeWs(hub *Hub, c *gin.Context, codec *auth.TokenCodec) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	principal, err := codec.Verify(tokenString, auth.TokenTypeAccess)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	if principal.TenantID == nil {
		// Notifications are tenant streams; a pre-tenant SuperAdmin token
		// has nothing to subscribe to.
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}
	client := &Client{
		Hub:      hub,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		TenantID: principal.TenantID.String(),
	}
	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}

package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/moodcast/domain/entities"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Overlay clients only send control frames.
	maxMessageSize = 4 * 1024

	sendBuffer = 16
)

// EffectFeed is the dispatcher name of the overlay feed
const EffectFeed = "feed"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// overlays are loaded from local browser sources
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ImageResolver maps a mood to the URL of its overlay image, or "" for none
type ImageResolver func(mood entities.MoodLabel) string

// Hub pushes mood changes to connected overlay clients. It doubles as an
// effect handler so the dispatcher can drive it like any other output.
type Hub struct {
	// Registered clients.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed when Run returns.
	done chan struct{}

	// Mutex for thread-safe access to clients map and current mood
	mu      sync.RWMutex
	current entities.MoodLabel

	sessionID string
	images    ImageResolver
	logger    *zap.Logger
}

// NewHub creates a hub for one session. images may be nil.
func NewHub(sessionID string, initial entities.MoodLabel, images ImageResolver, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		current:    initial,
		sessionID:  sessionID,
		images:     images,
		logger:     logger,
	}
}

// Run handles client registration until ctx is cancelled, then closes every
// client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.id]; ok {
				close(old.send)
			}
			h.clients[client.id] = client
			h.mu.Unlock()
			h.logger.Info("Overlay client registered", zap.String("clientID", client.id))

		case client := <-h.unregister:
			h.remove(client)

		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			h.logger.Info("Overlay hub stopped")
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[client.id]; ok && cur == client {
		delete(h.clients, client.id)
		close(client.send)
		h.logger.Info("Overlay client unregistered", zap.String("clientID", client.id))
	}
}

// ClientCount returns the number of connected overlay clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Current returns the last mood pushed to clients
func (h *Hub) Current() entities.MoodLabel {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Name implements the effect handler contract
func (h *Hub) Name() string { return EffectFeed }

// Apply records the new mood and broadcasts it. Having no clients is not an
// error.
func (h *Hub) Apply(_ context.Context, event entities.MoodTransitionEvent, _ entities.MoodProfile) error {
	h.mu.Lock()
	h.current = event.To
	h.mu.Unlock()

	payload, err := encodeMoodChanged(h.sessionID, event, h.imageURL(event.To))
	if err != nil {
		return err
	}
	h.Broadcast(payload)
	return nil
}

// Broadcast queues payload on every client. Clients whose buffer is full are
// dropped.
func (h *Hub) Broadcast(payload []byte) {
	var slow []*Client

	h.mu.RLock()
	for _, client := range h.clients {
		select {
		case client.send <- payload:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("Dropping slow overlay client", zap.String("clientID", client.id))
		h.remove(client)
	}
}

func (h *Hub) imageURL(mood entities.MoodLabel) string {
	if h.images == nil {
		return ""
	}
	return h.images(mood)
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	id     string
	logger *zap.Logger
}

// HandleWebSocket upgrades an authenticated request into an overlay client
// and greets it with the current mood
func HandleWebSocket(hub *Hub, c echo.Context, clientID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		id:     clientID,
		logger: logger.With(zap.String("clientID", clientID)),
	}

	mood := hub.Current()
	welcome, err := encodeWelcome(hub.sessionID, mood)
	if err != nil {
		conn.Close()
		return err
	}
	client.send <- welcome

	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return nil
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump keeps the read side alive so pongs and close frames are handled.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one connected player.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	playerID string
}

// Hub tracks connected clients and routes outbound snapshots to them.
type Hub struct {
	clients    map[string]*Client // playerID -> client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewHub creates a connection hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run processes client registration until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.playerID]; ok {
				close(old.send)
			}
			h.clients[client.playerID] = client
			h.mu.Unlock()
			h.logger.Info("client connected", zap.String("player", client.playerID))

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.playerID]; ok && current == client {
				delete(h.clients, client.playerID)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("client disconnected", zap.String("player", client.playerID))
		}
	}
}

// SendTo queues a message for one player, dropping it when the player is not
// connected or its buffer is full.
func (h *Hub) SendTo(playerID string, message []byte) {
	h.mu.RLock()
	client, ok := h.clients[playerID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case client.send <- message:
	default:
		h.logger.Warn("client send buffer full, dropping message",
			zap.String("player", playerID),
		)
	}
}

func (c *Client) readPump(g *Gateway) {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Warn("websocket read error",
					zap.String("player", c.playerID),
					zap.Error(err),
				)
			}
			return
		}
		g.handleMessage(c, raw)
	}
}

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

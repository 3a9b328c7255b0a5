package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// LogEvent is the JSON message pushed to subscribed clients for every
// automation log line.
type LogEvent struct {
	Type     string `json:"type"`
	DeviceID string `json:"device_id"`
	Message  string `json:"message"`
}

type Client struct {
	hub        *WebSocketHub
	conn       *websocket.Conn
	send       chan []byte
	subscribed map[string]bool
}

// WebSocketHub fans automation log events out to connected clients.
// Clients subscribe per device, or to "all".
type WebSocketHub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("Log stream client connected (total: %d)", len(h.clients))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("Log stream client disconnected (total: %d)", len(h.clients))
		}
	}
}

// BroadcastLog sends one device log line to every client subscribed to
// that device. Slow clients drop the oldest pending event rather than
// blocking the engine.
func (h *WebSocketHub) BroadcastLog(deviceID, message string) {
	payload, err := json.Marshal(LogEvent{Type: "log", DeviceID: deviceID, Message: message})
	if err != nil {
		log.Printf("Failed to marshal log event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if !client.subscribed[deviceID] && !client.subscribed["all"] {
			continue
		}
		select {
		case client.send <- payload:
		default:
			select {
			case <-client.send:
			default:
			}
			select {
			case client.send <- payload:
			default:
				log.Printf("⚠️ Client channel full, dropping log event")
			}
		}
	}
}

func HandleWebSocket(hub *WebSocketHub, c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, 64),
		subscribed: make(map[string]bool),
	}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump handles subscription messages from the client.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg struct {
			Type     string `json:"type"`
			DeviceID string `json:"device_id"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "subscribe":
			if msg.DeviceID != "" {
				c.subscribed[msg.DeviceID] = true
				log.Printf("Client subscribed to device %s logs", msg.DeviceID)
			}
		case "unsubscribe":
			if msg.DeviceID != "" {
				delete(c.subscribed, msg.DeviceID)
				log.Printf("Client unsubscribed from device %s logs", msg.DeviceID)
			}
		}
	}
}

// writePump pushes log events and keepalive pings to the client.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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

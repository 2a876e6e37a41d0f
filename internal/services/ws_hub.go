package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event types pushed to connected clients
const (
	EventMessageReceived = "message_received"
	EventLiked           = "liked"
	EventError           = "error"
	EventPong            = "pong"
)

const writeWait = 10 * time.Second

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// wsClient serializes writes to one connection
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsClient) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// WSHub manages WebSocket connections, one per account
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*wsClient
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		connections: make(map[string]*wsClient),
	}
}

// Register registers a new WebSocket connection for an account,
// replacing any previous one
func (h *WSHub) Register(accountID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, exists := h.connections[accountID]; exists {
		existing.conn.Close()
	}
	h.connections[accountID] = &wsClient{conn: conn}

	log.Info().Str("user_id", accountID).Msg("WebSocket connection registered")
}

// Unregister removes conn if it is still the account's current connection
func (h *WSHub) Unregister(accountID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, exists := h.connections[accountID]; exists && c.conn == conn {
		c.conn.Close()
		delete(h.connections, accountID)
		log.Info().Str("user_id", accountID).Msg("WebSocket connection unregistered")
	}
}

// SendToUser sends a message to a specific account
func (h *WSHub) SendToUser(accountID string, message WSMessage) error {
	h.mu.RLock()
	c, exists := h.connections[accountID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("user %s is not connected", accountID)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := c.write(data); err != nil {
		h.Unregister(accountID, c.conn)
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Ping sends a ping control frame on conn if it is still the account's
// current connection
func (h *WSHub) Ping(accountID string, conn *websocket.Conn) error {
	h.mu.RLock()
	c, exists := h.connections[accountID]
	h.mu.RUnlock()

	if !exists || c.conn != conn {
		return fmt.Errorf("user %s is not connected", accountID)
	}
	return c.ping()
}

// IsOnline checks if an account has a live connection
func (h *WSHub) IsOnline(accountID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.connections[accountID]
	return exists
}

// Close drops every connection
func (h *WSHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.connections {
		c.conn.Close()
		delete(h.connections, id)
	}
}

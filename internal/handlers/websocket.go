package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"dating-backend/internal/middleware"
	"dating-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	defaultPongWait = 60 * time.Second
	maxFrameSize    = 4096
)

// Client message types
const (
	clientPing = "ping"
)

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub      *services.WSHub
	parser   middleware.TokenParser
	upgrader websocket.Upgrader
	// pongWait is how long a connection may stay silent; pings go out at 9/10 of it
	pongWait time.Duration
}

// NewWebSocketHandler creates a new WebSocket handler. An empty origin list
// accepts every origin.
func NewWebSocketHandler(hub *services.WSHub, parser middleware.TokenParser, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		parser: parser,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
		pongWait: defaultPongWait,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	if _, ok := set["*"]; ok {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// HandleWebSocket handles GET /ws?token=
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Get token from query parameter
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	claims, err := h.parser.ParseToken(token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}
	userID := claims.Subject

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID, conn)

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go h.pingLoop(userID, conn, done)

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Failed to parse WebSocket message")
			h.sendError(userID, "Invalid message format")
			continue
		}

		switch msg.Type {
		case clientPing:
			h.send(userID, services.WSMessage{Type: services.EventPong, Timestamp: time.Now().Unix()})
		default:
			h.sendError(userID, "Unknown message type")
		}
	}

	log.Info().Str("user_id", userID).Msg("WebSocket connection closed")
}

// pingLoop keeps an idle connection alive until done is closed
func (h *WebSocketHandler) pingLoop(userID string, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(h.pongWait * 9 / 10)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := h.hub.Ping(userID, conn); err != nil {
				log.Debug().Err(err).Str("user_id", userID).Msg("WebSocket ping failed")
				return
			}
		case <-done:
			return
		}
	}
}

func (h *WebSocketHandler) send(userID string, msg services.WSMessage) {
	if err := h.hub.SendToUser(userID, msg); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("type", msg.Type).Msg("Failed to send WebSocket message")
	}
}

// sendError sends an error event through the hub so writes stay serialized
func (h *WebSocketHandler) sendError(userID, message string) {
	h.send(userID, services.WSMessage{Type: services.EventError, Message: message})
}

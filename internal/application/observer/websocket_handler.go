package observer

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/smilemakc/atelier/internal/infrastructure/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The planning view is same-origin; deployments needing stricter
		// checks front this with a reverse proxy.
		return true
	},
}

// WebSocketHandler handles WebSocket connection requests from planning
// views.
type WebSocketHandler struct {
	hub    *WebSocketHub
	logger *logger.Logger
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(hub *WebSocketHub, logger *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
	}
}

// ServeHTTP upgrades the connection and registers the client. The
// optional planning_id query parameter scopes the stream to one
// planning; without it the client receives every event.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	planningID, _ := strconv.ParseInt(r.URL.Query().Get("planning_id"), 10, 64)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to upgrade websocket connection", "error", err)
		}
		return
	}

	clientID := uuid.New().String()
	client := NewWebSocketClient(clientID, conn, h.hub, planningID)

	h.hub.Register(client)

	welcomeMsg := map[string]any{
		"type":        "control",
		"message":     "connected to planning event stream",
		"client_id":   clientID,
		"planning_id": planningID,
		"timestamp":   time.Now().Format(time.RFC3339),
	}

	if data, err := json.Marshal(welcomeMsg); err == nil {
		select {
		case client.send <- data:
		default:
		}
	}

	go client.WritePump()
	go client.ReadPump()

	if h.logger != nil {
		h.logger.Info("websocket connection established",
			"client_id", clientID,
			"planning_id", planningID,
			"remote_addr", r.RemoteAddr,
		)
	}
}

// HandleHealthCheck returns WebSocket hub status.
func (h *WebSocketHandler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	status := map[string]any{
		"status":            "healthy",
		"connected_clients": h.hub.ClientCount(),
		"timestamp":         time.Now().Format(time.RFC3339),
	}

	if data, err := json.Marshal(status); err == nil {
		w.Write(data)
	}
}

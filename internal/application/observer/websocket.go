package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/smilemakc/atelier/internal/infrastructure/logger"
)

// WebSocketObserver broadcasts planning events to connected planning-view
// clients so open grids refresh when someone else edits.
type WebSocketObserver struct {
	name   string
	filter EventFilter
	logger *logger.Logger
	hub    *WebSocketHub
}

// WebSocketObserverOption configures WebSocketObserver.
type WebSocketObserverOption func(*WebSocketObserver)

// WithWebSocketFilter sets the event filter.
func WithWebSocketFilter(filter EventFilter) WebSocketObserverOption {
	return func(o *WebSocketObserver) {
		o.filter = filter
	}
}

// WithWebSocketLogger sets the logger instance.
func WithWebSocketLogger(l *logger.Logger) WebSocketObserverOption {
	return func(o *WebSocketObserver) {
		o.logger = l
	}
}

// NewWebSocketObserver creates a WebSocket observer over hub.
func NewWebSocketObserver(hub *WebSocketHub, opts ...WebSocketObserverOption) *WebSocketObserver {
	obs := &WebSocketObserver{
		name: "websocket",
		hub:  hub,
	}
	for _, opt := range opts {
		opt(obs)
	}
	return obs
}

// Name returns the observer's name.
func (o *WebSocketObserver) Name() string { return o.name }

// Filter returns the event filter.
func (o *WebSocketObserver) Filter() EventFilter { return o.filter }

// Hub returns the WebSocket hub (for HTTP handler integration).
func (o *WebSocketObserver) Hub() *WebSocketHub { return o.hub }

// WebSocketMessage is the envelope sent to WebSocket clients.
type WebSocketMessage struct {
	Type      string         `json:"type"` // "event" or "control"
	Event     *EventPayload  `json:"event,omitempty"`
	Control   map[string]any `json:"control,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// EventPayload is the WebSocket-friendly event payload.
type EventPayload struct {
	EventType  string    `json:"event_type"`
	DatabaseID string    `json:"database_id"`
	PlanningID int64     `json:"planning_id"`
	Timestamp  time.Time `json:"timestamp"`
	TaskID     int64     `json:"task_id,omitempty"`
	RowID      int64     `json:"row_id,omitempty"`
	PrevRowID  int64     `json:"prev_row_id,omitempty"`
	PrevSlot   int       `json:"prev_slot"`
	NewSlot    int       `json:"new_slot"`
	Duration   int       `json:"duration"`
	Message    string    `json:"message,omitempty"`
}

// OnEvent broadcasts the event to the clients watching its planning.
func (o *WebSocketObserver) OnEvent(ctx context.Context, event Event) error {
	message := &WebSocketMessage{
		Type: "event",
		Event: &EventPayload{
			EventType:  string(event.Type),
			DatabaseID: event.DatabaseID,
			PlanningID: event.PlanningID,
			Timestamp:  event.Timestamp,
			TaskID:     event.TaskID,
			RowID:      event.RowID,
			PrevRowID:  event.PrevRowID,
			PrevSlot:   event.PrevSlot,
			NewSlot:    event.NewSlot,
			Duration:   event.Duration,
			Message:    event.Message,
		},
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(message)
	if err != nil {
		if o.logger != nil {
			o.logger.ErrorContext(ctx, "failed to marshal websocket message",
				"error", err,
				"event_type", string(event.Type),
			)
		}
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	o.hub.BroadcastToPlanning(event.PlanningID, data)
	return nil
}

// WebSocketHub manages WebSocket connections and broadcasting.
type WebSocketHub struct {
	clients    map[*WebSocketClient]bool
	broadcast  chan []byte
	register   chan *WebSocketClient
	unregister chan *WebSocketClient
	logger     *logger.Logger
	mu         sync.RWMutex
}

// NewWebSocketHub creates a hub and starts its broadcast loop.
func NewWebSocketHub(logger *logger.Logger) *WebSocketHub {
	hub := &WebSocketHub{
		clients:    make(map[*WebSocketClient]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *WebSocketClient),
		unregister: make(chan *WebSocketClient),
		logger:     logger,
	}

	go hub.run()

	return hub
}

func (h *WebSocketHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

			if h.logger != nil {
				h.logger.Info("websocket client connected",
					"client_id", client.ID,
					"planning_id", client.planningID,
				)
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

			if h.logger != nil {
				h.logger.Info("websocket client disconnected",
					"client_id", client.ID,
				)
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, drop it.
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register registers a new WebSocket client.
func (h *WebSocketHub) Register(client *WebSocketClient) {
	h.register <- client
}

// Unregister unregisters a WebSocket client.
func (h *WebSocketHub) Unregister(client *WebSocketClient) {
	h.unregister <- client
}

// Broadcast broadcasts a message to all connected clients.
func (h *WebSocketHub) Broadcast(message []byte) {
	h.broadcast <- message
}

// BroadcastToPlanning sends a message to clients watching the given
// planning, plus clients with no planning filter.
func (h *WebSocketHub) BroadcastToPlanning(planningID int64, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.planningID != 0 && client.planningID != planningID {
			continue
		}
		select {
		case client.send <- message:
		default:
			if h.logger != nil {
				h.logger.Warn("websocket client send buffer full, skipping message",
					"client_id", client.ID,
				)
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// WebSocketClient is one connected planning view.
type WebSocketClient struct {
	ID         string
	conn       *websocket.Conn
	send       chan []byte
	hub        *WebSocketHub
	planningID int64 // 0 = all plannings
}

// NewWebSocketClient creates a client for the given connection.
func NewWebSocketClient(id string, conn *websocket.Conn, hub *WebSocketHub, planningID int64) *WebSocketClient {
	return &WebSocketClient{
		ID:         id,
		conn:       conn,
		send:       make(chan []byte, 256),
		hub:        hub,
		planningID: planningID,
	}
}

// ReadPump reads (and discards) messages from the connection, keeping
// the pong deadline alive until the client goes away.
func (c *WebSocketClient) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				if c.hub.logger != nil {
					c.hub.logger.Error("websocket read error",
						"client_id", c.ID,
						"error", err,
					)
				}
			}
			break
		}
	}
}

// WritePump writes queued messages and pings to the connection.
func (c *WebSocketClient) WritePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain queued messages into the same frame.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

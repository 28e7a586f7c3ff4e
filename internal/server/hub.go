package server

import (
	"encoding/json"

	"go.uber.org/zap"
)

// EventType labels a progress event on the websocket feed.
type EventType string

const (
	EventRatingStarted  EventType = "rating_started"
	EventBatchComplete  EventType = "batch_complete"
	EventRatingComplete EventType = "rating_complete"
	EventRatingFailed   EventType = "rating_failed"
	EventImportComplete EventType = "import_complete"
)

// Event is the websocket envelope format.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans progress events out to every connected websocket client.
// Rating runs span many model calls, so the UI watches this feed instead
// of polling.
type Hub struct {
	clients    map[*Connection]struct{}
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *Event
	logger     *zap.Logger
}

// Connection is one subscribed websocket client.
type Connection struct {
	Send chan []byte
	hub  *Hub
}

func NewHub(logger *zap.Logger) *Hub {
	h := &Hub{
		clients:    make(map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *Event, 256),
		logger:     logger,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.clients[conn] = struct{}{}
			h.logger.Debug("Progress client connected", zap.Int("clients", len(h.clients)))

		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				close(conn.Send)
				h.logger.Debug("Progress client disconnected", zap.Int("clients", len(h.clients)))
			}

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("Progress event marshal failed", zap.Error(err))
				continue
			}
			for conn := range h.clients {
				select {
				case conn.Send <- data:
				default:
					// Slow client; drop the event rather than block the hub.
				}
			}
		}
	}
}

// Register adds a connection to the feed.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection from the feed.
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// Broadcast sends an event to every connected client. A nil hub is a
// no-op so callers never need to guard for a disabled feed.
func (h *Hub) Broadcast(eventType EventType, payload interface{}) {
	if h == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Progress payload marshal failed", zap.Error(err))
		return
	}
	h.broadcast <- &Event{Type: eventType, Payload: data}
}

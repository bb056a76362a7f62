package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Topic names one of the hub's two event streams. Each subscriber follows
// exactly one topic for the lifetime of its connection.
type Topic string

const (
	// TopicPools carries the periodic full pool-status snapshot plus
	// ad-hoc config-reload notifications.
	TopicPools Topic = "pools"
	// TopicSelections carries one event per /scheduler/select decision.
	TopicSelections Topic = "selections"
)

// Event is the envelope every hub message is wrapped in before it reaches
// the wire.
type Event struct {
	Topic     Topic  `json:"topic"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

// SelectionEvent is TopicSelections' payload: the outcome of one selection
// decision. Result is the chosen "ip:port", "none", or "fallback".
type SelectionEvent struct {
	TraceID string `json:"trace_id"`
	Pool    string `json:"pool"`
	Result  string `json:"result"`
}

// ReloadEvent is broadcast on TopicPools when a config reload changes the
// pool set, alongside the topic's periodic snapshots.
type ReloadEvent struct {
	Event   string   `json:"event"`
	Added   []string `json:"added"`
	Updated []string `json:"updated"`
	Removed []string `json:"removed"`
}

// sendBuffer bounds how far a subscriber may fall behind before the hub
// starts dropping messages for it.
const sendBuffer = 64

// wsClient is one subscriber connection.
type wsClient struct {
	conn  *websocket.Conn
	topic Topic
	send  chan []byte
}

// Hub fans pool-status snapshots and selection decisions out to websocket
// subscribers. A slow subscriber loses messages rather than stalling the
// broadcaster.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	done    chan struct{}
}

// NewHub creates a Hub with no subscribers.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		done:    make(chan struct{}),
	}
}

// Stop ends the pool-snapshot stream and disconnects every subscriber.
func (h *Hub) Stop() {
	close(h.done)
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Broadcast wraps data in the Event envelope and queues it to every
// subscriber of topic. Subscribers whose queue is full are skipped.
func (h *Hub) Broadcast(topic Topic, data any) {
	payload, err := json.Marshal(Event{
		Topic:     topic,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	})
	if err != nil {
		slog.Error("ws event marshal failed", "topic", topic, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if client.topic != topic {
			continue
		}
		select {
		case client.send <- payload:
		default:
			// Subscriber too slow; drop this message for it.
		}
	}
}

// ServeWS returns the HTTP handler that upgrades a connection and
// subscribes it to topic until either side closes.
func (h *Hub) ServeWS(topic Topic) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "error", err)
			return
		}

		client := &wsClient{
			conn:  conn,
			topic: topic,
			send:  make(chan []byte, sendBuffer),
		}
		h.mu.Lock()
		h.clients[client] = struct{}{}
		h.mu.Unlock()

		go client.writeLoop()
		go h.readLoop(client)
	}
}

// detach removes a client whose connection has gone away. A no-op if Stop
// already dropped it.
func (h *Hub) detach(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// writeLoop drains the client's queue onto the wire, exiting when the hub
// closes the queue or a write fails.
func (c *wsClient) writeLoop() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readLoop discards inbound frames (both streams are one-way) and detaches
// the client once the peer closes or errors.
func (h *Hub) readLoop(client *wsClient) {
	defer func() {
		h.detach(client)
		client.conn.Close()
	}()
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

package notifications

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"postboard/internal/middleware"
	"postboard/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Stream clients only listen; anything they send is read and discarded.
	maxMessageSize = 512

	sendBuffer = 64

	maxStreamClients = 1000
)

// ErrStreamFull is returned by Register when the hub is at capacity.
var ErrStreamFull = errors.New("event stream connection limit reached")

// StreamHub fans post events out to connected websocket clients.
type StreamHub struct {
	mu      sync.RWMutex
	clients map[*StreamClient]struct{}
	closed  bool
}

// StreamClient is one websocket subscriber.
type StreamClient struct {
	hub  *StreamHub
	conn *websocket.Conn
	send chan []byte
}

// NewStreamHub creates an empty hub.
func NewStreamHub() *StreamHub {
	return &StreamHub{clients: make(map[*StreamClient]struct{})}
}

// Register attaches conn to the hub.
func (h *StreamHub) Register(conn *websocket.Conn) (*StreamClient, error) {
	client := &StreamClient{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	if err := h.add(client); err != nil {
		return nil, err
	}
	return client, nil
}

func (h *StreamHub) add(client *StreamClient) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errors.New("event stream is closed")
	}
	if len(h.clients) >= maxStreamClients {
		return ErrStreamFull
	}
	h.clients[client] = struct{}{}
	observability.EventStreamClients.Inc()
	return nil
}

// Unregister detaches client and closes its send channel. Safe to call twice.
func (h *StreamHub) Unregister(client *StreamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	observability.EventStreamClients.Dec()
}

// Count returns the number of connected clients.
func (h *StreamHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues event for every client. A client whose buffer is full
// misses the event rather than stalling the others.
func (h *StreamHub) Broadcast(event PostEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		middleware.Logger.Warn("Failed to encode post event for stream", slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			observability.EventStreamDrops.WithLabelValues("buffer_full").Inc()
		}
	}
}

// Close disconnects every client and refuses new ones.
func (h *StreamHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
		observability.EventStreamClients.Dec()
	}
}

// Serve pumps events to the client until either side closes. It blocks for
// the lifetime of the connection.
func (c *StreamClient) Serve() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writePump()
	}()
	c.readPump()
	c.hub.Unregister(c)
	<-done
}

func (c *StreamClient) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				middleware.Logger.Debug("Event stream client read error", slog.String("error", err.Error()))
			}
			return
		}
	}
}

func (c *StreamClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/internal/scanner"
	"github.com/wonny/twscan/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

// Hub fans scan events out to websocket clients. The last finished event is
// replayed to every new client.
// ⭐ SSOT: 스캔 진행 상황 WebSocket 배포는 여기서만
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logger.Logger
	now      func() time.Time

	mu       sync.RWMutex
	clients  map[*client]struct{}
	finished []byte
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// NewHub creates a hub. checkOrigin nil accepts every origin.
func NewHub(log *logger.Logger, checkOrigin func(r *http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		logger:  log.WithModule("realtime"),
		now:     time.Now,
		clients: make(map[*client]struct{}),
	}
}

// ServeWS upgrades the request and registers the client
// GET /ws/scan
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer), hub: h}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.finished != nil {
		c.send <- h.finished
	}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.WithField("clients", count).Debug("Stream client connected")

	go c.writePump()
	go c.readPump()
}

// Progress publishes one scanner progress step
func (h *Hub) Progress(p scanner.Progress) {
	h.Broadcast(ProgressEvent(p, h.now()))
}

// Finished publishes a finished report and keeps it for late joiners
func (h *Hub) Finished(r *contracts.ScanReport) {
	msg, err := json.Marshal(FinishedEvent(r, h.now()))
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode report event")
		return
	}

	h.mu.Lock()
	h.finished = msg
	h.mu.Unlock()

	h.broadcast(msg)
}

// Broadcast sends an event to every client
func (h *Hub) Broadcast(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode stream event")
		return
	}
	h.broadcast(msg)
}

// slow clients are dropped instead of blocking the scan
func (h *Hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			delete(h.clients, c)
			close(c.send)
			h.logger.Warn("Stream client too slow, dropped")
		}
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// readPump only keeps the connection alive; clients do not send commands
func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Package stream serves simulation frames over websockets and collects
// impulses sent back by the clients.
package stream

import (
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 2 * time.Second
	impulseBacklog = 256
)

// Hub tracks connected clients. It implements http.Handler.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex
	last    *Frame

	impulses chan Impulse
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:   logger,
		clients:  make(map[*websocket.Conn]*sync.Mutex),
		impulses: make(chan Impulse, impulseBacklog),
	}
}

// Impulses delivers what clients send. Impulses arriving while the
// backlog is full are dropped.
func (h *Hub) Impulses() <-chan Impulse { return h.impulses }

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Println("websocket upgrade:", err)
		return
	}
	defer conn.Close()

	connMu := &sync.Mutex{}
	h.mu.Lock()
	h.clients[conn] = connMu
	last := h.last
	h.mu.Unlock()
	defer h.remove(conn)

	h.logger.Printf("client %s connected", conn.RemoteAddr())
	if last != nil {
		if err := send(conn, connMu, last); err != nil {
			h.logger.Println("websocket write:", err)
			return
		}
	}

	for {
		var imp Impulse
		if err := conn.ReadJSON(&imp); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Println("websocket read:", err)
			}
			return
		}
		select {
		case h.impulses <- imp:
		default:
			h.logger.Printf("impulse backlog full, dropping %s at (%d,%d)", imp.Kind, imp.X, imp.Y)
		}
	}
}

// Broadcast sends f to every client and remembers it for new ones.
// Clients that cannot be written to are dropped.
func (h *Hub) Broadcast(f Frame) {
	h.mu.Lock()
	h.last = &f
	h.mu.Unlock()

	h.mu.RLock()
	var failed []*websocket.Conn
	for conn, connMu := range h.clients {
		if err := send(conn, connMu, &f); err != nil {
			h.logger.Printf("dropping client %s: %v", conn.RemoteAddr(), err)
			failed = append(failed, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range failed {
		h.remove(conn)
		conn.Close()
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, connMu := range h.clients {
		connMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		connMu.Unlock()
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if ok {
		h.logger.Printf("client %s disconnected", conn.RemoteAddr())
	}
}

func send(conn *websocket.Conn, mu *sync.Mutex, f *Frame) error {
	mu.Lock()
	defer mu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(f)
}

// Package messaging pushes live claim updates to open dashboard views.
package messaging

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sudo-init-do/brandwacht/internal/marketplace"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer is how many frames a watcher may fall behind before it is
	// disconnected.
	sendBuffer = 16
)

// Event is one frame sent to subscribers.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Event types.
const (
	EventSnapshot = "snapshot"
	EventClaim    = "claim_updated"
)

// client is one watcher. Only its writer goroutine writes to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

type room struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

// Hub keeps one room of websocket subscribers per request id.
type Hub struct {
	mu       sync.Mutex
	rooms    map[string]*room
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub returns an empty hub. Origins are checked by the dashboard guard,
// so the upgrader accepts any origin.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms: make(map[string]*room),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (h *Hub) join(id string, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[id]
	if !ok {
		r = &room{clients: make(map[*client]struct{})}
		h.rooms[id] = r
	}
	r.mu.Lock()
	r.clients[cl] = struct{}{}
	r.mu.Unlock()
}

func (h *Hub) leave(id string, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[id]
	if !ok {
		return
	}
	r.mu.Lock()
	delete(r.clients, cl)
	empty := len(r.clients) == 0
	r.mu.Unlock()
	if empty {
		delete(h.rooms, id)
	}
}

// Subscribers returns how many connections watch request id.
func (h *Hub) Subscribers(id string) int {
	h.mu.Lock()
	r, ok := h.rooms[id]
	h.mu.Unlock()
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// BroadcastClaim sends the request's new claim state to its watchers.
func (h *Hub) BroadcastClaim(req marketplace.Request) {
	h.broadcast(req.ID, Event{Type: EventClaim, Data: req})
}

func (h *Hub) broadcast(id string, evt Event) {
	h.mu.Lock()
	r, ok := h.rooms[id]
	h.mu.Unlock()
	if !ok {
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("encode live event", zap.Error(err))
		return
	}

	// Sends never block: a watcher whose queue is full is disconnected and
	// its read loop removes it from the room.
	r.mu.Lock()
	defer r.mu.Unlock()
	for cl := range r.clients {
		select {
		case cl.send <- payload:
		default:
			h.logger.Warn("live watcher too slow, disconnecting", zap.String("request_id", id))
			_ = cl.conn.Close()
		}
	}
}

// writePump drains cl.send until it is closed.
func (h *Hub) writePump(cl *client, done chan<- struct{}) {
	defer close(done)
	for msg := range cl.send {
		_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("live write failed", zap.Error(err))
			_ = cl.conn.Close()
		}
	}
}

// Serve upgrades the connection, sends snapshot and keeps the socket in the
// request's room until the client goes away.
func (h *Hub) Serve(c echo.Context, snapshot marketplace.Request) error {
	first, err := json.Marshal(Event{Type: EventSnapshot, Data: snapshot})
	if err != nil {
		return err
	}
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	cl := &client{conn: ws, send: make(chan []byte, sendBuffer)}
	// Queued before joining so the snapshot precedes every update.
	cl.send <- first
	h.join(snapshot.ID, cl)

	done := make(chan struct{})
	go h.writePump(cl, done)
	defer func() {
		h.leave(snapshot.ID, cl)
		// No broadcast can reach cl after leave.
		close(cl.send)
		_ = ws.Close()
		<-done
	}()

	// Server push only; reads detect the close.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return nil
		}
	}
}

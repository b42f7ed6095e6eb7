package dashboard

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jaakkos/inboxflag/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard API already allows any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Frame is a WebSocket message in either direction.
//
// Server to client: {"type":"state","state":{...}} and {"type":"error","error":"..."}.
// Client to server: {"type":"message","message":{...}} and {"type":"mark_read"}.
type Frame struct {
	Type    string          `json:"type"`
	State   *StateSnapshot  `json:"state,omitempty"`
	Message *domain.Message `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan Frame
	done chan struct{}
	once sync.Once
}

func (c *client) stop() {
	c.once.Do(func() { close(c.done) })
}

// hub fans state changes out to connected clients. A client whose buffer is
// full misses that frame; the next one carries the full state anyway.
type hub struct {
	h *Handler

	mu      sync.Mutex
	clients map[*client]struct{}
	unsubs  []func()
	closed  bool
}

func newHub(h *Handler) *hub {
	hb := &hub{h: h, clients: make(map[*client]struct{})}
	hb.unsubs = append(hb.unsubs, h.svc.Log().Subscribe(func(domain.MessageLogState) { hb.broadcast() }))
	if v := h.svc.View(); v != nil {
		hb.unsubs = append(hb.unsubs, v.Subscribe(func(bool) { hb.broadcast() }))
	}
	return hb
}

func (hb *hub) add(c *client) bool {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	if hb.closed {
		return false
	}
	hb.clients[c] = struct{}{}
	return true
}

func (hb *hub) remove(c *client) {
	hb.mu.Lock()
	delete(hb.clients, c)
	hb.mu.Unlock()
	c.stop()
}

func (hb *hub) count() int {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	return len(hb.clients)
}

func (hb *hub) broadcast() {
	snap := hb.h.Snapshot()
	hb.mu.Lock()
	defer hb.mu.Unlock()
	for c := range hb.clients {
		select {
		case c.send <- Frame{Type: "state", State: &snap}:
		default:
			hb.h.logf("Dashboard: ws client buffer full, frame dropped")
		}
	}
}

func (hb *hub) close() {
	hb.mu.Lock()
	if hb.closed {
		hb.mu.Unlock()
		return
	}
	hb.closed = true
	clients := hb.clients
	hb.clients = make(map[*client]struct{})
	unsubs := hb.unsubs
	hb.unsubs = nil
	hb.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	for c := range clients {
		c.stop()
		_ = c.conn.Close()
	}
}

func (h *Handler) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logf("Dashboard: ws upgrade: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan Frame, sendBuffer), done: make(chan struct{})}
	if !h.hub.add(c) {
		_ = conn.Close()
		return
	}
	defer func() {
		h.hub.remove(c)
		_ = conn.Close()
	}()

	go h.writeLoop(c)
	h.greet(c)
	h.readLoop(c)
}

// greet queues the initial state frame. It never blocks: if broadcasts
// already filled the buffer, those frames carry the full state.
func (h *Handler) greet(c *client) {
	snap := h.Snapshot()
	h.reply(c, Frame{Type: "state", State: &snap})
}

func (h *Handler) writeLoop(c *client) {
	for {
		select {
		case <-c.done:
			return
		case f := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(f); err != nil {
				c.stop()
				return
			}
		}
	}
}

func (h *Handler) readLoop(c *client) {
	for {
		var f Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logf("Dashboard: ws read: %v", err)
			}
			return
		}
		var err error
		switch f.Type {
		case "message":
			if f.Message == nil {
				h.reply(c, Frame{Type: "error", Error: "message is required"})
				continue
			}
			err = h.svc.Deliver(*f.Message)
		case "mark_read":
			err = h.svc.MarkAsRead()
		default:
			h.reply(c, Frame{Type: "error", Error: "unknown frame type " + f.Type})
			continue
		}
		if err != nil {
			h.reply(c, Frame{Type: "error", Error: err.Error()})
		}
	}
}

func (h *Handler) reply(c *client, f Frame) {
	select {
	case c.send <- f:
	default:
	}
}

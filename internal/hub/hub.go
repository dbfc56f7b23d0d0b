package hub

import (
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/simfleet/fleetview/models"
)

// defaultWriteWait bounds a single frame write to one client
const defaultWriteWait = 5 * time.Second

// StateSource provides the frame sent to newly connected clients
type StateSource interface {
	State() models.DashboardState
}

// Controller receives control actions sent by clients
type Controller interface {
	Do(action string, taxis, passengers int) error
}

// ControlMessage is what a client sends to drive the simulation
type ControlMessage struct {
	Action     string `json:"action"`
	Taxis      int    `json:"taxis"`
	Passengers int    `json:"passengers"`
}

// Hub streams dashboard state to WebSocket clients. All writes to
// client connections happen on the run goroutine.
type Hub struct {
	upgrader  websocket.Upgrader
	source    StateSource
	control   Controller
	clients   map[*websocket.Conn]bool
	register  chan *websocket.Conn
	remove    chan *websocket.Conn
	broadcast chan []byte
	count     chan chan int
	latest    []byte
	writeWait time.Duration

	closeOnce sync.Once
	quit      chan struct{}
	stopped   chan struct{}
}

// New starts a hub. allowedOrigins follows the CORS setting; empty or "*"
// accepts any origin. control may be nil to ignore client messages.
func New(source StateSource, control Controller, allowedOrigins []string) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
		source:    source,
		control:   control,
		clients:   make(map[*websocket.Conn]bool),
		register:  make(chan *websocket.Conn),
		remove:    make(chan *websocket.Conn),
		broadcast: make(chan []byte, 16),
		count:     make(chan chan int),
		writeWait: defaultWriteWait,
		quit:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go h.run()
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

func (h *Hub) run() {
	defer close(h.stopped)
	for {
		select {
		case conn := <-h.register:
			h.clients[conn] = true
			h.sendLatest(conn)
		case conn := <-h.remove:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
		case msg := <-h.broadcast:
			h.latest = msg
			for conn := range h.clients {
				if err := h.write(conn, websocket.TextMessage, msg); err != nil {
					log.Warnf("Hub: failed to send frame to client: %v", err)
					delete(h.clients, conn)
					conn.Close()
				}
			}
		case reply := <-h.count:
			reply <- len(h.clients)
		case <-h.quit:
			for conn := range h.clients {
				h.write(conn, websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				conn.Close()
				delete(h.clients, conn)
			}
			return
		}
	}
}

func (h *Hub) sendLatest(conn *websocket.Conn) {
	data := h.latest
	if data == nil && h.source != nil {
		var err error
		if data, err = json.Marshal(h.source.State()); err != nil {
			log.Errorf("Hub: failed to marshal state: %v", err)
			return
		}
	}
	if data == nil {
		return
	}
	if err := h.write(conn, websocket.TextMessage, data); err != nil {
		log.Warnf("Hub: failed to send initial frame: %v", err)
	}
}

// write sends one frame, giving up after writeWait
func (h *Hub) write(conn *websocket.Conn, messageType int, data []byte) error {
	conn.SetWriteDeadline(time.Now().Add(h.writeWait))
	return conn.WriteMessage(messageType, data)
}

// ServeHTTP upgrades the request and registers the client
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Hub: websocket upgrade failed: %v", err)
		return
	}

	select {
	case h.register <- conn:
	case <-h.stopped:
		conn.Close()
		return
	}

	go h.readLoop(conn)
}

func (h *Hub) readLoop(conn *websocket.Conn) {
	defer func() {
		select {
		case h.remove <- conn:
		case <-h.stopped:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warnf("Hub: websocket error: %v", err)
			}
			return
		}
		h.handleMessage(message)
	}
}

func (h *Hub) handleMessage(message []byte) {
	if h.control == nil {
		return
	}
	var msg ControlMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Debugf("Hub: ignoring malformed client message: %v", err)
		return
	}
	if err := h.control.Do(msg.Action, msg.Taxis, msg.Passengers); err != nil {
		log.WithError(err).WithField("action", msg.Action).Warn("Hub: rejected client action")
	}
}

// Broadcast sends state to every client. It never blocks: when the hub is
// backed up the frame is dropped and the next one supersedes it.
func (h *Hub) Broadcast(state models.DashboardState) {
	data, err := json.Marshal(state)
	if err != nil {
		log.Errorf("Hub: failed to marshal state: %v", err)
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.stopped:
	default:
		log.Debug("Hub: broadcast queue full, dropping frame")
	}
}

// ClientCount reports how many clients are connected
func (h *Hub) ClientCount() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.stopped:
		return 0
	}
}

// Close disconnects every client and stops the hub
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.quit) })
	<-h.stopped
}

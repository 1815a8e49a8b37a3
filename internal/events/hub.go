package events

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/amuxd/amuxd/internal/common/logger"
)

// Timing/size constants for the websocket keepalive loop.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub mirrors a Bus to any number of connected websocket clients. It is
// read-only from the client's perspective: the only inbound traffic it
// expects is pong frames and connection close.
type Hub struct {
	bus    *Bus
	logger *logger.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

// NewHub wires a Hub to bus. Call Run in its own goroutine to start
// mirroring.
func NewHub(bus *Bus, log *logger.Logger) *Hub {
	if log == nil {
		log = logger.NewNop()
	}
	return &Hub{
		bus:     bus,
		logger:  log.WithFields(zap.String("component", "events-hub")),
		clients: make(map[*wsClient]struct{}),
	}
}

// Run drains the bus and broadcasts every Activity to all registered
// clients, until stop is closed.
func (h *Hub) Run(stop <-chan struct{}) {
	ch, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case a, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(a)
		case <-stop:
			return
		}
	}
}

func (h *Hub) broadcast(a Activity) {
	data, err := json.Marshal(a)
	if err != nil {
		h.logger.Warn("failed to marshal activity", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.send(data) {
			h.logger.Warn("client send buffer full, dropping client")
			go c.Close()
		}
	}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// ServeWS upgrades r to a websocket connection and registers a new
// mirror client on h.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &wsClient{hub: h, conn: conn, sendCh: make(chan []byte, 32), logger: h.logger}
	h.register(c)

	go c.writePump()
	go c.readPump()
	return nil
}

// wsClient is one connected mirror subscriber.
type wsClient struct {
	hub    *Hub
	conn   *websocket.Conn
	sendCh chan []byte
	logger *logger.Logger

	closeOnce sync.Once
}

func (c *wsClient) send(data []byte) bool {
	select {
	case c.sendCh <- data:
		return true
	default:
		return false
	}
}

// Close unregisters and closes the underlying connection.
func (c *wsClient) Close() {
	c.closeOnce.Do(func() {
		c.hub.unregister(c)
		c.conn.Close()
	})
}

// readPump only exists to process control frames (pong/close); the
// mirror accepts no client-sent payloads.
func (c *wsClient) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case data, ok := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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

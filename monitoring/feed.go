// Package monitoring streams prediction events to websocket clients.
package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"modeldemos/apps"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

// Message is the envelope sent to clients.
type Message struct {
	Type      string     `json:"type"`
	Timestamp time.Time  `json:"timestamp"`
	Event     apps.Event `json:"event"`
}

// ClientMessage is what a client may send: subscribe/unsubscribe to an app
// name. A client with no subscriptions receives every app.
type ClientMessage struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	id   string

	mu            sync.Mutex
	subscriptions map[string]bool
}

func (c *client) wants(app string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscriptions) == 0 || c.subscriptions[app]
}

type outbound struct {
	app     string
	payload []byte
}

// FeedHub fans prediction events out to connected clients.
type FeedHub struct {
	logger     *zap.Logger
	upgrader   websocket.Upgrader
	clients    map[*client]bool
	broadcast  chan outbound
	register   chan *client
	unregister chan *client
	done       chan struct{}
	stopOnce   sync.Once
}

// NewFeedHub returns a hub accepting websocket clients from allowedOrigins.
// Run must be started before clients connect.
func NewFeedHub(logger *zap.Logger, allowedOrigins []string) *FeedHub {
	return &FeedHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		clients:    make(map[*client]bool),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// Run owns the client set until Stop is called.
func (h *FeedHub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.logger.Debug("feed client connected", zap.String("client", c.id), zap.Int("clients", len(h.clients)))

		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			h.logger.Debug("feed client disconnected", zap.String("client", c.id), zap.Int("clients", len(h.clients)))

		case msg := <-h.broadcast:
			for c := range h.clients {
				if !c.wants(msg.app) {
					continue
				}
				select {
				case c.send <- msg.payload:
				default:
					// slow client
					delete(h.clients, c)
					close(c.send)
				}
			}

		case <-h.done:
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
		}
	}
}

// Stop disconnects every client and ends Run.
func (h *FeedHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Publish queues an event for broadcast; it never blocks the request path.
func (h *FeedHub) Publish(e apps.Event) {
	payload, err := json.Marshal(Message{Type: "prediction", Timestamp: time.Now(), Event: e})
	if err != nil {
		h.logger.Warn("marshal feed event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- outbound{app: e.App, payload: payload}:
	default:
		h.logger.Warn("feed broadcast queue full, dropping event", zap.String("id", e.ID))
	}
}

// HandleWebSocket upgrades the request and streams events to the client
// until it disconnects.
func (h *FeedHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{
		conn:          conn,
		send:          make(chan []byte, sendBuffer),
		id:            uuid.NewString(),
		subscriptions: make(map[string]bool),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go h.writePump(c)
	go h.readPump(c)
}

func (h *FeedHub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Debug("feed write failed", zap.String("client", c.id), zap.Error(err))
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

func (h *FeedHub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("feed read failed", zap.String("client", c.id), zap.Error(err))
			}
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		c.mu.Lock()
		switch msg.Type {
		case "subscribe":
			c.subscriptions[msg.Topic] = true
		case "unsubscribe":
			delete(c.subscriptions, msg.Topic)
		}
		c.mu.Unlock()
	}
}

// Package server exposes the battle system to the outside world: a
// websocket gateway carrying the chat-style command surface, and a small
// HTTP app for health and leaderboard reads.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/beingsarangi/battle-server/internal/messenger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Frame is the wire format both directions use.
type Frame struct {
	Type   string `json:"type"`
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
	Text   string `json:"text,omitempty"`
}

// Client is one connected participant. The send channel is guarded by
// the client's own mutex so a notification racing a disconnect can
// never hit a closed channel.
type Client struct {
	conn   *websocket.Conn
	userID string
	name   string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// trySend queues a payload for the write pump. It reports false when
// the client is gone or its buffer is full.
func (c *Client) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// closeSend shuts the send channel exactly once.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Gateway accepts websocket connections, routes command lines to the
// dispatcher, and feeds everything else to the reply mux. It is the
// transport behind messenger.Notify.
type Gateway struct {
	logger     *zap.Logger
	mux        *messenger.Mux
	dispatcher *Dispatcher

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewGateway creates a gateway. Bind the mux and the dispatcher before
// serving; the three reference each other, so wiring happens in two
// steps.
func NewGateway(dispatcher *Dispatcher, logger *zap.Logger) *Gateway {
	return &Gateway{
		logger:     logger,
		dispatcher: dispatcher,
		clients:    make(map[string]*Client),
	}
}

// BindMux attaches the reply mux that non-command lines are delivered
// to.
func (g *Gateway) BindMux(mux *messenger.Mux) {
	g.mux = mux
}

// BindDispatcher attaches the command dispatcher.
func (g *Gateway) BindDispatcher(d *Dispatcher) {
	g.dispatcher = d
}

// Notify delivers content to a connected participant. Participants who
// are offline just miss the message; delivery is fire-and-forget.
func (g *Gateway) Notify(_ context.Context, userID, content string) {
	g.mu.RLock()
	client, ok := g.clients[userID]
	g.mu.RUnlock()

	if !ok {
		g.logger.Debug("notify dropped, participant offline",
			zap.String("user_id", userID))
		return
	}

	payload, err := json.Marshal(Frame{Type: "notice", Text: content})
	if err != nil {
		return
	}

	if !client.trySend(payload) {
		g.logger.Warn("notify dropped, client gone or send buffer full",
			zap.String("user_id", userID))
	}
}

// ServeWS upgrades an HTTP request to a websocket session. The first
// frame must be a hello carrying the participant identity.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	var hello Frame
	if err := conn.ReadJSON(&hello); err != nil || hello.Type != "hello" || hello.UserID == "" {
		_ = conn.WriteJSON(Frame{Type: "error", Text: "first frame must be a hello with user_id"})
		conn.Close()
		return
	}

	client := &Client{
		conn:   conn,
		send:   make(chan []byte, 64),
		userID: hello.UserID,
		name:   hello.Name,
	}
	g.register(client)

	go client.writePump()
	go g.readPump(client)
}

func (g *Gateway) register(c *Client) {
	g.mu.Lock()
	old, replaced := g.clients[c.userID]
	g.clients[c.userID] = c
	g.mu.Unlock()

	if replaced {
		old.closeSend()
	}

	g.logger.Info("participant connected",
		zap.String("user_id", c.userID),
		zap.String("name", c.name),
	)
}

func (g *Gateway) unregister(c *Client) {
	g.mu.Lock()
	if g.clients[c.userID] == c {
		delete(g.clients, c.userID)
	}
	g.mu.Unlock()

	c.closeSend()

	g.logger.Info("participant disconnected", zap.String("user_id", c.userID))
}

func (g *Gateway) readPump(c *Client) {
	defer func() {
		g.unregister(c)
		c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			g.logger.Debug("malformed frame",
				zap.String("user_id", c.userID),
				zap.Error(err),
			)
			continue
		}
		if frame.Type != "message" || frame.Text == "" {
			continue
		}

		g.handleLine(c, frame.Text)
	}
}

// handleLine routes one inbound line: command lines go to the
// dispatcher, everything else to the pending battle waits.
func (g *Gateway) handleLine(c *Client, text string) {
	if g.dispatcher != nil && g.dispatcher.IsCommand(text) {
		g.dispatcher.Dispatch(context.Background(), c.userID, c.name, text)
		return
	}
	if g.mux != nil {
		g.mux.Deliver(c.userID, text)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			break
		}
	}
}

// Serve runs the gateway's HTTP listener until it fails.
func (g *Gateway) Serve(addr, path string) error {
	http.HandleFunc(path, g.ServeWS)
	g.logger.Info("websocket gateway listening",
		zap.String("address", addr),
		zap.String("path", path),
	)
	return http.ListenAndServe(addr, nil)
}

package server

import (
	"sync"
	"time"

	"stream-operators/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	clientBuffer   = 256
)

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

// Client is one dashboard websocket connection. Only the hub goroutine sends
// on or closes the outbox.
type Client struct {
	hub    *FastAPIServer
	conn   *websocket.Conn
	outbox chan *models.MDashboardMessage

	mu      sync.RWMutex
	symbols map[string]struct{} // empty means every symbol
}

func newClient(hub *FastAPIServer, conn *websocket.Conn) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		outbox: make(chan *models.MDashboardMessage, clientBuffer),
	}
}

// deliver queues msg without blocking; false means the client is too slow.
func (c *Client) deliver(msg *models.MDashboardMessage) bool {
	select {
	case c.outbox <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) setSymbols(symbols []string) {
	set := make(map[string]struct{}, len(symbols))
	for _, s := range normalizeSymbols(symbols) {
		set[s] = struct{}{}
	}
	c.mu.Lock()
	c.symbols = set
	c.mu.Unlock()
}

func (c *Client) wants(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.symbols) == 0 {
		return true
	}
	_, ok := c.symbols[symbol]
	return ok
}

// -----------------------------------------------------------------------------
// Pumps
// -----------------------------------------------------------------------------

// readPump reads subscribe commands until the peer goes away or stops
// answering pings, then unregisters the client.
func (c *Client) readPump() {
	defer c.leave()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err == nil {
			c.hub.HandleClientMessage(c, payload)
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			c.hub.Logger.Info("Dashboard client read failed: %v", err)
		}
		return
	}
}

func (c *Client) leave() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
	_ = c.conn.Close()
	c.hub.Logger.Debug("Dashboard client disconnected")
}

// writePump drains the outbox and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		var err error
		select {
		case msg, open := <-c.outbox:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !open {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			err = c.conn.WriteJSON(msg)
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = c.conn.WriteMessage(websocket.PingMessage, nil)
		}
		if err != nil {
			c.hub.Logger.Debug("Dashboard client write failed: %v", err)
			return
		}
	}
}

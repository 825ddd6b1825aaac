package server

import (
	"encoding/json"
	"net/http"
	"time"

	"stream-operators/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// clientRequest is a direct reply to one client, delivered by the hub.
type clientRequest struct {
	client  *Client
	message *models.MDashboardMessage
}

// handleWebsockets is the main Hub loop
func (s *FastAPIServer) handleWebsockets() {
	for {
		select {
		case <-s.done:
			s.clientsMu.Lock()
			for client := range s.clients {
				delete(s.clients, client)
				close(client.outbox)
			}
			s.clientsMu.Unlock()
			return

		case client := <-s.register:
			s.clientsMu.Lock()
			s.clients[client] = struct{}{}
			s.clientsMu.Unlock()
			client.deliver(s.initialMessage(nil))

		case client := <-s.unregister:
			s.clientsMu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.outbox)
			}
			s.clientsMu.Unlock()

		case req := <-s.requests:
			s.clientsMu.RLock()
			if _, ok := s.clients[req.client]; ok {
				req.client.deliver(req.message)
			}
			s.clientsMu.RUnlock()

		case emission := <-s.broadcast:
			message := &models.MDashboardMessage{
				Type:      "UPDATE",
				Emissions: []models.MEmission{emission},
				Timestamp: time.Now().UnixMilli(),
			}

			s.clientsMu.Lock()
			for client := range s.clients {
				if !client.wants(emission.Symbol) {
					continue
				}
				if !client.deliver(message) {
					s.Logger.Warning("Dropping slow dashboard client")
					delete(s.clients, client)
					close(client.outbox)
				}
			}
			s.clientsMu.Unlock()
		}
	}
}

// -----------------------------------------------------------------------------

// initialMessage snapshots the newest emission per symbol plus operator states.
func (s *FastAPIServer) initialMessage(symbols []string) *models.MDashboardMessage {
	msg := &models.MDashboardMessage{
		Type:      "INITIAL",
		Emissions: filterBySymbols(sortEmissions(s.Memory.Snapshot()), symbols),
		Timestamp: time.Now().UnixMilli(),
	}
	if s.Operators != nil {
		msg.Operators = s.Operators.List()
	}
	return msg
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := newClient(s, conn)

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *FastAPIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	client.setSymbols(cmd.Symbols)
	req := clientRequest{client: client, message: s.initialMessage(normalizeSymbols(cmd.Symbols))}

	select {
	case s.requests <- req:
	case <-s.done:
	}
}

package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/luxstay/receipt-engine/internal/booking"
	"github.com/luxstay/receipt-engine/pkg/receiptdoc"
)

// WebSocket message types
const (
	EventRender        = "render"
	EventReceiptIssued = "receipt_issued"
	EventResponse      = "response"
	EventError         = "error"
)

const wsRenderTimeout = 30 * time.Second

// WSMessage represents a WebSocket message
type WSMessage struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// WSClient represents a connected WebSocket client
type WSClient struct {
	conn   *websocket.Conn
	send   chan WSMessage
	server *Server
}

// hub tracks connected clients for broadcasts
type hub struct {
	mu      sync.RWMutex
	clients map[*WSClient]bool
}

func newHub() *hub {
	return &hub{clients: make(map[*WSClient]bool)}
}

func (h *hub) add(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

// remove unregisters c and closes its send channel
func (h *hub) remove(c *WSClient) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *hub) broadcast(msg WSMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			// Client send buffer full, skip
		}
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) closeAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		_ = client.conn.Close()
	}
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		conn:   conn,
		send:   make(chan WSMessage, 256),
		server: s,
	}
	s.hub.add(client)

	s.log.Info("WebSocket client connected", "clients", s.hub.count())

	go client.readPump()
	go client.writePump()
}

func (c *WSClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			c.server.log.Warn("WebSocket write error", "error", err)
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (c *WSClient) readPump() {
	defer func() {
		c.server.hub.remove(c)
		c.server.log.Info("WebSocket client disconnected")
	}()

	for {
		var msg WSMessage
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.server.log.Warn("WebSocket error", "error", err)
			}
			return
		}

		c.handleMessage(&msg)
	}
}

func (c *WSClient) handleMessage(msg *WSMessage) {
	switch msg.Event {
	case EventRender:
		c.handleRenderEvent(msg.Data)
	default:
		c.sendError(fmt.Sprintf("unknown event: %s", msg.Event))
	}
}

// handleRenderEvent renders either an inline document or a reservation and
// replies with the PDF as base64.
func (c *WSClient) handleRenderEvent(data map[string]interface{}) {
	s := c.server

	var (
		doc           *receiptdoc.Document
		reservationID string
		filename      string
	)

	if id, ok := data["reservation_id"]; ok && id != nil && fmt.Sprint(id) != "" {
		reservationID = fmt.Sprint(id)
		if s.deps.Backend == nil {
			c.sendError("reservation backend not configured")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), wsRenderTimeout)
		resv, room, err := s.deps.Backend.ReservationWithRoom(ctx, reservationID)
		cancel()
		if err != nil {
			s.deps.Metrics.IncBackendError("reservation")
			c.sendError(backendMessage(err))
			return
		}
		doc = booking.ReceiptFor(resv, room, booking.Options{
			Product:       s.deps.Product,
			CodeKind:      s.deps.CodeKind,
			ReservationID: reservationID,
		})
		filename = sanitizeFilename(booking.Filename(s.deps.Product, reservationID))
	} else if raw, ok := data["document"]; ok {
		docBytes, _ := json.Marshal(raw)
		parsed, err := receiptdoc.Parse(docBytes)
		if err != nil {
			c.sendError(fmt.Sprintf("invalid document: %v", err))
			return
		}
		doc = parsed
		name, _ := data["filename"].(string)
		filename = sanitizeFilename(booking.Pick(name, booking.Filename(s.deps.Product, "document")))
	} else {
		c.sendError("document or reservation_id is required")
		return
	}

	out, err := s.issue(doc, reservationID, filename)
	if err != nil {
		c.sendError(fmt.Sprintf("failed to render receipt: %v", err))
		return
	}

	resp := map[string]interface{}{
		"success":   true,
		"filename":  out.filename,
		"truncated": out.truncated,
		"pdf":       base64.StdEncoding.EncodeToString(out.data),
	}
	if out.entry != nil {
		resp["receipt_id"] = out.entry.ID
	}
	c.sendResponse(resp)
}

func (c *WSClient) sendResponse(data map[string]interface{}) {
	c.send <- WSMessage{
		Event: EventResponse,
		Data:  data,
	}
}

func (c *WSClient) sendError(message string) {
	c.send <- WSMessage{
		Event: EventError,
		Data: map[string]interface{}{
			"error": message,
		},
	}
}

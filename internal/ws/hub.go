package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"lab_booking/internal/notify"
	"lab_booking/internal/response"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

var ErrHubStopped = errors.New("websocket hub stopped")

// Message is the frame pushed to every socket of a slot room.
type Message struct {
	EventType string        `json:"event_type"`
	SlotID    uint          `json:"slot_id"`
	Data      notify.Intent `json:"data"`
}

type broadcast struct {
	slotID  uint
	payload []byte
}

// Hub keeps websocket clients grouped by slot and fans messages out to them.
type Hub struct {
	clients    map[uint]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcast
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcast, 64),
		done:       make(chan struct{}),
	}
}

// Run owns the rooms until ctx is done. Afterwards every socket is closed
// and new connections are refused.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.slotID] == nil {
				h.clients[client.slotID] = make(map[*Client]bool)
			}
			h.clients[client.slotID][client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[msg.slotID] {
				select {
				case client.send <- msg.payload:
				default:
					// slow reader, drop it
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.slotID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.slotID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for client := range clients {
			h.remove(client)
		}
	}
}

// Subscribers returns how many sockets listen on a slot.
func (h *Hub) Subscribers(slotID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[slotID])
}

// Name and Deliver make the hub a notification sink.
func (h *Hub) Name() string { return "websocket" }

func (h *Hub) Deliver(ctx context.Context, in notify.Intent) error {
	payload, err := json.Marshal(Message{
		EventType: string(in.Kind),
		SlotID:    in.Slot.SlotID,
		Data:      in,
	})
	if err != nil {
		return err
	}
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}
	select {
	case h.broadcast <- broadcast{slotID: in.Slot.SlotID, payload: payload}:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	slotID uint
}

// readPump only watches for disconnects and pongs; clients do not send commands.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Uint("slot_id", c.slotID).Msg("websocket closed unexpectedly")
			}
			return
		}
	}
}

func (c *Client) writePump() {
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

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SlotWebSocketHandler godoc
// @Summary		Live queue updates
// @Description	Upgrades to a websocket that receives every booking event of the slot
// @Tags			slots
// @Param			id	path	int	true	"Slot ID"
// @Success		101
// @Failure		400	{object}	response.ErrorResponse	"INVALID_SLOT_ID"
// @Router			/api/slots/{id}/ws [get]
func (h *Hub) SlotWebSocketHandler(c *gin.Context) {
	slotID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || slotID == 0 {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_SLOT_ID",
			Message: "Invalid slot id",
		})
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		slotID: uint(slotID),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump()
}

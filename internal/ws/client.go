package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/pkg/apperror"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 << 10

	sendBufferSize = 256

	// inbound frames per second, and burst
	frameRate  = 10
	frameBurst = 20
)

// Client represents a single WebSocket connection
type Client struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Name   string

	hub     *Hub
	conn    *websocket.Conn
	group   string
	limiter *rate.Limiter
	log     *zap.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewClient creates a client that will join group once registered.
func NewClient(hub *Hub, conn *websocket.Conn, group string, userID uuid.UUID, name string) *Client {
	return &Client{
		ID:      uuid.New(),
		UserID:  userID,
		Name:    name,
		hub:     hub,
		conn:    conn,
		group:   group,
		limiter: rate.NewLimiter(frameRate, frameBurst),
		log:     hub.log,
		send:    make(chan []byte, sendBufferSize),
	}
}

// Group is the group the client belongs to.
func (c *Client) Group() string { return c.group }

// FrameHandler processes one inbound frame. Frames of a connection are
// handled one at a time, in arrival order.
type FrameHandler func(client *Client, frame model.InboundFrame)

// Send queues event for this connection only.
func (c *Client) Send(event any) {
	data, err := json.Marshal(event)
	if err != nil {
		c.log.Error("client: marshal event", zap.Error(err))
		return
	}
	if !c.enqueue(data) {
		c.log.Warn("dropping slow connection", zap.String("user_id", c.UserID.String()))
		c.closeSend()
	}
}

// SendError sends an error frame carrying err's code.
func (c *Client) SendError(err error) {
	c.Send(model.ErrorFrame{
		Type:  model.FrameError,
		Code:  string(apperror.CodeOf(err)),
		Error: apperror.MessageOf(err),
	})
}

// enqueue reports false when the queue is full. A closed client swallows
// data.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump pumps frames from the connection to handle until the peer goes
// away, then calls onClose. Runs in a per-client goroutine.
func (c *Client) ReadPump(handle FrameHandler, onClose func(*Client)) {
	defer func() {
		if onClose != nil {
			onClose(c)
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Info("websocket closed", zap.String("user_id", c.UserID.String()), zap.Error(err))
			}
			return
		}

		if !c.limiter.Allow() {
			c.SendError(apperror.ErrRateLimited)
			continue
		}

		var frame model.InboundFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.SendError(apperror.MalformedFrame("frame is not valid JSON"))
			continue
		}
		if frame.Type == "" {
			c.SendError(apperror.MalformedFrame("frame type is required"))
			continue
		}

		if handle != nil {
			handle(c, frame)
		}
	}
}

// WritePump pumps queued events to the connection, one frame each.
// Runs in a per-client goroutine
func (c *Client) WritePump() {
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
				// queue closed by the hub
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

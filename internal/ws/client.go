package ws

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/escrow-backend/internal/goroutine"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/usecase/chat"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

var errConnectionClosed = apperror.New(apperror.ErrCodeBadRequest, "соединение закрыто")

// Client представляет одно подключение WebSocket.
type Client struct {
	conn     *websocket.Conn
	hub      *Hub
	id       string
	userID   uuid.UUID
	userName string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewClient создаёт нового клиента.
func NewClient(conn *websocket.Conn, hub *Hub, userID uuid.UUID, userName string) *Client {
	return &Client{
		conn:     conn,
		hub:      hub,
		id:       uuid.NewString(),
		userID:   userID,
		userName: userName,
		send:     make(chan []byte, sendBuffer),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) connection() chat.Connection {
	return chat.Connection{ID: c.id, UserID: c.userID, UserName: c.userName}
}

// Run запускает обработку входящих и исходящих сообщений и блокируется до закрытия соединения.
func (c *Client) Run(ctx context.Context) {
	goroutine.SafeGo(c.writePump)
	c.readPump(ctx)
}

// Close закрывает соединение.
func (c *Client) Close() {
	c.hub.Unregister(c)
	_ = c.conn.Close()
}

// enqueue не блокирует хаб: медленный клиент отключается.
func (c *Client) enqueue(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
		logger.Log.WithField("conn_id", c.id).Warn("ws: буфер клиента переполнен, соединение закрывается")
		goroutine.SafeGo(c.Close)
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

func (c *Client) readPump(ctx context.Context) {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.hub.heartbeat(c)
		return nil
	})

	for {
		if ctx.Err() != nil {
			return
		}
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.WithError(err).WithField("conn_id", c.id).Debug("ws: соединение оборвано")
			}
			return
		}
		goroutine.Protect("ws read handler", func() {
			c.hub.handle(ctx, c, raw)
		})
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

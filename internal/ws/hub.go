package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/usecase/chat"
)

// EventHandler обработчик событий соединений. Реализуется chat.RoomManager.
type EventHandler interface {
	Connect(conn chat.Connection)
	Disconnect(conn chat.Connection)
	Heartbeat(conn chat.Connection)
	HandleEvent(ctx context.Context, conn chat.Connection, event string, data json.RawMessage)
}

// Hub управляет всеми WebSocket клиентами и комнатами сделок.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]*Client
	rooms     map[string]map[string]*Client
	broadcast chan delivery
	handler   EventHandler

	// закрывается, когда Run завершился: поздние рассылки отбрасываются
	done     chan struct{}
	stopOnce sync.Once
}

type delivery struct {
	targets []*Client
	payload []byte
}

// envelope формат всех сообщений: поле "type" содержит имя события, "data" полезную нагрузку.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

var _ chat.Transport = (*Hub)(nil)

// NewHub создаёт новый хаб.
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[string]*Client),
		rooms:     make(map[string]map[string]*Client),
		broadcast: make(chan delivery, 256),
		done:      make(chan struct{}),
	}
}

// SetHandler подключает обработчик событий. Вызывается до приёма соединений.
func (h *Hub) SetHandler(handler EventHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handler = handler
}

// Run запускает главный цикл доставки до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.stopOnce.Do(func() { close(h.done) })
			h.closeAll()
			return
		case d := <-h.broadcast:
			for _, c := range d.targets {
				c.enqueue(d.payload)
			}
		}
	}
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	handler := h.handler
	h.mu.Unlock()

	if handler != nil {
		handler.Connect(client.connection())
	}
}

// Unregister удаляет клиента из хаба и всех комнат. Повторный вызов ничего не делает.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.id)
	for room, members := range h.rooms {
		delete(members, client.id)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	handler := h.handler
	h.mu.Unlock()

	client.closeSend()
	if handler != nil {
		handler.Disconnect(client.connection())
	}
}

func (h *Hub) JoinRoom(connID, room string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		// соединение закрылось, пока шли проверки
		return errConnectionClosed
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*Client)
	}
	h.rooms[room][connID] = client
	return nil
}

func (h *Hub) LeaveRoom(connID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) EmitToRoom(room, event string, payload any, exceptUser uuid.UUID) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[room]))
	for _, c := range h.rooms[room] {
		if exceptUser != uuid.Nil && c.userID == exceptUser {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	h.dispatch(targets, event, payload)
}

func (h *Hub) EmitToConn(connID, event string, payload any) {
	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.dispatch([]*Client{client}, event, payload)
}

// RoomSize число соединений в комнате.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) dispatch(targets []*Client, event string, payload any) {
	if len(targets) == 0 {
		return
	}
	raw, err := encode(event, payload)
	if err != nil {
		logger.Log.WithError(err).WithField("event", event).Error("ws: не удалось сериализовать сообщение")
		return
	}
	select {
	case h.broadcast <- delivery{targets: targets, payload: raw}:
	case <-h.done:
		logger.Log.WithField("event", event).Debug("ws: хаб остановлен, сообщение отброшено")
	}
}

func (h *Hub) handle(ctx context.Context, client *Client, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Type == "" {
		h.EmitToConn(client.id, chat.EventError, chat.ErrorView{Message: "ожидается JSON вида {\"type\", \"data\"}"})
		return
	}

	h.mu.RLock()
	handler := h.handler
	h.mu.RUnlock()
	if handler == nil {
		return
	}
	handler.HandleEvent(ctx, client.connection(), env.Type, env.Data)
}

func (h *Hub) heartbeat(client *Client) {
	h.mu.RLock()
	handler := h.handler
	h.mu.RUnlock()
	if handler != nil {
		handler.Heartbeat(client.connection())
	}
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
	logger.Log.WithFields(logrus.Fields{"clients": len(clients)}).Info("ws: хаб остановлен")
}

func encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: event, Data: data})
}

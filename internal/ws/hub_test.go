package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/usecase/chat"
)

// roomHandler кладёт соединение в комнату по событию join-room и подтверждает вход.
type roomHandler struct {
	hub *Hub

	mu          sync.Mutex
	connected   int
	disconnects int
	heartbeats  int
}

func (h *roomHandler) Connect(chat.Connection) {
	h.mu.Lock()
	h.connected++
	h.mu.Unlock()
}

func (h *roomHandler) Disconnect(chat.Connection) {
	h.mu.Lock()
	h.disconnects++
	h.mu.Unlock()
}

func (h *roomHandler) Heartbeat(chat.Connection) {
	h.mu.Lock()
	h.heartbeats++
	h.mu.Unlock()
}

func (h *roomHandler) HandleEvent(_ context.Context, conn chat.Connection, event string, _ json.RawMessage) {
	if event == chat.EventJoinRoom {
		_ = h.hub.JoinRoom(conn.ID, "room")
		h.hub.EmitToConn(conn.ID, "joined", map[string]string{"conn": conn.ID})
	}
}

func (h *roomHandler) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected, h.disconnects
}

func newTestServer(t *testing.T) (*Hub, *roomHandler, string) {
	t.Helper()
	logger.Discard()

	hub := NewHub()
	handler := &roomHandler{hub: hub}
	hub.SetHandler(handler)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(conn, hub, uuid.MustParse(r.URL.Query().Get("user")), "tester")
		hub.Register(client)
		client.Run(ctx)
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, handler, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string, user uuid.UUID) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url+"?user="+user.String(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func join(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": chat.EventJoinRoom, "data": map[string]string{}}))
	assert.Equal(t, "joined", readEnvelope(t, conn).Type)
}

func TestHub_EmitToRoomSkipsExcludedUser(t *testing.T) {
	hub, _, url := newTestServer(t)
	alice, bob := uuid.New(), uuid.New()

	aliceConn := dial(t, url, alice)
	bobPhone := dial(t, url, bob)
	bobLaptop := dial(t, url, bob)
	join(t, aliceConn)
	join(t, bobPhone)
	join(t, bobLaptop)
	require.Equal(t, 3, hub.RoomSize("room"))

	hub.EmitToRoom("room", chat.EventUserTyping, map[string]bool{"isTyping": true}, alice)
	for _, conn := range []*websocket.Conn{bobPhone, bobLaptop} {
		env := readEnvelope(t, conn)
		assert.Equal(t, chat.EventUserTyping, env.Type)
		assert.JSONEq(t, `{"isTyping":true}`, string(env.Data))
	}

	// всем, включая отправителя
	hub.EmitToRoom("room", chat.EventNewMessage, map[string]string{"id": "m1"}, uuid.Nil)
	assert.Equal(t, chat.EventNewMessage, readEnvelope(t, aliceConn).Type)
	assert.Equal(t, chat.EventNewMessage, readEnvelope(t, bobPhone).Type)
	assert.Equal(t, chat.EventNewMessage, readEnvelope(t, bobLaptop).Type)
}

func TestHub_RejectsMalformedEnvelope(t *testing.T) {
	_, _, url := newTestServer(t)
	conn := dial(t, url, uuid.New())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))
	env := readEnvelope(t, conn)
	assert.Equal(t, chat.EventError, env.Type)
}

func TestHub_DisconnectLeavesRooms(t *testing.T) {
	hub, handler, url := newTestServer(t)
	conn := dial(t, url, uuid.New())
	join(t, conn)
	require.Equal(t, 1, hub.RoomSize("room"))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		_, disconnects := handler.counts()
		return hub.RoomSize("room") == 0 && disconnects == 1
	}, 2*time.Second, 10*time.Millisecond)

	connected, _ := handler.counts()
	assert.Equal(t, 1, connected)
}

func TestHub_JoinAfterCloseFails(t *testing.T) {
	hub := NewHub()
	err := hub.JoinRoom("missing", "room")
	assert.Error(t, err)
	assert.Zero(t, hub.RoomSize("room"))
}

func TestHub_PongReportsHeartbeat(t *testing.T) {
	_, handler, url := newTestServer(t)
	conn := dial(t, url, uuid.New())

	// pong без ping допустим и обрабатывается как подтверждение живого соединения
	require.NoError(t, conn.WriteControl(websocket.PongMessage, nil, time.Now().Add(time.Second)))
	assert.Eventually(t, func() bool {
		handler.mu.Lock()
		defer handler.mu.Unlock()
		return handler.heartbeats == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_EmitAfterStopDoesNotBlock(t *testing.T) {
	logger.Discard()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	idle := &Client{id: "idle", userID: uuid.New(), send: make(chan []byte, 1)}
	hub.rooms["room"] = map[string]*Client{idle.id: idle}

	finished := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.EmitToRoom("room", chat.EventNewMessage, map[string]int{"n": i}, uuid.Nil)
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("рассылка после остановки хаба заблокировалась")
	}
}

package chat_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/service"
	"github.com/ignatzorin/escrow-backend/internal/usecase/chat"
)

type emitted struct {
	target string
	event  string
	except uuid.UUID
	data   any
}

// fakeTransport запоминает членство и все отправленные события.
type fakeTransport struct {
	mu      sync.Mutex
	rooms   map[string]map[string]bool
	emitted []emitted
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{rooms: make(map[string]map[string]bool)}
}

func (f *fakeTransport) JoinRoom(connID, room string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rooms[room] == nil {
		f.rooms[room] = make(map[string]bool)
	}
	f.rooms[room][connID] = true
	return nil
}

func (f *fakeTransport) LeaveRoom(connID, room string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms[room], connID)
}

func (f *fakeTransport) EmitToRoom(room, event string, payload any, exceptUser uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = append(f.emitted, emitted{target: room, event: event, except: exceptUser, data: payload})
}

func (f *fakeTransport) EmitToConn(connID, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = append(f.emitted, emitted{target: connID, event: event, data: payload})
}

func (f *fakeTransport) inRoom(room, connID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rooms[room][connID]
}

func (f *fakeTransport) last() emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.emitted[len(f.emitted)-1]
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.emitted)
}

type chatEnv struct {
	deps   *chat.Deps
	tx     *entity.Transaction
	seller uuid.UUID
	buyer  uuid.UUID
	clock  time.Time
}

func newChatEnv(t *testing.T) *chatEnv {
	t.Helper()
	logger.Discard()
	store := memory.NewStore()
	e := &chatEnv{
		seller: uuid.New(),
		buyer:  uuid.New(),
		clock:  time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	e.deps = &chat.Deps{
		Transactions: store.Transactions(),
		Messages:     store.Messages(),
		Now:          func() time.Time { return e.clock },
	}

	schedule := valueobject.FeeSchedule{Percent: 3.5, MinFee: 10}
	windows := entity.EscrowWindows{InviteTTL: time.Hour, PaymentTimeout: time.Hour, AutoReleaseAfter: time.Hour}
	tx, err := entity.NewTransaction(e.seller, "Гитара", "", 5000, valueobject.FeePayerBuyer, schedule, windows, e.clock)
	require.NoError(t, err)
	require.NoError(t, tx.Join(e.buyer, e.clock))
	require.NoError(t, store.Transactions().Create(context.Background(), tx))
	e.tx = tx
	return e
}

func (e *chatEnv) send(t *testing.T, sender uuid.UUID, text string) *entity.Message {
	t.Helper()
	m, err := chat.NewSendMessageUseCase(e.deps).Execute(context.Background(), chat.SendMessageInput{
		TransactionID: e.tx.ID, SenderID: sender, SenderName: "user", Content: text,
	})
	require.NoError(t, err)
	return m
}

func TestSendMessage_Validation(t *testing.T) {
	e := newChatEnv(t)
	uc := chat.NewSendMessageUseCase(e.deps)
	ctx := context.Background()

	_, err := uc.Execute(ctx, chat.SendMessageInput{TransactionID: e.tx.ID, SenderID: uuid.New(), Content: "привет"})
	assert.True(t, apperror.IsForbidden(err))

	_, err = uc.Execute(ctx, chat.SendMessageInput{TransactionID: e.tx.ID, SenderID: e.buyer, Content: "   "})
	assert.True(t, apperror.IsValidation(err))

	_, err = uc.Execute(ctx, chat.SendMessageInput{TransactionID: e.tx.ID, SenderID: e.buyer, Type: "IMAGE"})
	assert.True(t, apperror.IsValidation(err))

	img, err := uc.Execute(ctx, chat.SendMessageInput{
		TransactionID: e.tx.ID, SenderID: e.buyer, Type: "IMAGE", ImageURL: "/media/chat/p.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, valueobject.MessageTypeImage, img.Type)
	assert.Nil(t, img.Content)
	assert.Positive(t, img.Seq)
}

func TestListMessages_PaginatesThroughIdenticalTimestamps(t *testing.T) {
	e := newChatEnv(t)
	ctx := context.Background()

	// все сообщения с одним временем, порядок задаёт seq
	var sent []*entity.Message
	for i := 0; i < 7; i++ {
		sent = append(sent, e.send(t, e.seller, "сообщение"))
	}

	uc := chat.NewListMessagesUseCase(e.deps)
	var seen []uuid.UUID
	cursor := ""
	pages := 0
	for {
		page, err := uc.Execute(ctx, e.tx.ID, e.buyer, cursor, 3)
		require.NoError(t, err)
		pages++
		for _, m := range page.Messages {
			seen = append(seen, m.ID)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	assert.Equal(t, 3, pages)
	require.Len(t, seen, 7)
	for i, id := range seen {
		assert.Equal(t, sent[len(sent)-1-i].ID, id)
	}

	_, err := uc.Execute(ctx, e.tx.ID, e.buyer, "%%%", 3)
	assert.True(t, apperror.IsValidation(err))
	_, err = uc.Execute(ctx, e.tx.ID, uuid.New(), "", 3)
	assert.True(t, apperror.IsForbidden(err))
}

func TestMarkRead_OnlyCounterpartMessages(t *testing.T) {
	e := newChatEnv(t)
	ctx := context.Background()
	e.send(t, e.seller, "1")
	e.send(t, e.seller, "2")
	e.send(t, e.buyer, "3")

	unread := chat.NewUnreadUseCase(e.deps)
	n, err := unread.ForTransaction(ctx, e.tx.ID, e.buyer)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = chat.NewMarkReadUseCase(e.deps).Execute(ctx, e.tx.ID, e.buyer)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = chat.NewMarkReadUseCase(e.deps).Execute(ctx, e.tx.ID, e.buyer)
	require.NoError(t, err)
	assert.Zero(t, n)

	// сообщение покупателя осталось непрочитанным для продавца
	n, err = unread.ForTransaction(ctx, e.tx.ID, e.seller)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	total, err := unread.Total(ctx, e.seller)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestDeleteMessage_OnlyAuthor(t *testing.T) {
	e := newChatEnv(t)
	ctx := context.Background()
	m := e.send(t, e.seller, "секрет")

	uc := chat.NewDeleteMessageUseCase(e.deps)
	_, err := uc.Execute(ctx, m.ID, e.buyer)
	assert.True(t, apperror.IsForbidden(err))

	deleted, err := uc.Execute(ctx, m.ID, e.seller)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	require.NotNil(t, deleted.Content)
	assert.Equal(t, entity.DeletedTombstone, *deleted.Content)

	page, err := chat.NewListMessagesUseCase(e.deps).Execute(ctx, e.tx.ID, e.buyer, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, entity.DeletedTombstone, *page.Messages[0].Content)
}

func newManager(t *testing.T) (*chatEnv, *chat.RoomManager, *fakeTransport, *chat.Presence) {
	e := newChatEnv(t)
	transport := newFakeTransport()
	presence := chat.NewPresence(service.NewCacheService(context.Background(), 0), time.Minute)
	return e, chat.NewRoomManager(e.deps, transport, presence), transport, presence
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestRoomManager_ForbiddenJoinLeavesNoMembership(t *testing.T) {
	e, m, transport, _ := newManager(t)
	ctx := context.Background()
	room := chat.RoomName(e.tx.ID)

	stranger := chat.Connection{ID: "c-stranger", UserID: uuid.New()}
	m.HandleEvent(ctx, stranger, chat.EventJoinRoom, raw(t, map[string]string{"transactionId": e.tx.ID.String()}))

	assert.False(t, transport.inRoom(room, "c-stranger"))
	last := transport.last()
	assert.Equal(t, chat.EventError, last.event)
	assert.Equal(t, "c-stranger", last.target)
	assert.Equal(t, string(apperror.ErrCodeForbidden), last.data.(chat.ErrorView).Code)

	seller := chat.Connection{ID: "c-seller", UserID: e.seller}
	m.HandleEvent(ctx, seller, chat.EventJoinRoom, raw(t, map[string]string{"transactionId": e.tx.ID.String()}))
	assert.True(t, transport.inRoom(room, "c-seller"))

	m.HandleEvent(ctx, seller, chat.EventLeaveRoom, raw(t, map[string]string{"transactionId": e.tx.ID.String()}))
	assert.False(t, transport.inRoom(room, "c-seller"))
}

func TestRoomManager_Broadcasts(t *testing.T) {
	e, m, transport, _ := newManager(t)
	ctx := context.Background()
	room := chat.RoomName(e.tx.ID)
	buyer := chat.Connection{ID: "c-buyer", UserID: e.buyer, UserName: "Покупатель"}

	m.HandleEvent(ctx, buyer, chat.EventSendMessage, raw(t, map[string]string{
		"transactionId": e.tx.ID.String(), "type": "TEXT", "content": "где посылка?",
	}))
	last := transport.last()
	assert.Equal(t, chat.EventNewMessage, last.event)
	assert.Equal(t, room, last.target)
	assert.Equal(t, uuid.Nil, last.except)
	view := last.data.(chat.MessageView)
	assert.Equal(t, "Покупатель", view.Sender.Name)
	assert.Equal(t, "где посылка?", *view.Content)

	m.HandleEvent(ctx, buyer, chat.EventTyping, raw(t, map[string]any{"transactionId": e.tx.ID.String(), "isTyping": true}))
	last = transport.last()
	assert.Equal(t, chat.EventUserTyping, last.event)
	assert.Equal(t, e.buyer, last.except)
	assert.True(t, last.data.(chat.TypingView).IsTyping)

	seller := chat.Connection{ID: "c-seller", UserID: e.seller}
	m.HandleEvent(ctx, seller, chat.EventMarkRead, raw(t, map[string]string{"transactionId": e.tx.ID.String()}))
	last = transport.last()
	assert.Equal(t, chat.EventMessagesRead, last.event)
	assert.Equal(t, e.seller, last.except)
	assert.Equal(t, 1, last.data.(chat.ReadView).Count)

	// повторная отметка ничего не меняет и не рассылается
	before := transport.count()
	m.HandleEvent(ctx, seller, chat.EventMarkRead, raw(t, map[string]string{"transactionId": e.tx.ID.String()}))
	assert.Equal(t, before, transport.count())

	m.NotifyStatusChange(ctx, e.tx, "join")
	last = transport.last()
	assert.Equal(t, chat.EventStatusUpdate, last.event)
	assert.Equal(t, valueobject.StatusWaitingPayment, last.data.(chat.StatusView).Status)
}

func TestRoomManager_BadEvents(t *testing.T) {
	e, m, transport, _ := newManager(t)
	ctx := context.Background()
	conn := chat.Connection{ID: "c1", UserID: e.buyer}

	m.HandleEvent(ctx, conn, "dance", nil)
	assert.Equal(t, chat.EventError, transport.last().event)

	m.HandleEvent(ctx, conn, chat.EventSendMessage, json.RawMessage(`{"transactionId":"nope"}`))
	assert.Equal(t, string(apperror.ErrCodeValidation), transport.last().data.(chat.ErrorView).Code)

	m.HandleEvent(ctx, conn, chat.EventJoinRoom, json.RawMessage(`not json`))
	assert.Equal(t, chat.EventError, transport.last().event)
}

func TestPresence_RefCountedConnections(t *testing.T) {
	_, m, _, presence := newManager(t)
	user := uuid.New()
	first := chat.Connection{ID: "a", UserID: user}
	second := chat.Connection{ID: "b", UserID: user}

	assert.False(t, m.IsOnline(user))
	m.Connect(first)
	m.Connect(second)
	assert.True(t, m.IsOnline(user))
	assert.Equal(t, 2, presence.Connections(user))

	m.Disconnect(first)
	assert.True(t, m.IsOnline(user))

	m.Disconnect(second)
	assert.False(t, m.IsOnline(user))
	assert.Zero(t, presence.Connections(user))

	// лишнее отключение не уводит счётчик в минус
	m.Disconnect(second)
	assert.Zero(t, presence.Connections(user))
}

func TestPresence_OpenConnectionOutlivesTTL(t *testing.T) {
	presence := chat.NewPresence(service.NewCacheService(context.Background(), 0), 20*time.Millisecond)
	idle := uuid.New()
	gone := uuid.New()

	presence.Connect(idle)
	presence.Connect(gone)
	presence.Disconnect(gone)
	time.Sleep(50 * time.Millisecond)

	assert.True(t, presence.IsOnline(idle))
	assert.False(t, presence.IsOnline(gone))

	// pong после истечения TTL снова заводит запись в кэше
	presence.Touch(idle)
	assert.True(t, presence.IsOnline(idle))
	presence.Disconnect(idle)
	assert.False(t, presence.IsOnline(idle))
}

func TestRoomManager_HeartbeatKeepsPresence(t *testing.T) {
	_, m, _, presence := newManager(t)
	conn := chat.Connection{ID: "a", UserID: uuid.New()}

	m.Connect(conn)
	m.Heartbeat(conn)
	assert.True(t, m.IsOnline(conn.UserID))
	assert.Equal(t, 1, presence.Connections(conn.UserID))

	m.Disconnect(conn)
	m.Heartbeat(conn)
	assert.False(t, m.IsOnline(conn.UserID))
}

package chat

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/metrics"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

// Transport комнаты и доставка событий. Реализация в пакете ws, в тестах подменяется.
type Transport interface {
	JoinRoom(connID, room string) error
	LeaveRoom(connID, room string)
	// EmitToRoom рассылает событие всем соединениям комнаты, кроме соединений exceptUser (uuid.Nil: без исключений).
	EmitToRoom(room, event string, payload any, exceptUser uuid.UUID)
	EmitToConn(connID, event string, payload any)
}

// Connection аутентифицированное соединение.
type Connection struct {
	ID       string
	UserID   uuid.UUID
	UserName string
}

// RoomManager обрабатывает события чата и рассылает изменения статусов сделок.
type RoomManager struct {
	deps      *Deps
	transport Transport
	presence  *Presence
	send      *SendMessageUseCase
	markRead  *MarkReadUseCase
}

func NewRoomManager(deps *Deps, transport Transport, presence *Presence) *RoomManager {
	return &RoomManager{
		deps:      deps,
		transport: transport,
		presence:  presence,
		send:      NewSendMessageUseCase(deps),
		markRead:  NewMarkReadUseCase(deps),
	}
}

func (m *RoomManager) Connect(conn Connection) {
	m.presence.Connect(conn.UserID)
	metrics.WebsocketConnections.Inc()
	logger.Log.WithFields(logrus.Fields{"conn_id": conn.ID, "user_id": conn.UserID}).Debug("ws: соединение открыто")
}

// Disconnect вызывается транспортом после того, как соединение убрано из всех комнат.
func (m *RoomManager) Disconnect(conn Connection) {
	m.presence.Disconnect(conn.UserID)
	metrics.WebsocketConnections.Dec()
	logger.Log.WithFields(logrus.Fields{"conn_id": conn.ID, "user_id": conn.UserID}).Debug("ws: соединение закрыто")
}

// Heartbeat транспорт подтвердил, что соединение живо.
func (m *RoomManager) Heartbeat(conn Connection) {
	m.presence.Touch(conn.UserID)
}

// HandleEvent разбирает входящее событие. Ошибки уходят отправителю событием error.
func (m *RoomManager) HandleEvent(ctx context.Context, conn Connection, event string, data json.RawMessage) {
	m.presence.Touch(conn.UserID)

	var err error
	switch event {
	case EventJoinRoom:
		err = m.joinRoom(ctx, conn, data)
	case EventLeaveRoom:
		err = m.leaveRoom(conn, data)
	case EventSendMessage:
		err = m.sendMessage(ctx, conn, data)
	case EventTyping:
		err = m.typing(ctx, conn, data)
	case EventMarkRead:
		err = m.readMessages(ctx, conn, data)
	default:
		err = apperror.New(apperror.ErrCodeBadRequest, "неизвестное событие: "+event)
		event = "unknown"
	}

	if err != nil {
		metrics.ChatEvents.WithLabelValues(event, "error").Inc()
		m.emitError(conn, event, err)
		return
	}
	metrics.ChatEvents.WithLabelValues(event, "ok").Inc()
}

func (m *RoomManager) joinRoom(ctx context.Context, conn Connection, data json.RawMessage) error {
	var req roomRequest
	txID, err := decodeTransactionID(data, &req, &req.TransactionID)
	if err != nil {
		return err
	}
	if _, err := m.deps.participantTransaction(ctx, txID, conn.UserID); err != nil {
		return err
	}
	// членство регистрируется последним, после всех проверок
	return m.transport.JoinRoom(conn.ID, RoomName(txID))
}

func (m *RoomManager) leaveRoom(conn Connection, data json.RawMessage) error {
	var req roomRequest
	txID, err := decodeTransactionID(data, &req, &req.TransactionID)
	if err != nil {
		return err
	}
	m.transport.LeaveRoom(conn.ID, RoomName(txID))
	return nil
}

func (m *RoomManager) sendMessage(ctx context.Context, conn Connection, data json.RawMessage) error {
	var req sendMessageRequest
	txID, err := decodeTransactionID(data, &req, &req.TransactionID)
	if err != nil {
		return err
	}
	msg, err := m.send.Execute(ctx, SendMessageInput{
		TransactionID: txID,
		SenderID:      conn.UserID,
		SenderName:    conn.UserName,
		Type:          req.Type,
		Content:       req.Content,
		ImageURL:      req.ImageURL,
	})
	if err != nil {
		return err
	}
	m.PublishMessage(msg)
	return nil
}

func (m *RoomManager) typing(ctx context.Context, conn Connection, data json.RawMessage) error {
	var req typingRequest
	txID, err := decodeTransactionID(data, &req, &req.TransactionID)
	if err != nil {
		return err
	}
	if _, err := m.deps.participantTransaction(ctx, txID, conn.UserID); err != nil {
		return err
	}
	m.transport.EmitToRoom(RoomName(txID), EventUserTyping, TypingView{
		TransactionID: txID,
		UserID:        conn.UserID,
		UserName:      conn.UserName,
		IsTyping:      req.IsTyping,
	}, conn.UserID)
	return nil
}

func (m *RoomManager) readMessages(ctx context.Context, conn Connection, data json.RawMessage) error {
	var req roomRequest
	txID, err := decodeTransactionID(data, &req, &req.TransactionID)
	if err != nil {
		return err
	}
	n, err := m.markRead.Execute(ctx, txID, conn.UserID)
	if err != nil {
		return err
	}
	m.PublishRead(txID, conn.UserID, n)
	return nil
}

// PublishMessage новое сообщение всей комнате, включая другие устройства отправителя.
func (m *RoomManager) PublishMessage(msg *entity.Message) {
	m.transport.EmitToRoom(RoomName(msg.TransactionID), EventNewMessage, NewMessageView(msg), uuid.Nil)
}

// PublishRead уведомляет собеседника о прочтении. Пустые отметки не рассылаются.
func (m *RoomManager) PublishRead(transactionID, readerID uuid.UUID, count int) {
	if count == 0 {
		return
	}
	m.transport.EmitToRoom(RoomName(transactionID), EventMessagesRead, ReadView{
		TransactionID: transactionID,
		UserID:        readerID,
		Count:         count,
		Timestamp:     m.deps.now(),
	}, readerID)
}

func (m *RoomManager) PublishDeleted(msg *entity.Message) {
	m.transport.EmitToRoom(RoomName(msg.TransactionID), EventMessageDeleted, DeletedView{
		TransactionID: msg.TransactionID,
		MessageID:     msg.ID,
	}, uuid.Nil)
}

// NotifyStatusChange рассылает status-update участникам в комнате сделки.
func (m *RoomManager) NotifyStatusChange(_ context.Context, t *entity.Transaction, event string) {
	m.transport.EmitToRoom(RoomName(t.ID), EventStatusUpdate, StatusView{
		TransactionID: t.ID,
		Status:        t.Status,
		Event:         event,
		BuyerID:       t.BuyerID,
		UpdatedAt:     t.UpdatedAt,
	}, uuid.Nil)
}

func (m *RoomManager) IsOnline(userID uuid.UUID) bool {
	return m.presence.IsOnline(userID)
}

func (m *RoomManager) emitError(conn Connection, event string, err error) {
	view := ErrorView{Message: err.Error(), Code: string(apperror.CodeOf(err))}
	var appErr *apperror.AppError
	if apperror.IsInternal(err) {
		logger.Log.WithError(err).WithFields(logrus.Fields{"conn_id": conn.ID, "event": event}).Error("ws: ошибка обработки события")
		view.Message = "внутренняя ошибка сервера"
	} else if errors.As(err, &appErr) {
		view.Message = appErr.Message
	}
	m.transport.EmitToConn(conn.ID, EventError, view)
}

func decodeTransactionID(data json.RawMessage, dst any, field *string) (uuid.UUID, error) {
	if len(data) == 0 || json.Unmarshal(data, dst) != nil {
		return uuid.Nil, apperror.New(apperror.ErrCodeValidation, "некорректные данные события")
	}
	id, err := uuid.Parse(*field)
	if err != nil {
		return uuid.Nil, apperror.New(apperror.ErrCodeValidation, "некорректный идентификатор сделки")
	}
	return id, nil
}

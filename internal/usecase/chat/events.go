package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
)

// Входящие события клиента.
const (
	EventJoinRoom    = "join-room"
	EventLeaveRoom   = "leave-room"
	EventSendMessage = "send-message"
	EventTyping      = "typing"
	EventMarkRead    = "mark-read"
)

// Исходящие события сервера.
const (
	EventNewMessage     = "new-message"
	EventUserTyping     = "user-typing"
	EventMessagesRead   = "messages-read"
	EventStatusUpdate   = "status-update"
	EventMessageDeleted = "message-deleted"
	EventError          = "error"
)

// RoomName комната сделки.
func RoomName(transactionID uuid.UUID) string {
	return "transaction:" + transactionID.String()
}

type roomRequest struct {
	TransactionID string `json:"transactionId"`
}

type sendMessageRequest struct {
	TransactionID string `json:"transactionId"`
	Type          string `json:"type"`
	Content       string `json:"content"`
	ImageURL      string `json:"imageUrl"`
}

type typingRequest struct {
	TransactionID string `json:"transactionId"`
	IsTyping      bool   `json:"isTyping"`
}

type SenderView struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// MessageView сообщение в том виде, в каком его получают клиенты по websocket и HTTP.
type MessageView struct {
	ID            uuid.UUID               `json:"id"`
	TransactionID uuid.UUID               `json:"transactionId"`
	SenderID      uuid.UUID               `json:"senderId"`
	Sender        SenderView              `json:"sender"`
	Type          valueobject.MessageType `json:"type"`
	Content       *string                 `json:"content,omitempty"`
	ImageURL      *string                 `json:"imageUrl,omitempty"`
	IsRead        bool                    `json:"isRead"`
	ReadAt        *time.Time              `json:"readAt,omitempty"`
	IsDeleted     bool                    `json:"isDeleted,omitempty"`
	CreatedAt     time.Time               `json:"createdAt"`
}

func NewMessageView(m *entity.Message) MessageView {
	return MessageView{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		SenderID:      m.SenderID,
		Sender:        SenderView{ID: m.SenderID, Name: m.SenderName},
		Type:          m.Type,
		Content:       m.Content,
		ImageURL:      m.ImageURL,
		IsRead:        m.IsRead,
		ReadAt:        m.ReadAt,
		IsDeleted:     m.IsDeleted,
		CreatedAt:     m.CreatedAt,
	}
}

func NewMessageViews(list []*entity.Message) []MessageView {
	out := make([]MessageView, 0, len(list))
	for _, m := range list {
		out = append(out, NewMessageView(m))
	}
	return out
}

type TypingView struct {
	TransactionID uuid.UUID `json:"transactionId"`
	UserID        uuid.UUID `json:"userId"`
	UserName      string    `json:"userName"`
	IsTyping      bool      `json:"isTyping"`
}

type ReadView struct {
	TransactionID uuid.UUID `json:"transactionId"`
	UserID        uuid.UUID `json:"userId"`
	Count         int       `json:"count"`
	Timestamp     time.Time `json:"timestamp"`
}

type DeletedView struct {
	TransactionID uuid.UUID `json:"transactionId"`
	MessageID     uuid.UUID `json:"messageId"`
}

// StatusView рассылается при каждом переходе сделки.
type StatusView struct {
	TransactionID uuid.UUID                     `json:"transactionId"`
	Status        valueobject.TransactionStatus `json:"status"`
	Event         string                        `json:"event"`
	BuyerID       *uuid.UUID                    `json:"buyerId,omitempty"`
	UpdatedAt     time.Time                     `json:"updatedAt"`
}

type ErrorView struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

package dto

import (
	"github.com/ignatzorin/escrow-backend/internal/usecase/chat"
)

// SendMessageRequest. Для IMAGE обязателен image_url, content служит подписью.
type SendMessageRequest struct {
	Type     string `json:"type"`
	Content  string `json:"content" binding:"max=5000"`
	ImageURL string `json:"image_url"`
}

// MessageListResponse страница истории. Сообщения отдаются в формате событий чата, чтобы клиент разбирал их одинаково.
type MessageListResponse struct {
	Messages   []chat.MessageView `json:"messages"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

type MarkReadResponse struct {
	Count int `json:"count"`
}

type UnreadResponse struct {
	Count int `json:"count"`
}

type PresenceResponse struct {
	UserID   string `json:"user_id"`
	IsOnline bool   `json:"is_online"`
}

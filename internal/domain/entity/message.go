package entity

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/validation"
)

const (
	MaxMessageLength = 4000
	DeletedTombstone = "[message deleted]"
)

// MessageBody содержимое сообщения. Набор обязательных полей зависит от типа и проверяется при создании.
type MessageBody struct {
	Type     valueobject.MessageType
	Content  string
	ImageURL string
}

func TextBody(content string) (MessageBody, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return MessageBody{}, apperror.New(apperror.ErrCodeValidation, "текст сообщения не может быть пустым")
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return MessageBody{}, apperror.New(apperror.ErrCodeValidation, "сообщение слишком длинное")
	}
	return MessageBody{Type: valueobject.MessageTypeText, Content: content}, nil
}

// ImageBody изображение с необязательной подписью.
func ImageBody(imageURL, caption string) (MessageBody, error) {
	imageURL = strings.TrimSpace(imageURL)
	if err := validation.ValidateMediaRef("ссылка на изображение", imageURL); err != nil {
		return MessageBody{}, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	caption = strings.TrimSpace(caption)
	if utf8.RuneCountInString(caption) > MaxMessageLength {
		return MessageBody{}, apperror.New(apperror.ErrCodeValidation, "подпись слишком длинная")
	}
	return MessageBody{Type: valueobject.MessageTypeImage, Content: caption, ImageURL: imageURL}, nil
}

// ParseMessageBody собирает тело из сырых полей входящего события или запроса.
func ParseMessageBody(rawType, content, imageURL string) (MessageBody, error) {
	t, err := valueobject.NewMessageType(rawType)
	if err != nil {
		return MessageBody{}, err
	}
	if t == valueobject.MessageTypeImage {
		return ImageBody(imageURL, content)
	}
	return TextBody(content)
}

type Message struct {
	ID            uuid.UUID
	Seq           int64
	TransactionID uuid.UUID
	SenderID      uuid.UUID
	SenderName    string
	Type          valueobject.MessageType
	Content       *string
	ImageURL      *string
	IsRead        bool
	ReadAt        *time.Time
	IsDeleted     bool
	CreatedAt     time.Time
}

// NewMessage создаёт сообщение. Время обрезается до микросекунд, чтобы совпадать с точностью хранилища.
func NewMessage(transactionID, senderID uuid.UUID, senderName string, body MessageBody, now time.Time) *Message {
	m := &Message{
		ID:            uuid.New(),
		TransactionID: transactionID,
		SenderID:      senderID,
		SenderName:    senderName,
		Type:          body.Type,
		CreatedAt:     now.UTC().Truncate(time.Microsecond),
	}
	if body.Content != "" {
		c := body.Content
		m.Content = &c
	}
	if body.ImageURL != "" {
		u := body.ImageURL
		m.ImageURL = &u
	}
	return m
}

func (m *Message) IsOwnedBy(userID uuid.UUID) bool {
	return m.SenderID == userID
}

// SoftDelete заменяет содержимое маркером, сохраняя место сообщения в ленте.
func (m *Message) SoftDelete() {
	tombstone := DeletedTombstone
	m.Content = &tombstone
	m.ImageURL = nil
	m.IsDeleted = true
}

func (m *Message) Cursor() MessageCursor {
	return MessageCursor{CreatedAt: m.CreatedAt, Seq: m.Seq}
}

// MessageCursor позиция в ленте: (created_at, seq). seq разрешает совпадения по времени.
type MessageCursor struct {
	CreatedAt time.Time
	Seq       int64
}

// Before сообщает, что позиция c строго раньше other.
func (c MessageCursor) Before(other MessageCursor) bool {
	if c.CreatedAt.Equal(other.CreatedAt) {
		return c.Seq < other.Seq
	}
	return c.CreatedAt.Before(other.CreatedAt)
}

func (c MessageCursor) Encode() string {
	raw := strconv.FormatInt(c.CreatedAt.UnixMicro(), 10) + ":" + strconv.FormatInt(c.Seq, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func ParseMessageCursor(s string) (MessageCursor, error) {
	invalid := apperror.New(apperror.ErrCodeValidation, "некорректный курсор")
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return MessageCursor{}, invalid
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return MessageCursor{}, invalid
	}
	micros, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return MessageCursor{}, invalid
	}
	seq, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || seq < 0 {
		return MessageCursor{}, invalid
	}
	return MessageCursor{CreatedAt: time.UnixMicro(micros).UTC(), Seq: seq}, nil
}

func (c MessageCursor) String() string {
	return fmt.Sprintf("%s#%d", c.CreatedAt.Format(time.RFC3339Nano), c.Seq)
}

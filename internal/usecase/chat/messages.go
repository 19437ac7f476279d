package chat

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

type Deps struct {
	Transactions repository.TransactionRepository
	Messages     repository.MessageRepository
	Now          func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

// participantTransaction загружает сделку и проверяет, что пользователь её продавец или покупатель.
func (d *Deps) participantTransaction(ctx context.Context, transactionID, userID uuid.UUID) (*entity.Transaction, error) {
	t, err := d.Transactions.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !t.IsParticipant(userID) {
		return nil, apperror.ErrNotParticipant
	}
	return t, nil
}

type SendMessageInput struct {
	TransactionID uuid.UUID
	SenderID      uuid.UUID
	SenderName    string
	Type          string
	Content       string
	ImageURL      string
}

type SendMessageUseCase struct {
	deps *Deps
}

func NewSendMessageUseCase(deps *Deps) *SendMessageUseCase {
	return &SendMessageUseCase{deps: deps}
}

func (uc *SendMessageUseCase) Execute(ctx context.Context, input SendMessageInput) (*entity.Message, error) {
	if _, err := uc.deps.participantTransaction(ctx, input.TransactionID, input.SenderID); err != nil {
		return nil, err
	}
	body, err := entity.ParseMessageBody(input.Type, input.Content, input.ImageURL)
	if err != nil {
		return nil, err
	}

	m := entity.NewMessage(input.TransactionID, input.SenderID, input.SenderName, body, uc.deps.now())
	if err := uc.deps.Messages.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// MessagePage страница истории от новых к старым. NextCursor пуст, если старше сообщений нет.
type MessagePage struct {
	Messages   []*entity.Message
	NextCursor string
}

type ListMessagesUseCase struct {
	deps *Deps
}

func NewListMessagesUseCase(deps *Deps) *ListMessagesUseCase {
	return &ListMessagesUseCase{deps: deps}
}

func (uc *ListMessagesUseCase) Execute(ctx context.Context, transactionID, userID uuid.UUID, cursor string, limit int) (*MessagePage, error) {
	if _, err := uc.deps.participantTransaction(ctx, transactionID, userID); err != nil {
		return nil, err
	}

	var before *entity.MessageCursor
	if cursor != "" {
		c, err := entity.ParseMessageCursor(cursor)
		if err != nil {
			return nil, err
		}
		before = &c
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	// запрашиваем на одно сообщение больше, чтобы понять, есть ли следующая страница
	list, err := uc.deps.Messages.ListPage(ctx, transactionID, before, limit+1)
	if err != nil {
		return nil, err
	}
	page := &MessagePage{Messages: list}
	if len(list) > limit {
		page.Messages = list[:limit]
		page.NextCursor = page.Messages[limit-1].Cursor().Encode()
	}
	return page, nil
}

type MarkReadUseCase struct {
	deps *Deps
}

func NewMarkReadUseCase(deps *Deps) *MarkReadUseCase {
	return &MarkReadUseCase{deps: deps}
}

// Execute отмечает прочитанными все сообщения собеседника. Свои сообщения не затрагиваются.
func (uc *MarkReadUseCase) Execute(ctx context.Context, transactionID, readerID uuid.UUID) (int, error) {
	if _, err := uc.deps.participantTransaction(ctx, transactionID, readerID); err != nil {
		return 0, err
	}
	return uc.deps.Messages.MarkRead(ctx, transactionID, readerID)
}

type DeleteMessageUseCase struct {
	deps *Deps
}

func NewDeleteMessageUseCase(deps *Deps) *DeleteMessageUseCase {
	return &DeleteMessageUseCase{deps: deps}
}

// Execute мягкое удаление, доступно только автору.
func (uc *DeleteMessageUseCase) Execute(ctx context.Context, messageID, userID uuid.UUID) (*entity.Message, error) {
	m, err := uc.deps.Messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !m.IsOwnedBy(userID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "удалить можно только своё сообщение")
	}
	if m.IsDeleted {
		return m, nil
	}
	m.SoftDelete()
	if err := uc.deps.Messages.SoftDelete(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

type UnreadUseCase struct {
	deps *Deps
}

func NewUnreadUseCase(deps *Deps) *UnreadUseCase {
	return &UnreadUseCase{deps: deps}
}

func (uc *UnreadUseCase) ForTransaction(ctx context.Context, transactionID, userID uuid.UUID) (int, error) {
	if _, err := uc.deps.participantTransaction(ctx, transactionID, userID); err != nil {
		return 0, err
	}
	return uc.deps.Messages.CountUnread(ctx, transactionID, userID)
}

// Total по всем сделкам пользователя.
func (uc *UnreadUseCase) Total(ctx context.Context, userID uuid.UUID) (int, error) {
	return uc.deps.Messages.CountUnreadForUser(ctx, userID)
}

package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
)

type MessageRepository interface {
	// Create сохраняет сообщение и проставляет ему Seq.
	Create(ctx context.Context, m *entity.Message) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Message, error)
	// ListPage возвращает сообщения строго раньше курсора, от новых к старым.
	ListPage(ctx context.Context, transactionID uuid.UUID, before *entity.MessageCursor, limit int) ([]*entity.Message, error)
	// MarkRead отмечает прочитанными сообщения собеседника одним запросом и возвращает их количество.
	MarkRead(ctx context.Context, transactionID, readerID uuid.UUID) (int, error)
	SoftDelete(ctx context.Context, m *entity.Message) error
	CountUnread(ctx context.Context, transactionID, userID uuid.UUID) (int, error)
	CountUnreadForUser(ctx context.Context, userID uuid.UUID) (int, error)
}

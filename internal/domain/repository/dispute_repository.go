package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
)

// DisputeRepository споры. Open и Resolve пишут спор и сделку в одной транзакции.
type DisputeRepository interface {
	// Open возвращает apperror.ErrAlreadyDisputed, если по сделке есть активный спор.
	Open(ctx context.Context, d *entity.Dispute, tx *entity.Transaction, expected valueobject.TransactionStatus) error
	StartReview(ctx context.Context, d *entity.Dispute) error
	Resolve(ctx context.Context, d *entity.Dispute, tx *entity.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Dispute, error)
	FindActiveByTransaction(ctx context.Context, transactionID uuid.UUID) (*entity.Dispute, error)
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*entity.Dispute, error)
	List(ctx context.Context, filter DisputeFilter) ([]*entity.Dispute, int, error)
}

type DisputeFilter struct {
	Status string
	Limit  int
	Offset int
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
)

// TransactionRepository хранилище сделок.
// Все изменения статуса выполняются как compare-and-swap: запись проходит,
// только если текущий статус в хранилище равен expected, иначе apperror.ErrStatusChanged.
type TransactionRepository interface {
	Create(ctx context.Context, tx *entity.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Transaction, error)
	FindByInviteCode(ctx context.Context, code string) (*entity.Transaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID, filter TransactionFilter) ([]*entity.Transaction, int, error)
	List(ctx context.Context, filter TransactionFilter) ([]*entity.Transaction, int, error)

	// UpdateState сохраняет статус и временные метки сделки.
	UpdateState(ctx context.Context, tx *entity.Transaction, expected valueobject.TransactionStatus) error
	// AssignBuyer закрепляет покупателя, только если buyer_id ещё пуст.
	AssignBuyer(ctx context.Context, tx *entity.Transaction) error

	FindExpirable(ctx context.Context, now time.Time, limit int) ([]*entity.Transaction, error)
	FindAutoReleasable(ctx context.Context, now time.Time, limit int) ([]*entity.Transaction, error)
}

type TransactionFilter struct {
	Status string
	Limit  int
	Offset int
}

// SlipRepository квитанции об оплате. Submit и Review меняют квитанцию и статус сделки атомарно.
// Submit закрывает прежние ожидающие квитанции, Review принимает только самую новую.
type SlipRepository interface {
	Submit(ctx context.Context, slip *entity.PaymentSlip, tx *entity.Transaction, expected valueobject.TransactionStatus) error
	Review(ctx context.Context, slip *entity.PaymentSlip, tx *entity.Transaction, expected valueobject.TransactionStatus) error
	Latest(ctx context.Context, transactionID uuid.UUID) (*entity.PaymentSlip, error)
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*entity.PaymentSlip, error)
}

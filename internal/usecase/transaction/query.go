package transaction

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

type GetTransactionUseCase struct {
	deps *Deps
}

func NewGetTransactionUseCase(deps *Deps) *GetTransactionUseCase {
	return &GetTransactionUseCase{deps: deps}
}

// Execute отдаёт сделку участнику или администратору.
func (uc *GetTransactionUseCase) Execute(ctx context.Context, id, actorID uuid.UUID, isAdmin bool) (*entity.Transaction, error) {
	t, err := uc.deps.Transactions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !t.IsParticipant(actorID) {
		return nil, apperror.ErrNotParticipant
	}
	return t, nil
}

type ListTransactionsUseCase struct {
	deps *Deps
}

func NewListTransactionsUseCase(deps *Deps) *ListTransactionsUseCase {
	return &ListTransactionsUseCase{deps: deps}
}

// ForUser сделки, где пользователь продавец или покупатель.
func (uc *ListTransactionsUseCase) ForUser(ctx context.Context, userID uuid.UUID, filter repository.TransactionFilter) ([]*entity.Transaction, int, error) {
	if err := validateFilter(filter); err != nil {
		return nil, 0, err
	}
	return uc.deps.Transactions.ListByUser(ctx, userID, filter)
}

// All список для администратора.
func (uc *ListTransactionsUseCase) All(ctx context.Context, filter repository.TransactionFilter) ([]*entity.Transaction, int, error) {
	if err := validateFilter(filter); err != nil {
		return nil, 0, err
	}
	return uc.deps.Transactions.List(ctx, filter)
}

func validateFilter(filter repository.TransactionFilter) error {
	if filter.Offset < 0 {
		return apperror.New(apperror.ErrCodeValidation, "offset не может быть отрицательным")
	}
	return validateStatusFilter(filter.Status)
}

func validateStatusFilter(status string) error {
	if status == "" {
		return nil
	}
	_, err := valueobject.NewTransactionStatus(status)
	return err
}

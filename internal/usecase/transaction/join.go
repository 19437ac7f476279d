package transaction

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
)

type JoinTransactionUseCase struct {
	deps *Deps
}

func NewJoinTransactionUseCase(deps *Deps) *JoinTransactionUseCase {
	return &JoinTransactionUseCase{deps: deps}
}

// Execute закрепляет покупателя по коду приглашения. Повторное присоединение всегда отклоняется.
func (uc *JoinTransactionUseCase) Execute(ctx context.Context, inviteCode string, buyerID uuid.UUID) (*entity.Transaction, error) {
	t, err := uc.deps.Transactions.FindByInviteCode(ctx, entity.NormalizeInviteCode(inviteCode))
	if err != nil {
		return nil, err
	}

	from := t.Status
	if err := t.Join(buyerID, uc.deps.now()); err != nil {
		return nil, err
	}

	err = uc.deps.commit(ctx, t, from, EventJoin, buyerID, func() error {
		return uc.deps.Transactions.AssignBuyer(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// PreviewInviteUseCase показывает условия сделки до присоединения.
type PreviewInviteUseCase struct {
	deps *Deps
}

func NewPreviewInviteUseCase(deps *Deps) *PreviewInviteUseCase {
	return &PreviewInviteUseCase{deps: deps}
}

func (uc *PreviewInviteUseCase) Execute(ctx context.Context, inviteCode string) (*entity.Transaction, error) {
	return uc.deps.Transactions.FindByInviteCode(ctx, entity.NormalizeInviteCode(inviteCode))
}

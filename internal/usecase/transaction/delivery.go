package transaction

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
)

// transition загружает сделку, применяет переход и сохраняет его условной записью по исходному статусу.
func (d *Deps) transition(ctx context.Context, id, actorID uuid.UUID, event string, apply func(t *entity.Transaction) error) (*entity.Transaction, error) {
	t, err := d.Transactions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := t.Status
	if err := apply(t); err != nil {
		return nil, err
	}

	err = d.commit(ctx, t, from, event, actorID, func() error {
		return d.Transactions.UpdateState(ctx, t, from)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

type ConfirmDeliveryUseCase struct {
	deps *Deps
}

func NewConfirmDeliveryUseCase(deps *Deps) *ConfirmDeliveryUseCase {
	return &ConfirmDeliveryUseCase{deps: deps}
}

func (uc *ConfirmDeliveryUseCase) Execute(ctx context.Context, id, sellerID uuid.UUID) (*entity.Transaction, error) {
	return uc.deps.transition(ctx, id, sellerID, EventConfirmDelivery, func(t *entity.Transaction) error {
		return t.ConfirmDelivery(sellerID, uc.deps.Windows.AutoReleaseAfter, uc.deps.now())
	})
}

type AcceptDeliveryUseCase struct {
	deps *Deps
}

func NewAcceptDeliveryUseCase(deps *Deps) *AcceptDeliveryUseCase {
	return &AcceptDeliveryUseCase{deps: deps}
}

func (uc *AcceptDeliveryUseCase) Execute(ctx context.Context, id, buyerID uuid.UUID) (*entity.Transaction, error) {
	return uc.deps.transition(ctx, id, buyerID, EventAcceptDelivery, func(t *entity.Transaction) error {
		return t.AcceptDelivery(buyerID, uc.deps.now())
	})
}

type CancelTransactionUseCase struct {
	deps *Deps
}

func NewCancelTransactionUseCase(deps *Deps) *CancelTransactionUseCase {
	return &CancelTransactionUseCase{deps: deps}
}

func (uc *CancelTransactionUseCase) Execute(ctx context.Context, id, actorID uuid.UUID) (*entity.Transaction, error) {
	return uc.deps.transition(ctx, id, actorID, EventCancel, func(t *entity.Transaction) error {
		return t.Cancel(actorID, uc.deps.now())
	})
}

package transaction

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

type SubmitSlipInput struct {
	TransactionID uuid.UUID
	BuyerID       uuid.UUID
	ClaimedAmount int64
	SlipURL       string
}

type SubmitSlipUseCase struct {
	deps *Deps
}

func NewSubmitSlipUseCase(deps *Deps) *SubmitSlipUseCase {
	return &SubmitSlipUseCase{deps: deps}
}

// Execute сохраняет квитанцию и переводит сделку в PAYMENT_VERIFYING одной записью.
func (uc *SubmitSlipUseCase) Execute(ctx context.Context, input SubmitSlipInput) (*entity.Transaction, *entity.PaymentSlip, error) {
	t, err := uc.deps.Transactions.FindByID(ctx, input.TransactionID)
	if err != nil {
		return nil, nil, err
	}

	now := uc.deps.now()
	from := t.Status
	if err := t.SubmitSlip(input.BuyerID, input.ClaimedAmount, now); err != nil {
		return nil, nil, err
	}
	slip, err := entity.NewPaymentSlip(t.ID, input.BuyerID, input.ClaimedAmount, input.SlipURL, now)
	if err != nil {
		return nil, nil, err
	}

	err = uc.deps.commit(ctx, t, from, EventSubmitSlip, input.BuyerID, func() error {
		return uc.deps.Slips.Submit(ctx, slip, t, from)
	})
	if err != nil {
		return nil, nil, err
	}
	return t, slip, nil
}

type VerifyPaymentInput struct {
	TransactionID uuid.UUID
	AdminID       uuid.UUID
	Approve       bool
	Note          string
}

type VerifyPaymentUseCase struct {
	deps *Deps
}

func NewVerifyPaymentUseCase(deps *Deps) *VerifyPaymentUseCase {
	return &VerifyPaymentUseCase{deps: deps}
}

// Execute решение администратора по последней квитанции. Одновременные решения по одной сделке
// проходят ровно один раз: второе получает STATE_CONFLICT.
func (uc *VerifyPaymentUseCase) Execute(ctx context.Context, input VerifyPaymentInput) (*entity.Transaction, error) {
	t, err := uc.deps.Transactions.FindByID(ctx, input.TransactionID)
	if err != nil {
		return nil, err
	}
	slip, err := uc.deps.Slips.Latest(ctx, t.ID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.New(apperror.ErrCodeStateConflict, "нет квитанции на проверке")
		}
		return nil, err
	}
	if !slip.IsPending() {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "нет квитанции на проверке")
	}

	now := uc.deps.now()
	from := t.Status
	event := EventApprovePayment
	if input.Approve {
		err = t.ApprovePayment(uc.deps.Windows.AutoReleaseAfter, now)
	} else {
		event = EventRejectPayment
		err = t.RejectPayment(now)
	}
	if err != nil {
		return nil, err
	}
	if err := slip.Review(input.AdminID, input.Approve, input.Note, now); err != nil {
		return nil, err
	}

	err = uc.deps.commit(ctx, t, from, event, input.AdminID, func() error {
		return uc.deps.Slips.Review(ctx, slip, t, from)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

type ListSlipsUseCase struct {
	deps *Deps
}

func NewListSlipsUseCase(deps *Deps) *ListSlipsUseCase {
	return &ListSlipsUseCase{deps: deps}
}

func (uc *ListSlipsUseCase) Execute(ctx context.Context, transactionID, actorID uuid.UUID, isAdmin bool) ([]*entity.PaymentSlip, error) {
	t, err := uc.deps.Transactions.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !t.IsParticipant(actorID) {
		return nil, apperror.ErrNotParticipant
	}
	return uc.deps.Slips.ListByTransaction(ctx, t.ID)
}

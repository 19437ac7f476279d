package transaction

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

// Коллизия кода приглашения маловероятна, но уникальный индекс может её вернуть.
const inviteCodeAttempts = 3

type CreateTransactionInput struct {
	SellerID    uuid.UUID
	Title       string
	Description string
	Amount      int64
	FeePayer    string
}

type CreateTransactionUseCase struct {
	deps *Deps
}

func NewCreateTransactionUseCase(deps *Deps) *CreateTransactionUseCase {
	return &CreateTransactionUseCase{deps: deps}
}

func (uc *CreateTransactionUseCase) Execute(ctx context.Context, input CreateTransactionInput) (*entity.Transaction, error) {
	payer, err := valueobject.NewFeePayer(input.FeePayer)
	if err != nil {
		return nil, err
	}

	schedule := uc.deps.Fees.CurrentSchedule()
	for attempt := 1; ; attempt++ {
		t, err := entity.NewTransaction(input.SellerID, input.Title, input.Description, input.Amount, payer,
			schedule, uc.deps.Windows, uc.deps.now())
		if err != nil {
			return nil, err
		}

		err = uc.deps.Transactions.Create(ctx, t)
		if err == nil {
			logger.Log.WithField("transaction_id", t.ID).WithField("seller_id", t.SellerID).Info("сделка создана")
			return t, nil
		}
		if apperror.CodeOf(err) != apperror.ErrCodeConflict || attempt >= inviteCodeAttempts {
			return nil, err
		}
	}
}

// QuoteFeeUseCase предварительный расчёт комиссии без создания сделки.
type QuoteFeeUseCase struct {
	fees FeeSource
}

func NewQuoteFeeUseCase(fees FeeSource) *QuoteFeeUseCase {
	return &QuoteFeeUseCase{fees: fees}
}

func (uc *QuoteFeeUseCase) Execute(amount int64, feePayer string) (valueobject.FeeBreakdown, error) {
	payer, err := valueobject.NewFeePayer(feePayer)
	if err != nil {
		return valueobject.FeeBreakdown{}, err
	}
	return valueobject.CalculateFee(amount, payer, uc.fees.CurrentSchedule())
}

package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

type SlipRepository struct {
	s *Store
}

var _ repository.SlipRepository = (*SlipRepository)(nil)

func (r *SlipRepository) Submit(ctx context.Context, slip *entity.PaymentSlip, tx *entity.Transaction, expected valueobject.TransactionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.casTransaction(tx, expected); err != nil {
		return err
	}
	for _, prev := range r.s.slips[slip.TransactionID] {
		prev.Supersede(slip.CreatedAt)
	}
	r.s.slips[slip.TransactionID] = append(r.s.slips[slip.TransactionID], cloneSlip(slip))
	return nil
}

func (r *SlipRepository) Review(ctx context.Context, slip *entity.PaymentSlip, tx *entity.Transaction, expected valueobject.TransactionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	list := r.s.slips[slip.TransactionID]
	idx := -1
	for i, sl := range list {
		if sl.ID == slip.ID {
			idx = i
		}
	}
	if idx < 0 {
		return apperror.ErrSlipNotFound
	}
	if idx != len(list)-1 || !list[idx].IsPending() {
		return apperror.New(apperror.ErrCodeStateConflict, "квитанция уже проверена или заменена новой")
	}
	if err := r.s.casTransaction(tx, expected); err != nil {
		return err
	}
	list[idx] = cloneSlip(slip)
	return nil
}

func (r *SlipRepository) Latest(ctx context.Context, transactionID uuid.UUID) (*entity.PaymentSlip, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	list := r.s.slips[transactionID]
	if len(list) == 0 {
		return nil, apperror.ErrSlipNotFound
	}
	return cloneSlip(list[len(list)-1]), nil
}

// ListByTransaction от новых к старым.
func (r *SlipRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*entity.PaymentSlip, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	list := r.s.slips[transactionID]
	out := make([]*entity.PaymentSlip, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, cloneSlip(list[i]))
	}
	return out, nil
}

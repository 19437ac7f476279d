package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

type DisputeRepository struct {
	s *Store
}

var _ repository.DisputeRepository = (*DisputeRepository)(nil)

func (r *DisputeRepository) Open(ctx context.Context, d *entity.Dispute, tx *entity.Transaction, expected valueobject.TransactionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.activeDispute(d.TransactionID) != nil {
		return apperror.ErrAlreadyDisputed
	}
	if err := r.s.casTransaction(tx, expected); err != nil {
		return err
	}
	r.s.disputes[d.ID] = cloneDispute(d)
	return nil
}

func (r *DisputeRepository) StartReview(ctx context.Context, d *entity.Dispute) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.disputes[d.ID]
	if !ok {
		return apperror.ErrDisputeNotFound
	}
	if current.Status != valueobject.DisputeStatusOpen {
		return apperror.New(apperror.ErrCodeStateConflict, "спор уже на рассмотрении или закрыт")
	}
	r.s.disputes[d.ID] = cloneDispute(d)
	return nil
}

func (r *DisputeRepository) Resolve(ctx context.Context, d *entity.Dispute, tx *entity.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.disputes[d.ID]
	if !ok {
		return apperror.ErrDisputeNotFound
	}
	if !current.IsActive() {
		return apperror.New(apperror.ErrCodeStateConflict, "спор уже решён")
	}
	if err := r.s.casTransaction(tx, valueobject.StatusDisputeOpen); err != nil {
		return err
	}
	r.s.disputes[d.ID] = cloneDispute(d)
	return nil
}

func (r *DisputeRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Dispute, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, ok := r.s.disputes[id]
	if !ok {
		return nil, apperror.ErrDisputeNotFound
	}
	return cloneDispute(d), nil
}

func (r *DisputeRepository) FindActiveByTransaction(ctx context.Context, transactionID uuid.UUID) (*entity.Dispute, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d := r.s.activeDispute(transactionID)
	if d == nil {
		return nil, apperror.ErrDisputeNotFound
	}
	return cloneDispute(d), nil
}

func (r *DisputeRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*entity.Dispute, error) {
	out, _, err := r.list(repository.DisputeFilter{}, func(d *entity.Dispute) bool { return d.TransactionID == transactionID })
	return out, err
}

func (r *DisputeRepository) List(ctx context.Context, filter repository.DisputeFilter) ([]*entity.Dispute, int, error) {
	return r.list(filter, func(*entity.Dispute) bool { return true })
}

func (r *DisputeRepository) list(filter repository.DisputeFilter, match func(*entity.Dispute) bool) ([]*entity.Dispute, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*entity.Dispute
	for _, d := range r.s.disputes {
		if filter.Status != "" && string(d.Status) != filter.Status {
			continue
		}
		if match(d) {
			out = append(out, cloneDispute(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Limit, filter.Offset), len(out), nil
}

func (s *Store) activeDispute(transactionID uuid.UUID) *entity.Dispute {
	for _, d := range s.disputes {
		if d.TransactionID == transactionID && d.IsActive() {
			return d
		}
	}
	return nil
}

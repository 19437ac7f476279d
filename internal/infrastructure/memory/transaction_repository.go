package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

type TransactionRepository struct {
	s *Store
}

var _ repository.TransactionRepository = (*TransactionRepository)(nil)

func (r *TransactionRepository) Create(ctx context.Context, tx *entity.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.inviteIndex[tx.InviteCode]; exists {
		return apperror.New(apperror.ErrCodeConflict, "код приглашения уже занят")
	}
	r.s.transactions[tx.ID] = cloneTransaction(tx)
	r.s.inviteIndex[tx.InviteCode] = tx.ID
	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.transactions[id]
	if !ok {
		return nil, apperror.ErrTransactionNotFound
	}
	return cloneTransaction(t), nil
}

func (r *TransactionRepository) FindByInviteCode(ctx context.Context, code string) (*entity.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.inviteIndex[code]
	if !ok {
		return nil, apperror.ErrInviteNotFound
	}
	return cloneTransaction(r.s.transactions[id]), nil
}

func (r *TransactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter repository.TransactionFilter) ([]*entity.Transaction, int, error) {
	return r.list(filter, func(t *entity.Transaction) bool { return t.IsParticipant(userID) })
}

func (r *TransactionRepository) List(ctx context.Context, filter repository.TransactionFilter) ([]*entity.Transaction, int, error) {
	return r.list(filter, func(*entity.Transaction) bool { return true })
}

func (r *TransactionRepository) list(filter repository.TransactionFilter, match func(*entity.Transaction) bool) ([]*entity.Transaction, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*entity.Transaction
	for _, t := range r.s.transactions {
		if filter.Status != "" && string(t.Status) != filter.Status {
			continue
		}
		if match(t) {
			out = append(out, cloneTransaction(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Limit, filter.Offset), len(out), nil
}

func (r *TransactionRepository) UpdateState(ctx context.Context, tx *entity.Transaction, expected valueobject.TransactionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.casTransaction(tx, expected)
}

func (r *TransactionRepository) AssignBuyer(ctx context.Context, tx *entity.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.transactions[tx.ID]
	if !ok {
		return apperror.ErrTransactionNotFound
	}
	if current.BuyerID != nil || current.Status != valueobject.StatusWaitingPayment {
		return apperror.New(apperror.ErrCodeStateConflict, "у сделки уже есть покупатель")
	}
	current.BuyerID = tx.BuyerID
	current.UpdatedAt = tx.UpdatedAt
	return nil
}

func (r *TransactionRepository) FindExpirable(ctx context.Context, now time.Time, limit int) ([]*entity.Transaction, error) {
	return r.scan(limit, func(t *entity.Transaction) bool {
		return t.IsExpirable(now)
	}), nil
}

func (r *TransactionRepository) FindAutoReleasable(ctx context.Context, now time.Time, limit int) ([]*entity.Transaction, error) {
	return r.scan(limit, func(t *entity.Transaction) bool {
		return t.Status == valueobject.StatusDeliveredPending && t.AutoReleaseAt != nil && !now.Before(*t.AutoReleaseAt)
	}), nil
}

func (r *TransactionRepository) scan(limit int, match func(*entity.Transaction) bool) []*entity.Transaction {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*entity.Transaction
	for _, t := range r.s.transactions {
		if match(t) {
			out = append(out, cloneTransaction(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return page(out, limit, 0)
}

// casTransaction вызывается под блокировкой записи.
func (s *Store) casTransaction(tx *entity.Transaction, expected valueobject.TransactionStatus) error {
	current, ok := s.transactions[tx.ID]
	if !ok {
		return apperror.ErrTransactionNotFound
	}
	if current.Status != expected {
		return apperror.ErrStatusChanged
	}
	// как и UPDATE в PostgreSQL, переписываются только поля состояния
	current.Status = tx.Status
	current.AutoReleaseAt = tx.AutoReleaseAt
	current.PaidAt = tx.PaidAt
	current.DeliveredAt = tx.DeliveredAt
	current.CompletedAt = tx.CompletedAt
	current.CancelledAt = tx.CancelledAt
	current.ExpiredAt = tx.ExpiredAt
	current.UpdatedAt = tx.UpdatedAt
	return nil
}

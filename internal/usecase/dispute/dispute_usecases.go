package dispute

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/metrics"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/usecase/transaction"
)

type Deps struct {
	Transactions repository.TransactionRepository
	Disputes     repository.DisputeRepository
	Notifier     transaction.StatusNotifier
	Now          func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

type OpenDisputeInput struct {
	TransactionID uuid.UUID
	ActorID       uuid.UUID
	Reason        string
	Description   string
	Evidence      []string
}

type OpenDisputeUseCase struct {
	deps *Deps
}

func NewOpenDisputeUseCase(deps *Deps) *OpenDisputeUseCase {
	return &OpenDisputeUseCase{deps: deps}
}

// Execute открывает спор участником сделки и переводит сделку в DISPUTE_OPEN.
func (uc *OpenDisputeUseCase) Execute(ctx context.Context, input OpenDisputeInput) (*entity.Dispute, *entity.Transaction, error) {
	reason, err := valueobject.NewDisputeReason(input.Reason)
	if err != nil {
		return nil, nil, err
	}
	t, err := uc.deps.Transactions.FindByID(ctx, input.TransactionID)
	if err != nil {
		return nil, nil, err
	}

	now := uc.deps.now()
	from := t.Status
	if err := t.OpenDispute(input.ActorID, now); err != nil {
		return nil, nil, err
	}
	d, err := entity.NewDispute(t.ID, input.ActorID, reason, input.Description, input.Evidence, now)
	if err != nil {
		return nil, nil, err
	}

	if err := uc.deps.Disputes.Open(ctx, d, t, from); err != nil {
		if apperror.IsStateConflict(err) && uc.disputedMeanwhile(ctx, t.ID) {
			return nil, nil, apperror.ErrAlreadyDisputed
		}
		if apperror.IsStateConflict(err) {
			metrics.TransitionConflicts.WithLabelValues(transaction.EventOpenDispute).Inc()
		}
		return nil, nil, err
	}

	logger.Log.WithField("dispute_id", d.ID).WithField("reason", d.Reason).Info("открыт спор")
	transaction.RecordTransition(ctx, uc.deps.Notifier, t, from, transaction.EventOpenDispute, input.ActorID)
	return d, t, nil
}

// disputedMeanwhile различает проигранную гонку двух открытий спора и иной конкурентный переход.
func (uc *OpenDisputeUseCase) disputedMeanwhile(ctx context.Context, id uuid.UUID) bool {
	active, err := uc.deps.Disputes.FindActiveByTransaction(ctx, id)
	return err == nil && active != nil
}

type StartReviewUseCase struct {
	deps *Deps
}

func NewStartReviewUseCase(deps *Deps) *StartReviewUseCase {
	return &StartReviewUseCase{deps: deps}
}

// Execute администратор берёт спор в работу. Статус сделки не меняется.
func (uc *StartReviewUseCase) Execute(ctx context.Context, disputeID, adminID uuid.UUID) (*entity.Dispute, error) {
	d, err := uc.deps.Disputes.FindByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if err := d.StartReview(uc.deps.now()); err != nil {
		return nil, err
	}
	if err := uc.deps.Disputes.StartReview(ctx, d); err != nil {
		return nil, err
	}
	logger.Log.WithField("dispute_id", d.ID).WithField("admin_id", adminID).Info("спор взят на рассмотрение")
	return d, nil
}

type ResolveDisputeInput struct {
	DisputeID  uuid.UUID
	AdminID    uuid.UUID
	Resolution string
	Note       string
}

type ResolveDisputeUseCase struct {
	deps *Deps
}

func NewResolveDisputeUseCase(deps *Deps) *ResolveDisputeUseCase {
	return &ResolveDisputeUseCase{deps: deps}
}

// Execute закрывает спор и переводит сделку в REFUNDED или COMPLETED одной записью.
func (uc *ResolveDisputeUseCase) Execute(ctx context.Context, input ResolveDisputeInput) (*entity.Dispute, *entity.Transaction, error) {
	resolution, err := valueobject.NewResolution(input.Resolution)
	if err != nil {
		return nil, nil, err
	}
	d, err := uc.deps.Disputes.FindByID(ctx, input.DisputeID)
	if err != nil {
		return nil, nil, err
	}
	t, err := uc.deps.Transactions.FindByID(ctx, d.TransactionID)
	if err != nil {
		return nil, nil, err
	}

	now := uc.deps.now()
	if err := d.Resolve(input.AdminID, resolution, input.Note, now); err != nil {
		return nil, nil, err
	}
	from := t.Status
	if err := t.ResolveDispute(resolution, now); err != nil {
		return nil, nil, err
	}

	if err := uc.deps.Disputes.Resolve(ctx, d, t); err != nil {
		if apperror.IsStateConflict(err) {
			metrics.TransitionConflicts.WithLabelValues(transaction.EventResolveDispute).Inc()
		}
		return nil, nil, err
	}

	logger.Log.WithField("dispute_id", d.ID).WithField("resolution", resolution).Info("спор решён")
	transaction.RecordTransition(ctx, uc.deps.Notifier, t, from, transaction.EventResolveDispute, input.AdminID)
	return d, t, nil
}

type GetDisputeUseCase struct {
	deps *Deps
}

func NewGetDisputeUseCase(deps *Deps) *GetDisputeUseCase {
	return &GetDisputeUseCase{deps: deps}
}

func (uc *GetDisputeUseCase) Execute(ctx context.Context, disputeID, actorID uuid.UUID, isAdmin bool) (*entity.Dispute, error) {
	d, err := uc.deps.Disputes.FindByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if isAdmin {
		return d, nil
	}
	t, err := uc.deps.Transactions.FindByID(ctx, d.TransactionID)
	if err != nil {
		return nil, err
	}
	if !t.IsParticipant(actorID) {
		return nil, apperror.ErrNotParticipant
	}
	return d, nil
}

type ListDisputesUseCase struct {
	deps *Deps
}

func NewListDisputesUseCase(deps *Deps) *ListDisputesUseCase {
	return &ListDisputesUseCase{deps: deps}
}

// All список для администратора с фильтром по статусу спора.
func (uc *ListDisputesUseCase) All(ctx context.Context, filter repository.DisputeFilter) ([]*entity.Dispute, int, error) {
	if filter.Offset < 0 {
		return nil, 0, apperror.New(apperror.ErrCodeValidation, "offset не может быть отрицательным")
	}
	if filter.Status != "" {
		if _, err := valueobject.NewDisputeStatus(filter.Status); err != nil {
			return nil, 0, err
		}
	}
	return uc.deps.Disputes.List(ctx, filter)
}

// ByTransaction история споров сделки для участника или администратора.
func (uc *ListDisputesUseCase) ByTransaction(ctx context.Context, transactionID, actorID uuid.UUID, isAdmin bool) ([]*entity.Dispute, error) {
	t, err := uc.deps.Transactions.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !t.IsParticipant(actorID) {
		return nil, apperror.ErrNotParticipant
	}
	return uc.deps.Disputes.ListByTransaction(ctx, t.ID)
}

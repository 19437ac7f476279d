package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/metrics"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

// Имена событий жизненного цикла: метки метрик и поле event в status-update.
const (
	EventJoin            = "join"
	EventSubmitSlip      = "submit_slip"
	EventApprovePayment  = "approve_payment"
	EventRejectPayment   = "reject_payment"
	EventConfirmDelivery = "confirm_delivery"
	EventAcceptDelivery  = "accept_delivery"
	EventCancel          = "cancel"
	EventExpire          = "expire"
	EventAutoRelease     = "auto_release"
	EventOpenDispute     = "open_dispute"
	EventResolveDispute  = "resolve_dispute"
)

// StatusNotifier получает сделку после успешной записи. Доставка не гарантируется и не влияет на результат операции.
type StatusNotifier interface {
	NotifyStatusChange(ctx context.Context, t *entity.Transaction, event string)
}

type nopNotifier struct{}

func (nopNotifier) NotifyStatusChange(context.Context, *entity.Transaction, string) {}

// FeeSource отдаёт действующую тарифную сетку на момент вызова.
type FeeSource interface {
	CurrentSchedule() valueobject.FeeSchedule
}

// StaticFees тарифная сетка из конфигурации.
type StaticFees valueobject.FeeSchedule

func (f StaticFees) CurrentSchedule() valueobject.FeeSchedule {
	return valueobject.FeeSchedule(f)
}

// Deps общие зависимости сценариев сделки.
type Deps struct {
	Transactions repository.TransactionRepository
	Slips        repository.SlipRepository
	Fees         FeeSource
	Windows      entity.EscrowWindows
	Notifier     StatusNotifier
	Now          func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d *Deps) notifier() StatusNotifier {
	if d.Notifier == nil {
		return nopNotifier{}
	}
	return d.Notifier
}

// commit выполняет запись перехода и, если она прошла, фиксирует его в логах, метриках и рассылке.
func (d *Deps) commit(ctx context.Context, t *entity.Transaction, from valueobject.TransactionStatus, event string, actorID uuid.UUID, persist func() error) error {
	if err := persist(); err != nil {
		if apperror.IsStateConflict(err) {
			metrics.TransitionConflicts.WithLabelValues(event).Inc()
		}
		return err
	}
	RecordTransition(ctx, d.notifier(), t, from, event, actorID)
	return nil
}

// RecordTransition общий хвост успешного перехода, используется и сценариями споров.
func RecordTransition(ctx context.Context, notifier StatusNotifier, t *entity.Transaction, from valueobject.TransactionStatus, event string, actorID uuid.UUID) {
	metrics.TransactionTransitions.WithLabelValues(string(from), string(t.Status), event).Inc()
	logger.Log.WithFields(logrus.Fields{
		"transaction_id": t.ID,
		"from":           from,
		"to":             t.Status,
		"event":          event,
		"actor_id":       actorID,
	}).Info("переход статуса сделки")

	if notifier != nil {
		notifier.NotifyStatusChange(ctx, t, event)
	}
}

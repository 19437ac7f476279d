package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/goroutine"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/metrics"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

const sweepBatchSize = 100

// Sweeper периодически переводит просроченные сделки в EXPIRED и автоматически завершает
// сделки, по которым покупатель не ответил после доставки.
// Истекают обе стадии до удержания средств, включая PAYMENT_VERIFYING.
type Sweeper struct {
	deps     *Deps
	interval time.Duration
}

func NewSweeper(deps *Deps, interval time.Duration) *Sweeper {
	return &Sweeper{deps: deps, interval: interval}
}

// Start запускает обход в отдельной горутине до отмены ctx.
func (s *Sweeper) Start(ctx context.Context) {
	goroutine.SafeGoWithContext(ctx, s.run)
}

func (s *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			goroutine.Protect("transaction sweeper", func() {
				s.SweepOnce(ctx)
			})
		}
	}
}

// SweepOnce один проход. Возвращает число истёкших и автоматически завершённых сделок.
func (s *Sweeper) SweepOnce(ctx context.Context) (expired, released int) {
	now := s.deps.now()

	candidates, err := s.deps.Transactions.FindExpirable(ctx, now, sweepBatchSize)
	if err != nil {
		logger.Log.WithError(err).Error("sweeper: не удалось получить просроченные сделки")
	}
	for _, t := range candidates {
		if s.apply(ctx, t, EventExpire, func() error { return t.Expire(now) }) {
			expired++
		}
	}

	candidates, err = s.deps.Transactions.FindAutoReleasable(ctx, now, sweepBatchSize)
	if err != nil {
		logger.Log.WithError(err).Error("sweeper: не удалось получить сделки для автозавершения")
	}
	for _, t := range candidates {
		if s.apply(ctx, t, EventAutoRelease, func() error { return t.AutoRelease(now) }) {
			released++
		}
	}

	if expired > 0 || released > 0 {
		logger.Log.WithFields(logrus.Fields{"expired": expired, "released": released}).Info("sweeper: проход завершён")
	}
	return expired, released
}

func (s *Sweeper) apply(ctx context.Context, t *entity.Transaction, event string, guard func() error) bool {
	from := t.Status
	if err := guard(); err != nil {
		return false
	}
	err := s.deps.commit(ctx, t, from, event, uuid.Nil, func() error {
		return s.deps.Transactions.UpdateState(ctx, t, from)
	})
	if err != nil {
		// участник успел изменить сделку между выборкой и записью
		if !apperror.IsStateConflict(err) {
			logger.Log.WithError(err).WithField("transaction_id", t.ID).Error("sweeper: не удалось обновить сделку")
		}
		return false
	}
	metrics.SweeperRuns.WithLabelValues(event).Inc()
	return true
}

package entity_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

var (
	schedule = valueobject.FeeSchedule{Percent: 3.5, MinFee: 10, MaxFee: 5000, MinAmount: 100, MaxAmount: 1_000_000}
	windows  = entity.EscrowWindows{InviteTTL: 72 * time.Hour, PaymentTimeout: 168 * time.Hour, AutoReleaseAfter: 336 * time.Hour}
	t0       = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newTx(t *testing.T, payer valueobject.FeePayer) *entity.Transaction {
	t.Helper()
	tx, err := entity.NewTransaction(uuid.New(), "Ноутбук", "б/у", 1000, payer, schedule, windows, t0)
	require.NoError(t, err)
	return tx
}

func TestNewTransaction_SnapshotsFee(t *testing.T) {
	tx := newTx(t, valueobject.FeePayerBuyer)

	assert.Equal(t, valueobject.StatusWaitingPayment, tx.Status)
	assert.Equal(t, 3.5, tx.FeePercent)
	assert.Equal(t, int64(35), tx.FeeAmount)
	assert.Equal(t, int64(1035), tx.NetAmount)
	assert.Equal(t, int64(1035), tx.BuyerTotal)
	assert.Equal(t, int64(1000), tx.SellerPayout)
	assert.Len(t, tx.InviteCode, entity.InviteCodeLength)
	assert.Equal(t, t0.Add(72*time.Hour), tx.InviteExpiresAt)
	assert.False(t, tx.HasBuyer())
}

func TestNewTransaction_Validation(t *testing.T) {
	_, err := entity.NewTransaction(uuid.New(), "  ", "", 1000, valueobject.FeePayerBuyer, schedule, windows, t0)
	assert.True(t, apperror.IsValidation(err))

	_, err = entity.NewTransaction(uuid.New(), "x", "", 50, valueobject.FeePayerBuyer, schedule, windows, t0)
	assert.True(t, apperror.IsValidation(err))
}

func TestNewInviteCode_Alphabet(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := entity.NewInviteCode()
		require.NoError(t, err)
		assert.Regexp(t, `^[A-HJ-NP-Z2-9]{8}$`, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestTransaction_Join(t *testing.T) {
	tx := newTx(t, valueobject.FeePayerBuyer)
	buyer := uuid.New()

	err := tx.Join(tx.SellerID, t0)
	assert.Equal(t, apperror.ErrCodeBadRequest, apperror.CodeOf(err))

	require.NoError(t, tx.Join(buyer, t0.Add(time.Hour)))
	assert.True(t, tx.IsBuyer(buyer))

	// второй покупатель не может занять место, даже тот же самый
	for _, other := range []uuid.UUID{uuid.New(), buyer} {
		err = tx.Join(other, t0.Add(2*time.Hour))
		assert.True(t, apperror.IsStateConflict(err))
		assert.True(t, tx.IsBuyer(buyer))
	}
}

func TestTransaction_JoinExpiredInvite(t *testing.T) {
	tx := newTx(t, valueobject.FeePayerBuyer)
	err := tx.Join(uuid.New(), t0.Add(72*time.Hour))
	assert.Error(t, err)
	assert.False(t, tx.HasBuyer())
}

func TestTransaction_SubmitSlipTolerance(t *testing.T) {
	tx := newTx(t, valueobject.FeePayerBuyer)
	buyer := uuid.New()
	require.NoError(t, tx.Join(buyer, t0))

	assert.True(t, apperror.IsForbidden(tx.SubmitSlip(tx.SellerID, 1035, t0)))

	// 99% от 1035 = 1024.65
	assert.True(t, apperror.IsValidation(tx.SubmitSlip(buyer, 1024, t0)))
	require.NoError(t, tx.SubmitSlip(buyer, 1025, t0))
	assert.Equal(t, valueobject.StatusPaymentVerifying, tx.Status)

	// повторная квитанция во время проверки допустима
	require.NoError(t, tx.SubmitSlip(buyer, 1035, t0))
	assert.Equal(t, valueobject.StatusPaymentVerifying, tx.Status)
}

func TestTransaction_HappyPath(t *testing.T) {
	tx := newTx(t, valueobject.FeePayerBuyer)
	buyer := uuid.New()
	now := t0

	require.NoError(t, tx.Join(buyer, now))
	require.NoError(t, tx.SubmitSlip(buyer, 1035, now))
	require.NoError(t, tx.ApprovePayment(windows.AutoReleaseAfter, now))
	assert.Equal(t, valueobject.StatusPaidHolding, tx.Status)
	require.NotNil(t, tx.PaidAt)
	require.NotNil(t, tx.AutoReleaseAt)

	assert.True(t, apperror.IsForbidden(tx.ConfirmDelivery(buyer, windows.AutoReleaseAfter, now)))
	delivered := now.Add(24 * time.Hour)
	require.NoError(t, tx.ConfirmDelivery(tx.SellerID, windows.AutoReleaseAfter, delivered))
	assert.Equal(t, delivered.Add(windows.AutoReleaseAfter), *tx.AutoReleaseAt)

	assert.True(t, apperror.IsForbidden(tx.AcceptDelivery(tx.SellerID, now)))
	require.NoError(t, tx.AcceptDelivery(buyer, delivered.Add(time.Hour)))
	assert.Equal(t, valueobject.StatusCompleted, tx.Status)
	require.NotNil(t, tx.CompletedAt)
	assert.True(t, tx.Status.IsTerminal())
}

func TestTransaction_RejectPaymentRollsBack(t *testing.T) {
	tx := newTx(t, valueobject.FeePayerSeller)
	buyer := uuid.New()
	require.NoError(t, tx.Join(buyer, t0))
	require.NoError(t, tx.SubmitSlip(buyer, 1000, t0))

	require.NoError(t, tx.RejectPayment(t0))
	assert.Equal(t, valueobject.StatusWaitingPayment, tx.Status)

	assert.True(t, apperror.IsStateConflict(tx.RejectPayment(t0)))
	assert.True(t, apperror.IsStateConflict(tx.ApprovePayment(time.Hour, t0)))
}

func TestTransaction_Monotonic(t *testing.T) {
	tx := newTx(t, valueobject.FeePayerBuyer)
	buyer := uuid.New()
	steps := []func() error{
		func() error { return tx.Join(buyer, t0) },
		func() error { return tx.SubmitSlip(buyer, 1035, t0) },
		func() error { return tx.ApprovePayment(time.Hour, t0) },
		func() error { return tx.ConfirmDelivery(tx.SellerID, time.Hour, t0) },
		func() error { return tx.OpenDispute(buyer, t0) },
		func() error { return tx.ResolveDispute(valueobject.ResolutionRefundBuyer, t0) },
	}

	prev := tx.Status.Rank()
	for _, step := range steps {
		require.NoError(t, step())
		assert.GreaterOrEqual(t, tx.Status.Rank(), prev)
		prev = tx.Status.Rank()
	}
	assert.Equal(t, valueobject.StatusRefunded, tx.Status)

	// из терминального статуса больше никуда
	assert.Error(t, tx.Cancel(buyer, t0))
	assert.Error(t, tx.OpenDispute(buyer, t0))
	assert.Error(t, tx.AcceptDelivery(buyer, t0))
}

func TestTransaction_OpenDispute(t *testing.T) {
	tx := newTx(t, valueobject.FeePayerBuyer)
	buyer := uuid.New()
	assert.True(t, apperror.IsStateConflict(tx.OpenDispute(tx.SellerID, t0)))

	require.NoError(t, tx.Join(buyer, t0))
	require.NoError(t, tx.SubmitSlip(buyer, 1035, t0))
	require.NoError(t, tx.ApprovePayment(time.Hour, t0))

	assert.True(t, apperror.IsForbidden(tx.OpenDispute(uuid.New(), t0)))
	require.NoError(t, tx.OpenDispute(tx.SellerID, t0))
	assert.Equal(t, apperror.ErrCodeAlreadyDisputed, apperror.CodeOf(tx.OpenDispute(buyer, t0)))

	require.NoError(t, tx.ResolveDispute(valueobject.ResolutionPartialRefund, t0))
	assert.Equal(t, valueobject.StatusCompleted, tx.Status)
	assert.True(t, apperror.IsStateConflict(tx.OpenDispute(buyer, t0)))
}

func TestTransaction_Cancel(t *testing.T) {
	tx := newTx(t, valueobject.FeePayerBuyer)
	assert.True(t, apperror.IsForbidden(tx.Cancel(uuid.New(), t0)))
	require.NoError(t, tx.Cancel(tx.SellerID, t0))
	assert.Equal(t, valueobject.StatusCancelled, tx.Status)
	require.NotNil(t, tx.CancelledAt)

	held := newTx(t, valueobject.FeePayerBuyer)
	buyer := uuid.New()
	require.NoError(t, held.Join(buyer, t0))
	require.NoError(t, held.SubmitSlip(buyer, 1035, t0))
	require.NoError(t, held.ApprovePayment(time.Hour, t0))
	assert.True(t, apperror.IsStateConflict(held.Cancel(buyer, t0)))
}

func TestTransaction_Expire(t *testing.T) {
	tx := newTx(t, valueobject.FeePayerBuyer)
	assert.False(t, tx.IsExpirable(t0.Add(time.Hour)))
	assert.Error(t, tx.Expire(t0.Add(time.Hour)))

	// приглашение истекло, покупателя нет
	assert.True(t, tx.IsExpirable(t0.Add(72*time.Hour)))

	joined := newTx(t, valueobject.FeePayerBuyer)
	require.NoError(t, joined.Join(uuid.New(), t0))
	assert.False(t, joined.IsExpirable(t0.Add(100*time.Hour)))
	require.NoError(t, joined.Expire(t0.Add(168*time.Hour)))
	assert.Equal(t, valueobject.StatusExpired, joined.Status)
}

func TestTransaction_AutoRelease(t *testing.T) {
	tx := newTx(t, valueobject.FeePayerBuyer)
	buyer := uuid.New()
	require.NoError(t, tx.Join(buyer, t0))
	require.NoError(t, tx.SubmitSlip(buyer, 1035, t0))
	require.NoError(t, tx.ApprovePayment(time.Hour, t0))
	assert.Error(t, tx.AutoRelease(t0.Add(2*time.Hour)))

	require.NoError(t, tx.ConfirmDelivery(tx.SellerID, time.Hour, t0))
	assert.Error(t, tx.AutoRelease(t0.Add(30*time.Minute)))
	require.NoError(t, tx.AutoRelease(t0.Add(time.Hour)))
	assert.Equal(t, valueobject.StatusCompleted, tx.Status)
}

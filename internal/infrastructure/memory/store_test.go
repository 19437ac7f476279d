package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

func seedTransaction(t *testing.T, s *Store) *entity.Transaction {
	t.Helper()
	tx, err := entity.NewTransaction(uuid.New(), "Телефон", "", 1000, valueobject.FeePayerBuyer,
		valueobject.FeeSchedule{Percent: 3.5, MinFee: 10},
		entity.EscrowWindows{InviteTTL: time.Hour, PaymentTimeout: 2 * time.Hour}, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Transactions().Create(context.Background(), tx))
	return tx
}

func TestTransactionRepository_CompareAndSwap(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	tx := seedTransaction(t, s)

	stale, err := s.Transactions().FindByID(ctx, tx.ID)
	require.NoError(t, err)

	require.NoError(t, tx.Cancel(tx.SellerID, time.Now()))
	require.NoError(t, s.Transactions().UpdateState(ctx, tx, valueobject.StatusWaitingPayment))

	// вторая запись по устаревшему статусу отклоняется
	require.NoError(t, stale.Cancel(stale.SellerID, time.Now()))
	err = s.Transactions().UpdateState(ctx, stale, valueobject.StatusWaitingPayment)
	assert.ErrorIs(t, err, apperror.ErrStatusChanged)

	got, err := s.Transactions().FindByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.StatusCancelled, got.Status)
}

func TestTransactionRepository_AssignBuyerOnce(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	tx := seedTransaction(t, s)

	first := *tx
	require.NoError(t, first.Join(uuid.New(), time.Now()))
	require.NoError(t, s.Transactions().AssignBuyer(ctx, &first))

	second := *tx
	require.NoError(t, second.Join(uuid.New(), time.Now()))
	assert.True(t, apperror.IsStateConflict(s.Transactions().AssignBuyer(ctx, &second)))

	got, _ := s.Transactions().FindByID(ctx, tx.ID)
	assert.Equal(t, *first.BuyerID, *got.BuyerID)
}

func TestTransactionRepository_InviteLookup(t *testing.T) {
	s := NewStore()
	tx := seedTransaction(t, s)

	got, err := s.Transactions().FindByInviteCode(context.Background(), tx.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, got.ID)

	_, err = s.Transactions().FindByInviteCode(context.Background(), "NOPE1234")
	assert.ErrorIs(t, err, apperror.ErrInviteNotFound)
}

func TestMessageRepository_PageOrderWithEqualTimestamps(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	txID := uuid.New()
	ts := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	body, _ := entity.TextBody("x")
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Messages().Create(ctx, entity.NewMessage(txID, uuid.New(), "", body, ts)))
	}

	first, err := s.Messages().ListPage(ctx, txID, nil, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, int64(5), first[0].Seq)
	assert.Equal(t, int64(4), first[1].Seq)

	cursor := first[1].Cursor()
	rest, err := s.Messages().ListPage(ctx, txID, &cursor, 10)
	require.NoError(t, err)
	require.Len(t, rest, 3)
	assert.Equal(t, int64(3), rest[0].Seq)
	assert.Equal(t, int64(1), rest[2].Seq)
}

func TestSlipRepository_OnlyLatestSlipIsReviewable(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	tx := seedTransaction(t, s)
	buyer := uuid.New()
	now := time.Now()

	require.NoError(t, tx.Join(buyer, now))
	require.NoError(t, s.Transactions().AssignBuyer(ctx, tx))

	require.NoError(t, tx.SubmitSlip(buyer, tx.BuyerTotal, now))
	first, err := entity.NewPaymentSlip(tx.ID, buyer, tx.BuyerTotal, "/media/slips/1.png", now)
	require.NoError(t, err)
	require.NoError(t, s.Slips().Submit(ctx, first, tx, valueobject.StatusWaitingPayment))

	// администратор открыл первую квитанцию, покупатель тем временем прислал вторую
	stale, err := s.Slips().Latest(ctx, tx.ID)
	require.NoError(t, err)
	staleTx, err := s.Transactions().FindByID(ctx, tx.ID)
	require.NoError(t, err)

	later := now.Add(time.Minute)
	require.NoError(t, tx.SubmitSlip(buyer, tx.BuyerTotal, later))
	second, err := entity.NewPaymentSlip(tx.ID, buyer, tx.BuyerTotal, "/media/slips/2.png", later)
	require.NoError(t, err)
	require.NoError(t, s.Slips().Submit(ctx, second, tx, valueobject.StatusPaymentVerifying))

	require.NoError(t, stale.Review(uuid.New(), true, "", later))
	require.NoError(t, staleTx.ApprovePayment(time.Hour, later))
	err = s.Slips().Review(ctx, stale, staleTx, valueobject.StatusPaymentVerifying)
	assert.True(t, apperror.IsStateConflict(err))

	got, err := s.Transactions().FindByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.StatusPaymentVerifying, got.Status)

	list, err := s.Slips().ListByTransaction(ctx, tx.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, valueobject.SlipStatusPending, list[0].Status)
	assert.Equal(t, valueobject.SlipStatusRejected, list[1].Status)
	require.NotNil(t, list[1].ReviewNote)
	assert.Equal(t, entity.SupersededNote, *list[1].ReviewNote)
}

func TestPage_OffsetOutOfRange(t *testing.T) {
	items := []int{1, 2, 3}
	assert.Equal(t, []int{1, 2}, page(items, 2, -1))
	assert.Equal(t, []int{3}, page(items, 2, 2))
	assert.Empty(t, page(items, 2, 5))
}

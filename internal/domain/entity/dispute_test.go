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

func TestDispute_Lifecycle(t *testing.T) {
	d, err := entity.NewDispute(uuid.New(), uuid.New(), valueobject.DisputeReasonNotReceived,
		" посылка не пришла ", []string{"/media/a.png", " ", "/media/b.png"}, t0)
	require.NoError(t, err)

	assert.Equal(t, valueobject.DisputeStatusOpen, d.Status)
	assert.Equal(t, "посылка не пришла", d.Description)
	assert.Equal(t, []string{"/media/a.png", "/media/b.png"}, d.Evidence)
	assert.True(t, d.IsActive())

	require.NoError(t, d.StartReview(t0.Add(time.Minute)))
	assert.Equal(t, valueobject.DisputeStatusUnderReview, d.Status)
	assert.True(t, apperror.IsStateConflict(d.StartReview(t0)))
	assert.True(t, d.IsActive())

	admin := uuid.New()
	require.NoError(t, d.Resolve(admin, valueobject.ResolutionRefundBuyer, "", t0.Add(time.Hour)))
	assert.Equal(t, valueobject.DisputeStatusResolved, d.Status)
	assert.Equal(t, valueobject.ResolutionRefundBuyer, *d.Resolution)
	assert.Equal(t, admin, *d.ResolvedBy)
	require.NotNil(t, d.ResolvedAt)
	assert.Nil(t, d.ResolutionNote)
	assert.False(t, d.IsActive())

	assert.True(t, apperror.IsStateConflict(d.Resolve(admin, valueobject.ResolutionReleaseSeller, "", t0)))
}

func TestDispute_ResolveFromOpen(t *testing.T) {
	d, err := entity.NewDispute(uuid.New(), uuid.New(), valueobject.DisputeReasonOther, "x", nil, t0)
	require.NoError(t, err)
	require.NoError(t, d.Resolve(uuid.New(), valueobject.ResolutionReleaseSeller, "ok", t0))
	assert.Equal(t, "ok", *d.ResolutionNote)
}

func TestDispute_PartialRefundNeedsNote(t *testing.T) {
	d, err := entity.NewDispute(uuid.New(), uuid.New(), valueobject.DisputeReasonDamaged, "x", nil, t0)
	require.NoError(t, err)

	assert.True(t, apperror.IsValidation(d.Resolve(uuid.New(), valueobject.ResolutionPartialRefund, " ", t0)))
	assert.True(t, d.IsActive())
	require.NoError(t, d.Resolve(uuid.New(), valueobject.ResolutionPartialRefund, "30% покупателю", t0))
}

func TestNewDispute_Validation(t *testing.T) {
	_, err := entity.NewDispute(uuid.New(), uuid.New(), valueobject.DisputeReasonOther, "", nil, t0)
	assert.True(t, apperror.IsValidation(err))

	evidence := make([]string, 11)
	_, err = entity.NewDispute(uuid.New(), uuid.New(), valueobject.DisputeReasonOther, "x", evidence, t0)
	assert.True(t, apperror.IsValidation(err))
}

func TestPaymentSlip_Review(t *testing.T) {
	_, err := entity.NewPaymentSlip(uuid.New(), uuid.New(), 0, "/media/s.png", t0)
	assert.True(t, apperror.IsValidation(err))
	_, err = entity.NewPaymentSlip(uuid.New(), uuid.New(), 10, "", t0)
	assert.True(t, apperror.IsValidation(err))

	slip, err := entity.NewPaymentSlip(uuid.New(), uuid.New(), 1035, "/media/s.png", t0)
	require.NoError(t, err)
	assert.True(t, slip.IsPending())

	admin := uuid.New()
	require.NoError(t, slip.Review(admin, false, "сумма не совпадает", t0))
	assert.Equal(t, valueobject.SlipStatusRejected, slip.Status)
	assert.Equal(t, admin, *slip.ReviewerID)
	assert.True(t, apperror.IsStateConflict(slip.Review(admin, true, "", t0)))
}

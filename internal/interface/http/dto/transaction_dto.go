package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
)

type CreateTransactionRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"max=5000"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	FeePayer    string `json:"fee_payer" binding:"required,oneof=BUYER SELLER SPLIT"`
}

type SubmitSlipRequest struct {
	ClaimedAmount int64  `json:"claimed_amount" binding:"required,gt=0"`
	SlipURL       string `json:"slip_url" binding:"required"`
}

type VerifyPaymentRequest struct {
	Approve *bool  `json:"approve" binding:"required"`
	Note    string `json:"note" binding:"max=1000"`
}

type TransactionResponse struct {
	ID               uuid.UUID  `json:"id"`
	InviteCode       string     `json:"invite_code,omitempty"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	SellerID         uuid.UUID  `json:"seller_id"`
	BuyerID          *uuid.UUID `json:"buyer_id"`
	Amount           int64      `json:"amount"`
	FeePercent       float64    `json:"fee_percent"`
	FeeAmount        int64      `json:"fee_amount"`
	NetAmount        int64      `json:"net_amount"`
	BuyerTotal       int64      `json:"buyer_total"`
	SellerPayout     int64      `json:"seller_payout"`
	FeePayer         string     `json:"fee_payer"`
	Status           string     `json:"status"`
	InviteExpiresAt  time.Time  `json:"invite_expires_at"`
	PaymentExpiresAt time.Time  `json:"payment_expires_at"`
	AutoReleaseAt    *time.Time `json:"auto_release_at"`
	PaidAt           *time.Time `json:"paid_at"`
	DeliveredAt      *time.Time `json:"delivered_at"`
	CompletedAt      *time.Time `json:"completed_at"`
	CancelledAt      *time.Time `json:"cancelled_at"`
	ExpiredAt        *time.Time `json:"expired_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ToTransactionResponse. Код приглашения виден только продавцу и администратору.
func ToTransactionResponse(t *entity.Transaction, viewerID uuid.UUID, isAdmin bool) TransactionResponse {
	resp := TransactionResponse{
		ID:               t.ID,
		Title:            t.Title,
		Description:      t.Description,
		SellerID:         t.SellerID,
		BuyerID:          t.BuyerID,
		Amount:           t.Amount,
		FeePercent:       t.FeePercent,
		FeeAmount:        t.FeeAmount,
		NetAmount:        t.NetAmount,
		BuyerTotal:       t.BuyerTotal,
		SellerPayout:     t.SellerPayout,
		FeePayer:         string(t.FeePayer),
		Status:           string(t.Status),
		InviteExpiresAt:  t.InviteExpiresAt,
		PaymentExpiresAt: t.PaymentExpiresAt,
		AutoReleaseAt:    t.AutoReleaseAt,
		PaidAt:           t.PaidAt,
		DeliveredAt:      t.DeliveredAt,
		CompletedAt:      t.CompletedAt,
		CancelledAt:      t.CancelledAt,
		ExpiredAt:        t.ExpiredAt,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
	if isAdmin || t.IsSeller(viewerID) {
		resp.InviteCode = t.InviteCode
	}
	return resp
}

func ToTransactionResponses(list []*entity.Transaction, viewerID uuid.UUID, isAdmin bool) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(list))
	for _, t := range list {
		out = append(out, ToTransactionResponse(t, viewerID, isAdmin))
	}
	return out
}

// InvitePreviewResponse условия сделки, которые видит покупатель до присоединения.
type InvitePreviewResponse struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Amount          int64     `json:"amount"`
	FeeAmount       int64     `json:"fee_amount"`
	BuyerTotal      int64     `json:"buyer_total"`
	FeePayer        string    `json:"fee_payer"`
	Status          string    `json:"status"`
	HasBuyer        bool      `json:"has_buyer"`
	InviteExpiresAt time.Time `json:"invite_expires_at"`
}

func ToInvitePreviewResponse(t *entity.Transaction) InvitePreviewResponse {
	return InvitePreviewResponse{
		Title:           t.Title,
		Description:     t.Description,
		Amount:          t.Amount,
		FeeAmount:       t.FeeAmount,
		BuyerTotal:      t.BuyerTotal,
		FeePayer:        string(t.FeePayer),
		Status:          string(t.Status),
		HasBuyer:        t.HasBuyer(),
		InviteExpiresAt: t.InviteExpiresAt,
	}
}

type SlipResponse struct {
	ID            uuid.UUID  `json:"id"`
	TransactionID uuid.UUID  `json:"transaction_id"`
	UploaderID    uuid.UUID  `json:"uploader_id"`
	ClaimedAmount int64      `json:"claimed_amount"`
	SlipURL       string     `json:"slip_url"`
	Status        string     `json:"status"`
	ReviewerID    *uuid.UUID `json:"reviewer_id"`
	ReviewNote    *string    `json:"review_note"`
	CreatedAt     time.Time  `json:"created_at"`
	ReviewedAt    *time.Time `json:"reviewed_at"`
}

func ToSlipResponse(s *entity.PaymentSlip) SlipResponse {
	return SlipResponse{
		ID:            s.ID,
		TransactionID: s.TransactionID,
		UploaderID:    s.UploaderID,
		ClaimedAmount: s.ClaimedAmount,
		SlipURL:       s.SlipURL,
		Status:        string(s.Status),
		ReviewerID:    s.ReviewerID,
		ReviewNote:    s.ReviewNote,
		CreatedAt:     s.CreatedAt,
		ReviewedAt:    s.ReviewedAt,
	}
}

func ToSlipResponses(list []*entity.PaymentSlip) []SlipResponse {
	out := make([]SlipResponse, 0, len(list))
	for _, s := range list {
		out = append(out, ToSlipResponse(s))
	}
	return out
}

// SubmitSlipResponse сделка после отправки квитанции и сама квитанция.
type SubmitSlipResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Slip        SlipResponse        `json:"slip"`
}

package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
)

type OpenDisputeRequest struct {
	Reason      string   `json:"reason" binding:"required"`
	Description string   `json:"description" binding:"required,max=5000"`
	Evidence    []string `json:"evidence"`
}

type ResolveDisputeRequest struct {
	Resolution string `json:"resolution" binding:"required,oneof=REFUND_BUYER RELEASE_SELLER PARTIAL_REFUND"`
	Note       string `json:"note" binding:"max=2000"`
}

type DisputeResponse struct {
	ID             uuid.UUID  `json:"id"`
	TransactionID  uuid.UUID  `json:"transaction_id"`
	OpenedBy       uuid.UUID  `json:"opened_by"`
	Reason         string     `json:"reason"`
	Description    string     `json:"description"`
	Evidence       []string   `json:"evidence"`
	Status         string     `json:"status"`
	Resolution     *string    `json:"resolution"`
	ResolvedBy     *uuid.UUID `json:"resolved_by"`
	ResolutionNote *string    `json:"resolution_note"`
	CreatedAt      time.Time  `json:"created_at"`
	ReviewedAt     *time.Time `json:"reviewed_at"`
	ResolvedAt     *time.Time `json:"resolved_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func ToDisputeResponse(d *entity.Dispute) DisputeResponse {
	resp := DisputeResponse{
		ID:             d.ID,
		TransactionID:  d.TransactionID,
		OpenedBy:       d.OpenedBy,
		Reason:         string(d.Reason),
		Description:    d.Description,
		Evidence:       d.Evidence,
		Status:         string(d.Status),
		ResolvedBy:     d.ResolvedBy,
		ResolutionNote: d.ResolutionNote,
		CreatedAt:      d.CreatedAt,
		ReviewedAt:     d.ReviewedAt,
		ResolvedAt:     d.ResolvedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if resp.Evidence == nil {
		resp.Evidence = []string{}
	}
	if d.Resolution != nil {
		r := string(*d.Resolution)
		resp.Resolution = &r
	}
	return resp
}

func ToDisputeResponses(list []*entity.Dispute) []DisputeResponse {
	out := make([]DisputeResponse, 0, len(list))
	for _, d := range list {
		out = append(out, ToDisputeResponse(d))
	}
	return out
}

// DisputeWithTransactionResponse спор и сделка после перехода.
type DisputeWithTransactionResponse struct {
	Dispute     DisputeResponse     `json:"dispute"`
	Transaction TransactionResponse `json:"transaction"`
}

package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/validation"
)

const maxEvidenceItems = 10

type Dispute struct {
	ID             uuid.UUID
	TransactionID  uuid.UUID
	OpenedBy       uuid.UUID
	Reason         valueobject.DisputeReason
	Description    string
	Evidence       []string
	Status         valueobject.DisputeStatus
	Resolution     *valueobject.Resolution
	ResolvedBy     *uuid.UUID
	ResolutionNote *string
	CreatedAt      time.Time
	ReviewedAt     *time.Time
	ResolvedAt     *time.Time
	UpdatedAt      time.Time
}

func NewDispute(transactionID, openedBy uuid.UUID, reason valueobject.DisputeReason, description string, evidence []string, now time.Time) (*Dispute, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "описание спора обязательно")
	}
	if len(evidence) > maxEvidenceItems {
		return nil, apperror.New(apperror.ErrCodeValidation, "слишком много вложений к спору")
	}
	refs := make([]string, 0, len(evidence))
	for _, e := range evidence {
		if e = strings.TrimSpace(e); e == "" {
			continue
		}
		if err := validation.ValidateMediaRef("вложение к спору", e); err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
		refs = append(refs, e)
	}
	now = now.UTC()
	return &Dispute{
		ID:            uuid.New(),
		TransactionID: transactionID,
		OpenedBy:      openedBy,
		Reason:        reason,
		Description:   description,
		Evidence:      refs,
		Status:        valueobject.DisputeStatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (d *Dispute) IsActive() bool {
	return d.Status.IsActive()
}

func (d *Dispute) StartReview(now time.Time) error {
	if d.Status != valueobject.DisputeStatusOpen {
		return apperror.New(apperror.ErrCodeStateConflict, "спор уже на рассмотрении или закрыт")
	}
	d.Status = valueobject.DisputeStatusUnderReview
	d.ReviewedAt = timePtr(now)
	d.UpdatedAt = now
	return nil
}

// Resolve закрывает спор. Закрытый спор больше не меняется.
func (d *Dispute) Resolve(adminID uuid.UUID, resolution valueobject.Resolution, note string, now time.Time) error {
	if !d.IsActive() {
		return apperror.New(apperror.ErrCodeStateConflict, "спор уже решён")
	}
	note = strings.TrimSpace(note)
	if resolution == valueobject.ResolutionPartialRefund && note == "" {
		return apperror.New(apperror.ErrCodeValidation, "для частичного возврата нужно описать условия в примечании")
	}
	r := resolution
	id := adminID
	d.Resolution = &r
	d.ResolvedBy = &id
	if note != "" {
		d.ResolutionNote = &note
	}
	d.Status = valueobject.DisputeStatusResolved
	d.ResolvedAt = timePtr(now)
	d.UpdatedAt = now
	return nil
}

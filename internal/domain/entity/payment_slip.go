package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/validation"
)

// SupersededNote пометка квитанции, вытесненной более новой.
const SupersededNote = "заменена новой квитанцией"

type PaymentSlip struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	UploaderID    uuid.UUID
	ClaimedAmount int64
	SlipURL       string
	Status        valueobject.SlipStatus
	ReviewerID    *uuid.UUID
	ReviewNote    *string
	CreatedAt     time.Time
	ReviewedAt    *time.Time
}

func NewPaymentSlip(transactionID, uploaderID uuid.UUID, claimedAmount int64, slipURL string, now time.Time) (*PaymentSlip, error) {
	if claimedAmount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма в квитанции должна быть положительной")
	}
	slipURL = strings.TrimSpace(slipURL)
	if err := validation.ValidateMediaRef("ссылка на квитанцию", slipURL); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	return &PaymentSlip{
		ID:            uuid.New(),
		TransactionID: transactionID,
		UploaderID:    uploaderID,
		ClaimedAmount: claimedAmount,
		SlipURL:       slipURL,
		Status:        valueobject.SlipStatusPending,
		CreatedAt:     now.UTC(),
	}, nil
}

func (s *PaymentSlip) IsPending() bool {
	return s.Status == valueobject.SlipStatusPending
}

// Review фиксирует решение администратора по квитанции.
func (s *PaymentSlip) Review(reviewerID uuid.UUID, approve bool, note string, now time.Time) error {
	if !s.IsPending() {
		return apperror.New(apperror.ErrCodeStateConflict, "квитанция уже проверена")
	}
	if approve {
		s.Status = valueobject.SlipStatusApproved
	} else {
		s.Status = valueobject.SlipStatusRejected
	}
	id := reviewerID
	s.ReviewerID = &id
	if note = strings.TrimSpace(note); note != "" {
		s.ReviewNote = &note
	}
	s.ReviewedAt = timePtr(now)
	return nil
}

// Supersede закрывает ожидающую квитанцию, когда покупатель прислал новую.
func (s *PaymentSlip) Supersede(now time.Time) {
	if !s.IsPending() {
		return
	}
	note := SupersededNote
	s.Status = valueobject.SlipStatusRejected
	s.ReviewNote = &note
	s.ReviewedAt = timePtr(now)
}

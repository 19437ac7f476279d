package valueobject

import "github.com/ignatzorin/escrow-backend/internal/pkg/apperror"

type TransactionStatus string

const (
	StatusWaitingPayment   TransactionStatus = "WAITING_PAYMENT"
	StatusPaymentVerifying TransactionStatus = "PAYMENT_VERIFYING"
	StatusPaidHolding      TransactionStatus = "PAID_HOLDING"
	StatusDeliveredPending TransactionStatus = "DELIVERED_PENDING"
	StatusCompleted        TransactionStatus = "COMPLETED"
	StatusDisputeOpen      TransactionStatus = "DISPUTE_OPEN"
	StatusCancelled        TransactionStatus = "CANCELLED"
	StatusRefunded         TransactionStatus = "REFUNDED"
	StatusExpired          TransactionStatus = "EXPIRED"
)

var transactionTransitions = map[TransactionStatus][]TransactionStatus{
	StatusWaitingPayment:   {StatusPaymentVerifying, StatusCancelled, StatusExpired},
	StatusPaymentVerifying: {StatusPaidHolding, StatusWaitingPayment, StatusPaymentVerifying, StatusCancelled, StatusExpired},
	StatusPaidHolding:      {StatusDeliveredPending, StatusDisputeOpen},
	StatusDeliveredPending: {StatusCompleted, StatusDisputeOpen},
	StatusDisputeOpen:      {StatusCompleted, StatusRefunded},
	StatusCompleted:        {},
	StatusCancelled:        {},
	StatusRefunded:         {},
	StatusExpired:          {},
}

// rank задаёт порядок продвижения сделки для проверки монотонности.
var transactionRank = map[TransactionStatus]int{
	StatusWaitingPayment:   0,
	StatusPaymentVerifying: 1,
	StatusPaidHolding:      2,
	StatusDeliveredPending: 3,
	StatusDisputeOpen:      4,
	StatusCompleted:        5,
	StatusCancelled:        5,
	StatusRefunded:         5,
	StatusExpired:          5,
}

func (s TransactionStatus) IsValid() bool {
	_, ok := transactionTransitions[s]
	return ok
}

func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRefunded, StatusExpired:
		return true
	}
	return false
}

// IsPreHold сообщает, что средства ещё не приняты на удержание.
func (s TransactionStatus) IsPreHold() bool {
	return s == StatusWaitingPayment || s == StatusPaymentVerifying
}

// IsDisputable сообщает, что из статуса можно открыть спор.
func (s TransactionStatus) IsDisputable() bool {
	return s == StatusPaidHolding || s == StatusDeliveredPending
}

// Rank порядковый номер статуса; откат допускается только при отклонении оплаты.
func (s TransactionStatus) Rank() int {
	return transactionRank[s]
}

func (s TransactionStatus) CanTransitionTo(newStatus TransactionStatus) bool {
	for _, status := range transactionTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

func NewTransactionStatus(status string) (TransactionStatus, error) {
	s := TransactionStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус сделки")
	}
	return s, nil
}

type SlipStatus string

const (
	SlipStatusPending  SlipStatus = "PENDING"
	SlipStatusApproved SlipStatus = "APPROVED"
	SlipStatusRejected SlipStatus = "REJECTED"
)

type DisputeStatus string

const (
	DisputeStatusOpen        DisputeStatus = "OPEN"
	DisputeStatusUnderReview DisputeStatus = "UNDER_REVIEW"
	DisputeStatusResolved    DisputeStatus = "RESOLVED"
)

// IsActive активный спор блокирует открытие нового.
func (s DisputeStatus) IsActive() bool {
	return s == DisputeStatusOpen || s == DisputeStatusUnderReview
}

func NewDisputeStatus(status string) (DisputeStatus, error) {
	s := DisputeStatus(status)
	switch s {
	case DisputeStatusOpen, DisputeStatusUnderReview, DisputeStatusResolved:
		return s, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус спора")
}

type DisputeReason string

const (
	DisputeReasonNotReceived        DisputeReason = "ITEM_NOT_RECEIVED"
	DisputeReasonNotAsDescribed     DisputeReason = "ITEM_NOT_AS_DESCRIBED"
	DisputeReasonDamaged            DisputeReason = "DAMAGED"
	DisputeReasonSellerUnresponsive DisputeReason = "SELLER_UNRESPONSIVE"
	DisputeReasonBuyerUnresponsive  DisputeReason = "BUYER_UNRESPONSIVE"
	DisputeReasonOther              DisputeReason = "OTHER"
)

func NewDisputeReason(reason string) (DisputeReason, error) {
	r := DisputeReason(reason)
	switch r {
	case DisputeReasonNotReceived, DisputeReasonNotAsDescribed, DisputeReasonDamaged,
		DisputeReasonSellerUnresponsive, DisputeReasonBuyerUnresponsive, DisputeReasonOther:
		return r, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "некорректная причина спора")
}

type Resolution string

const (
	ResolutionRefundBuyer   Resolution = "REFUND_BUYER"
	ResolutionReleaseSeller Resolution = "RELEASE_SELLER"
	ResolutionPartialRefund Resolution = "PARTIAL_REFUND"
)

func NewResolution(raw string) (Resolution, error) {
	r := Resolution(raw)
	switch r {
	case ResolutionRefundBuyer, ResolutionReleaseSeller, ResolutionPartialRefund:
		return r, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "некорректный тип решения спора")
}

// TransactionStatus итоговый статус сделки после решения спора.
// PARTIAL_REFUND завершает сделку так же, как RELEASE_SELLER: разделение фиксируется только в примечании.
func (r Resolution) TransactionStatus() TransactionStatus {
	if r == ResolutionRefundBuyer {
		return StatusRefunded
	}
	return StatusCompleted
}

type MessageType string

const (
	MessageTypeText  MessageType = "TEXT"
	MessageTypeImage MessageType = "IMAGE"
)

func NewMessageType(raw string) (MessageType, error) {
	t := MessageType(raw)
	if raw == "" {
		return MessageTypeText, nil
	}
	if t != MessageTypeText && t != MessageTypeImage {
		return "", apperror.New(apperror.ErrCodeValidation, "тип сообщения должен быть TEXT или IMAGE")
	}
	return t, nil
}

// Роли участников, приходящие от провайдера идентификации.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

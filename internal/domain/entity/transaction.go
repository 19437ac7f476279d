package entity

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

const (
	inviteAlphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	InviteCodeLength = 8
	maxTitleLength   = 200
)

// Допуск суммы квитанции: не меньше 99% от суммы, которую должен покупатель.
const slipTolerancePercent = 99

type Transaction struct {
	ID          uuid.UUID
	InviteCode  string
	Title       string
	Description string
	SellerID    uuid.UUID
	BuyerID     *uuid.UUID

	Amount       int64
	FeePercent   float64
	FeeAmount    int64
	NetAmount    int64
	BuyerTotal   int64
	SellerPayout int64
	FeePayer     valueobject.FeePayer

	Status valueobject.TransactionStatus

	InviteExpiresAt  time.Time
	PaymentExpiresAt time.Time
	AutoReleaseAt    *time.Time
	PaidAt           *time.Time
	DeliveredAt      *time.Time
	CompletedAt      *time.Time
	CancelledAt      *time.Time
	ExpiredAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// EscrowWindows сроки, которые фиксируются в сделке.
type EscrowWindows struct {
	InviteTTL        time.Duration
	PaymentTimeout   time.Duration
	AutoReleaseAfter time.Duration
}

// NewTransaction создаёт сделку продавца и фиксирует снимок тарифа.
func NewTransaction(sellerID uuid.UUID, title, description string, amount int64, payer valueobject.FeePayer,
	schedule valueobject.FeeSchedule, windows EscrowWindows, now time.Time) (*Transaction, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "название сделки обязательно")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, apperror.New(apperror.ErrCodeValidation, "название сделки слишком длинное")
	}

	fee, err := valueobject.CalculateFee(amount, payer, schedule)
	if err != nil {
		return nil, err
	}

	code, err := NewInviteCode()
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сгенерировать код приглашения")
	}

	now = now.UTC()
	return &Transaction{
		ID:               uuid.New(),
		InviteCode:       code,
		Title:            title,
		Description:      strings.TrimSpace(description),
		SellerID:         sellerID,
		Amount:           amount,
		FeePercent:       fee.FeePercent,
		FeeAmount:        fee.FeeAmount,
		NetAmount:        fee.NetAmount,
		BuyerTotal:       fee.BuyerTotal,
		SellerPayout:     fee.SellerPayout,
		FeePayer:         payer,
		Status:           valueobject.StatusWaitingPayment,
		InviteExpiresAt:  now.Add(windows.InviteTTL),
		PaymentExpiresAt: now.Add(windows.PaymentTimeout),
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// NewInviteCode генерирует код без похожих символов (0/O, 1/I).
func NewInviteCode() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(inviteAlphabet)))
	for i := 0; i < InviteCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(inviteAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeInviteCode приводит введённый пользователем код к хранимому виду.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (t *Transaction) HasBuyer() bool {
	return t.BuyerID != nil
}

func (t *Transaction) IsSeller(userID uuid.UUID) bool {
	return t.SellerID == userID
}

func (t *Transaction) IsBuyer(userID uuid.UUID) bool {
	return t.BuyerID != nil && *t.BuyerID == userID
}

func (t *Transaction) IsParticipant(userID uuid.UUID) bool {
	return t.IsSeller(userID) || t.IsBuyer(userID)
}

// Counterparty возвращает второго участника сделки или uuid.Nil, если покупателя ещё нет.
func (t *Transaction) Counterparty(userID uuid.UUID) uuid.UUID {
	if t.IsSeller(userID) {
		if t.BuyerID == nil {
			return uuid.Nil
		}
		return *t.BuyerID
	}
	return t.SellerID
}

// Join закрепляет покупателя. Покупатель назначается один раз.
func (t *Transaction) Join(buyerID uuid.UUID, now time.Time) error {
	if t.IsSeller(buyerID) {
		return apperror.New(apperror.ErrCodeBadRequest, "продавец не может присоединиться к своей сделке")
	}
	if t.HasBuyer() {
		return apperror.New(apperror.ErrCodeStateConflict, "у сделки уже есть покупатель")
	}
	if t.Status != valueobject.StatusWaitingPayment {
		return wrongStatus(t.Status)
	}
	if !now.Before(t.InviteExpiresAt) {
		return apperror.New(apperror.ErrCodeBadRequest, "срок действия кода приглашения истёк")
	}
	id := buyerID
	t.BuyerID = &id
	t.UpdatedAt = now
	return nil
}

// SubmitSlip переводит сделку на проверку оплаты.
func (t *Transaction) SubmitSlip(actorID uuid.UUID, claimedAmount int64, now time.Time) error {
	if !t.IsBuyer(actorID) {
		return apperror.New(apperror.ErrCodeForbidden, "квитанцию может отправить только покупатель")
	}
	if !t.Status.IsPreHold() {
		return wrongStatus(t.Status)
	}
	if claimedAmount*100 < t.BuyerTotal*slipTolerancePercent {
		return apperror.New(apperror.ErrCodeValidation, "сумма в квитанции меньше суммы к оплате")
	}
	return t.moveTo(valueobject.StatusPaymentVerifying, now)
}

// ApprovePayment принимает средства на удержание и взводит срок автоматического завершения.
func (t *Transaction) ApprovePayment(autoReleaseAfter time.Duration, now time.Time) error {
	if err := t.expect(valueobject.StatusPaymentVerifying, valueobject.StatusPaidHolding); err != nil {
		return err
	}
	t.PaidAt = timePtr(now)
	t.AutoReleaseAt = timePtr(now.Add(autoReleaseAfter))
	return t.moveTo(valueobject.StatusPaidHolding, now)
}

// RejectPayment единственный допустимый откат статуса.
func (t *Transaction) RejectPayment(now time.Time) error {
	if err := t.expect(valueobject.StatusPaymentVerifying, valueobject.StatusWaitingPayment); err != nil {
		return err
	}
	return t.moveTo(valueobject.StatusWaitingPayment, now)
}

// ConfirmDelivery вызывается продавцом. Окно автозавершения отсчитывается заново от момента доставки.
func (t *Transaction) ConfirmDelivery(actorID uuid.UUID, autoReleaseAfter time.Duration, now time.Time) error {
	if !t.IsSeller(actorID) {
		return apperror.New(apperror.ErrCodeForbidden, "подтвердить доставку может только продавец")
	}
	if err := t.expect(valueobject.StatusPaidHolding, valueobject.StatusDeliveredPending); err != nil {
		return err
	}
	t.DeliveredAt = timePtr(now)
	t.AutoReleaseAt = timePtr(now.Add(autoReleaseAfter))
	return t.moveTo(valueobject.StatusDeliveredPending, now)
}

func (t *Transaction) AcceptDelivery(actorID uuid.UUID, now time.Time) error {
	if !t.IsBuyer(actorID) {
		return apperror.New(apperror.ErrCodeForbidden, "принять доставку может только покупатель")
	}
	if err := t.expect(valueobject.StatusDeliveredPending, valueobject.StatusCompleted); err != nil {
		return err
	}
	t.CompletedAt = timePtr(now)
	return t.moveTo(valueobject.StatusCompleted, now)
}

// AutoRelease завершает сделку в пользу продавца, если покупатель не ответил в срок.
func (t *Transaction) AutoRelease(now time.Time) error {
	if err := t.expect(valueobject.StatusDeliveredPending, valueobject.StatusCompleted); err != nil {
		return err
	}
	if t.AutoReleaseAt == nil || now.Before(*t.AutoReleaseAt) {
		return apperror.New(apperror.ErrCodeBadRequest, "срок автоматического завершения ещё не наступил")
	}
	t.CompletedAt = timePtr(now)
	return t.moveTo(valueobject.StatusCompleted, now)
}

func (t *Transaction) OpenDispute(actorID uuid.UUID, now time.Time) error {
	if !t.IsParticipant(actorID) {
		return apperror.ErrNotParticipant
	}
	if t.Status == valueobject.StatusDisputeOpen {
		return apperror.ErrAlreadyDisputed
	}
	if !t.Status.IsDisputable() {
		return wrongStatus(t.Status)
	}
	return t.moveTo(valueobject.StatusDisputeOpen, now)
}

// ResolveDispute переводит сделку в итоговый статус по типу решения.
func (t *Transaction) ResolveDispute(resolution valueobject.Resolution, now time.Time) error {
	target := resolution.TransactionStatus()
	if err := t.expect(valueobject.StatusDisputeOpen, target); err != nil {
		return err
	}
	if target == valueobject.StatusCompleted {
		t.CompletedAt = timePtr(now)
	}
	return t.moveTo(target, now)
}

func (t *Transaction) Cancel(actorID uuid.UUID, now time.Time) error {
	if !t.IsParticipant(actorID) {
		return apperror.ErrNotParticipant
	}
	if !t.Status.IsPreHold() {
		return apperror.New(apperror.ErrCodeStateConflict, "отменить можно только сделку до удержания средств")
	}
	t.CancelledAt = timePtr(now)
	return t.moveTo(valueobject.StatusCancelled, now)
}

// IsExpirable сообщает, истёк ли срок ожидания оплаты или приглашения без покупателя.
func (t *Transaction) IsExpirable(now time.Time) bool {
	if !t.Status.IsPreHold() {
		return false
	}
	if !now.Before(t.PaymentExpiresAt) {
		return true
	}
	return !t.HasBuyer() && !now.Before(t.InviteExpiresAt)
}

func (t *Transaction) Expire(now time.Time) error {
	if !t.IsExpirable(now) {
		if !t.Status.IsPreHold() {
			return wrongStatus(t.Status)
		}
		return apperror.New(apperror.ErrCodeBadRequest, "срок ожидания оплаты ещё не истёк")
	}
	t.ExpiredAt = timePtr(now)
	return t.moveTo(valueobject.StatusExpired, now)
}

func (t *Transaction) expect(from, to valueobject.TransactionStatus) error {
	if t.Status != from || !from.CanTransitionTo(to) {
		return wrongStatus(t.Status)
	}
	return nil
}

func (t *Transaction) moveTo(status valueobject.TransactionStatus, now time.Time) error {
	if !t.Status.CanTransitionTo(status) {
		return wrongStatus(t.Status)
	}
	t.Status = status
	t.UpdatedAt = now
	return nil
}

func wrongStatus(current valueobject.TransactionStatus) error {
	return apperror.New(apperror.ErrCodeStateConflict, "операция недоступна в статусе "+string(current))
}

func timePtr(t time.Time) *time.Time {
	return &t
}

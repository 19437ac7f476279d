package valueobject

import (
	"fmt"
	"math"

	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

// FeePayer определяет, кто из сторон несёт комиссию площадки.
type FeePayer string

const (
	FeePayerBuyer  FeePayer = "BUYER"
	FeePayerSeller FeePayer = "SELLER"
	FeePayerSplit  FeePayer = "SPLIT"
)

func (p FeePayer) IsValid() bool {
	switch p {
	case FeePayerBuyer, FeePayerSeller, FeePayerSplit:
		return true
	}
	return false
}

func NewFeePayer(raw string) (FeePayer, error) {
	p := FeePayer(raw)
	if !p.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "плательщик комиссии должен быть BUYER, SELLER или SPLIT")
	}
	return p, nil
}

// MaxSettlementAmount верхняя граница суммы и комиссии, при которой amount*bp и суммы расчёта
// остаются в пределах int64 при любом проценте до 100.
const MaxSettlementAmount int64 = 100_000_000_000_000

// FeeSchedule тарифная сетка. Все суммы в целых единицах валюты, ноль в верхней границе означает отсутствие ограничения.
type FeeSchedule struct {
	Percent   float64
	MinFee    int64
	MaxFee    int64
	MinAmount int64
	MaxAmount int64
}

// Validate проверяет согласованность тарифной сетки.
func (s FeeSchedule) Validate() error {
	if s.Percent < 0 || s.Percent > 100 {
		return fmt.Errorf("процент комиссии вне диапазона 0..100: %v", s.Percent)
	}
	if s.MinFee < 0 || s.MaxFee < 0 || s.MinAmount < 0 || s.MaxAmount < 0 {
		return fmt.Errorf("границы тарифа не могут быть отрицательными")
	}
	if s.MinFee > MaxSettlementAmount || s.MaxFee > MaxSettlementAmount || s.MaxAmount > MaxSettlementAmount {
		return fmt.Errorf("границы тарифа не могут превышать %d", MaxSettlementAmount)
	}
	if s.MaxFee > 0 && s.MinFee > s.MaxFee {
		return fmt.Errorf("минимальная комиссия %d больше максимальной %d", s.MinFee, s.MaxFee)
	}
	if s.MaxAmount > 0 && s.MinAmount > s.MaxAmount {
		return fmt.Errorf("минимальная сумма сделки %d больше максимальной %d", s.MinAmount, s.MaxAmount)
	}
	return nil
}

// FeeBreakdown результат расчёта комиссии.
// BuyerTotal и SellerPayout считаются независимо и при SPLIT не обязаны совпадать с NetAmount.
type FeeBreakdown struct {
	FeePercent   float64 `json:"fee_percent"`
	FeeAmount    int64   `json:"fee_amount"`
	NetAmount    int64   `json:"net_amount"`
	BuyerTotal   int64   `json:"buyer_total"`
	SellerPayout int64   `json:"seller_payout"`
}

// CalculateFee чистая функция расчёта комиссии и сумм расчёта.
func CalculateFee(amount int64, payer FeePayer, schedule FeeSchedule) (FeeBreakdown, error) {
	if amount <= 0 {
		return FeeBreakdown{}, apperror.New(apperror.ErrCodeValidation, "сумма сделки должна быть положительной")
	}
	if amount < schedule.MinAmount {
		return FeeBreakdown{}, apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("сумма сделки меньше минимальной (%d)", schedule.MinAmount))
	}
	if amount > MaxSettlementAmount {
		return FeeBreakdown{}, apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("сумма сделки больше допустимой (%d)", MaxSettlementAmount))
	}
	if schedule.MaxAmount > 0 && amount > schedule.MaxAmount {
		return FeeBreakdown{}, apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("сумма сделки больше максимальной (%d)", schedule.MaxAmount))
	}
	if !payer.IsValid() {
		return FeeBreakdown{}, apperror.New(apperror.ErrCodeValidation, "некорректный плательщик комиссии")
	}

	fee := clampFee(rawFee(amount, schedule.Percent), schedule)
	out := FeeBreakdown{FeePercent: schedule.Percent, FeeAmount: fee}

	switch payer {
	case FeePayerBuyer:
		out.NetAmount = amount + fee
		out.BuyerTotal = out.NetAmount
		out.SellerPayout = amount
	case FeePayerSeller:
		out.NetAmount = amount - fee
		out.BuyerTotal = amount
		out.SellerPayout = out.NetAmount
	case FeePayerSplit:
		half := (fee + 1) / 2
		out.NetAmount = amount
		out.BuyerTotal = amount + half
		out.SellerPayout = amount - half
	}

	if out.SellerPayout <= 0 {
		return FeeBreakdown{}, apperror.New(apperror.ErrCodeInsufficientSettlement,
			"комиссия не меньше суммы сделки, продавцу нечего получать")
	}
	return out, nil
}

// rawFee = ceil(amount * percent / 100). Процент переводится в базисные пункты, чтобы избежать ошибок округления float.
func rawFee(amount int64, percent float64) int64 {
	bp := int64(math.Round(percent * 100))
	return (amount*bp + 9999) / 10000
}

func clampFee(fee int64, s FeeSchedule) int64 {
	if fee < s.MinFee {
		fee = s.MinFee
	}
	if s.MaxFee > 0 && fee > s.MaxFee {
		fee = s.MaxFee
	}
	return fee
}

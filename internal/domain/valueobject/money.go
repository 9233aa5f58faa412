package valueobject

import (
	"fmt"
	"math"

	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
)

const (
	basisPointsScale = 10000

	// MaxAmount ограничивает суммы так, чтобы amount*bps не переполнял int64.
	MaxAmount int64 = 100_000_000_000
)

// ValidateAmount проверяет денежную сумму в целых единицах валюты.
func ValidateAmount(field string, amount int64) error {
	if amount <= 0 {
		return apperror.Validation(field, "сумма должна быть положительной")
	}
	if amount > MaxAmount {
		return apperror.Validation(field, "сумма превышает допустимый максимум")
	}
	return nil
}

// CommissionRate хранит ставку комиссии в базисных пунктах (1% = 100).
type CommissionRate struct {
	BasisPoints int
	Version     int64
}

func NewCommissionRate(bps int) (CommissionRate, error) {
	if bps < 0 || bps > basisPointsScale {
		return CommissionRate{}, apperror.Validation("rate", "ставка комиссии должна быть от 0 до 1")
	}
	return CommissionRate{BasisPoints: bps}, nil
}

// CommissionRateFromDecimal переводит ставку вида 0.1 в базисные пункты.
// Точность ставки: 0.0001, более мелкие доли отклоняются.
func CommissionRateFromDecimal(rate float64) (CommissionRate, error) {
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return CommissionRate{}, apperror.Validation("rate", "ставка комиссии должна быть от 0 до 1")
	}
	scaled := rate * basisPointsScale
	bps := math.Round(scaled)
	if math.Abs(scaled-bps) > 1e-6 {
		return CommissionRate{}, apperror.Validation("rate", "точность ставки комиссии не больше 0.0001")
	}
	return NewCommissionRate(int(bps))
}

func (r CommissionRate) Decimal() float64 {
	return float64(r.BasisPoints) / basisPointsScale
}

func (r CommissionRate) String() string {
	return fmt.Sprintf("%.2f%% (v%d)", float64(r.BasisPoints)/100, r.Version)
}

// Split: результат разделения платежа между платформой и фрилансером.
type Split struct {
	Amount           int64
	Commission       int64
	FreelancerAmount int64
	Rate             CommissionRate
}

// Split считает комиссию с округлением половины вверх.
// Commission + FreelancerAmount всегда равно Amount.
func (r CommissionRate) Split(amount int64) Split {
	commission := (amount*int64(r.BasisPoints) + basisPointsScale/2) / basisPointsScale
	return Split{
		Amount:           amount,
		Commission:       commission,
		FreelancerAmount: amount - commission,
		Rate:             r,
	}
}

package settlement

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/logger"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
)

type GetCommissionRateUseCase struct {
	commission repository.CommissionRepository
}

func NewGetCommissionRateUseCase(commission repository.CommissionRepository) *GetCommissionRateUseCase {
	return &GetCommissionRateUseCase{commission: commission}
}

func (uc *GetCommissionRateUseCase) Execute(ctx context.Context) (valueobject.CommissionRate, error) {
	return uc.commission.Current(ctx)
}

type SetCommissionRateUseCase struct {
	commission repository.CommissionRepository
}

func NewSetCommissionRateUseCase(commission repository.CommissionRepository) *SetCommissionRateUseCase {
	return &SetCommissionRateUseCase{commission: commission}
}

// Execute сохраняет новую версию ставки. Уже проведённые платежи хранят свою версию.
func (uc *SetCommissionRateUseCase) Execute(ctx context.Context, adminID uuid.UUID, rate float64) (valueobject.CommissionRate, error) {
	parsed, err := valueobject.CommissionRateFromDecimal(rate)
	if err != nil {
		return valueobject.CommissionRate{}, err
	}
	created, err := uc.commission.Create(ctx, parsed, adminID)
	if err != nil {
		return valueobject.CommissionRate{}, err
	}
	logger.WithUser(adminID).WithField("rate", created.String()).Info("ставка комиссии изменена")
	return created, nil
}

// EnsureDefaultCommission создаёт первую версию ставки, если таблица пуста.
func EnsureDefaultCommission(ctx context.Context, commission repository.CommissionRepository, rate float64) (valueobject.CommissionRate, error) {
	current, err := commission.Current(ctx)
	if err == nil {
		return current, nil
	}
	if !apperror.IsNotFound(err) {
		return valueobject.CommissionRate{}, err
	}
	parsed, err := valueobject.CommissionRateFromDecimal(rate)
	if err != nil {
		return valueobject.CommissionRate{}, err
	}
	return commission.Create(ctx, parsed, uuid.Nil)
}

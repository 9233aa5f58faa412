package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/logger"
	"github.com/ignatzorin/gig-marketplace/internal/metrics"
)

const reconcileBatch = 100

type ReconcileReport struct {
	Checked int
	Settled int
	Failed  int
	Errors  int
}

// ReconcileGatewayPaymentsUseCase сверяет зависшие платежи со шлюзом,
// если уведомление от шлюза не пришло.
type ReconcileGatewayPaymentsUseCase struct {
	transactions repository.TransactionRepository
	gateway      repository.PaymentGateway
	callback     *GatewayCallbackUseCase
	minAge       time.Duration
	timeout      time.Duration
}

func NewReconcileGatewayPaymentsUseCase(transactions repository.TransactionRepository, gateway repository.PaymentGateway, callback *GatewayCallbackUseCase, minAge, timeout time.Duration) *ReconcileGatewayPaymentsUseCase {
	return &ReconcileGatewayPaymentsUseCase{
		transactions: transactions,
		gateway:      gateway,
		callback:     callback,
		minAge:       minAge,
		timeout:      timeout,
	}
}

func (uc *ReconcileGatewayPaymentsUseCase) Execute(ctx context.Context) (*ReconcileReport, error) {
	started := time.Now()
	report := &ReconcileReport{}

	stale, err := uc.transactions.ListStalePendingPayments(ctx, valueobject.PaymentMethodGateway, started.UTC().Add(-uc.minAge), reconcileBatch)
	if err != nil {
		metrics.RecordReconcile(time.Since(started), false)
		return nil, err
	}

	for _, payment := range stale {
		report.Checked++
		status, err := uc.verify(ctx, payment.Reference)
		if errors.Is(err, repository.ErrChargeNotFound) {
			// Шлюз так и не создал платёж: закрываем его, задание снова можно оплатить.
			status, err = &repository.ChargeStatus{Reference: payment.Reference, Status: repository.ChargeAbandoned}, nil
		}
		if err != nil {
			report.Errors++
			logger.Log.WithError(err).WithField("reference", payment.Reference).Warn("не удалось проверить платёж в шлюзе")
			continue
		}
		if status.Status == repository.ChargePending {
			continue
		}

		out, err := uc.callback.Execute(ctx, GatewayCallbackInput{
			Reference: payment.Reference,
			Status:    status.Status,
			Amount:    status.Amount,
		})
		if err != nil {
			report.Errors++
			logger.Log.WithError(err).WithField("reference", payment.Reference).Error("не удалось применить статус платежа")
			continue
		}
		switch {
		case out.Settlement != nil:
			report.Settled++
		case out.Transaction.Status == valueobject.TransactionStatusFailed:
			report.Failed++
		}
	}

	metrics.RecordReconcile(time.Since(started), report.Errors == 0)
	if report.Checked > 0 {
		logger.Log.WithFields(logrus.Fields{
			"checked": report.Checked,
			"settled": report.Settled,
			"failed":  report.Failed,
			"errors":  report.Errors,
		}).Info("сверка платежей завершена")
	}
	return report, nil
}

func (uc *ReconcileGatewayPaymentsUseCase) verify(ctx context.Context, reference string) (*repository.ChargeStatus, error) {
	callCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	return uc.gateway.VerifyCharge(callCtx, reference)
}

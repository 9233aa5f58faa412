package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/logger"
	"github.com/ignatzorin/gig-marketplace/internal/metrics"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/notification"
)

type PayForJobUseCase struct {
	tx       repository.Transactor
	ledger   *Ledger
	notifier notification.Notifier
}

func NewPayForJobUseCase(tx repository.Transactor, ledger *Ledger, notifier notification.Notifier) *PayForJobUseCase {
	return &PayForJobUseCase{tx: tx, ledger: ledger, notifier: notifier}
}

// Execute проводит оплату задания из кошелька: платёж, комиссия платформы,
// зачисления и агрегаты профилей выполняются одной транзакцией.
func (uc *PayForJobUseCase) Execute(ctx context.Context, jobID, clientID uuid.UUID) (*SettlementResult, error) {
	job, err := findClientJob(ctx, uc.ledger.Jobs, jobID, clientID)
	if err != nil {
		return nil, err
	}
	if err := job.EnsureStatus(valueobject.JobStatusWorkDone, "оплатить можно только выполненное задание"); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var result *SettlementResult
	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.ledger.complete(ctx, job.ID, valueobject.JobStatusWorkDone, now); err != nil {
			return err
		}
		payment := entity.NewPayment(job, valueobject.PaymentMethodWallet, valueobject.TransactionStatusCompleted, entity.PaymentReference(job.ID), now)
		if err := uc.ledger.Transactions.Create(ctx, payment); err != nil {
			return err
		}
		result, err = uc.ledger.distribute(ctx, job, payment, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	announceSettlement(ctx, uc.notifier, result, valueobject.PaymentMethodWallet)
	return result, nil
}

func announceSettlement(ctx context.Context, notifier notification.Notifier, result *SettlementResult, method valueobject.PaymentMethod) {
	metrics.RecordSettlement(string(method), result.Split.Amount, result.Split.Commission)
	logger.Log.WithFields(logrus.Fields{
		"job_id":         result.Job.ID,
		"transaction_id": result.Payment.ID,
		"amount":         result.Split.Amount,
		"commission":     result.Split.Commission,
		"rate":           result.Split.Rate.String(),
		"method":         method,
	}).Info("задание оплачено")

	data := map[string]any{
		"job_id":            result.Job.ID,
		"amount":            result.Split.Amount,
		"freelancer_amount": result.Split.FreelancerAmount,
	}
	notifier.Notify(ctx, result.Job.ClientID, notification.EventPaymentCompleted, data)
	if result.Job.FreelancerID != nil {
		notifier.Notify(ctx, *result.Job.FreelancerID, notification.EventPaymentCompleted, data)
	}
}

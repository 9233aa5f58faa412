package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/logger"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/notification"
)

const gatewayService = "payment_gateway"

type InitiateGatewayPaymentOutput struct {
	Transaction      *entity.Transaction
	AuthorizationURL string
}

type InitiateGatewayPaymentUseCase struct {
	tx          repository.Transactor
	ledger      *Ledger
	gateway     repository.PaymentGateway
	callbackURL string
	timeout     time.Duration
}

func NewInitiateGatewayPaymentUseCase(tx repository.Transactor, ledger *Ledger, gateway repository.PaymentGateway, callbackURL string, timeout time.Duration) *InitiateGatewayPaymentUseCase {
	return &InitiateGatewayPaymentUseCase{
		tx:          tx,
		ledger:      ledger,
		gateway:     gateway,
		callbackURL: callbackURL,
		timeout:     timeout,
	}
}

// Execute резервирует задание под оплату через шлюз и запрашивает ссылку на оплату.
// При ошибке шлюза платёж помечается failed, а задание возвращается в work_done.
func (uc *InitiateGatewayPaymentUseCase) Execute(ctx context.Context, jobID, clientID uuid.UUID) (*InitiateGatewayPaymentOutput, error) {
	job, err := findClientJob(ctx, uc.ledger.Jobs, jobID, clientID)
	if err != nil {
		return nil, err
	}
	if err := job.EnsureStatus(valueobject.JobStatusWorkDone, "оплатить можно только выполненное задание"); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	payment := entity.NewPayment(job, valueobject.PaymentMethodGateway, valueobject.TransactionStatusPending, entity.GatewayReference(), now)
	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := uc.ledger.Jobs.UpdateStatus(ctx, job.ID, valueobject.JobStatusWorkDone, valueobject.JobStatusWaitingForPayment, now)
		if err != nil {
			return err
		}
		if !ok {
			return stateLost(ctx, uc.ledger.Jobs, job.ID, "оплатить можно только выполненное задание")
		}
		return uc.ledger.Transactions.Create(ctx, payment)
	})
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	charge, err := uc.gateway.InitializeCharge(callCtx, repository.ChargeRequest{
		Reference:   payment.Reference,
		Amount:      payment.Amount,
		CustomerID:  clientID,
		CallbackURL: uc.callbackURL,
	})
	if err != nil {
		// Клиент мог отключиться: откат выполняется и после отмены запроса.
		if rollbackErr := revertPayment(context.WithoutCancel(ctx), uc.tx, uc.ledger, payment, "шлюз не создал платёж"); rollbackErr != nil {
			logger.Log.WithError(rollbackErr).WithField("transaction_id", payment.ID).Error("не удалось откатить платёж через шлюз")
		}
		return nil, apperror.DependencyFailure(err, gatewayService)
	}

	logger.Log.WithFields(logrus.Fields{
		"job_id":         job.ID,
		"transaction_id": payment.ID,
		"reference":      payment.Reference,
	}).Info("платёж через шлюз инициирован")
	return &InitiateGatewayPaymentOutput{Transaction: payment, AuthorizationURL: charge.AuthorizationURL}, nil
}

// revertPayment помечает ожидающий платёж failed и возвращает задание в work_done.
func revertPayment(ctx context.Context, tx repository.Transactor, ledger *Ledger, payment *entity.Transaction, reason string) error {
	return tx.WithinTx(ctx, func(ctx context.Context) error {
		return failPayment(ctx, ledger, payment, reason, time.Now().UTC())
	})
}

func failPayment(ctx context.Context, ledger *Ledger, payment *entity.Transaction, reason string, now time.Time) error {
	if _, err := ledger.Transactions.UpdateStatus(ctx, payment.ID, valueobject.TransactionStatusPending, valueobject.TransactionStatusFailed, &reason, now); err != nil {
		return err
	}
	if payment.JobID == nil {
		return nil
	}
	_, err := ledger.Jobs.UpdateStatus(ctx, *payment.JobID, valueobject.JobStatusWaitingForPayment, valueobject.JobStatusWorkDone, now)
	return err
}

type GatewayCallbackInput struct {
	Reference string
	Status    string
	Amount    int64
}

type GatewayCallbackOutput struct {
	Transaction *entity.Transaction
	// Duplicate: платёж уже был в конечном статусе, ничего не изменилось.
	Duplicate  bool
	Settlement *SettlementResult
	Refund     *entity.Transaction
}

type GatewayCallbackUseCase struct {
	tx       repository.Transactor
	ledger   *Ledger
	gateway  repository.PaymentGateway
	timeout  time.Duration
	notifier notification.Notifier
}

func NewGatewayCallbackUseCase(tx repository.Transactor, ledger *Ledger, gateway repository.PaymentGateway, timeout time.Duration, notifier notification.Notifier) *GatewayCallbackUseCase {
	return &GatewayCallbackUseCase{tx: tx, ledger: ledger, gateway: gateway, timeout: timeout, notifier: notifier}
}

// Execute применяет результат платежа из шлюза. Повторные уведомления ничего не меняют.
func (uc *GatewayCallbackUseCase) Execute(ctx context.Context, input GatewayCallbackInput) (*GatewayCallbackOutput, error) {
	switch input.Status {
	case repository.ChargeSuccess, repository.ChargeFailed, repository.ChargeAbandoned, repository.ChargePending:
	default:
		return nil, apperror.Validation("status", "неизвестный статус платежа")
	}

	now := time.Now().UTC()
	out := &GatewayCallbackOutput{}
	var failure string
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		payment, err := uc.ledger.Transactions.LockByReference(ctx, input.Reference)
		if err != nil {
			return err
		}
		if payment.Type != valueobject.TransactionTypePayment || payment.JobID == nil {
			return apperror.ErrTransactionNotFound
		}
		out.Transaction = payment
		if payment.Status.IsTerminal() {
			if payment.Status != valueobject.TransactionStatusFailed || input.Status != repository.ChargeSuccess {
				out.Duplicate = true
				return nil
			}
			// Шлюз списал деньги по платежу, который мы уже сочли неудачным.
			out.Refund = entity.NewRefund(payment, now)
			err := uc.ledger.Transactions.Create(ctx, out.Refund)
			if apperror.CodeOf(err) == apperror.ErrCodeConflict {
				out.Refund = nil
				out.Duplicate = true
				return nil
			}
			return err
		}

		switch {
		case input.Status == repository.ChargePending:
			return nil
		case input.Status != repository.ChargeSuccess:
			failure = "платёж отклонён шлюзом: " + input.Status
			return failPayment(ctx, uc.ledger, payment, failure, now)
		case input.Amount != payment.Amount:
			failure = fmt.Sprintf("сумма платежа %d не совпадает с ожидаемой %d", input.Amount, payment.Amount)
			return failPayment(ctx, uc.ledger, payment, failure, now)
		}

		if _, err := uc.ledger.Transactions.UpdateStatus(ctx, payment.ID, valueobject.TransactionStatusPending, valueobject.TransactionStatusCompleted, nil, now); err != nil {
			return err
		}
		payment.Status = valueobject.TransactionStatusCompleted
		payment.CompletedAt = &now

		settled, err := uc.ledger.Jobs.UpdateStatus(ctx, *payment.JobID, valueobject.JobStatusWaitingForPayment, valueobject.JobStatusCompleted, now)
		if err != nil {
			return err
		}
		if !settled {
			// Деньги пришли, но задание уже рассчитано или отменено: возвращаем клиенту.
			out.Refund = entity.NewRefund(payment, now)
			return uc.ledger.Transactions.Create(ctx, out.Refund)
		}

		job, err := uc.ledger.Jobs.FindByID(ctx, *payment.JobID)
		if err != nil {
			return err
		}
		out.Settlement, err = uc.ledger.distribute(ctx, job, payment, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	entry := logger.Log.WithFields(logrus.Fields{
		"transaction_id": out.Transaction.ID,
		"reference":      input.Reference,
		"status":         input.Status,
	})
	switch {
	case out.Duplicate:
		entry.Info("повторное уведомление шлюза проигнорировано")
	case out.Settlement != nil:
		announceSettlement(ctx, uc.notifier, out.Settlement, valueobject.PaymentMethodGateway)
	case out.Refund != nil:
		entry.Warn("поздний платёж, оформлен возврат")
		uc.refund(ctx, out.Transaction.Reference, out.Refund)
	case failure != "":
		entry.WithField("reason", failure).Warn("платёж через шлюз не прошёл")
		uc.notifier.Notify(ctx, out.Transaction.UserID, notification.EventPaymentFailed, map[string]any{
			"job_id": out.Transaction.JobID,
			"reason": failure,
		})
	}

	if out.Transaction, err = uc.ledger.Transactions.FindByID(ctx, out.Transaction.ID); err != nil {
		return nil, err
	}
	return out, nil
}

// refund запрашивает возврат у шлюза. При ошибке возврат остаётся pending.
func (uc *GatewayCallbackUseCase) refund(ctx context.Context, paymentRef string, refund *entity.Transaction) {
	ctx = context.WithoutCancel(ctx)
	callCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	if err := uc.gateway.Refund(callCtx, paymentRef, refund.Amount); err != nil {
		logger.Log.WithError(err).WithField("transaction_id", refund.ID).Warn("шлюз не принял возврат")
		return
	}
	now := time.Now().UTC()
	if _, err := uc.ledger.Transactions.UpdateStatus(ctx, refund.ID, valueobject.TransactionStatusPending, valueobject.TransactionStatusCompleted, nil, now); err != nil {
		logger.Log.WithError(err).WithField("transaction_id", refund.ID).Error("не удалось завершить возврат")
		return
	}
	refund.Status = valueobject.TransactionStatusCompleted
	refund.CompletedAt = &now
}

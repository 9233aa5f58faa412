package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gig-marketplace/internal/goroutine"
	"github.com/ignatzorin/gig-marketplace/internal/logger"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/settlement"
)

// Reconciler: сверка зависших платежей шлюза.
type Reconciler interface {
	Execute(ctx context.Context) (*settlement.ReconcileReport, error)
}

// Scheduler запускает фоновые задачи по cron расписанию.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	timeout time.Duration
}

func New(ctx context.Context, timeout time.Duration) *Scheduler {
	return &Scheduler{
		// Пропускаем запуск, если предыдущий ещё не завершился.
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:     ctx,
		timeout: timeout,
	}
}

// AddReconcile регистрирует сверку платежей по расписанию spec ("@every 5m", "*/10 * * * *").
func (s *Scheduler) AddReconcile(spec string, reconciler Reconciler) error {
	_, err := s.cron.AddFunc(spec, func() {
		defer goroutine.Recover("scheduler.reconcile")
		s.runReconcile(reconciler)
	})
	if err != nil {
		return fmt.Errorf("scheduler: неверное расписание %q: %w", spec, err)
	}
	logger.Log.WithField("schedule", spec).Info("сверка платежей запланирована")
	return nil
}

func (s *Scheduler) runReconcile(reconciler Reconciler) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	report, err := reconciler.Execute(ctx)
	if err != nil {
		logger.Log.WithError(err).Error("сверка платежей не выполнена")
		return
	}
	if report.Errors > 0 {
		logger.Log.WithFields(logrus.Fields{
			"checked": report.Checked,
			"errors":  report.Errors,
		}).Warn("сверка платежей завершилась с ошибками")
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop останавливает расписание и ждёт завершения запущенных задач.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

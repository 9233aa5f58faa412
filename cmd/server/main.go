package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gig-marketplace/internal/config"
	"github.com/ignatzorin/gig-marketplace/internal/db"
	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
	"github.com/ignatzorin/gig-marketplace/internal/goroutine"
	"github.com/ignatzorin/gig-marketplace/internal/http/middleware"
	httpRouter "github.com/ignatzorin/gig-marketplace/internal/http/router"
	"github.com/ignatzorin/gig-marketplace/internal/infrastructure/gateway"
	"github.com/ignatzorin/gig-marketplace/internal/infrastructure/identity"
	"github.com/ignatzorin/gig-marketplace/internal/infrastructure/persistence"
	"github.com/ignatzorin/gig-marketplace/internal/interface/http/handler"
	"github.com/ignatzorin/gig-marketplace/internal/logger"
	"github.com/ignatzorin/gig-marketplace/internal/scheduler"
	"github.com/ignatzorin/gig-marketplace/internal/service"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/job"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/notification"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/offer"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/settlement"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/user"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/wallet"
	"github.com/ignatzorin/gig-marketplace/internal/ws"
)

const reconcileTimeout = 2 * time.Minute

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init(cfg.LogLevel, cfg.Env)

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	applied, err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath)
	if err != nil {
		logger.Log.Fatalf("main: ошибка миграций: %v", err)
	}
	logger.Log.WithField("applied", len(applied)).Info("миграции проверены")

	// Репозитории.
	tx := persistence.NewTransactor(dbConn)
	users := persistence.NewUserRepositoryAdapter(dbConn)
	profiles := persistence.NewProfileRepositoryAdapter(dbConn)
	jobs := persistence.NewJobRepositoryAdapter(dbConn)
	offers := persistence.NewOfferRepositoryAdapter(dbConn)
	transactions := persistence.NewTransactionRepositoryAdapter(dbConn)
	wallets := persistence.NewWalletRepositoryAdapter(dbConn)
	commission := persistence.NewCommissionRepositoryAdapter(dbConn)
	notifications := persistence.NewNotificationRepositoryAdapter(dbConn)

	// Комиссия зачисляется на системный аккаунт, без него расчёт невозможен.
	if _, err := users.FindByID(ctx, cfg.PlatformAccountID); err != nil {
		logger.Log.Fatalf("main: системный аккаунт %s недоступен: %v", cfg.PlatformAccountID, err)
	}
	rate, err := settlement.EnsureDefaultCommission(ctx, commission, cfg.CommissionRate)
	if err != nil {
		logger.Log.Fatalf("main: не удалось подготовить ставку комиссии: %v", err)
	}
	logger.Log.WithField("rate", rate.String()).Info("текущая ставка комиссии")

	// Вебсокеты и уведомления.
	hub := ws.NewHub(ctx)
	hub.SetNotificationSaver(notification.NewSaver(notifications))
	goroutine.SafeGo("ws.hub", hub.Run)
	notifier := notification.NewPublisher(hub)

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	var verifier repository.IdentityVerifier
	if cfg.IdentityVerifyURL != "" {
		verifier = identity.NewHTTPVerifier(cfg.IdentityVerifyURL, cfg.IdentityAPIKey, cfg.IdentityTimeout)
	} else {
		logger.Log.Warn("IDENTITY_VERIFY_URL не задан: вход по токенам вида dev:<телефон>")
		verifier = identity.DevVerifier{}
	}

	ledger := &settlement.Ledger{
		Jobs:         jobs,
		Transactions: transactions,
		Wallets:      wallets,
		Commission:   commission,
		Profiles:     profiles,
		PlatformID:   cfg.PlatformAccountID,
	}

	var (
		signatures middleware.SignatureVerifier
		initiate   *settlement.InitiateGatewayPaymentUseCase
		callback   *settlement.GatewayCallbackUseCase
		cronJobs   *scheduler.Scheduler
	)
	if cfg.GatewayEnabled() {
		gw := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewaySecretKey, cfg.GatewayRPS, cfg.GatewayTimeout)
		signatures = gw
		initiate = settlement.NewInitiateGatewayPaymentUseCase(tx, ledger, gw, cfg.GatewayCallbackURL, cfg.GatewayTimeout)
		callback = settlement.NewGatewayCallbackUseCase(tx, ledger, gw, cfg.GatewayTimeout, notifier)

		cronJobs = scheduler.New(ctx, reconcileTimeout)
		reconcile := settlement.NewReconcileGatewayPaymentsUseCase(transactions, gw, callback, cfg.ReconcileMinAge, cfg.GatewayTimeout)
		if err := cronJobs.AddReconcile(cfg.ReconcileSchedule, reconcile); err != nil {
			logger.Log.Fatalf("main: %v", err)
		}
		cronJobs.Start()
	} else {
		logger.Log.Info("платёжный шлюз не настроен: доступна только прямая оплата")
	}

	switcher := user.NewSwitchRoleUseCase(tx, users, jobs, notifier)

	// HTTP хэндлеры.
	handlers := httpRouter.Handlers{
		Auth: handler.NewAuthHandler(handler.AuthUseCases{
			PhoneLogin:      user.NewPhoneLoginUseCase(tx, users, profiles, verifier, switcher, tokenManager, cfg.IdentityTimeout),
			AdminLogin:      user.NewAdminLoginUseCase(users, tokenManager),
			Refresh:         user.NewRefreshUseCase(users, tokenManager),
			ValidateSwitch:  user.NewValidateRoleSwitchUseCase(users, jobs),
			SwitchRole:      switcher,
			GetMe:           user.NewGetMeUseCase(users, profiles, wallets),
			SetVerification: user.NewSetVerificationUseCase(profiles),
			Tokens:          tokenManager,
		}),
		Jobs: handler.NewJobHandler(handler.JobUseCases{
			Create:    job.NewCreateJobUseCase(tx, users, profiles, jobs),
			Get:       job.NewGetJobUseCase(jobs),
			ListOpen:  job.NewListOpenJobsUseCase(jobs),
			ListMy:    job.NewListMyJobsUseCase(jobs),
			Delete:    job.NewDeleteJobUseCase(jobs),
			Cancel:    job.NewCancelJobUseCase(tx, jobs, offers, notifier),
			SetActive: job.NewSetJobActiveUseCase(jobs),
			WorkDone:  job.NewMarkWorkDoneUseCase(jobs, notifier),
		}),
		Offers: handler.NewOfferHandler(handler.OfferUseCases{
			Submit:   offer.NewSubmitOfferUseCase(tx, users, profiles, jobs, offers, notifier),
			Respond:  offer.NewRespondToOfferUseCase(tx, users, jobs, offers, notifier),
			Withdraw: offer.NewWithdrawOfferUseCase(jobs, offers, notifier),
			Get:      offer.NewGetOfferUseCase(offers),
			ListJob:  offer.NewListJobOffersUseCase(jobs, offers),
			ListMy:   offer.NewListMyOffersUseCase(offers),
		}),
		Payments: handler.NewPaymentHandler(settlement.NewPayForJobUseCase(tx, ledger, notifier), initiate, callback),
		Wallet: handler.NewWalletHandler(handler.WalletUseCases{
			Get:             wallet.NewGetWalletUseCase(wallets),
			Transactions:    wallet.NewListTransactionsUseCase(transactions),
			Withdraw:        wallet.NewRequestWithdrawalUseCase(tx, users, wallets, transactions),
			Resolve:         wallet.NewResolveWithdrawalUseCase(tx, wallets, transactions, notifier),
			ListWithdrawals: wallet.NewListWithdrawalsUseCase(transactions),
			GetCommission:   settlement.NewGetCommissionRateUseCase(commission),
			SetCommission:   settlement.NewSetCommissionRateUseCase(commission),
		}),
		Notification: handler.NewNotificationHandler(
			notification.NewListNotificationsUseCase(notifications),
			notification.NewMarkReadUseCase(notifications),
		),
		WS:     handler.NewWSHandler(hub, cfg.AllowedOrigins),
		Health: handler.NewHealthHandler(dbConn),
	}

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, handlers, tokenManager, signatures)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGo("http.shutdown", func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Error("main: ошибка остановки http сервера")
		}
	})

	logger.Log.WithField("port", cfg.HTTPPort).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}

	if cronJobs != nil {
		cronJobs.Stop()
	}
	logger.Log.Info("main: сервер остановлен")
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Log.WithError(err).Error("main: ошибка закрытия базы")
	}
}

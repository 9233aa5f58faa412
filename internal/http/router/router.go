package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/gig-marketplace/internal/config"
	"github.com/ignatzorin/gig-marketplace/internal/http/middleware"
	"github.com/ignatzorin/gig-marketplace/internal/infrastructure/gateway"
	"github.com/ignatzorin/gig-marketplace/internal/interface/http/handler"
	"github.com/ignatzorin/gig-marketplace/internal/metrics"
)

type Handlers struct {
	Auth         *handler.AuthHandler
	Jobs         *handler.JobHandler
	Offers       *handler.OfferHandler
	Payments     *handler.PaymentHandler
	Wallet       *handler.WalletHandler
	Notification *handler.NotificationHandler
	WS           *handler.WSHandler
	Health       *handler.HealthHandler
}

const (
	roleClient     = "client"
	roleFreelancer = "freelancer"
	roleAdmin      = "admin"
)

// SetupRouter собирает gin.Engine. signatures равен nil, если платёжный шлюз не настроен.
func SetupRouter(cfg *config.Config, h Handlers, tokens middleware.AccessTokenParser, signatures middleware.SignatureVerifier) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RequestLogger())
	r.Use(metrics.Middleware())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	auth := middleware.AuthMiddleware(tokens)
	id := middleware.UUIDValidator("id")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/phone", h.Auth.PhoneLogin)
		authGroup.POST("/admin/login", h.Auth.AdminLogin)
		authGroup.POST("/refresh", h.Auth.Refresh)
	}

	// Публичный каталог заданий.
	api.GET("/jobs", h.Jobs.ListOpenJobs)

	protected := api.Group("")
	protected.Use(auth)
	{
		protected.GET("/profile", h.Auth.GetMe)
		protected.GET("/users/me/role-check", h.Auth.RoleCheck)
		protected.PUT("/users/me/role", h.Auth.SwitchRole)

		jobs := protected.Group("/jobs")
		jobs.GET("/my", h.Jobs.ListMyJobs)
		jobs.POST("", middleware.RequireRole(roleClient), h.Jobs.CreateJob)
		jobs.DELETE("/:id", id, middleware.RequireRole(roleClient), h.Jobs.DeleteJob)
		jobs.POST("/:id/cancel", id, middleware.RequireRole(roleClient), h.Jobs.CancelJob)
		jobs.PUT("/:id/active", id, middleware.RequireRole(roleClient), h.Jobs.SetJobActive)
		jobs.POST("/:id/work-done", id, middleware.RequireRole(roleFreelancer), h.Jobs.MarkWorkDone)
		jobs.POST("/:id/offers", id, middleware.RequireRole(roleFreelancer), h.Offers.SubmitOffer)
		jobs.GET("/:id/offers", id, h.Offers.ListJobOffers)
		jobs.POST("/:id/pay", id, middleware.RequireRole(roleClient), h.Payments.PayForJob)
		jobs.POST("/:id/pay/gateway", id, middleware.RequireRole(roleClient), h.Payments.InitiateGatewayPayment)

		offers := protected.Group("/offers")
		offers.GET("/my", middleware.RequireRole(roleFreelancer), h.Offers.ListMyOffers)
		offers.GET("/:id", id, h.Offers.GetOffer)
		offers.POST("/:id/respond", id, middleware.RequireRole(roleClient), h.Offers.RespondToOffer)
		offers.POST("/:id/withdraw", id, middleware.RequireRole(roleFreelancer), h.Offers.WithdrawOffer)

		protected.GET("/wallet", h.Wallet.GetWallet)
		protected.GET("/wallet/transactions", h.Wallet.ListTransactions)
		protected.POST("/withdrawals", middleware.RequireRole(roleFreelancer), h.Wallet.RequestWithdrawal)
		protected.GET("/withdrawals", h.Wallet.ListMyWithdrawals)

		protected.GET("/notifications", h.Notification.List)
		protected.PUT("/notifications/:id/read", id, h.Notification.MarkRead)

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireRole(roleAdmin))
		admin.GET("/withdrawals", h.Wallet.ListWithdrawals)
		admin.POST("/withdrawals/:id/resolve", id, h.Wallet.ResolveWithdrawal)
		admin.GET("/commission", h.Wallet.GetCommission)
		admin.PUT("/commission", h.Wallet.SetCommission)
		admin.PUT("/users/:id/verification", id, h.Auth.SetVerification)
	}

	api.GET("/jobs/:id", id, h.Jobs.GetJob)

	if signatures != nil {
		callback := api.Group("/payments")
		callback.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit*10, cfg.RateLimitPeriod))
		callback.POST("/callback", middleware.GatewaySignature(signatures, gateway.SignatureHeader), h.Payments.GatewayCallback)
	}

	if h.WS != nil {
		api.GET("/ws", middleware.QueryTokenAuth(tokens), h.WS.Handle)
	}

	return r
}

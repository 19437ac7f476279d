package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignatzorin/escrow-backend/internal/config"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/http/middleware"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/handler"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

// Handlers все HTTP-обработчики сервиса.
type Handlers struct {
	Transaction *handler.TransactionHandler
	Dispute     *handler.DisputeHandler
	Chat        *handler.ChatHandler
	Admin       *handler.AdminHandler
	Upload      *handler.UploadHandler
	WS          *handler.WSHandler
	Health      *handler.HealthHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokenManager *service.TokenManager) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestLogger())
	r.Use(gin.Recovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.ErrorHandler())

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.StaticFS(cfg.MediaBaseURL, http.Dir(cfg.MediaStoragePath))

	api := r.Group("/api")

	// Публичные маршруты
	api.GET("/fees/quote", h.Transaction.QuoteFee)
	api.GET("/transactions/invite/:inviteCode", h.Transaction.PreviewInvite)
	api.GET("/ws", h.WS.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/transactions", h.Transaction.Create)
		protected.GET("/transactions", h.Transaction.ListMine)
		protected.GET("/transactions/:id", middleware.UUIDValidator("id"), h.Transaction.Get)
		protected.POST("/transactions/join/:inviteCode",
			middleware.RateLimitMiddleware(cfg.JoinRateLimit, cfg.JoinRatePeriod),
			h.Transaction.Join)

		protected.POST("/transactions/:id/slip", middleware.UUIDValidator("id"), h.Transaction.SubmitSlip)
		protected.GET("/transactions/:id/slips", middleware.UUIDValidator("id"), h.Transaction.ListSlips)
		protected.POST("/transactions/:id/deliver", middleware.UUIDValidator("id"), h.Transaction.ConfirmDelivery)
		protected.POST("/transactions/:id/accept", middleware.UUIDValidator("id"), h.Transaction.AcceptDelivery)
		protected.POST("/transactions/:id/cancel", middleware.UUIDValidator("id"), h.Transaction.Cancel)

		protected.POST("/transactions/:id/dispute", middleware.UUIDValidator("id"), h.Dispute.Open)
		protected.GET("/transactions/:id/disputes", middleware.UUIDValidator("id"), h.Dispute.ListByTransaction)
		protected.GET("/disputes/:id", middleware.UUIDValidator("id"), h.Dispute.Get)

		// Чат
		protected.GET("/transactions/:id/messages", middleware.UUIDValidator("id"), h.Chat.ListMessages)
		protected.POST("/transactions/:id/messages", middleware.UUIDValidator("id"), h.Chat.SendMessage)
		protected.POST("/transactions/:id/messages/read", middleware.UUIDValidator("id"), h.Chat.MarkRead)
		protected.GET("/transactions/:id/unread", middleware.UUIDValidator("id"), h.Chat.UnreadForTransaction)
		protected.DELETE("/messages/:id", middleware.UUIDValidator("id"), h.Chat.DeleteMessage)
		protected.GET("/messages/unread", h.Chat.UnreadTotal)
		protected.GET("/users/:id/presence", middleware.UUIDValidator("id"), h.Chat.Presence)

		protected.POST("/uploads", h.Upload.Upload)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireRole(valueobject.RoleAdmin))
	{
		admin.GET("/transactions", h.Admin.ListTransactions)
		admin.POST("/transactions/:id/verify-payment", middleware.UUIDValidator("id"), h.Admin.VerifyPayment)
		admin.GET("/disputes", h.Admin.ListDisputes)
		admin.POST("/disputes/:id/review", middleware.UUIDValidator("id"), h.Admin.StartReview)
		admin.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), h.Admin.ResolveDispute)
	}

	return r
}

package controller

import (
	"time"

	"github.com/cassiomorais/gateway/internal/domain/transaction"
	"github.com/cassiomorais/gateway/internal/infrastructure/config"
	"github.com/cassiomorais/gateway/internal/infrastructure/observability"
	customMW "github.com/cassiomorais/gateway/internal/middleware"
	"github.com/cassiomorais/gateway/internal/notification"
	"github.com/cassiomorais/gateway/internal/paymenttype"
	"github.com/cassiomorais/gateway/internal/repository/postgres"
	"github.com/cassiomorais/gateway/internal/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RouterDeps struct {
	Pool                *pgxpool.Pool
	RedisClient         *redis.Client
	TransactionRepo     transaction.Repository
	Registry            *paymenttype.Registry
	CheckoutService     *service.CheckoutService
	ModificationService *service.ModificationService
	Pipeline            *notification.Pipeline
	Producer            NotificationProducer
	IdempotencyRepo     *postgres.IdempotencyRepository
	Metrics             *observability.Metrics
	ServerConfig        config.ServerConfig
	Logger              zerolog.Logger
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.ServerConfig.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.ServerConfig.CORS.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	notificationH := NewNotificationController(deps.Pipeline, deps.Producer, deps.Metrics, deps.Logger)
	checkoutH := NewCheckoutController(deps.CheckoutService, deps.Registry, deps.Metrics)
	orderH := NewOrderController(deps.ModificationService, deps.TransactionRepo, deps.Metrics)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	// The gateway posts notifications here. No rate limiting: a throttled
	// notification would be retried and block the order's event queue.
	r.Post("/gateway/notification", notificationH.Receive)

	r.Route("/api/v1", func(r chi.Router) {
		if deps.ServerConfig.RateLimitPerMinute > 0 {
			r.Use(customMW.RateLimit(deps.ServerConfig.RateLimitPerMinute))
		}

		idempotencyMW := customMW.Idempotency(deps.IdempotencyRepo)

		// Checkout
		r.Get("/checkout/payment-types", checkoutH.ListPaymentTypes)
		r.Post("/checkout/{orderNumber}/payment-type", checkoutH.SelectPaymentType)
		r.Post("/checkout/{orderNumber}/authorize", checkoutH.Authorize)
		r.Get("/checkout/{orderNumber}/redirect", checkoutH.Redirect)

		// Order modifications
		r.With(idempotencyMW).Post("/orders/{orderNumber}/capture", orderH.Capture)
		r.With(idempotencyMW).Post("/orders/{orderNumber}/refund", orderH.Refund)
		r.Get("/orders/{orderNumber}/transactions", orderH.ListTransactions)
	})

	return r
}

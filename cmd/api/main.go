package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cassiomorais/gateway/internal/bootstrap"
	"github.com/cassiomorais/gateway/internal/controller"
	"github.com/cassiomorais/gateway/internal/domain/transaction"
	"github.com/cassiomorais/gateway/internal/gateway"
	infraRedis "github.com/cassiomorais/gateway/internal/infrastructure/redis"
	"github.com/cassiomorais/gateway/internal/notification"
	"github.com/cassiomorais/gateway/internal/paymenttype"
	"github.com/cassiomorais/gateway/internal/repository/postgres"
	"github.com/cassiomorais/gateway/internal/service"
	"github.com/sony/gobreaker/v2"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "gateway-api", "gateway")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	gwCfg := app.Config.Gateway

	// --- Repositories ---
	orderRepo := postgres.NewOrderRepository(app.Pool)
	transactionRepo := postgres.NewTransactionRepository(app.Pool)
	idempotencyRepo := postgres.NewIdempotencyRepository(app.Pool)

	// --- Gateway collaborators ---
	client := gateway.NewHTTPClient(gateway.Config{
		Environment:    gwCfg.Mode,
		ClientUser:     gwCfg.ClientUser,
		ClientPassword: gwCfg.ClientPassword,
		BaseURL:        gwCfg.EndpointURL,
		Timeout:        gwCfg.RequestTimeout,
		OnBreakerStateChange: func(name string, from, to gobreaker.State) {
			app.Metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			app.Logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	})
	signer := gateway.NewHMACSigner(gwCfg.HMACKey)
	locker := infraRedis.NewLocker(app.Redis, gwCfg.LockTTL)

	typeConfigs := make(map[string]paymenttype.Config, len(gwCfg.PaymentTypes))
	for id, cfg := range gwCfg.PaymentTypes {
		typeConfigs[id] = paymenttype.Config(cfg)
	}
	registry := paymenttype.NewRegistry(
		[]paymenttype.Descriptor{paymenttype.OpenInvoiceDescriptor()},
		typeConfigs,
	)

	// --- Services ---
	modificationService := service.NewModificationService(transactionRepo, client, gwCfg.MerchantAccount, app.Logger)
	checkoutService := service.NewCheckoutService(
		orderRepo,
		transactionRepo,
		registry,
		client,
		signer,
		locker,
		modificationService,
		service.CheckoutConfig{
			MerchantAccount:    gwCfg.MerchantAccount,
			SkinCode:           gwCfg.SkinCode,
			ShopperLocale:      gwCfg.ShopperLocale,
			RecurringContract:  gwCfg.RecurringContract,
			DefaultPaymentType: gwCfg.DefaultPaymentType,
			UseCheckoutForm:    gwCfg.UseCheckoutForm,
			AuthorizeForcibly:  gwCfg.AuthorizeForcibly,
		},
		app.Logger,
	)

	// --- Notification pipeline ---
	dispatcher := notification.NewStateDispatcher(transactionRepo, locker, postgres.NewTxManager(app.Pool), app.Logger)
	dispatcher.OnTransition = func(txType transaction.Type, to transaction.Status) {
		app.Metrics.TransactionTransitions.WithLabelValues(string(txType), string(to)).Inc()
	}
	pipeline := notification.NewPipeline(orderRepo, dispatcher, app.Logger)
	producer := infraRedis.NewStreamProducer(app.Redis)

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:                app.Pool,
		RedisClient:         app.Redis,
		TransactionRepo:     transactionRepo,
		Registry:            registry,
		CheckoutService:     checkoutService,
		ModificationService: modificationService,
		Pipeline:            pipeline,
		Producer:            producer,
		IdempotencyRepo:     idempotencyRepo,
		Metrics:             app.Metrics,
		ServerConfig:        app.Config.Server,
		Logger:              app.Logger,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cassiomorais/gateway/internal/bootstrap"
	"github.com/cassiomorais/gateway/internal/domain/transaction"
	infraRedis "github.com/cassiomorais/gateway/internal/infrastructure/redis"
	"github.com/cassiomorais/gateway/internal/notification"
	"github.com/cassiomorais/gateway/internal/repository/postgres"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// The worker drains the notification stream the API buffered: each payload
// runs through the same pipeline the inline path uses. The gateway was
// already acknowledged at receive time, so a permanently failing payload
// goes to the DLQ instead of being retried forever.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "gateway-worker", "gateway_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Pipeline ---
	orderRepo := postgres.NewOrderRepository(app.Pool)
	transactionRepo := postgres.NewTransactionRepository(app.Pool)
	locker := infraRedis.NewLocker(app.Redis, app.Config.Gateway.LockTTL)
	dispatcher := notification.NewStateDispatcher(transactionRepo, locker, postgres.NewTxManager(app.Pool), app.Logger)
	dispatcher.OnTransition = func(txType transaction.Type, to transaction.Status) {
		app.Metrics.TransactionTransitions.WithLabelValues(string(txType), string(to)).Inc()
	}
	pipeline := notification.NewPipeline(orderRepo, dispatcher, app.Logger)
	producer := infraRedis.NewStreamProducer(app.Redis)

	// --- Notification stream consumer ---
	workerCfg := app.Config.Worker
	consumer := infraRedis.NewStreamConsumer(
		app.Redis,
		infraRedis.NotificationStream,
		workerCfg.ConsumerGroup,
		app.Config.InstanceID,
		workerCfg.BatchSize,
		workerCfg.BlockDuration,
	)
	if err := consumer.CreateGroup(ctx); err != nil {
		app.Logger.Error().Err(err).Msg("Failed to create consumer group (may already exist)")
	}

	app.Logger.Info().
		Str("stream", infraRedis.NotificationStream).
		Str("group", workerCfg.ConsumerGroup).
		Str("consumer", app.Config.InstanceID).
		Msg("Worker started, listening for notifications...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runNotificationProcessor(gCtx, app, consumer, pipeline, producer)
	})

	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}

func runNotificationProcessor(
	ctx context.Context,
	app *bootstrap.App,
	consumer *infraRedis.StreamConsumer,
	pipeline *notification.Pipeline,
	producer *infraRedis.StreamProducer,
) error {
	logger := app.Logger
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		streams, err := consumer.Read(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to read from stream")
			time.Sleep(1 * time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				processMessage(ctx, app, pipeline, producer, logger, msg.Values)
				consumer.Ack(ctx, msg.ID)
			}
		}
	}
}

func processMessage(
	ctx context.Context,
	app *bootstrap.App,
	pipeline *notification.Pipeline,
	producer *infraRedis.StreamProducer,
	logger zerolog.Logger,
	values map[string]any,
) {
	start := time.Now()
	defer func() {
		app.Metrics.WorkerProcessingDuration.WithLabelValues(infraRedis.NotificationStream).Observe(time.Since(start).Seconds())
	}()

	payload, _ := values["payload"].(string)
	var raw map[string]string
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		logger.Error().Err(err).Msg("Unreadable stream payload")
		producer.PublishToDLQ(ctx, "unreadable_payload", map[string]string{"payload": payload})
		app.Metrics.WorkerMessagesProcessed.WithLabelValues(infraRedis.NotificationStream, "malformed").Inc()
		return
	}

	res := pipeline.Process(ctx, raw)
	outcome := notification.Classify(res.Err)

	app.Metrics.NotificationsTotal.WithLabelValues(res.Event.EventCode, outcome).Inc()
	app.Metrics.NotificationDuration.WithLabelValues(res.Event.EventCode).Observe(time.Since(start).Seconds())

	if res.Err != nil {
		app.Metrics.NotificationFailures.WithLabelValues(outcome).Inc()
		app.Metrics.WorkerMessagesProcessed.WithLabelValues(infraRedis.NotificationStream, "failed").Inc()
		// Every failure here is terminal for the stream entry: the event was
		// acknowledged towards the gateway long ago, so park it for operators.
		producer.PublishToDLQ(ctx, outcome, raw)
		return
	}

	app.Metrics.WorkerMessagesProcessed.WithLabelValues(infraRedis.NotificationStream, "success").Inc()
}

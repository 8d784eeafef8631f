package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/agent-dashboard/internal/cache"
	"github.com/magabrotheeeer/agent-dashboard/internal/config"
	"github.com/magabrotheeeer/agent-dashboard/internal/lib/sl"
	"github.com/magabrotheeeer/agent-dashboard/internal/rabbitmq"
	expirerservice "github.com/magabrotheeeer/agent-dashboard/internal/services/expirer"
	subservice "github.com/magabrotheeeer/agent-dashboard/internal/services/subscription"
	"github.com/magabrotheeeer/agent-dashboard/internal/storage/repository"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger.Info("starting subscription-expirer", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		logger.Error("failed to connect to storage", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = db.DB.Close()
	}()

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		logger.Error("failed to connect to redis", sl.Err(err))
		os.Exit(1)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", sl.Err(err))
		os.Exit(1)
	}
	logger.Info("success to connect to RabbitMQ:", slog.String("URL", cfg.RabbitMQURL))
	defer func() {
		_ = conn.Close()
	}()

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationsExchange, rabbitmq.GetNotificationQueues())
	if err != nil {
		logger.Error("failed to setup RabbitMQ channel", sl.Err(err))
		os.Exit(1)
	}
	logger.Info("success to setup RabbitMQ channel")
	defer func() {
		_ = ch.Close()
	}()

	ledger := subservice.NewSubscriptionService(db, cacheRedis, logger)
	expirer := expirerservice.NewExpirerService(ledger, logger)
	expirer.Run(ctx, ch, cfg.Runner.ExpirerPeriod)

	logger.Info("subscription-expirer stopped gracefully")
}

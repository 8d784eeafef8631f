// Package agentdashboard собирает основное приложение: хранилище, миграции,
// кеш, брокер сообщений, сервисы и HTTP-сервер.
package agentdashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/agent-dashboard/internal/cache"
	"github.com/magabrotheeeer/agent-dashboard/internal/config"
	"github.com/magabrotheeeer/agent-dashboard/internal/lib/jwt"
	"github.com/magabrotheeeer/agent-dashboard/internal/lib/sl"
	"github.com/magabrotheeeer/agent-dashboard/internal/migrations"
	"github.com/magabrotheeeer/agent-dashboard/internal/rabbitmq"
	agentservice "github.com/magabrotheeeer/agent-dashboard/internal/services/agent"
	authservice "github.com/magabrotheeeer/agent-dashboard/internal/services/auth"
	runnerservice "github.com/magabrotheeeer/agent-dashboard/internal/services/runner"
	subservice "github.com/magabrotheeeer/agent-dashboard/internal/services/subscription"
	"github.com/magabrotheeeer/agent-dashboard/internal/storage/repository"
)

// App приложение agent-dashboard с HTTP-сервером и его зависимостями.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	amqp   *amqp.Connection
}

// New инициализирует все зависимости приложения. Брокер сообщений
// необязателен: при недоступном RabbitMQ события запусков не публикуются,
// но сервис продолжает работать.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	var events runnerservice.EventPublisher
	var conn *amqp.Connection
	if cfg.RabbitMQURL != "" {
		conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			logger.Warn("rabbitmq is unavailable, run events will not be published", sl.Err(err))
		} else {
			ch, err := rabbitmq.SetupChannel(conn, cfg.Runner.EventsExchange, rabbitmq.GetAgentEventQueues())
			if err != nil {
				return nil, err
			}
			events = runnerservice.NewAMQPEventPublisher(ch, cfg.Runner.EventsExchange)
		}
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := authservice.NewAuthService(db, jwtMaker)
	subscriptionService := subservice.NewSubscriptionService(db, cacheRedis, logger)
	agentService := agentservice.NewAgentService(db, subscriptionService, cacheRedis, logger)
	invoker := runnerservice.NewSimulatedInvoker(cfg.Runner.ToolDelay)
	runnerService := runnerservice.NewRunnerService(db, invoker, events, cacheRedis, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, db, authService, subscriptionService, agentService, runnerService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		amqp:   conn,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.db.DB.Close()
		if a.amqp != nil {
			a.amqp.Close()
		}
		return err
	}
}

// Package agentdashboard предоставляет маршруты для основного приложения.
package agentdashboard

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	agentcreate "github.com/magabrotheeeer/agent-dashboard/internal/http/handlers/agent/create"
	agentlist "github.com/magabrotheeeer/agent-dashboard/internal/http/handlers/agent/list"
	agentread "github.com/magabrotheeeer/agent-dashboard/internal/http/handlers/agent/read"
	agentremove "github.com/magabrotheeeer/agent-dashboard/internal/http/handlers/agent/remove"
	agentrun "github.com/magabrotheeeer/agent-dashboard/internal/http/handlers/agent/run"
	agentupdate "github.com/magabrotheeeer/agent-dashboard/internal/http/handlers/agent/update"
	"github.com/magabrotheeeer/agent-dashboard/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/agent-dashboard/internal/http/handlers/auth/me"
	"github.com/magabrotheeeer/agent-dashboard/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/agent-dashboard/internal/http/handlers/health"
	subcreate "github.com/magabrotheeeer/agent-dashboard/internal/http/handlers/subscription/create"
	subcurrent "github.com/magabrotheeeer/agent-dashboard/internal/http/handlers/subscription/current"
	"github.com/magabrotheeeer/agent-dashboard/internal/http/middlewarectx"
	agentservice "github.com/magabrotheeeer/agent-dashboard/internal/services/agent"
	authservice "github.com/magabrotheeeer/agent-dashboard/internal/services/auth"
	runnerservice "github.com/magabrotheeeer/agent-dashboard/internal/services/runner"
	subservice "github.com/magabrotheeeer/agent-dashboard/internal/services/subscription"
	"github.com/magabrotheeeer/agent-dashboard/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, db *repository.Storage,
	authService *authservice.AuthService,
	subscriptionService *subservice.SubscriptionService,
	agentService *agentservice.AgentService,
	runnerService *runnerservice.RunnerService,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		middlewarectx.MetricsMiddleware,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/auth/register", register.New(logger, authService).ServeHTTP)
		r.Post("/auth/login", login.New(logger, authService).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Get("/auth/me", me.New(logger, authService).ServeHTTP)

			r.Post("/agents", agentcreate.New(logger, agentService).ServeHTTP)
			r.Get("/agents", agentlist.New(logger, agentService).ServeHTTP)
			r.Get("/agents/{id}", agentread.New(logger, agentService).ServeHTTP)
			r.Put("/agents/{id}", agentupdate.New(logger, agentService).ServeHTTP)
			r.Delete("/agents/{id}", agentremove.New(logger, agentService).ServeHTTP)
			r.Post("/agents/{id}/run", agentrun.New(logger, runnerService).ServeHTTP)

			r.Post("/subscriptions", subcreate.New(logger, subscriptionService).ServeHTTP)
			r.Get("/subscriptions/current", subcurrent.New(logger, subscriptionService).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger, db).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}

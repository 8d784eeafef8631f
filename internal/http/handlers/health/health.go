// Package health реализует HTTP-обработчик проверки готовности сервиса.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/agent-dashboard/internal/http/response"
	"github.com/magabrotheeeer/agent-dashboard/internal/lib/sl"
)

// Checker описывает проверку готовности хранилища.
type Checker interface {
	CheckDatabaseReady(ctx context.Context) error
}

// Handler обрабатывает HTTP-запросы проверки готовности.
type Handler struct {
	log     *slog.Logger
	checker Checker
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, checker Checker) *Handler {
	return &Handler{
		log:     log,
		checker: checker,
	}
}

// ServeHTTP godoc
// @Summary Проверка готовности
// @Description Проверяет доступность базы данных и готовность сервиса принимать запросы.
// @Tags Health
// @Produce  json
// @Success 200 {object} response.Response "Сервис готов"
// @Failure 503 {object} response.ErrorResponse "Хранилище недоступно"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	if err := h.checker.CheckDatabaseReady(r.Context()); err != nil {
		h.log.Error("database is not ready", slog.String("op", op), sl.Err(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("database is not ready"))
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"status": "ok",
	}))
}

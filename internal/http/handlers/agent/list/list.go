// Package list реализует HTTP-обработчик получения списка агентов пользователя.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/agent-dashboard/internal/http/middlewarectx"
	"github.com/magabrotheeeer/agent-dashboard/internal/http/response"
	"github.com/magabrotheeeer/agent-dashboard/internal/lib/sl"
	"github.com/magabrotheeeer/agent-dashboard/internal/models"
)

// Service описывает интерфейс бизнес-логики списка агентов.
type Service interface {
	List(ctx context.Context, userUID string) ([]*models.Agent, error)
}

// Handler обрабатывает HTTP-запросы списка агентов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список агентов
// @Description Возвращает всех агентов текущего пользователя в порядке создания.
// @Tags Agents
// @Produce  json
// @Security BearerAuth
// @Success 200 {array} models.Agent "Агенты пользователя"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /agents [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.agent.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("missing user uid in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	agents, err := h.service.List(r.Context(), userUID)
	if err != nil {
		log.Error("failed to list agents", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list agents"))
		return
	}

	log.Info("agents listed", slog.Int("count", len(agents)))
	render.JSON(w, r, response.OKWithData(agents))
}

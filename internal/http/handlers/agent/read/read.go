// Package read реализует HTTP-обработчик получения агента по идентификатору.
package read

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/agent-dashboard/internal/errs"
	"github.com/magabrotheeeer/agent-dashboard/internal/http/middlewarectx"
	"github.com/magabrotheeeer/agent-dashboard/internal/http/response"
	"github.com/magabrotheeeer/agent-dashboard/internal/lib/sl"
	"github.com/magabrotheeeer/agent-dashboard/internal/models"
)

// Service описывает интерфейс бизнес-логики чтения агента.
type Service interface {
	Get(ctx context.Context, userUID, agentID string) (*models.Agent, error)
}

// Handler обрабатывает HTTP-запросы чтения агента.
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
// @Summary Получение агента
// @Description Возвращает агента текущего пользователя вместе с инструментами и историей. Чужой агент неотличим от несуществующего.
// @Tags Agents
// @Produce  json
// @Security BearerAuth
// @Param id path string true "Идентификатор агента"
// @Success 200 {object} models.Agent "Агент"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 404 {object} response.ErrorResponse "Агент не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /agents/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.agent.read"

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

	agentID := chi.URLParam(r, "id")
	agent, err := h.service.Get(r.Context(), userUID, agentID)
	if err != nil {
		if errors.Is(err, errs.ErrAgentNotFound) {
			log.Error("agent not found", slog.String("agent_id", agentID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("agent not found"))
			return
		}
		log.Error("failed to load agent", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to load agent"))
		return
	}

	render.JSON(w, r, response.OKWithData(agent))
}

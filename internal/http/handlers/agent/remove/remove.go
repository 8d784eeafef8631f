// Package remove реализует HTTP-обработчик удаления агента.
package remove

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
)

// Service описывает интерфейс бизнес-логики удаления агента.
type Service interface {
	Delete(ctx context.Context, userUID, agentID string) error
}

// Handler обрабатывает HTTP-запросы удаления агента.
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
// @Summary Удаление агента
// @Description Удаляет агента текущего пользователя вместе с историей выполнения.
// @Tags Agents
// @Produce  json
// @Security BearerAuth
// @Param id path string true "Идентификатор агента"
// @Success 204 "Агент удален"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 404 {object} response.ErrorResponse "Агент не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /agents/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.agent.remove"

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
	if err := h.service.Delete(r.Context(), userUID, agentID); err != nil {
		if errors.Is(err, errs.ErrAgentNotFound) {
			log.Error("agent not found", slog.String("agent_id", agentID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("agent not found"))
			return
		}
		log.Error("failed to delete agent", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to delete agent"))
		return
	}

	log.Info("agent deleted", slog.String("agent_id", agentID))
	w.WriteHeader(http.StatusNoContent)
}

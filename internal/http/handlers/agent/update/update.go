// Package update реализует HTTP-обработчик частичного обновления агента.
//
// Запрос принимает только присланные поля: отсутствующее поле не трогает
// текущего значения. Пустой patch допустим и возвращает агента как есть.
package update

import (
	"context"
	"encoding/json"
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

// Request — частичное обновление агента: nil-поля не изменяются.
type Request struct {
	Name        *string  `json:"name"`
	Objective   *string  `json:"objective"`
	Status      *string  `json:"status"`
	CurrentTask *string  `json:"current_task"`
	Tools       []string `json:"tools"`
}

// Service описывает интерфейс бизнес-логики обновления агента.
type Service interface {
	Update(ctx context.Context, userUID, agentID string, patch models.AgentPatch) (*models.Agent, error)
}

// Handler обрабатывает HTTP-запросы обновления агента.
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
// @Summary Обновление агента
// @Description Частично обновляет агента текущего пользователя. Поля, отсутствующие в запросе, не изменяются.
// @Tags Agents
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "Идентификатор агента"
// @Param request body Request true "Изменяемые поля"
// @Success 200 {object} models.Agent "Обновленный агент"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или невалидные поля"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 404 {object} response.ErrorResponse "Агент не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /agents/{id} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.agent.update"

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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	agentID := chi.URLParam(r, "id")
	patch := models.AgentPatch{
		Name:        req.Name,
		Objective:   req.Objective,
		Status:      req.Status,
		CurrentTask: req.CurrentTask,
		ActiveTools: req.Tools,
	}

	agent, err := h.service.Update(r.Context(), userUID, agentID, patch)
	if err != nil {
		var vErr *errs.ValidationError
		switch {
		case errors.As(err, &vErr):
			log.Error("invalid agent fields", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(vErr.Error()))
		case errors.Is(err, errs.ErrAgentNotFound):
			log.Error("agent not found", slog.String("agent_id", agentID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("agent not found"))
		default:
			log.Error("failed to update agent", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to update agent"))
		}
		return
	}

	log.Info("agent updated", slog.String("agent_id", agentID))
	render.JSON(w, r, response.OKWithData(agent))
}

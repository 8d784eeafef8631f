// Package run реализует HTTP-обработчик запуска задачи агента.
//
// Сбой инструмента во время выполнения не считается ошибкой запроса:
// обработчик возвращает 200 с результатом, в котором заполнена причина
// сбоя, а агент возвращен в idle.
package run

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/agent-dashboard/internal/errs"
	"github.com/magabrotheeeer/agent-dashboard/internal/http/middlewarectx"
	"github.com/magabrotheeeer/agent-dashboard/internal/http/response"
	"github.com/magabrotheeeer/agent-dashboard/internal/lib/sl"
	"github.com/magabrotheeeer/agent-dashboard/internal/models"
)

// Request — входные данные для запуска задачи.
type Request struct {
	Task string `json:"task" validate:"required,max=100"`
}

// Service описывает интерфейс движка выполнения задач.
type Service interface {
	ExecuteTask(ctx context.Context, userUID, agentID, task string) (*models.RunResult, error)
}

// Handler обрабатывает HTTP-запросы запуска задач агента.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Запуск задачи агента
// @Description Выполняет задачу агентом: последовательно вызывает его активные инструменты, накапливая прогресс и историю. Сбой инструмента возвращает агента в idle и отражается в результате, а не в коде ответа.
// @Tags Agents
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "Идентификатор агента"
// @Param request body Request true "Задача для выполнения"
// @Success 200 {object} models.RunResult "Результат запуска"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или невалидная задача"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 404 {object} response.ErrorResponse "Агент не найден"
// @Failure 409 {object} response.ErrorResponse "Агент занят или уже завершен"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /agents/{id}/run [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.agent.run"

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

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	agentID := chi.URLParam(r, "id")
	result, err := h.service.ExecuteTask(r.Context(), userUID, agentID, req.Task)
	if err != nil {
		var vErr *errs.ValidationError
		switch {
		case errors.As(err, &vErr):
			log.Error("invalid task", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(vErr.Error()))
		case errors.Is(err, errs.ErrAgentNotFound):
			log.Error("agent not found", slog.String("agent_id", agentID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("agent not found"))
		case errors.Is(err, errs.ErrAgentBusy):
			log.Error("agent is busy", slog.String("agent_id", agentID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("agent is already running a task"))
		case errors.Is(err, errs.ErrAgentCompleted):
			log.Error("agent already completed", slog.String("agent_id", agentID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("agent already completed its task"))
		default:
			log.Error("failed to execute task", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to execute task"))
		}
		return
	}

	log.Info("task run finished",
		slog.String("agent_id", agentID), slog.String("status", result.Status))
	render.JSON(w, r, response.OKWithData(result))
}

// Package create реализует HTTP-обработчик создания агента.
//
// Создание доступно только пользователям с активной подпиской и в пределах
// квоты плана; обе проверки выполняет сервис, обработчик лишь переводит
// ошибки в HTTP-коды.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/agent-dashboard/internal/errs"
	"github.com/magabrotheeeer/agent-dashboard/internal/http/middlewarectx"
	"github.com/magabrotheeeer/agent-dashboard/internal/http/response"
	"github.com/magabrotheeeer/agent-dashboard/internal/lib/sl"
	"github.com/magabrotheeeer/agent-dashboard/internal/models"
)

// Request — входные данные для создания агента.
type Request struct {
	Name      string   `json:"name" validate:"required"`
	Objective string   `json:"objective" validate:"required"`
	Tools     []string `json:"tools"`
}

// Service описывает интерфейс бизнес-логики создания агентов.
type Service interface {
	Create(ctx context.Context, userUID, name, objective string, tools []string) (*models.Agent, error)
}

// Handler обрабатывает HTTP-запросы создания агента.
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
// @Summary Создание агента
// @Description Создает нового агента для текущего пользователя. Требуется активная подписка и свободная квота.
// @Tags Agents
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Данные нового агента"
// @Success 201 {object} models.Agent "Агент создан"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или невалидные поля"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 403 {object} response.ErrorResponse "Нет подписки или исчерпана квота"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /agents [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.agent.create"

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

	agent, err := h.service.Create(r.Context(), userUID, req.Name, req.Objective, req.Tools)
	if err != nil {
		var vErr *errs.ValidationError
		switch {
		case errors.As(err, &vErr):
			log.Error("invalid agent fields", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(vErr.Error()))
		case errors.Is(err, errs.ErrSubscriptionRequired):
			log.Error("no active subscription", slog.String("user_uid", userUID))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("active subscription required"))
		case errors.Is(err, errs.ErrQuotaExceeded):
			log.Error("agent quota exceeded", slog.String("user_uid", userUID))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("agent quota exceeded"))
		default:
			log.Error("failed to create agent", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to create agent"))
		}
		return
	}

	log.Info("agent created", slog.String("agent_id", agent.ID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(agent))
}

// Package create реализует HTTP-обработчик оформления подписки.
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

// Request — входные данные для оформления подписки.
type Request struct {
	Plan string `json:"plan" validate:"required,oneof=trial monthly yearly"`
}

// Service описывает интерфейс бизнес-логики подписок.
type Service interface {
	Create(ctx context.Context, userUID string, plan models.Plan) (*models.Subscription, error)
}

// Handler обрабатывает HTTP-запросы оформления подписки.
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
// @Summary Оформление подписки
// @Description Создает подписку по плану и делает ее текущей для пользователя. Даты и квота на агентов определяются планом.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "План подписки"
// @Success 201 {object} models.Subscription "Подписка оформлена"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или неизвестный план"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscriptions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.create"

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

	sub, err := h.service.Create(r.Context(), userUID, models.Plan(req.Plan))
	if err != nil {
		if errors.Is(err, errs.ErrInvalidPlan) {
			log.Error("invalid plan", slog.String("plan", req.Plan))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid subscription plan"))
			return
		}
		log.Error("failed to create subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to create subscription"))
		return
	}

	log.Info("subscription created",
		slog.Int64("id", sub.ID), slog.String("plan", req.Plan))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(sub))
}

// Package current реализует HTTP-обработчик чтения активной подписки компании.
//
// Handler извлекает идентификатор компании из контекста, запрашивает активную
// подписку вместе с планом и возвращает их в JSON-формате. Отсутствие активной
// подписки — не ошибка сервера, а ответ 404.
package current

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/maratsafin/hireboard-billing/internal/http/middlewarectx"
	"github.com/maratsafin/hireboard-billing/internal/http/response"
	"github.com/maratsafin/hireboard-billing/internal/lib/sl"
	"github.com/maratsafin/hireboard-billing/internal/models"
	"github.com/maratsafin/hireboard-billing/internal/storage/repository"
)

// Handler управляет HTTP-запросами чтения активной подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики чтения подписки.
type Service interface {
	CurrentPlan(ctx context.Context, companyUID string) (*models.Subscription, *models.Plan, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить активную подписку
// @Description Возвращает активную подписку компании вместе с планом.
// @Tags Subscriptions
// @Produce  json
// @Success 200 {object} map[string]any "Активная подписка и план"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Активная подписка отсутствует"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /subscriptions/current [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.current"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	companyUID, ok := r.Context().Value(middlewarectx.CompanyUID).(string)
	if !ok || companyUID == "" {
		log.Error("company uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	sub, plan, err := h.service.CurrentPlan(r.Context(), companyUID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Info("no active subscription", slog.String("company_uid", companyUID))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("no active subscription"))
		return
	}
	if err != nil {
		log.Error("failed to read active subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read subscription"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscription": sub,
		"plan":         plan,
	}))
}

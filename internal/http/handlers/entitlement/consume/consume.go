// Package consume реализует HTTP-обработчик фиксации потребления фичи.
//
// Handler вызывается после успешного выполнения защищаемого действия
// и атомарно увеличивает счётчик потребления активной подписки компании.
package consume

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/maratsafin/hireboard-billing/internal/http/middlewarectx"
	"github.com/maratsafin/hireboard-billing/internal/http/response"
	"github.com/maratsafin/hireboard-billing/internal/lib/sl"
	"github.com/maratsafin/hireboard-billing/internal/services/entitlement"
)

// Handler управляет HTTP-запросами фиксации потребления.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики учёта потребления.
type Service interface {
	RecordUsage(ctx context.Context, companyUID, feature string) error
}

// Request тело запроса фиксации потребления.
type Request struct {
	Feature string `json:"feature" validate:"required"`
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Зафиксировать потребление фичи
// @Description Увеличивает счётчик потребления фичи активной подписки компании.
// @Tags Entitlements
// @Accept  json
// @Produce  json
// @Param request body Request true "Имя фичи"
// @Success 200 {object} map[string]any "Потребление зафиксировано"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 409 {object} response.ErrorResponse "Нет активной подписки"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /entitlements/consume [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.consume"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
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

	companyUID, ok := r.Context().Value(middlewarectx.CompanyUID).(string)
	if !ok || companyUID == "" {
		log.Error("company uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	err := h.service.RecordUsage(r.Context(), companyUID, req.Feature)
	if errors.Is(err, entitlement.ErrNoActiveSubscription) {
		log.Info("no active subscription to record usage", slog.String("company_uid", companyUID))
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error("no active subscription"))
		return
	}
	if err != nil {
		log.Error("failed to record feature usage", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not record feature usage"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"feature": req.Feature,
	}))
}

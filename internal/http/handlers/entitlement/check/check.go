// Package check реализует HTTP-обработчик проверки права на потребление фичи.
//
// Handler читает имя фичи из query-параметра и возвращает деловой ответ
// allowed: true/false. Отказ в доступе — не ошибка HTTP.
package check

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/maratsafin/hireboard-billing/internal/http/middlewarectx"
	"github.com/maratsafin/hireboard-billing/internal/http/response"
	"github.com/maratsafin/hireboard-billing/internal/lib/sl"
)

// Handler управляет HTTP-запросами проверки лимитов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики проверки лимитов.
type Service interface {
	CheckLimit(ctx context.Context, companyUID, feature string) (bool, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Проверить право на потребление фичи
// @Description Возвращает, разрешено ли компании потребить единицу фичи по её плану.
// @Tags Entitlements
// @Produce  json
// @Param feature query string true "Имя фичи"
// @Success 200 {object} map[string]any "Результат проверки"
// @Failure 400 {object} response.ErrorResponse "Не указана фича"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /entitlements/check [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.check"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	feature := r.URL.Query().Get("feature")
	if feature == "" {
		log.Error("feature query parameter is missing")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("feature is required"))
		return
	}

	companyUID, ok := r.Context().Value(middlewarectx.CompanyUID).(string)
	if !ok || companyUID == "" {
		log.Error("company uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	allowed, err := h.service.CheckLimit(r.Context(), companyUID, feature)
	if err != nil {
		log.Error("failed to check feature limit", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not check feature limit"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"feature": feature,
		"allowed": allowed,
	}))
}

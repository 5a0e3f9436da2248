// Package recurring реализует HTTP-обработчик метрик MRR/ARR для администраторов.
package recurring

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/maratsafin/hireboard-billing/internal/http/response"
	"github.com/maratsafin/hireboard-billing/internal/lib/sl"
	"github.com/maratsafin/hireboard-billing/internal/models"
)

// Handler управляет HTTP-запросами метрик регулярной выручки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики регулярной выручки.
type Service interface {
	RecurringRevenue(ctx context.Context) (*models.RecurringRevenue, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить MRR и ARR
// @Description Возвращает нормализованные метрики регулярной выручки по активным подпискам.
// @Tags Analytics
// @Produce  json
// @Success 200 {object} map[string]any "Метрики регулярной выручки"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Требуется роль администратора"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /analytics/recurring [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.analytics.recurring"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	result, err := h.service.RecurringRevenue(r.Context())
	if err != nil {
		log.Error("failed to compute recurring revenue", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not compute recurring revenue"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(result))
}

// Package revenue реализует HTTP-обработчик сводки выручки для администраторов.
package revenue

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/maratsafin/hireboard-billing/internal/http/response"
	"github.com/maratsafin/hireboard-billing/internal/lib/sl"
	"github.com/maratsafin/hireboard-billing/internal/models"
	"github.com/maratsafin/hireboard-billing/internal/services/analytics"
)

// Handler управляет HTTP-запросами сводки выручки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики аналитики выручки.
type Service interface {
	RevenueSummary(ctx context.Context, rng string) (*models.RevenueSummary, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить сводку выручки
// @Description Возвращает выручку по оплаченным инвойсам за выбранный диапазон с разбивкой по интервалам.
// @Tags Analytics
// @Produce  json
// @Param range query string false "Диапазон: 7d, 1m, 6m, 1y, all" default(1m)
// @Success 200 {object} map[string]any "Сводка выручки"
// @Failure 400 {object} response.ErrorResponse "Неизвестный диапазон"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Требуется роль администратора"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /analytics/revenue [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.analytics.revenue"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	rng := r.URL.Query().Get("range")
	if rng == "" {
		rng = analytics.RangeMonth
	}
	switch rng {
	case analytics.RangeWeek, analytics.RangeMonth, analytics.RangeHalfYear,
		analytics.RangeYear, analytics.RangeAll:
	default:
		log.Error("unknown revenue range", slog.String("range", rng))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("unknown range"))
		return
	}

	summary, err := h.service.RevenueSummary(r.Context(), rng)
	if err != nil {
		log.Error("failed to compute revenue summary", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not compute revenue summary"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(summary))
}

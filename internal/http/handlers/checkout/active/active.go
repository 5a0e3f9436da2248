// Package active реализует HTTP-обработчик чтения живой pending-сессии
// пользователя. Используется фронтендом для блокировки повторной отправки
// формы оплаты.
package active

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/maratsafin/hireboard-billing/internal/http/middlewarectx"
	"github.com/maratsafin/hireboard-billing/internal/http/response"
	"github.com/maratsafin/hireboard-billing/internal/lib/sl"
	"github.com/maratsafin/hireboard-billing/internal/models"
)

// Handler управляет HTTP-запросами чтения активной checkout-сессии.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики поиска активной сессии.
type Service interface {
	FindActive(ctx context.Context, userUID string) (*models.CheckoutSession, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить активную checkout-сессию
// @Description Возвращает незавершённую сессию оплаты текущего пользователя либо null.
// @Tags Checkout
// @Produce  json
// @Success 200 {object} map[string]any "Активная сессия или null"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /checkout/active [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout.active"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	session, err := h.service.FindActive(r.Context(), userUID)
	if err != nil {
		log.Error("failed to find active checkout session", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read checkout session"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"session": session,
	}))
}

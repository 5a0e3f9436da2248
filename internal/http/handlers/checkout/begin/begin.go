// Package begin реализует HTTP-обработчик начала оплаты подписки.
//
// Handler принимает JSON-запрос с идентификатором цены, валидирует его,
// извлекает идентификаторы пользователя и компании из контекста, вызывает
// бизнес-логику создания checkout-сессии и возвращает URL для перенаправления
// пользователя на страницу оплаты.
package begin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/maratsafin/hireboard-billing/internal/gateway"
	"github.com/maratsafin/hireboard-billing/internal/http/middlewarectx"
	"github.com/maratsafin/hireboard-billing/internal/http/response"
	"github.com/maratsafin/hireboard-billing/internal/lib/sl"
	"github.com/maratsafin/hireboard-billing/internal/services/checkout"
	"github.com/maratsafin/hireboard-billing/internal/storage/repository"
)

// Handler управляет HTTP-запросами на начало оплаты.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики начала оплаты.
type Service interface {
	Begin(ctx context.Context, userUID, companyUID, priceRef string) (*gateway.CheckoutRedirect, error)
}

// Request тело запроса начала оплаты.
type Request struct {
	PriceRef string `json:"price_ref" validate:"required"`
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
// @Summary Начать оплату подписки
// @Description Создает checkout-сессию в платёжном шлюзе и возвращает URL для оплаты.
// @Tags Checkout
// @Accept  json
// @Produce  json
// @Param request body Request true "Идентификатор цены плана"
// @Success 200 {object} map[string]any "Сессия создана"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Неизвестная цена плана"
// @Failure 409 {object} response.ErrorResponse "Есть незавершённая попытка оплаты"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /checkout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout.begin"
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

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}
	companyUID, ok := r.Context().Value(middlewarectx.CompanyUID).(string)
	if !ok || companyUID == "" {
		log.Error("company uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	redirect, err := h.service.Begin(r.Context(), userUID, companyUID, req.PriceRef)
	if errors.Is(err, checkout.ErrPendingCheckout) {
		log.Info("pending checkout session exists", slog.String("user_uid", userUID))
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error("a pending checkout session already exists"))
		return
	}
	if errors.Is(err, repository.ErrNotFound) {
		log.Error("unknown price ref", slog.String("price_ref", req.PriceRef))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("unknown plan price"))
		return
	}
	if err != nil {
		log.Error("failed to begin checkout", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not begin checkout"))
		return
	}

	log.Info("checkout session created", slog.String("session_ref", redirect.SessionRef))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"session_ref":  redirect.SessionRef,
		"redirect_url": redirect.RedirectURL,
	}))
}

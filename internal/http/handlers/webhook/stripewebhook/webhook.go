// Package stripewebhook реализует HTTP-обработчик вебхуков платёжного шлюза.
//
// Handler читает тело запроса с ограничением размера, проверяет подпись
// заголовка Stripe-Signature и передаёт распознанные события в бизнес-логику.
// Неизвестные типы событий подтверждаются без обработки, ошибка обработки
// возвращает 500, чтобы шлюз доставил событие повторно.
package stripewebhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/maratsafin/hireboard-billing/internal/lib/sl"
	"github.com/maratsafin/hireboard-billing/internal/metrics"
)

// maxBodyBytes предел размера тела вебхука, рекомендованный Stripe.
const maxBodyBytes = int64(65536)

// Service описывает интерфейс бизнес-логики обработки событий.
type Service interface {
	HandleCheckoutCompleted(ctx context.Context, sessionRef, subscriptionRef string) error
	HandleCheckoutExpired(ctx context.Context, sessionRef string) error
	HandleInvoicePaid(ctx context.Context, invoiceRef string) error
	HandleInvoicePaymentFailed(ctx context.Context, invoiceRef, subscriptionRef string) error
}

// Handler управляет HTTP-запросами вебхуков.
type Handler struct {
	log           *slog.Logger
	service       Service
	webhookSecret string // Секрет для проверки подписи
}

// New создает новый Handler с переданными логгером, сервисом и секретом подписи.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: secret,
	}
}

// checkoutSessionPayload минимальное представление checkout-сессии из события.
type checkoutSessionPayload struct {
	ID           string `json:"id"`
	Subscription string `json:"subscription"`
}

// invoicePayload минимальное представление инвойса из события. Ссылка на
// подписку читается из обоих мест: старые версии API кладут её на верхний
// уровень, новые — в parent.subscription_details.
type invoicePayload struct {
	ID           string `json:"id"`
	Subscription string `json:"subscription"`
	Parent       struct {
		SubscriptionDetails struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

func (p invoicePayload) subscriptionRef() string {
	if p.Subscription != "" {
		return p.Subscription
	}
	return p.Parent.SubscriptionDetails.Subscription
}

// ServeHTTP godoc
// @Summary Принять вебхук платёжного шлюза
// @Description Проверяет подпись и обрабатывает события жизненного цикла оплаты.
// @Tags Webhooks
// @Accept  json
// @Success 200 "Событие принято"
// @Failure 400 "Неверная подпись или тело"
// @Failure 500 "Ошибка обработки, событие будет доставлено повторно"
// @Router /webhooks/stripe [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook.stripe"
	log := h.log.With(slog.String("op", op))

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer func() { _ = r.Body.Close() }()

	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), h.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		log.Error("webhook signature verification failed", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	metrics.WebhookEventsTotal.WithLabelValues(string(event.Type)).Inc()
	log = log.With(slog.String("event_type", string(event.Type)), slog.String("event_id", event.ID))

	if err := h.dispatch(r.Context(), log, event); err != nil {
		metrics.WebhookFailuresTotal.Inc()
		log.Error("failed to process webhook event", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	log.Info("webhook processed successfully")
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) dispatch(ctx context.Context, log *slog.Logger, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session checkoutSessionPayload
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return err
		}
		return h.service.HandleCheckoutCompleted(ctx, session.ID, session.Subscription)

	case "checkout.session.expired":
		var session checkoutSessionPayload
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return err
		}
		return h.service.HandleCheckoutExpired(ctx, session.ID)

	case "invoice.paid":
		var invoice invoicePayload
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return err
		}
		return h.service.HandleInvoicePaid(ctx, invoice.ID)

	case "invoice.payment_failed":
		var invoice invoicePayload
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return err
		}
		return h.service.HandleInvoicePaymentFailed(ctx, invoice.ID, invoice.subscriptionRef())

	default:
		log.Info("ignored webhook event")
		return nil
	}
}

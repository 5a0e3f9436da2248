// Package metrics определяет счётчики Prometheus биллингового ядра.
// Сами метрики отдаются через /metrics (promhttp) в роутере приложения.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookEventsTotal число принятых вебхуков по типам событий.
	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_webhook_events_total",
		Help: "Number of processed payment gateway webhook events by type.",
	}, []string{"event_type"})

	// WebhookFailuresTotal число вебхуков, завершившихся ошибкой обработки.
	WebhookFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_webhook_failures_total",
		Help: "Number of webhook events that failed processing and were left for redelivery.",
	})

	// CheckoutSessionsTotal число созданных checkout-сессий.
	CheckoutSessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_checkout_sessions_total",
		Help: "Number of checkout sessions created.",
	})

	// SubscriptionsExpiredTotal число подписок, переведённых в expired фоновой задачей.
	SubscriptionsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_subscriptions_expired_total",
		Help: "Number of subscriptions expired by the sweeper.",
	})

	// PaymentFailedTotal число событий неуспешного продления.
	PaymentFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_payment_failed_total",
		Help: "Number of invoice.payment_failed events received.",
	})
)

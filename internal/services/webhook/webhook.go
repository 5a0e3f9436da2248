// Package webhook содержит бизнес-логику обработки событий платёжного
// шлюза: перевод checkout-сессий в терминальные статусы, гидратацию и
// установку подписки компании, реакцию на неуспешные продления.
//
// Доставка событий at-least-once, поэтому каждая операция идемпотентна:
// повторное событие для уже обработанной сессии не создаёт вторую подписку.
package webhook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maratsafin/hireboard-billing/internal/gateway"
	"github.com/maratsafin/hireboard-billing/internal/metrics"
	"github.com/maratsafin/hireboard-billing/internal/models"
)

// Repository определяет методы хранилища, используемые при обработке событий.
type Repository interface {
	GetCheckoutSessionByRef(ctx context.Context, sessionRef string) (*models.CheckoutSession, error)
	MarkCheckoutCompleted(ctx context.Context, sessionRef string) (int, error)
	MarkCheckoutExpired(ctx context.Context, sessionRef string) (int, error)
	SubscriptionExistsByRef(ctx context.Context, subscriptionRef string) (bool, error)
	SupersedeAndCreate(ctx context.Context, sub models.Subscription) (int, error)
	GetPlanByPriceRef(ctx context.Context, priceRef string) (*models.Plan, error)
}

// Gateway описывает чтения из платёжного шлюза для гидратации подписки.
type Gateway interface {
	GetSubscription(ctx context.Context, subscriptionRef string) (*gateway.SubscriptionInfo, error)
	LatestPaidInvoice(ctx context.Context, subscriptionRef string) (*gateway.InvoiceInfo, error)
}

// EventPublisher публикует события биллинга для внешних потребителей.
type EventPublisher interface {
	Publish(routingKey string, message any) error
}

// PaymentFailedEvent сообщение о неуспешном продлении подписки.
type PaymentFailedEvent struct {
	InvoiceRef      string `json:"invoice_ref"`
	SubscriptionRef string `json:"subscription_ref"`
}

// Service реализует обработку событий вебхуков.
type Service struct {
	repo      Repository
	gateway   Gateway
	publisher EventPublisher
	log       *slog.Logger
}

// New создает новый Service.
func New(repo Repository, gw Gateway, publisher EventPublisher, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		gateway:   gw,
		publisher: publisher,
		log:       log,
	}
}

// HandleCheckoutCompleted обрабатывает успешное завершение оплаты:
// дедуплицирует по внешнему идентификатору подписки, закрывает
// checkout-сессию и собирает полную запись подписки из данных шлюза,
// после чего атомарно заменяет прежнюю активную подписку компании.
func (s *Service) HandleCheckoutCompleted(ctx context.Context, sessionRef, subscriptionRef string) error {
	const op = "webhook.HandleCheckoutCompleted"
	log := s.log.With(slog.String("op", op), slog.String("session_ref", sessionRef))

	if subscriptionRef == "" {
		return fmt.Errorf("%s: event carries no subscription reference", op)
	}

	exists, err := s.repo.SubscriptionExistsByRef(ctx, subscriptionRef)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		// Повторная доставка уже обработанного события.
		log.Info("subscription already hydrated, skipping",
			slog.String("subscription_ref", subscriptionRef))
		if _, err := s.repo.MarkCheckoutCompleted(ctx, sessionRef); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	session, err := s.repo.GetCheckoutSessionByRef(ctx, sessionRef)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.repo.MarkCheckoutCompleted(ctx, sessionRef); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	info, err := s.gateway.GetSubscription(ctx, subscriptionRef)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	plan, err := s.repo.GetPlanByPriceRef(ctx, info.PriceRef)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sub := models.Subscription{
		CompanyUID:      session.CompanyUID,
		PlanID:          plan.ID,
		SubscriptionRef: info.SubscriptionRef,
		CustomerRef:     info.CustomerRef,
		Status:          models.SubscriptionStatusActive,
		StartedAt:       info.StartedAt,
		NextBillingDate: info.StartedAt.Add(models.BillingPeriod),
		Usage:           map[string]int{},
	}

	invoice, err := s.gateway.LatestPaidInvoice(ctx, subscriptionRef)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if invoice != nil {
		sub.InvoiceRef = invoice.InvoiceRef
		sub.InvoicePDF = invoice.InvoicePDF
	}

	id, err := s.repo.SupersedeAndCreate(ctx, sub)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("subscription activated",
		slog.Int("id", id),
		slog.String("company_uid", session.CompanyUID),
		slog.Int("plan_id", plan.ID))
	return nil
}

// HandleCheckoutExpired переводит сессию в expired. Гонка с событием
// завершения не ошибка: кто пришёл первым, тот и выиграл, второй — no-op.
func (s *Service) HandleCheckoutExpired(ctx context.Context, sessionRef string) error {
	const op = "webhook.HandleCheckoutExpired"

	affected, err := s.repo.MarkCheckoutExpired(ctx, sessionRef)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		s.log.Info("checkout session already terminal", slog.String("session_ref", sessionRef))
	}
	return nil
}

// HandleInvoicePaid фиксирует успешное продление.
func (s *Service) HandleInvoicePaid(_ context.Context, invoiceRef string) error {
	s.log.Info("invoice paid", slog.String("invoice_ref", invoiceRef))
	return nil
}

// HandleInvoicePaymentFailed публикует событие неуспешного продления в
// очередь уведомлений. Подписка при этом не приостанавливается: её
// судьбу решает дата следующего списания и фоновая задача истечения.
func (s *Service) HandleInvoicePaymentFailed(_ context.Context, invoiceRef, subscriptionRef string) error {
	const op = "webhook.HandleInvoicePaymentFailed"

	metrics.PaymentFailedTotal.Inc()
	s.log.Warn("invoice payment failed",
		slog.String("invoice_ref", invoiceRef),
		slog.String("subscription_ref", subscriptionRef))

	err := s.publisher.Publish("payment_failed", PaymentFailedEvent{
		InvoiceRef:      invoiceRef,
		SubscriptionRef: subscriptionRef,
	})
	if err != nil {
		// Возврат ошибки заставит шлюз доставить событие повторно.
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Package sweeper содержит фоновую задачу истечения подписок: находит
// активные подписки с прошедшей датой списания, переводит их в expired
// и публикует события для внешних потребителей.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/maratsafin/hireboard-billing/internal/lib/sl"
	"github.com/maratsafin/hireboard-billing/internal/metrics"
	"github.com/maratsafin/hireboard-billing/internal/models"
)

// SubscriptionRepository определяет методы хранилища для задачи истечения.
type SubscriptionRepository interface {
	ExpireDueSubscriptions(ctx context.Context, now time.Time) ([]*models.ExpiredSubscription, error)
}

// EventPublisher публикует события биллинга для внешних потребителей.
type EventPublisher interface {
	Publish(routingKey string, message any) error
}

// SubscriptionExpiredEvent сообщение об истёкшей подписке.
type SubscriptionExpiredEvent struct {
	SubscriptionID  int       `json:"subscription_id"`
	CompanyUID      string    `json:"company_uid"`
	PlanID          int       `json:"plan_id"`
	NextBillingDate time.Time `json:"next_billing_date"`
}

// SweeperService реализует периодическое истечение просроченных подписок.
type SweeperService struct {
	repo      SubscriptionRepository
	publisher EventPublisher
	log       *slog.Logger
}

// NewSweeperService создает новый экземпляр SweeperService.
func NewSweeperService(repo SubscriptionRepository, publisher EventPublisher, log *slog.Logger) *SweeperService {
	return &SweeperService{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

// ExpireDueSubscriptions выполняет проход сразу при старте, затем по тикеру,
// пока контекст не отменён. Интервал — страховка: истечение видно читателям
// и между проходами, потому что активность проверяется по дате списания.
func (s *SweeperService) ExpireDueSubscriptions(ctx context.Context, interval time.Duration) {
	s.runExpireDueSubscriptions(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.runExpireDueSubscriptions(ctx)
		}
	}
}

func (s *SweeperService) runExpireDueSubscriptions(ctx context.Context) {
	s.log.Info("starting sweep for due subscriptions")

	expired, err := s.repo.ExpireDueSubscriptions(ctx, time.Now().UTC())
	if err != nil {
		s.log.Error("failed to expire due subscriptions", sl.Err(err))
		return
	}
	if len(expired) == 0 {
		s.log.Info("no due subscriptions found")
		return
	}

	for _, sub := range expired {
		metrics.SubscriptionsExpiredTotal.Inc()
		err = s.publisher.Publish("subscription_expired", SubscriptionExpiredEvent{
			SubscriptionID:  sub.ID,
			CompanyUID:      sub.CompanyUID,
			PlanID:          sub.PlanID,
			NextBillingDate: sub.NextBillingDate,
		})
		if err != nil {
			// Статус уже переведён, потеряно только уведомление.
			s.log.Error("failed to publish subscription_expired event", sl.Err(err),
				slog.String("company_uid", sub.CompanyUID))
		}
	}

	s.log.Info("sweep finished", slog.Int("expired", len(expired)))
}

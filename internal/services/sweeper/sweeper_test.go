package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/maratsafin/hireboard-billing/internal/models"
)

// MockRepository реализует интерфейс SubscriptionRepository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ExpireDueSubscriptions(ctx context.Context, now time.Time) ([]*models.ExpiredSubscription, error) {
	args := m.Called(ctx, now)
	if res := args.Get(0); res != nil {
		return res.([]*models.ExpiredSubscription), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPublisher реализует интерфейс EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(routingKey string, message any) error {
	args := m.Called(routingKey, message)
	return args.Error(0)
}

// Первый проход выполняется до входа в цикл тикера, поэтому с уже
// отменённым контекстом сервис делает ровно один проход и возвращается.
func TestExpireDueSubscriptions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	due := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("истёкшие подписки публикуются в очередь", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ExpireDueSubscriptions", mock.Anything, mock.Anything).
			Return([]*models.ExpiredSubscription{
				{ID: 1, CompanyUID: "company-1", PlanID: 2, NextBillingDate: due},
				{ID: 2, CompanyUID: "company-2", PlanID: 3, NextBillingDate: due},
			}, nil)

		publisher := new(MockPublisher)
		publisher.On("Publish", "subscription_expired", SubscriptionExpiredEvent{
			SubscriptionID: 1, CompanyUID: "company-1", PlanID: 2, NextBillingDate: due,
		}).Return(nil)
		publisher.On("Publish", "subscription_expired", SubscriptionExpiredEvent{
			SubscriptionID: 2, CompanyUID: "company-2", PlanID: 3, NextBillingDate: due,
		}).Return(nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		svc := NewSweeperService(repo, publisher, logger)
		svc.ExpireDueSubscriptions(ctx, time.Hour)

		repo.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("пустой проход не публикует событий", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ExpireDueSubscriptions", mock.Anything, mock.Anything).
			Return([]*models.ExpiredSubscription{}, nil)

		publisher := new(MockPublisher)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		svc := NewSweeperService(repo, publisher, logger)
		svc.ExpireDueSubscriptions(ctx, time.Hour)

		publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("ошибка публикации не прерывает проход", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ExpireDueSubscriptions", mock.Anything, mock.Anything).
			Return([]*models.ExpiredSubscription{
				{ID: 1, CompanyUID: "company-1", PlanID: 2, NextBillingDate: due},
				{ID: 2, CompanyUID: "company-2", PlanID: 3, NextBillingDate: due},
			}, nil)

		publisher := new(MockPublisher)
		publisher.On("Publish", "subscription_expired", mock.Anything).
			Return(errors.New("broker unavailable")).Once()
		publisher.On("Publish", "subscription_expired", mock.Anything).
			Return(nil).Once()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		svc := NewSweeperService(repo, publisher, logger)
		svc.ExpireDueSubscriptions(ctx, time.Hour)

		publisher.AssertNumberOfCalls(t, "Publish", 2)
	})
}

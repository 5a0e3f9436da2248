package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/maratsafin/hireboard-billing/internal/gateway"
	"github.com/maratsafin/hireboard-billing/internal/models"
)

// MockRepository реализует интерфейс Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetCheckoutSessionByRef(ctx context.Context, sessionRef string) (*models.CheckoutSession, error) {
	args := m.Called(ctx, sessionRef)
	if res := args.Get(0); res != nil {
		return res.(*models.CheckoutSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) MarkCheckoutCompleted(ctx context.Context, sessionRef string) (int, error) {
	args := m.Called(ctx, sessionRef)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) MarkCheckoutExpired(ctx context.Context, sessionRef string) (int, error) {
	args := m.Called(ctx, sessionRef)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) SubscriptionExistsByRef(ctx context.Context, subscriptionRef string) (bool, error) {
	args := m.Called(ctx, subscriptionRef)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) SupersedeAndCreate(ctx context.Context, sub models.Subscription) (int, error) {
	args := m.Called(ctx, sub)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) GetPlanByPriceRef(ctx context.Context, priceRef string) (*models.Plan, error) {
	args := m.Called(ctx, priceRef)
	if res := args.Get(0); res != nil {
		return res.(*models.Plan), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockGateway реализует интерфейс Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) GetSubscription(ctx context.Context, subscriptionRef string) (*gateway.SubscriptionInfo, error) {
	args := m.Called(ctx, subscriptionRef)
	if res := args.Get(0); res != nil {
		return res.(*gateway.SubscriptionInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) LatestPaidInvoice(ctx context.Context, subscriptionRef string) (*gateway.InvoiceInfo, error) {
	args := m.Called(ctx, subscriptionRef)
	if res := args.Get(0); res != nil {
		return res.(*gateway.InvoiceInfo), args.Error(1)
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

func TestHandleCheckoutCompleted(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	startedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("успешная гидратация подписки", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)

		repo.On("SubscriptionExistsByRef", mock.Anything, "sub_1").Return(false, nil)
		repo.On("GetCheckoutSessionByRef", mock.Anything, "cs_1").
			Return(&models.CheckoutSession{SessionRef: "cs_1", UserUID: "user-1", CompanyUID: "company-1"}, nil)
		repo.On("MarkCheckoutCompleted", mock.Anything, "cs_1").Return(1, nil)
		gw.On("GetSubscription", mock.Anything, "sub_1").
			Return(&gateway.SubscriptionInfo{
				SubscriptionRef: "sub_1",
				CustomerRef:     "cus_1",
				PriceRef:        "price_basic",
				StartedAt:       startedAt,
			}, nil)
		repo.On("GetPlanByPriceRef", mock.Anything, "price_basic").
			Return(&models.Plan{ID: 7, PriceRef: "price_basic"}, nil)
		gw.On("LatestPaidInvoice", mock.Anything, "sub_1").
			Return(&gateway.InvoiceInfo{InvoiceRef: "in_1", InvoicePDF: "https://pdf"}, nil)
		repo.On("SupersedeAndCreate", mock.Anything, mock.MatchedBy(func(sub models.Subscription) bool {
			return sub.CompanyUID == "company-1" &&
				sub.PlanID == 7 &&
				sub.Status == models.SubscriptionStatusActive &&
				sub.InvoiceRef == "in_1" &&
				sub.NextBillingDate.Equal(startedAt.Add(models.BillingPeriod))
		})).Return(42, nil)

		svc := New(repo, gw, new(MockPublisher), logger)
		err := svc.HandleCheckoutCompleted(context.Background(), "cs_1", "sub_1")

		assert.NoError(t, err)
		repo.AssertExpectations(t)
		gw.AssertExpectations(t)
	})

	t.Run("повторная доставка не создаёт вторую подписку", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)

		repo.On("SubscriptionExistsByRef", mock.Anything, "sub_1").Return(true, nil)
		repo.On("MarkCheckoutCompleted", mock.Anything, "cs_1").Return(0, nil)

		svc := New(repo, gw, new(MockPublisher), logger)
		err := svc.HandleCheckoutCompleted(context.Background(), "cs_1", "sub_1")

		assert.NoError(t, err)
		repo.AssertNotCalled(t, "SupersedeAndCreate", mock.Anything, mock.Anything)
		gw.AssertNotCalled(t, "GetSubscription", mock.Anything, mock.Anything)
	})

	t.Run("событие без идентификатора подписки", func(t *testing.T) {
		svc := New(new(MockRepository), new(MockGateway), new(MockPublisher), logger)
		err := svc.HandleCheckoutCompleted(context.Background(), "cs_1", "")

		assert.Error(t, err)
	})

	t.Run("подписка без оплаченного инвойса", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)

		repo.On("SubscriptionExistsByRef", mock.Anything, "sub_1").Return(false, nil)
		repo.On("GetCheckoutSessionByRef", mock.Anything, "cs_1").
			Return(&models.CheckoutSession{SessionRef: "cs_1", CompanyUID: "company-1"}, nil)
		repo.On("MarkCheckoutCompleted", mock.Anything, "cs_1").Return(1, nil)
		gw.On("GetSubscription", mock.Anything, "sub_1").
			Return(&gateway.SubscriptionInfo{SubscriptionRef: "sub_1", PriceRef: "price_basic", StartedAt: startedAt}, nil)
		repo.On("GetPlanByPriceRef", mock.Anything, "price_basic").
			Return(&models.Plan{ID: 7}, nil)
		gw.On("LatestPaidInvoice", mock.Anything, "sub_1").Return(nil, nil)
		repo.On("SupersedeAndCreate", mock.Anything, mock.MatchedBy(func(sub models.Subscription) bool {
			return sub.InvoiceRef == "" && sub.InvoicePDF == ""
		})).Return(43, nil)

		svc := New(repo, gw, new(MockPublisher), logger)
		err := svc.HandleCheckoutCompleted(context.Background(), "cs_1", "sub_1")

		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})
}

func TestHandleCheckoutExpired(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("гонка с завершением оплаты не ошибка", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("MarkCheckoutExpired", mock.Anything, "cs_1").Return(0, nil)

		svc := New(repo, new(MockGateway), new(MockPublisher), logger)
		err := svc.HandleCheckoutExpired(context.Background(), "cs_1")

		assert.NoError(t, err)
	})
}

func TestHandleInvoicePaymentFailed(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("публикует событие в очередь", func(t *testing.T) {
		publisher := new(MockPublisher)
		publisher.On("Publish", "payment_failed", PaymentFailedEvent{
			InvoiceRef:      "in_1",
			SubscriptionRef: "sub_1",
		}).Return(nil)

		svc := New(new(MockRepository), new(MockGateway), publisher, logger)
		err := svc.HandleInvoicePaymentFailed(context.Background(), "in_1", "sub_1")

		assert.NoError(t, err)
		publisher.AssertExpectations(t)
	})

	t.Run("ошибка публикации возвращается для повторной доставки", func(t *testing.T) {
		publisher := new(MockPublisher)
		publisher.On("Publish", "payment_failed", mock.Anything).
			Return(errors.New("broker unavailable"))

		svc := New(new(MockRepository), new(MockGateway), publisher, logger)
		err := svc.HandleInvoicePaymentFailed(context.Background(), "in_1", "sub_1")

		assert.Error(t, err)
	})
}

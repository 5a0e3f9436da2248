package subscription

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/maratsafin/hireboard-billing/internal/models"
	"github.com/maratsafin/hireboard-billing/internal/storage/repository"
)

// MockRepository реализует интерфейс Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetActiveSubscription(ctx context.Context, companyUID string) (*models.Subscription, error) {
	args := m.Called(ctx, companyUID)
	if res := args.Get(0); res != nil {
		return res.(*models.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) ListSubscriptionHistory(ctx context.Context, companyUID string) ([]*models.Subscription, error) {
	args := m.Called(ctx, companyUID)
	if res := args.Get(0); res != nil {
		return res.([]*models.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) HasAnySubscription(ctx context.Context, companyUID string) (bool, error) {
	args := m.Called(ctx, companyUID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) GetPlanByID(ctx context.Context, id int) (*models.Plan, error) {
	args := m.Called(ctx, id)
	if res := args.Get(0); res != nil {
		return res.(*models.Plan), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) ListActivePlans(ctx context.Context) ([]*models.Plan, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.([]*models.Plan), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockCache реализует интерфейс Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	if args.Bool(0) {
		if plan, ok := result.(**models.Plan); ok {
			*plan = &models.Plan{ID: 7, Name: "cached"}
		}
	}
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Set(key string, value any, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) Invalidate(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func TestCurrentPlan(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("план читается из базы и кладётся в кеш", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetActiveSubscription", mock.Anything, "company-1").
			Return(&models.Subscription{CompanyUID: "company-1", PlanID: 7}, nil)
		repo.On("GetPlanByID", mock.Anything, 7).
			Return(&models.Plan{ID: 7, Name: "basic"}, nil)

		cache := new(MockCache)
		cache.On("Get", "plan:7", mock.Anything).Return(false, nil)
		cache.On("Set", "plan:7", mock.Anything, time.Hour).Return(nil)

		svc := New(repo, cache, logger)
		sub, plan, err := svc.CurrentPlan(context.Background(), "company-1")

		assert.NoError(t, err)
		assert.Equal(t, "company-1", sub.CompanyUID)
		assert.Equal(t, "basic", plan.Name)
		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("план из кеша не трогает базу", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetActiveSubscription", mock.Anything, "company-1").
			Return(&models.Subscription{CompanyUID: "company-1", PlanID: 7}, nil)

		cache := new(MockCache)
		cache.On("Get", "plan:7", mock.Anything).Return(true, nil)

		svc := New(repo, cache, logger)
		_, plan, err := svc.CurrentPlan(context.Background(), "company-1")

		assert.NoError(t, err)
		assert.Equal(t, "cached", plan.Name)
		repo.AssertNotCalled(t, "GetPlanByID", mock.Anything, mock.Anything)
	})

	t.Run("отсутствие активной подписки пробрасывается", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetActiveSubscription", mock.Anything, "company-1").
			Return(nil, repository.ErrNotFound)

		svc := New(repo, new(MockCache), logger)
		_, _, err := svc.CurrentPlan(context.Background(), "company-1")

		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestHistory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo := new(MockRepository)
	repo.On("ListSubscriptionHistory", mock.Anything, "company-1").
		Return([]*models.Subscription{
			{ID: 2, Status: models.SubscriptionStatusActive},
			{ID: 1, Status: models.SubscriptionStatusCanceled},
		}, nil)

	svc := New(repo, new(MockCache), logger)
	subs, err := svc.History(context.Background(), "company-1")

	assert.NoError(t, err)
	assert.Len(t, subs, 2)
}

package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/maratsafin/hireboard-billing/internal/gateway"
	"github.com/maratsafin/hireboard-billing/internal/models"
	"github.com/maratsafin/hireboard-billing/internal/storage/repository"
)

// MockRepository реализует интерфейс Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateCheckoutSession(ctx context.Context, cs models.CheckoutSession) (int, error) {
	args := m.Called(ctx, cs)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) FindActiveCheckoutSession(ctx context.Context, userUID string) (*models.CheckoutSession, error) {
	args := m.Called(ctx, userUID)
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

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, userUID, companyUID, priceRef string) (*gateway.CheckoutRedirect, error) {
	args := m.Called(ctx, userUID, companyUID, priceRef)
	if res := args.Get(0); res != nil {
		return res.(*gateway.CheckoutRedirect), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestBegin(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name        string
		setupMocks  func(*MockRepository, *MockGateway)
		wantErr     error
		wantRef     string
		wantAnyErr  bool
	}{
		{
			name: "успешное начало оплаты",
			setupMocks: func(repo *MockRepository, gw *MockGateway) {
				repo.On("FindActiveCheckoutSession", mock.Anything, "user-1").
					Return(nil, repository.ErrNotFound)
				repo.On("GetPlanByPriceRef", mock.Anything, "price_basic").
					Return(&models.Plan{ID: 1, PriceRef: "price_basic"}, nil)
				gw.On("CreateCheckoutSession", mock.Anything, "user-1", "company-1", "price_basic").
					Return(&gateway.CheckoutRedirect{SessionRef: "cs_123", RedirectURL: "https://pay"}, nil)
				repo.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(cs models.CheckoutSession) bool {
					return cs.SessionRef == "cs_123" && cs.Status == models.CheckoutStatusPending
				})).Return(1, nil)
			},
			wantRef: "cs_123",
		},
		{
			name: "повторная попытка при живой pending-сессии",
			setupMocks: func(repo *MockRepository, _ *MockGateway) {
				repo.On("FindActiveCheckoutSession", mock.Anything, "user-1").
					Return(&models.CheckoutSession{SessionRef: "cs_old", Status: models.CheckoutStatusPending}, nil)
			},
			wantErr: ErrPendingCheckout,
		},
		{
			name: "неизвестная цена плана",
			setupMocks: func(repo *MockRepository, _ *MockGateway) {
				repo.On("FindActiveCheckoutSession", mock.Anything, "user-1").
					Return(nil, repository.ErrNotFound)
				repo.On("GetPlanByPriceRef", mock.Anything, "price_basic").
					Return(nil, repository.ErrNotFound)
			},
			wantErr: repository.ErrNotFound,
		},
		{
			name: "ошибка платёжного шлюза",
			setupMocks: func(repo *MockRepository, gw *MockGateway) {
				repo.On("FindActiveCheckoutSession", mock.Anything, "user-1").
					Return(nil, repository.ErrNotFound)
				repo.On("GetPlanByPriceRef", mock.Anything, "price_basic").
					Return(&models.Plan{ID: 1, PriceRef: "price_basic"}, nil)
				gw.On("CreateCheckoutSession", mock.Anything, "user-1", "company-1", "price_basic").
					Return(nil, errors.New("gateway unavailable"))
			},
			wantAnyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			gw := new(MockGateway)
			tt.setupMocks(repo, gw)

			svc := New(repo, gw, logger)
			redirect, err := svc.Begin(context.Background(), "user-1", "company-1", "price_basic")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, redirect)
			} else if tt.wantAnyErr {
				assert.Error(t, err)
				assert.Nil(t, redirect)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantRef, redirect.SessionRef)
			}

			repo.AssertExpectations(t)
			gw.AssertExpectations(t)
		})
	}
}

func TestFindActive(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("отсутствие сессии не является ошибкой", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("FindActiveCheckoutSession", mock.Anything, "user-1").
			Return(nil, repository.ErrNotFound)

		svc := New(repo, new(MockGateway), logger)
		cs, err := svc.FindActive(context.Background(), "user-1")

		assert.NoError(t, err)
		assert.Nil(t, cs)
	})

	t.Run("живая сессия возвращается", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("FindActiveCheckoutSession", mock.Anything, "user-1").
			Return(&models.CheckoutSession{SessionRef: "cs_1"}, nil)

		svc := New(repo, new(MockGateway), logger)
		cs, err := svc.FindActive(context.Background(), "user-1")

		assert.NoError(t, err)
		assert.Equal(t, "cs_1", cs.SessionRef)
	})
}

func TestMarkCompleted(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("повторный перевод в терминальный статус не ошибка", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("MarkCheckoutCompleted", mock.Anything, "cs_1").Return(0, nil)

		svc := New(repo, new(MockGateway), logger)
		err := svc.MarkCompleted(context.Background(), "cs_1")

		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})
}

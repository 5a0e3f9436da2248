package current

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/maratsafin/hireboard-billing/internal/http/middlewarectx"
	"github.com/maratsafin/hireboard-billing/internal/models"
	"github.com/maratsafin/hireboard-billing/internal/storage/repository"
)

// MockService реализует интерфейс current.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) CurrentPlan(ctx context.Context, companyUID string) (*models.Subscription, *models.Plan, error) {
	args := m.Called(ctx, companyUID)
	var sub *models.Subscription
	var plan *models.Plan
	if res := args.Get(0); res != nil {
		sub = res.(*models.Subscription)
	}
	if res := args.Get(1); res != nil {
		plan = res.(*models.Plan)
	}
	return sub, plan, args.Error(2)
}

func TestCurrentHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		withIdentity   bool
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:         "активная подписка с планом",
			withIdentity: true,
			setupMock: func(m *MockService) {
				m.On("CurrentPlan", mock.Anything, "company-1").
					Return(&models.Subscription{ID: 1, Status: models.SubscriptionStatusActive},
						&models.Plan{ID: 7, Name: "basic"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"name":"basic"`,
		},
		{
			name:         "активной подписки нет",
			withIdentity: true,
			setupMock: func(m *MockService) {
				m.On("CurrentPlan", mock.Anything, "company-1").
					Return(nil, nil, repository.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `no active subscription`,
		},
		{
			name:           "без идентификации компании",
			withIdentity:   false,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `unauthorized`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodGet, "/subscriptions/current", nil)
			if tt.withIdentity {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.CompanyUID, "company-1"))
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}

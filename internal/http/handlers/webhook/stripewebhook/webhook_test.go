package stripewebhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testSecret = "whsec_test_secret"

// MockService реализует интерфейс Service
type MockService struct {
	mock.Mock
}

func (m *MockService) HandleCheckoutCompleted(ctx context.Context, sessionRef, subscriptionRef string) error {
	args := m.Called(ctx, sessionRef, subscriptionRef)
	return args.Error(0)
}

func (m *MockService) HandleCheckoutExpired(ctx context.Context, sessionRef string) error {
	args := m.Called(ctx, sessionRef)
	return args.Error(0)
}

func (m *MockService) HandleInvoicePaid(ctx context.Context, invoiceRef string) error {
	args := m.Called(ctx, invoiceRef)
	return args.Error(0)
}

func (m *MockService) HandleInvoicePaymentFailed(ctx context.Context, invoiceRef, subscriptionRef string) error {
	args := m.Called(ctx, invoiceRef, subscriptionRef)
	return args.Error(0)
}

// signPayload собирает валидный заголовок Stripe-Signature схемы v1.
func signPayload(payload []byte, secret string) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return signed.Header
}

func newWebhookRequest(payload, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", signature)
	return req
}

func TestWebhookHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		payload        string
		setupMock      func(*MockService)
		expectedStatus int
	}{
		{
			name: "завершение оплаты передаётся в сервис",
			payload: `{"id":"evt_1","type":"checkout.session.completed",
				"data":{"object":{"id":"cs_1","subscription":"sub_1"}}}`,
			setupMock: func(m *MockService) {
				m.On("HandleCheckoutCompleted", mock.Anything, "cs_1", "sub_1").Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "истечение сессии передаётся в сервис",
			payload: `{"id":"evt_2","type":"checkout.session.expired",
				"data":{"object":{"id":"cs_1"}}}`,
			setupMock: func(m *MockService) {
				m.On("HandleCheckoutExpired", mock.Anything, "cs_1").Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "неуспешное продление читает подписку из parent",
			payload: `{"id":"evt_3","type":"invoice.payment_failed",
				"data":{"object":{"id":"in_1","parent":{"subscription_details":{"subscription":"sub_9"}}}}}`,
			setupMock: func(m *MockService) {
				m.On("HandleInvoicePaymentFailed", mock.Anything, "in_1", "sub_9").Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "неизвестное событие подтверждается без обработки",
			payload:        `{"id":"evt_4","type":"customer.created","data":{"object":{"id":"cus_1"}}}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusOK,
		},
		{
			name: "ошибка обработки возвращает 500 для повторной доставки",
			payload: `{"id":"evt_5","type":"checkout.session.completed",
				"data":{"object":{"id":"cs_1","subscription":"sub_1"}}}`,
			setupMock: func(m *MockService) {
				m.On("HandleCheckoutCompleted", mock.Anything, "cs_1", "sub_1").
					Return(errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService, testSecret)

			req := newWebhookRequest(tt.payload, signPayload([]byte(tt.payload), testSecret))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestWebhookHandlerBadSignature(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	payload := `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`

	tests := []struct {
		name      string
		signature string
	}{
		{"подпись чужим секретом", signPayload([]byte(payload), "whsec_wrong")},
		{"пустая подпись", ""},
		{"мусор вместо подписи", "t=abc,v1=zzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			handler := New(logger, mockService, testSecret)

			req := newWebhookRequest(payload, tt.signature)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			mockService.AssertNotCalled(t, "HandleCheckoutCompleted", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

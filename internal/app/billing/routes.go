// Package billing предоставляет маршруты биллингового ядра.
package billing

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/maratsafin/hireboard-billing/internal/http/handlers/analytics/recurring"
	"github.com/maratsafin/hireboard-billing/internal/http/handlers/analytics/revenue"
	"github.com/maratsafin/hireboard-billing/internal/http/handlers/checkout/active"
	"github.com/maratsafin/hireboard-billing/internal/http/handlers/checkout/begin"
	"github.com/maratsafin/hireboard-billing/internal/http/handlers/entitlement/check"
	"github.com/maratsafin/hireboard-billing/internal/http/handlers/entitlement/consume"
	"github.com/maratsafin/hireboard-billing/internal/http/handlers/health"
	planlist "github.com/maratsafin/hireboard-billing/internal/http/handlers/plan/list"
	"github.com/maratsafin/hireboard-billing/internal/http/handlers/subscription/current"
	"github.com/maratsafin/hireboard-billing/internal/http/handlers/subscription/history"
	"github.com/maratsafin/hireboard-billing/internal/http/handlers/webhook/stripewebhook"
	"github.com/maratsafin/hireboard-billing/internal/http/middlewarectx"
	"github.com/maratsafin/hireboard-billing/internal/lib/jwt"
	analyticsservice "github.com/maratsafin/hireboard-billing/internal/services/analytics"
	checkoutservice "github.com/maratsafin/hireboard-billing/internal/services/checkout"
	entitlementservice "github.com/maratsafin/hireboard-billing/internal/services/entitlement"
	subscriptionservice "github.com/maratsafin/hireboard-billing/internal/services/subscription"
	webhookservice "github.com/maratsafin/hireboard-billing/internal/services/webhook"
	"github.com/maratsafin/hireboard-billing/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, jwtMaker jwt.Maker, webhookSecret string,
	db *repository.Storage,
	checkoutSvc *checkoutservice.Service,
	webhookSvc *webhookservice.Service,
	subscriptionSvc *subscriptionservice.Service,
	entitlementSvc *entitlementservice.Guard,
	analyticsSvc *analyticsservice.Service,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/plans", planlist.New(logger, subscriptionSvc).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/checkout", begin.New(logger, checkoutSvc).ServeHTTP)
			r.Get("/checkout/active", active.New(logger, checkoutSvc).ServeHTTP)
			r.Get("/subscriptions/current", current.New(logger, subscriptionSvc).ServeHTTP)
			r.Get("/subscriptions/history", history.New(logger, subscriptionSvc).ServeHTTP)
			r.Get("/entitlements/check", check.New(logger, entitlementSvc).ServeHTTP)
			r.Post("/entitlements/consume", consume.New(logger, entitlementSvc).ServeHTTP)

			// Административные конечные точки
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AdminOnlyMiddleware(logger))
				r.Get("/analytics/revenue", revenue.New(logger, analyticsSvc).ServeHTTP)
				r.Get("/analytics/recurring", recurring.New(logger, analyticsSvc).ServeHTTP)
			})
		})

		// Webhook endpoint (без аутентификации, подпись проверяется отдельно)
		r.Post("/webhooks/stripe", stripewebhook.New(logger, webhookSvc, webhookSecret).ServeHTTP)
	})

	r.Get("/health", health.New(logger, db).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}

// Package billing собирает HTTP-приложение биллингового ядра: хранилище,
// миграции, кеш, платёжный шлюз, очередь событий и маршруты.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/maratsafin/hireboard-billing/internal/cache"
	"github.com/maratsafin/hireboard-billing/internal/config"
	"github.com/maratsafin/hireboard-billing/internal/gateway"
	"github.com/maratsafin/hireboard-billing/internal/lib/jwt"
	"github.com/maratsafin/hireboard-billing/internal/lib/rabbitmq"
	"github.com/maratsafin/hireboard-billing/internal/migrations"
	analyticsservice "github.com/maratsafin/hireboard-billing/internal/services/analytics"
	checkoutservice "github.com/maratsafin/hireboard-billing/internal/services/checkout"
	entitlementservice "github.com/maratsafin/hireboard-billing/internal/services/entitlement"
	subscriptionservice "github.com/maratsafin/hireboard-billing/internal/services/subscription"
	webhookservice "github.com/maratsafin/hireboard-billing/internal/services/webhook"
	"github.com/maratsafin/hireboard-billing/internal/storage/repository"
)

// App представляет HTTP-приложение биллингового ядра.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New создает новый экземпляр приложения.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	conn, ch, err := rabbitmq.Connect(cfg.AddressRabbitMQ)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	publisher := rabbitmq.NewPublisher(ch)

	stripeClient := gateway.New(cfg.Stripe.APIKey, cfg.Stripe.SuccessURL, cfg.Stripe.CancelURL)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	checkoutSvc := checkoutservice.New(db, stripeClient, logger)
	webhookSvc := webhookservice.New(db, stripeClient, publisher, logger)
	subscriptionSvc := subscriptionservice.New(db, cacheRedis, logger)
	entitlementSvc := entitlementservice.New(subscriptionSvc, db, logger)
	analyticsSvc := analyticsservice.New(stripeClient, stripeClient, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, jwtMaker, cfg.Stripe.WebhookSecret, db,
		checkoutSvc, webhookSvc, subscriptionSvc, entitlementSvc, analyticsSvc)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и блокируется до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if cerr := a.ch.Close(); cerr != nil {
			a.logger.Error("failed to close channel", slog.Any("err", cerr))
		}
		if cerr := a.conn.Close(); cerr != nil {
			a.logger.Error("failed to close connection", slog.Any("err", cerr))
		}
		if cerr := a.db.DB.Close(); cerr != nil {
			a.logger.Error("failed to close storage", slog.Any("err", cerr))
		}
		return err
	}
}

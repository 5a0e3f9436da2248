// Package sweeper собирает приложение фоновой задачи истечения подписок.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/maratsafin/hireboard-billing/internal/config"
	"github.com/maratsafin/hireboard-billing/internal/lib/rabbitmq"
	sweeperservice "github.com/maratsafin/hireboard-billing/internal/services/sweeper"
	"github.com/maratsafin/hireboard-billing/internal/storage/repository"
)

// App представляет приложение фоновой задачи истечения.
type App struct {
	sweeperService *sweeperservice.SweeperService
	interval       time.Duration
	conn           *amqp.Connection
	ch             *amqp.Channel
	db             *repository.Storage
	logger         *slog.Logger
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	for range 10 {
		err := db.CheckDatabaseReady(ctx)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, ch, err := rabbitmq.Connect(cfg.AddressRabbitMQ)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(ctx, db); err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	sweeperService := sweeperservice.NewSweeperService(db, rabbitmq.NewPublisher(ch), logger)

	return &App{
		sweeperService: sweeperService,
		interval:       cfg.SweepInterval,
		conn:           conn,
		ch:             ch,
		db:             db,
		logger:         logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", "error", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", "error", err)
		}
	}
}

// Run запускает фоновую задачу и блокируется до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	go a.sweeperService.ExpireDueSubscriptions(ctx, a.interval)

	<-ctx.Done()

	a.logger.Info("shutting down sweeper service")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}
	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close storage", slog.Any("err", err))
	}
	return nil
}

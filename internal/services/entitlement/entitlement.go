// Package entitlement отвечает на вопрос «может ли компания потребить
// фичу X прямо сейчас» и фиксирует потребление.
//
// Контракт вызова: CheckLimit, затем защищаемое действие, затем
// RecordUsage. Сервис намеренно не оборачивает само действие, чтобы не
// связывать биллинг с доменной логикой. Между проверкой и инкрементом
// остаётся узкое окно гонки: два запроса на границе лимита могут пройти
// оба. Это принятая политика — небольшое превышение вместо сериализации
// всех тарифицируемых действий; сам инкремент при этом атомарен и
// обновлений не теряет.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maratsafin/hireboard-billing/internal/models"
	"github.com/maratsafin/hireboard-billing/internal/storage/repository"
)

// ErrNoActiveSubscription возвращается из RecordUsage, если активной
// подписки не оказалось к моменту инкремента.
var ErrNoActiveSubscription = errors.New("no active subscription")

// SubscriptionProvider отдаёт активную подписку компании с планом.
type SubscriptionProvider interface {
	CurrentPlan(ctx context.Context, companyUID string) (*models.Subscription, *models.Plan, error)
}

// UsageRecorder выполняет атомарный инкремент счётчика потребления.
// Единственный писатель счётчиков — хранилище подписок.
type UsageRecorder interface {
	IncrementFeatureUsage(ctx context.Context, companyUID, feature string) (int, error)
}

// Guard реализует проверку и учёт потребления фич.
type Guard struct {
	subscriptions SubscriptionProvider
	usage         UsageRecorder
	log           *slog.Logger
}

// New создает новый Guard.
func New(subscriptions SubscriptionProvider, usage UsageRecorder, log *slog.Logger) *Guard {
	return &Guard{
		subscriptions: subscriptions,
		usage:         usage,
		log:           log,
	}
}

// HasSubscription сообщает, есть ли у компании активная подписка.
func (g *Guard) HasSubscription(ctx context.Context, companyUID string) (bool, error) {
	_, _, err := g.subscriptions.CurrentPlan(ctx, companyUID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CheckLimit проверяет, разрешено ли компании потребить фичу.
// Без активной подписки — запрет; фича вне плана — запрет;
// лимит -1 — безлимит; иначе разрешено пока used < limit.
// Отказ — деловой ответ, а не ошибка.
func (g *Guard) CheckLimit(ctx context.Context, companyUID, feature string) (bool, error) {
	sub, plan, err := g.subscriptions.CurrentPlan(ctx, companyUID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	limit, ok := plan.FeatureLimit(feature)
	if !ok {
		return false, nil
	}
	if limit == models.UnlimitedLimit {
		return true, nil
	}
	return sub.UsedFeature(feature) < limit, nil
}

// RecordUsage фиксирует потребление фичи. Вызывается только после
// одобрения CheckLimit и успешного выполнения защищаемого действия.
func (g *Guard) RecordUsage(ctx context.Context, companyUID, feature string) error {
	const op = "entitlement.RecordUsage"

	affected, err := g.usage.IncrementFeatureUsage(ctx, companyUID, feature)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNoActiveSubscription)
	}

	g.log.Info("feature usage recorded",
		slog.String("company_uid", companyUID),
		slog.String("feature", feature))
	return nil
}

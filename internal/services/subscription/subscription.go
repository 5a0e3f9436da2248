// Package subscription содержит бизнес-логику чтения состояния подписок
// компаний: активная подписка с планом, история, факт наличия подписки.
// Планы — read-mostly каталог, поэтому кешируются.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maratsafin/hireboard-billing/internal/models"
)

// Repository определяет методы для работы с подписками в хранилище.
type Repository interface {
	GetActiveSubscription(ctx context.Context, companyUID string) (*models.Subscription, error)
	ListSubscriptionHistory(ctx context.Context, companyUID string) ([]*models.Subscription, error)
	HasAnySubscription(ctx context.Context, companyUID string) (bool, error)
	GetPlanByID(ctx context.Context, id int) (*models.Plan, error)
	ListActivePlans(ctx context.Context) ([]*models.Plan, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Service реализует чтение состояния подписок с кешированием планов.
type Service struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
}

// New создает новый Service.
func New(repo Repository, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// CurrentPlan возвращает активную подписку компании вместе с её планом.
// Ошибку хранилища (в том числе отсутствие активной подписки) пробрасывает
// вызывающему без изменения.
func (s *Service) CurrentPlan(ctx context.Context, companyUID string) (*models.Subscription, *models.Plan, error) {
	sub, err := s.repo.GetActiveSubscription(ctx, companyUID)
	if err != nil {
		return nil, nil, err
	}
	plan, err := s.getPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, nil, err
	}
	return sub, plan, nil
}

// History возвращает историю подписок компании.
func (s *Service) History(ctx context.Context, companyUID string) ([]*models.Subscription, error) {
	return s.repo.ListSubscriptionHistory(ctx, companyUID)
}

// HasAnySubscription сообщает, была ли у компании хоть одна подписка.
func (s *Service) HasAnySubscription(ctx context.Context, companyUID string) (bool, error) {
	return s.repo.HasAnySubscription(ctx, companyUID)
}

// ListPlans возвращает каталог действующих планов.
func (s *Service) ListPlans(ctx context.Context) ([]*models.Plan, error) {
	return s.repo.ListActivePlans(ctx)
}

func (s *Service) getPlan(ctx context.Context, planID int) (*models.Plan, error) {
	cacheKey := fmt.Sprintf("plan:%d", planID)

	var cached *models.Plan
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read plan from cache", slog.String("key", cacheKey), slog.Any("err", err))
	}
	if found && cached != nil {
		return cached, nil
	}

	plan, err := s.repo.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(cacheKey, plan, time.Hour); err != nil {
		s.log.Warn("failed to cache plan", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return plan, nil
}

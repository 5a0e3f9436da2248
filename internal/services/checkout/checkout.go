// Package checkout содержит бизнес-логику попыток оплаты: создание
// checkout-сессии в платёжном шлюзе, защиту от дублирующихся попыток
// и идемпотентные терминальные переходы по сигналам вебхуков.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maratsafin/hireboard-billing/internal/gateway"
	"github.com/maratsafin/hireboard-billing/internal/metrics"
	"github.com/maratsafin/hireboard-billing/internal/models"
	"github.com/maratsafin/hireboard-billing/internal/storage/repository"
)

// ErrPendingCheckout возвращается при попытке начать оплату, пока у
// пользователя есть незавершённая сессия моложе 24 часов. Это деловое
// отклонение, не транзиентная ошибка: автоматический повтор не нужен.
var ErrPendingCheckout = errors.New("pending checkout session already exists")

// Repository определяет методы хранилища для checkout-сессий.
type Repository interface {
	CreateCheckoutSession(ctx context.Context, cs models.CheckoutSession) (int, error)
	FindActiveCheckoutSession(ctx context.Context, userUID string) (*models.CheckoutSession, error)
	MarkCheckoutCompleted(ctx context.Context, sessionRef string) (int, error)
	MarkCheckoutExpired(ctx context.Context, sessionRef string) (int, error)
	GetPlanByPriceRef(ctx context.Context, priceRef string) (*models.Plan, error)
}

// Gateway описывает создание checkout-сессии в платёжном шлюзе.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, userUID, companyUID, priceRef string) (*gateway.CheckoutRedirect, error)
}

// Service реализует трекер checkout-сессий.
type Service struct {
	repo    Repository
	gateway Gateway
	log     *slog.Logger
}

// New создает новый Service.
func New(repo Repository, gw Gateway, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		gateway: gw,
		log:     log,
	}
}

// Begin начинает оплату: отклоняет повторную попытку при живой
// pending-сессии, проверяет цену по каталогу планов, создаёт сессию
// в шлюзе и сохраняет pending-запись под её внешним идентификатором.
func (s *Service) Begin(ctx context.Context, userUID, companyUID, priceRef string) (*gateway.CheckoutRedirect, error) {
	const op = "checkout.Begin"

	existing, err := s.FindActive(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrPendingCheckout)
	}

	if _, err := s.repo.GetPlanByPriceRef(ctx, priceRef); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redirect, err := s.gateway.CreateCheckoutSession(ctx, userUID, companyUID, priceRef)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.repo.CreateCheckoutSession(ctx, models.CheckoutSession{
		UserUID:    userUID,
		CompanyUID: companyUID,
		SessionRef: redirect.SessionRef,
		PriceRef:   priceRef,
		Status:     models.CheckoutStatusPending,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.CheckoutSessionsTotal.Inc()
	s.log.Info("checkout session created",
		slog.String("user_uid", userUID),
		slog.String("session_ref", redirect.SessionRef))
	return redirect, nil
}

// FindActive возвращает живую pending-сессию пользователя либо nil.
// Используется и защитой Begin, и обработчиками, отсекающими двойную
// отправку формы.
func (s *Service) FindActive(ctx context.Context, userUID string) (*models.CheckoutSession, error) {
	cs, err := s.repo.FindActiveCheckoutSession(ctx, userUID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cs, nil
}

// MarkCompleted идемпотентно переводит сессию в completed: повторная
// доставка вебхука для уже терминальной сессии — no-op.
func (s *Service) MarkCompleted(ctx context.Context, sessionRef string) error {
	const op = "checkout.MarkCompleted"
	affected, err := s.repo.MarkCheckoutCompleted(ctx, sessionRef)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		s.log.Info("checkout session already terminal", slog.String("session_ref", sessionRef))
	}
	return nil
}

// MarkExpired идемпотентно переводит сессию в expired.
func (s *Service) MarkExpired(ctx context.Context, sessionRef string) error {
	const op = "checkout.MarkExpired"
	affected, err := s.repo.MarkCheckoutExpired(ctx, sessionRef)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		s.log.Info("checkout session already terminal", slog.String("session_ref", sessionRef))
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/maratsafin/hireboard-billing/internal/models"
)

// CreateCheckoutSession вставляет новую pending-сессию и возвращает её ID.
func (s *Storage) CreateCheckoutSession(ctx context.Context, cs models.CheckoutSession) (int, error) {
	const op = "storage.CreateCheckoutSession"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO checkout_sessions (user_uid, company_uid, session_ref, price_ref, status, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		cs.UserUID, cs.CompanyUID, cs.SessionRef, cs.PriceRef, cs.Status, cs.CreatedAt).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// FindActiveCheckoutSession возвращает pending-сессию пользователя моложе 24 часов.
// Более старые pending-строки считаются пассивно истёкшими и не блокируют
// новую попытку оплаты.
func (s *Storage) FindActiveCheckoutSession(ctx context.Context, userUID string) (*models.CheckoutSession, error) {
	const op = "storage.FindActiveCheckoutSession"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, company_uid, session_ref, price_ref, status, created_at
			  FROM checkout_sessions
			  WHERE user_uid = $1
			    AND status = 'pending'
			    AND created_at > now() - interval '24 hours'
			  ORDER BY created_at DESC
			  LIMIT 1`
	row := s.DB.QueryRowContext(ctx, query, userUID)

	var result models.CheckoutSession
	err := row.Scan(&result.ID, &result.UserUID, &result.CompanyUID, &result.SessionRef,
		&result.PriceRef, &result.Status, &result.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// GetCheckoutSessionByRef возвращает сессию по внешнему идентификатору шлюза.
func (s *Storage) GetCheckoutSessionByRef(ctx context.Context, sessionRef string) (*models.CheckoutSession, error) {
	const op = "storage.GetCheckoutSessionByRef"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, company_uid, session_ref, price_ref, status, created_at
			  FROM checkout_sessions
			  WHERE session_ref = $1`
	row := s.DB.QueryRowContext(ctx, query, sessionRef)

	var result models.CheckoutSession
	err := row.Scan(&result.ID, &result.UserUID, &result.CompanyUID, &result.SessionRef,
		&result.PriceRef, &result.Status, &result.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// MarkCheckoutCompleted переводит pending-сессию в completed.
// Для уже терминальной сессии вернёт 0 изменённых строк — доставка
// вебхуков at-least-once, повтор не является ошибкой.
func (s *Storage) MarkCheckoutCompleted(ctx context.Context, sessionRef string) (int, error) {
	return s.markCheckoutStatus(ctx, "storage.MarkCheckoutCompleted", sessionRef, models.CheckoutStatusCompleted)
}

// MarkCheckoutExpired переводит pending-сессию в expired, повтор — no-op.
func (s *Storage) MarkCheckoutExpired(ctx context.Context, sessionRef string) (int, error) {
	return s.markCheckoutStatus(ctx, "storage.MarkCheckoutExpired", sessionRef, models.CheckoutStatusExpired)
}

func (s *Storage) markCheckoutStatus(ctx context.Context, op, sessionRef, status string) (int, error) {
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE checkout_sessions
			  SET status = $1
			  WHERE session_ref = $2 AND status = 'pending'`
	result, err := s.DB.ExecContext(ctx, query, status, sessionRef)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

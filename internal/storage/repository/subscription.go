package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/maratsafin/hireboard-billing/internal/models"
)

const subscriptionColumns = `id, company_uid, plan_id, subscription_ref, customer_ref,
			      invoice_ref, invoice_pdf, status, started_at, next_billing_date, usage_counters`

// SupersedeAndCreate атомарно заменяет активную подписку компании новой:
// в одной транзакции переводит прежнюю активную строку в canceled и
// вставляет новую как active. У компании не может оказаться двух
// активных подписок; частичная запись откатывается целиком.
func (s *Storage) SupersedeAndCreate(ctx context.Context, sub models.Subscription) (int, error) {
	const op = "storage.SupersedeAndCreate"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	cancelQuery := `UPDATE subscriptions
			  SET status = 'canceled'
			  WHERE company_uid = $1 AND status = 'active'`
	if _, err := tx.ExecContext(ctx, cancelQuery, sub.CompanyUID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	usageJSON, err := json.Marshal(sub.Usage)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if sub.Usage == nil {
		usageJSON = []byte(`{}`)
	}

	insertQuery := `INSERT INTO subscriptions (company_uid, plan_id, subscription_ref, customer_ref,
			      invoice_ref, invoice_pdf, status, started_at, next_billing_date, usage_counters)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  RETURNING id`
	var newID int
	err = tx.QueryRowContext(ctx, insertQuery,
		sub.CompanyUID, sub.PlanID, sub.SubscriptionRef, sub.CustomerRef,
		sub.InvoiceRef, sub.InvoicePDF, sub.Status, sub.StartedAt,
		sub.NextBillingDate, usageJSON).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetActiveSubscription возвращает активную подписку компании.
func (s *Storage) GetActiveSubscription(ctx context.Context, companyUID string) (*models.Subscription, error) {
	const op = "storage.GetActiveSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE company_uid = $1 AND status = 'active'`
	return s.scanSubscription(s.DB.QueryRowContext(ctx, query, companyUID), op)
}

// ListSubscriptionHistory возвращает историю подписок компании,
// новые — первыми.
func (s *Storage) ListSubscriptionHistory(ctx context.Context, companyUID string) ([]*models.Subscription, error) {
	const op = "storage.ListSubscriptionHistory"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE company_uid = $1
			  ORDER BY started_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, companyUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		var item models.Subscription
		var usageJSON []byte
		if err := rows.Scan(&item.ID, &item.CompanyUID, &item.PlanID, &item.SubscriptionRef,
			&item.CustomerRef, &item.InvoiceRef, &item.InvoicePDF, &item.Status,
			&item.StartedAt, &item.NextBillingDate, &usageJSON); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := json.Unmarshal(usageJSON, &item.Usage); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// HasAnySubscription проверяет, была ли у компании хоть одна подписка,
// независимо от текущего статуса.
func (s *Storage) HasAnySubscription(ctx context.Context, companyUID string) (bool, error) {
	const op = "storage.HasAnySubscription"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (SELECT 1 FROM subscriptions WHERE company_uid = $1)`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, companyUID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// SubscriptionExistsByRef проверяет наличие подписки с данным внешним
// идентификатором. Используется для дедупликации повторных вебхуков.
func (s *Storage) SubscriptionExistsByRef(ctx context.Context, subscriptionRef string) (bool, error) {
	const op = "storage.SubscriptionExistsByRef"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (SELECT 1 FROM subscriptions WHERE subscription_ref = $1)`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, subscriptionRef).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// IncrementFeatureUsage увеличивает счётчик потребления фичи активной
// подписки компании на единицу. Инкремент выполняется одним UPDATE на
// стороне базы, поэтому конкурирующие вызовы не теряют обновлений.
// Возвращает число изменённых строк: 0 означает отсутствие активной подписки.
func (s *Storage) IncrementFeatureUsage(ctx context.Context, companyUID, feature string) (int, error) {
	const op = "storage.IncrementFeatureUsage"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET usage_counters = jsonb_set(
			      COALESCE(usage_counters, '{}'::jsonb),
			      ARRAY[$2],
			      (COALESCE((usage_counters ->> $2)::int, 0) + 1)::text::jsonb)
			  WHERE company_uid = $1 AND status = 'active'`
	result, err := s.DB.ExecContext(ctx, query, companyUID, feature)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ExpireDueSubscriptions переводит в expired активные подписки с датой
// списания в прошлом и возвращает затронутые строки для публикации
// событий. Повторный запуск безопасен: условие времени делает операцию
// естественно идемпотентной.
func (s *Storage) ExpireDueSubscriptions(ctx context.Context, now time.Time) ([]*models.ExpiredSubscription, error) {
	const op = "storage.ExpireDueSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET status = 'expired'
			  WHERE status = 'active' AND next_billing_date < $1
			  RETURNING id, company_uid, plan_id, next_billing_date`
	rows, err := s.DB.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.ExpiredSubscription
	for rows.Next() {
		var item models.ExpiredSubscription
		if err := rows.Scan(&item.ID, &item.CompanyUID, &item.PlanID, &item.NextBillingDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func (s *Storage) scanSubscription(row *sql.Row, op string) (*models.Subscription, error) {
	var result models.Subscription
	var usageJSON []byte
	err := row.Scan(&result.ID, &result.CompanyUID, &result.PlanID, &result.SubscriptionRef,
		&result.CustomerRef, &result.InvoiceRef, &result.InvoicePDF, &result.Status,
		&result.StartedAt, &result.NextBillingDate, &usageJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(usageJSON, &result.Usage); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/maratsafin/hireboard-billing/internal/models"
)

// GetPlanByID возвращает план по ID, включая мягко удалённые:
// исторические подписки должны разрешаться в свой план.
func (s *Storage) GetPlanByID(ctx context.Context, id int) (*models.Plan, error) {
	const op = "storage.GetPlanByID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, price_monthly, price_ref, features, is_active, is_deleted
			  FROM plans WHERE id = $1`
	return s.scanPlan(s.DB.QueryRowContext(ctx, query, id), op)
}

// GetPlanByPriceRef возвращает действующий план по внешнему идентификатору цены.
func (s *Storage) GetPlanByPriceRef(ctx context.Context, priceRef string) (*models.Plan, error) {
	const op = "storage.GetPlanByPriceRef"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, price_monthly, price_ref, features, is_active, is_deleted
			  FROM plans
			  WHERE price_ref = $1 AND is_deleted = false`
	return s.scanPlan(s.DB.QueryRowContext(ctx, query, priceRef), op)
}

// ListActivePlans возвращает каталог действующих планов.
func (s *Storage) ListActivePlans(ctx context.Context) ([]*models.Plan, error) {
	const op = "storage.ListActivePlans"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, price_monthly, price_ref, features, is_active, is_deleted
			  FROM plans
			  WHERE is_active = true AND is_deleted = false
			  ORDER BY price_monthly`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Plan
	for rows.Next() {
		var item models.Plan
		var featuresJSON []byte
		if err := rows.Scan(&item.ID, &item.Name, &item.PriceMonthly, &item.PriceRef,
			&featuresJSON, &item.IsActive, &item.IsDeleted); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := json.Unmarshal(featuresJSON, &item.Features); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func (s *Storage) scanPlan(row *sql.Row, op string) (*models.Plan, error) {
	var result models.Plan
	var featuresJSON []byte
	err := row.Scan(&result.ID, &result.Name, &result.PriceMonthly, &result.PriceRef,
		&featuresJSON, &result.IsActive, &result.IsDeleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(featuresJSON, &result.Features); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// Package analytics агрегирует финансовые метрики по данным платёжного
// шлюза: выручку по оплаченным инвойсам и нормализованные MRR/ARR.
// Агрегация пересчитывается на каждый запрос, собственного хранилища
// у пакета нет.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/maratsafin/hireboard-billing/internal/models"
)

// Допустимые значения диапазона выручки.
const (
	RangeWeek     = "7d"
	RangeMonth    = "1m"
	RangeHalfYear = "6m"
	RangeYear     = "1y"
	RangeAll      = "all"
)

// pageSize размер страницы при обходе списков шлюза.
const pageSize = int64(100)

// InvoicePager отдаёт страницу оплаченных инвойсов начиная с курсора.
// Пустой курсор — первая страница.
type InvoicePager interface {
	PaidInvoices(ctx context.Context, cursor string, limit int64) ([]models.InvoiceRecord, string, bool, error)
}

// SubscriptionPager отдаёт страницу активных подписок шлюза начиная с курсора.
type SubscriptionPager interface {
	ActiveSubscriptions(ctx context.Context, cursor string, limit int64) ([]models.GatewaySubscription, string, bool, error)
}

// Service реализует расчёт аналитики выручки.
type Service struct {
	invoices      InvoicePager
	subscriptions SubscriptionPager
	log           *slog.Logger
}

// New создает новый Service.
func New(invoices InvoicePager, subscriptions SubscriptionPager, log *slog.Logger) *Service {
	return &Service{
		invoices:      invoices,
		subscriptions: subscriptions,
		log:           log,
	}
}

// RevenueSummary считает выручку по всем оплаченным инвойсам: общую
// сумму за запрошенный диапазон, сумму за скользящие 12 месяцев и
// разбивку по интервалам. Для 7d и 1m интервал — день, иначе — месяц.
// Суммы переводятся из минорных единиц валюты в основные.
func (s *Service) RevenueSummary(ctx context.Context, rng string) (*models.RevenueSummary, error) {
	const op = "analytics.RevenueSummary"

	since, err := rangeStart(rng, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	invoices, err := s.collectInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	yearAgo := time.Now().UTC().AddDate(0, -12, 0)
	layout := bucketLayout(rng)

	summary := &models.RevenueSummary{Range: rng}
	buckets := make(map[string]float64)

	for _, inv := range invoices {
		amount := float64(inv.AmountPaid) / 100

		if inv.CreatedAt.After(yearAgo) {
			summary.TrailingYear += amount
		}
		if !since.IsZero() && inv.CreatedAt.Before(since) {
			continue
		}

		summary.TotalRevenue += amount
		summary.InvoicesCounted++
		buckets[inv.CreatedAt.UTC().Format(layout)] += amount
	}

	summary.Buckets = sortedBuckets(buckets)

	s.log.Info("revenue summary computed",
		slog.String("range", rng),
		slog.Int("invoices", summary.InvoicesCounted))
	return summary, nil
}

// RecurringRevenue считает MRR и ARR по активным подпискам шлюза.
// Каждая строка подписки нормализуется к месячной сумме по интервалу
// списания, ARR = MRR * 12.
func (s *Service) RecurringRevenue(ctx context.Context) (*models.RecurringRevenue, error) {
	const op = "analytics.RecurringRevenue"

	subs, err := s.collectSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := &models.RecurringRevenue{ActiveSubscriptions: len(subs)}
	for _, sub := range subs {
		for _, item := range sub.Items {
			result.MRR += monthlyAmount(item)
		}
	}
	result.ARR = result.MRR * 12

	s.log.Info("recurring revenue computed",
		slog.Int("active_subscriptions", result.ActiveSubscriptions))
	return result, nil
}

// collectInvoices обходит все страницы инвойсов до исчерпания списка.
func (s *Service) collectInvoices(ctx context.Context) ([]models.InvoiceRecord, error) {
	var all []models.InvoiceRecord
	cursor := ""
	for {
		page, next, hasMore, err := s.invoices.PaidInvoices(ctx, cursor, pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if !hasMore {
			return all, nil
		}
		cursor = next
	}
}

func (s *Service) collectSubscriptions(ctx context.Context) ([]models.GatewaySubscription, error) {
	var all []models.GatewaySubscription
	cursor := ""
	for {
		page, next, hasMore, err := s.subscriptions.ActiveSubscriptions(ctx, cursor, pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if !hasMore {
			return all, nil
		}
		cursor = next
	}
}

// rangeStart возвращает нижнюю границу диапазона. Нулевое время — без границы.
func rangeStart(rng string, now time.Time) (time.Time, error) {
	switch rng {
	case RangeWeek:
		return now.AddDate(0, 0, -7), nil
	case RangeMonth:
		return now.AddDate(0, -1, 0), nil
	case RangeHalfYear:
		return now.AddDate(0, -6, 0), nil
	case RangeYear:
		return now.AddDate(-1, 0, 0), nil
	case RangeAll:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("unknown range %q", rng)
	}
}

func bucketLayout(rng string) string {
	if rng == RangeWeek || rng == RangeMonth {
		return "2006-01-02"
	}
	return "2006-01"
}

// monthlyAmount приводит сумму строки подписки к месячной в основных
// единицах валюты. Неизвестный интервал считается месячным.
func monthlyAmount(item models.RecurringItem) float64 {
	qty := item.Quantity
	if qty == 0 {
		qty = 1
	}
	amount := float64(item.Amount) * float64(qty) / 100

	switch item.Interval {
	case "year":
		return amount / 12
	case "week":
		return amount * 52 / 12
	case "day":
		return amount * 365 / 12
	default:
		return amount
	}
}

func sortedBuckets(buckets map[string]float64) []models.RevenueBucket {
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]models.RevenueBucket, 0, len(keys))
	for _, k := range keys {
		result = append(result, models.RevenueBucket{Period: k, Revenue: buckets[k]})
	}
	return result
}

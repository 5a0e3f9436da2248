package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/invoice"
	"github.com/stripe/stripe-go/v82/subscription"

	"github.com/maratsafin/hireboard-billing/internal/models"
)

// Client клиент Stripe. Ключ API устанавливается процесс-глобально,
// экземпляр хранит только адреса возврата после оплаты.
type Client struct {
	successURL string
	cancelURL  string
}

// New настраивает ключ Stripe и создаёт клиент.
func New(apiKey, successURL, cancelURL string) *Client {
	stripe.Key = apiKey
	return &Client{
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

// CreateCheckoutSession создаёт в шлюзе checkout-сессию подписочного
// типа на указанную цену. Метаданные несут пользователя и компанию,
// чтобы вебхук мог связать оплату с внутренними сущностями.
func (c *Client) CreateCheckoutSession(ctx context.Context, userUID, companyUID, priceRef string) (*CheckoutRedirect, error) {
	const op = "gateway.CreateCheckoutSession"

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceRef),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(c.successURL),
		CancelURL:  stripe.String(c.cancelURL),
	}
	params.Context = ctx
	params.AddMetadata("user_uid", userUID)
	params.AddMetadata("company_uid", companyUID)

	sess, err := checkoutsession.New(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &CheckoutRedirect{
		SessionRef:  sess.ID,
		RedirectURL: sess.URL,
	}, nil
}

// GetSubscription возвращает данные подписки шлюза по её идентификатору.
func (c *Client) GetSubscription(ctx context.Context, subscriptionRef string) (*SubscriptionInfo, error) {
	const op = "gateway.GetSubscription"

	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := subscription.Get(subscriptionRef, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	info := &SubscriptionInfo{
		SubscriptionRef: sub.ID,
		StartedAt:       time.Unix(sub.StartDate, 0).UTC(),
	}
	if sub.Customer != nil {
		info.CustomerRef = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		info.PriceRef = sub.Items.Data[0].Price.ID
	}
	return info, nil
}

// LatestPaidInvoice возвращает последний оплаченный инвойс подписки,
// либо nil, если оплаченных инвойсов ещё нет.
func (c *Client) LatestPaidInvoice(ctx context.Context, subscriptionRef string) (*InvoiceInfo, error) {
	const op = "gateway.LatestPaidInvoice"

	params := &stripe.InvoiceListParams{
		Subscription: stripe.String(subscriptionRef),
		Status:       stripe.String(string(stripe.InvoiceStatusPaid)),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	it := invoice.List(params)
	for it.Next() {
		inv := it.Invoice()
		return &InvoiceInfo{
			InvoiceRef: inv.ID,
			InvoicePDF: inv.InvoicePDF,
		}, nil
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return nil, nil
}

// PaidInvoices возвращает одну страницу оплаченных инвойсов начиная с
// курсора. Вызывающая сторона обязана обходить страницы до исчерпания.
func (c *Client) PaidInvoices(ctx context.Context, cursor string, limit int64) ([]models.InvoiceRecord, string, bool, error) {
	const op = "gateway.PaidInvoices"

	params := &stripe.InvoiceListParams{
		Status: stripe.String(string(stripe.InvoiceStatusPaid)),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(limit)
	params.Single = true
	if cursor != "" {
		params.StartingAfter = stripe.String(cursor)
	}

	it := invoice.List(params)
	var items []models.InvoiceRecord
	var lastRef string
	for it.Next() {
		inv := it.Invoice()
		record := models.InvoiceRecord{
			InvoiceRef: inv.ID,
			AmountPaid: inv.AmountPaid,
			Currency:   string(inv.Currency),
			CreatedAt:  time.Unix(inv.Created, 0).UTC(),
		}
		if inv.Customer != nil {
			record.CustomerRef = inv.Customer.ID
		}
		items = append(items, record)
		lastRef = inv.ID
	}
	if err := it.Err(); err != nil {
		return nil, "", false, fmt.Errorf("%s: %w", op, err)
	}
	return items, lastRef, it.List().GetListMeta().HasMore, nil
}

// ActiveSubscriptions возвращает одну страницу активных подписок шлюза
// с их регулярными суммами для расчёта MRR.
func (c *Client) ActiveSubscriptions(ctx context.Context, cursor string, limit int64) ([]models.GatewaySubscription, string, bool, error) {
	const op = "gateway.ActiveSubscriptions"

	params := &stripe.SubscriptionListParams{
		Status: stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(limit)
	params.Single = true
	if cursor != "" {
		params.StartingAfter = stripe.String(cursor)
	}

	it := subscription.List(params)
	var items []models.GatewaySubscription
	var lastRef string
	for it.Next() {
		sub := it.Subscription()
		record := models.GatewaySubscription{SubscriptionRef: sub.ID}
		if sub.Items != nil {
			for _, item := range sub.Items.Data {
				if item.Price == nil || item.Price.Recurring == nil {
					continue
				}
				record.Items = append(record.Items, models.RecurringItem{
					Amount:   item.Price.UnitAmount,
					Interval: string(item.Price.Recurring.Interval),
					Quantity: item.Quantity,
				})
			}
		}
		items = append(items, record)
		lastRef = sub.ID
	}
	if err := it.Err(); err != nil {
		return nil, "", false, fmt.Errorf("%s: %w", op, err)
	}
	return items, lastRef, it.List().GetListMeta().HasMore, nil
}

// Package gateway реализует клиент платёжного шлюза Stripe:
// создание checkout-сессий, чтение подписок и инвойсов,
// постраничный обход оплаченных инвойсов и активных подписок.
package gateway

import "time"

// CheckoutRedirect результат создания checkout-сессии в шлюзе.
type CheckoutRedirect struct {
	SessionRef  string `json:"session_ref"`
	RedirectURL string `json:"redirect_url"`
}

// SubscriptionInfo данные подписки из шлюза, необходимые для
// гидратации внутренней записи.
type SubscriptionInfo struct {
	SubscriptionRef string
	CustomerRef     string
	PriceRef        string
	StartedAt       time.Time
}

// InvoiceInfo последний оплаченный инвойс подписки.
type InvoiceInfo struct {
	InvoiceRef string
	InvoicePDF string
}

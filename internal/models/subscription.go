package models

import "time"

// Статусы подписки компании.
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusExpired  = "expired"
)

// BillingPeriod длительность оплаченного периода: дата следующего
// списания считается как started_at + BillingPeriod.
const BillingPeriod = 28 * 24 * time.Hour

// Subscription подписка компании на тарифный план.
// Счётчики Usage привязаны к конкретному экземпляру подписки,
// поэтому новый биллинговый период начинается с нуля.
type Subscription struct {
	ID              int            `json:"id"`
	CompanyUID      string         `json:"company_uid"`
	PlanID          int            `json:"plan_id"`
	SubscriptionRef string         `json:"subscription_ref"` // Внешний идентификатор подписки в шлюзе
	CustomerRef     string         `json:"customer_ref"`     // Внешний идентификатор плательщика
	InvoiceRef      string         `json:"invoice_ref"`      // Последний оплаченный инвойс
	InvoicePDF      string         `json:"invoice_pdf"`      // Ссылка на PDF инвойса
	Status          string         `json:"status"`
	StartedAt       time.Time      `json:"started_at"`
	NextBillingDate time.Time      `json:"next_billing_date"`
	Usage           map[string]int `json:"usage"`
}

// UsedFeature возвращает текущее потребление фичи.
func (s *Subscription) UsedFeature(feature string) int {
	return s.Usage[feature]
}

// ExpiredSubscription минимальные данные истёкшей подписки
// для публикации события.
type ExpiredSubscription struct {
	ID              int       `json:"id"`
	CompanyUID      string    `json:"company_uid"`
	PlanID          int       `json:"plan_id"`
	NextBillingDate time.Time `json:"next_billing_date"`
}

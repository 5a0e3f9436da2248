package models

import "time"

// InvoiceRecord оплаченный инвойс платёжного шлюза, приведённый к
// внутреннему виду. Не персистится — агрегация пересчитывается
// на каждый запрос аналитики.
type InvoiceRecord struct {
	InvoiceRef  string    `json:"invoice_ref"`
	CustomerRef string    `json:"customer_ref"`
	AmountPaid  int64     `json:"amount_paid"` // В минорных единицах валюты
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
}

// RecurringItem строка активной подписки в шлюзе: регулярная сумма
// и интервал списания. Используется для нормализации в MRR.
type RecurringItem struct {
	Amount   int64  `json:"amount"`   // В минорных единицах валюты
	Interval string `json:"interval"` // day | week | month | year
	Quantity int64  `json:"quantity"`
}

// GatewaySubscription активная подписка в платёжном шлюзе.
type GatewaySubscription struct {
	SubscriptionRef string          `json:"subscription_ref"`
	Items           []RecurringItem `json:"items"`
}

// RevenueBucket выручка за один временной интервал.
type RevenueBucket struct {
	Period  string  `json:"period"` // Метка интервала: "2006-01-02" либо "2006-01"
	Revenue float64 `json:"revenue"`
}

// RevenueSummary агрегированная выручка по оплаченным инвойсам.
type RevenueSummary struct {
	Range           string          `json:"range"`
	TotalRevenue    float64         `json:"total_revenue"`
	TrailingYear    float64         `json:"trailing_year"`
	Buckets         []RevenueBucket `json:"buckets"`
	InvoicesCounted int             `json:"invoices_counted"`
}

// RecurringRevenue нормализованные метрики регулярной выручки.
type RecurringRevenue struct {
	MRR                 float64 `json:"mrr"`
	ARR                 float64 `json:"arr"`
	ActiveSubscriptions int     `json:"active_subscriptions"`
}

package models

import "time"

// Статусы checkout-сессии. Терминальные переходы выполняет только
// обработчик вебхуков, повторный перевод в терминальный статус — no-op.
const (
	CheckoutStatusPending   = "pending"
	CheckoutStatusCompleted = "completed"
	CheckoutStatusExpired   = "expired"
)

// PendingCheckoutWindow окно, в течение которого pending-сессия
// блокирует повторную попытку оплаты тем же пользователем.
const PendingCheckoutWindow = 24 * time.Hour

// CheckoutSession запись о попытке оплаты, ключом служит внешний
// идентификатор сессии платёжного шлюза.
type CheckoutSession struct {
	ID         int       `json:"id"`
	UserUID    string    `json:"user_uid"`
	CompanyUID string    `json:"company_uid"`
	SessionRef string    `json:"session_ref"`
	PriceRef   string    `json:"price_ref"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

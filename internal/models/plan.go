// Package models содержит доменные структуры биллингового ядра:
// тарифные планы, checkout-сессии, подписки компаний и
// вспомогательные типы для аналитики выручки.
package models

// UnlimitedLimit значение лимита фичи, означающее отсутствие ограничения.
const UnlimitedLimit = -1

// FeatureJobPost ключ фичи публикации вакансий — минимально тарифицируемая
// операция платформы.
const FeatureJobPost = "jobpost"

// Plan представляет тарифный план подписки.
// Features хранит лимиты по фичам (ключ фичи -> число), -1 — безлимит.
// Планы удаляются только мягко: исторические подписки должны
// продолжать разрешаться в свой план.
type Plan struct {
	ID           int            `json:"id"`
	Name         string         `json:"name"`
	PriceMonthly int64          `json:"price_monthly"` // Цена за месяц в минорных единицах валюты
	PriceRef     string         `json:"price_ref"`     // Внешний идентификатор цены в платёжном шлюзе
	Features     map[string]int `json:"features"`
	IsActive     bool           `json:"is_active"`
	IsDeleted    bool           `json:"is_deleted"`
}

// FeatureLimit возвращает лимит фичи и признак того, что фича вообще
// входит в план.
func (p *Plan) FeatureLimit(feature string) (int, bool) {
	limit, ok := p.Features[feature]
	return limit, ok
}

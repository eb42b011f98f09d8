package models

import "time"

// Coupon — промокод на скидку в процентах от суммы заказа
type Coupon struct {
	ID              int64     `json:"id"`
	Code            string    `json:"code"`
	DiscountPercent int       `json:"discount_percent"` // 1..100
	MinOrderAmount  int64     `json:"min_order_amount"`
	UsageLimit      int       `json:"usage_limit"` // 0 — без ограничения
	UsedCount       int       `json:"used_count"`
	ExpiresAt       time.Time `json:"expires_at"`
	Active          bool      `json:"active"`
}

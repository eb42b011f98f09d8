package models

import "time"

// Статусы платежа
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// Payment — запись об оплате заказа, создается вместе с заказом
type Payment struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	Method    string    `json:"method"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Reference string    `json:"reference"` // uuid для сверки с банковской выпиской
	CreatedAt time.Time `json:"created_at"`
}

package models

import "time"

// Способы оплаты, допустимые при оформлении заказа
const (
	PaymentMethodCOD          = "cod"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodMomo         = "momo"
	PaymentMethodZaloPay      = "zalopay"
)

// Order представляет заказ пользователя
type Order struct {
	ID              int64        `json:"id"`
	UserID          int64        `json:"user_id"`
	UserName        string       `json:"user_name,omitempty"`  // заполняется через JOIN с таблицей users
	UserEmail       string       `json:"user_email,omitempty"` // заполняется через JOIN с таблицей users
	TotalAmount     int64        `json:"total_amount"`
	Status          OrderStatus  `json:"status"`
	ShippingAddress string       `json:"shipping_address"`
	Note            string       `json:"note,omitempty"`
	PaymentMethod   string       `json:"payment_method"`
	Items           []*OrderItem `json:"items,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// OrderItem — позиция заказа со снимком товара.
// Цена фиксируется в момент оформления и больше не пересчитывается.
type OrderItem struct {
	ID           int64  `json:"id"`
	OrderID      int64  `json:"order_id"`
	ProductID    int64  `json:"product_id"`
	ProductName  string `json:"product_name"`
	ProductImage string `json:"product_image"`
	Price        int64  `json:"price"`
	Quantity     int    `json:"quantity"`
}

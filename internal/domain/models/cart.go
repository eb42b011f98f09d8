package models

// CartItem — позиция корзины пользователя.
// Название, картинка и цена подтягиваются через JOIN с таблицей products.
type CartItem struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	ProductID    int64  `json:"product_id"`
	ProductName  string `json:"product_name"`
	ProductImage string `json:"product_image"`
	Price        int64  `json:"price"`
	Quantity     int    `json:"quantity"`
	Stock        int    `json:"stock"` // актуальный остаток, для подсказки на фронте
}

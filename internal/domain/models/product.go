package models

import "time"

// Product представляет товар каталога.
// Цена хранится в целых донгах, без дробной части.
type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Image         string    `json:"image"`
	Price         int64     `json:"price"`
	StockQuantity int       `json:"stock_quantity"`
	SoldCount     int       `json:"sold_count"`
	CreatedAt     time.Time `json:"created_at"`
}

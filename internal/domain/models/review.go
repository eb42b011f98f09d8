package models

import "time"

// Review представляет отзыв на товар
type Review struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"` // заполняется через JOIN с таблицей users
	ProductID int64     `json:"product_id"`
	Rating    int       `json:"rating"` // 1..5
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

package models

import "time"

// Статусы заявки на отмену заказа
const (
	CancelPending  = "pending"
	CancelApproved = "approved"
	CancelRejected = "rejected"
)

// CancelRequest — заявка пользователя на отмену уже оформленного заказа.
// На заказ допускается не более одной активной (pending/approved) заявки.
type CancelRequest struct {
	ID            int64       `json:"id"`
	OrderID       int64       `json:"order_id"`
	UserID        int64       `json:"user_id"`
	Status        string      `json:"status"`
	Reason        string      `json:"reason"`
	AdminResponse *string     `json:"admin_response,omitempty"`
	PriorStatus   OrderStatus `json:"prior_status"` // статус заказа на момент подачи, для отката при отклонении
	ProcessedAt   *time.Time  `json:"processed_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

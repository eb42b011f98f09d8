package models

// OrderStatus — статус заказа
type OrderStatus string

const (
	StatusNew             OrderStatus = "new"
	StatusConfirmed       OrderStatus = "confirmed"
	StatusPreparing       OrderStatus = "preparing"
	StatusShipping        OrderStatus = "shipping"
	StatusDelivered       OrderStatus = "delivered"
	StatusCancelRequested OrderStatus = "cancel_requested"
	StatusCancelled       OrderStatus = "cancelled"
)

// validNext описывает допустимые переходы статусов.
// Линейная цепочка new -> confirmed -> preparing -> shipping -> delivered,
// плюс ветка отмены через cancel_requested.
var validNext = map[OrderStatus]map[OrderStatus]bool{
	StatusNew:             {StatusConfirmed: true, StatusCancelRequested: true, StatusCancelled: true},
	StatusConfirmed:       {StatusPreparing: true, StatusCancelRequested: true},
	StatusPreparing:       {StatusShipping: true},
	StatusShipping:        {StatusDelivered: true},
	StatusDelivered:       {},
	StatusCancelRequested: {StatusNew: true, StatusConfirmed: true, StatusCancelled: true},
	StatusCancelled:       {},
}

// CanTransition проверяет, разрешен ли переход from -> to.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// IsValidStatus проверяет, что строка — известный статус заказа.
func IsValidStatus(s string) bool {
	_, ok := validNext[OrderStatus(s)]
	return ok
}

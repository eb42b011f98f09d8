package models

import "time"

// Роли пользователей
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User представляет пользователя магазина
type User struct {
	ID        int64
	Email     string
	FullName  string
	PassHash  []byte
	Role      string // customer или admin
	Verified  bool   // email подтвержден через OTP
	CreatedAt time.Time
}

package models

import (
	"time"
)

// Cashier is a staff member allowed to open a cash drawer shift.
type Cashier struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	Username  string    `json:"username" gorm:"unique;not null"`
	PinHash   string    `json:"-" gorm:"not null"`
	Role      string    `json:"role" gorm:"default:'cashier'"` // admin, cashier
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CashierRole string

const (
	RoleAdmin   CashierRole = "admin"
	RoleCashier CashierRole = "cashier"
)

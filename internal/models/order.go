package models

import (
	"time"
)

type Order struct {
	ID            string        `json:"id" gorm:"primaryKey"`
	CustomerName  string        `json:"customer_name" gorm:"not null"`
	CustomerPhone string        `json:"customer_phone"`
	TableNumber   *string       `json:"table_number" gorm:"index"`
	OrderType     OrderType     `json:"order_type" gorm:"not null"`
	Status        OrderStatus   `json:"status" gorm:"index;default:'new'"`
	PaymentMethod PaymentMethod `json:"payment_method" gorm:"not null"`
	PaymentStatus PaymentStatus `json:"payment_status" gorm:"default:'unpaid'"`
	Items         []OrderItem   `json:"items" gorm:"foreignKey:OrderID"`
	Total         int64         `json:"total" gorm:"not null"`
	Tax           int64         `json:"tax"`
	Discount      int64         `json:"discount"`
	Notes         string        `json:"notes"`
	ShiftID       *string       `json:"shift_id" gorm:"index"`
	Archived      bool          `json:"archived" gorm:"index;default:false"`
	MergedIntoID  *string       `json:"merged_into_id"`
	Version       int64         `json:"version" gorm:"not null;default:0"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	CompletedAt   *time.Time    `json:"completed_at"`
}

type OrderType string

const (
	DineIn   OrderType = "dine-in"
	TakeAway OrderType = "take-away"
)

type PaymentStatus string

const (
	Unpaid PaymentStatus = "unpaid"
	Paid   PaymentStatus = "paid"
)

// ItemsSubtotal sums the line subtotals.
func (o *Order) ItemsSubtotal() int64 {
	var sum int64
	for _, item := range o.Items {
		sum += item.Subtotal
	}
	return sum
}

// RecalculateTotal keeps total == sum(subtotal) + tax - discount.
func (o *Order) RecalculateTotal() {
	o.Total = o.ItemsSubtotal() + o.Tax - o.Discount
}

// IsOpen reports whether the order can still change status.
func (o *Order) IsOpen() bool {
	return !o.Archived && !o.Status.IsTerminal()
}

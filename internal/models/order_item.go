package models

type OrderItem struct {
	ID         uint   `json:"-" gorm:"primaryKey"`
	OrderID    string `json:"-" gorm:"index;not null"`
	MenuItemID string `json:"menu_item_id" gorm:"not null"`
	Name       string `json:"name" gorm:"not null"`
	Qty        int    `json:"qty" gorm:"not null"`
	UnitPrice  int64  `json:"unit_price" gorm:"not null"`
	Subtotal   int64  `json:"subtotal" gorm:"not null"`
}

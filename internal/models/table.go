package models

import "time"

type Table struct {
	ID        string      `json:"id" gorm:"primaryKey"` // table number as printed
	Status    TableStatus `json:"status" gorm:"default:'available'"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableOccupied  TableStatus = "occupied"
	TableDirty     TableStatus = "dirty"
)

package models

import "time"

// UnlimitedPortions stands in for "no stock constraint" so availability stays
// a plain integer everywhere.
const UnlimitedPortions = 999999

type Ingredient struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	Name          string    `json:"name" gorm:"not null"`
	StockQuantity float64   `json:"stock_quantity" gorm:"not null;default:0"`
	Unit          string    `json:"unit"` // ml, gr, pcs
	Version       int64     `json:"version" gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type MenuItem struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	Name           string    `json:"name" gorm:"not null"`
	Price          int64     `json:"price" gorm:"not null"`
	Category       string    `json:"category"`
	IsActive       bool      `json:"is_active" gorm:"default:true"`
	UsesStockCheck bool      `json:"uses_stock_check" gorm:"default:false"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Recipe is keyed by menu item; writing it replaces all lines.
type Recipe struct {
	MenuItemID string       `json:"menu_item_id" gorm:"primaryKey"`
	Lines      []RecipeLine `json:"ingredient_lines" gorm:"foreignKey:MenuItemID;references:MenuItemID"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

type RecipeLine struct {
	ID                 uint    `json:"-" gorm:"primaryKey"`
	MenuItemID         string  `json:"-" gorm:"index;not null"`
	IngredientID       string  `json:"ingredient_id" gorm:"not null"`
	QuantityPerPortion float64 `json:"quantity_per_portion" gorm:"not null"`
}

// MenuAvailability is a read model for the cashier menu grid.
type MenuAvailability struct {
	MenuItemID     string `json:"menu_item_id"`
	Name           string `json:"name"`
	Price          int64  `json:"price"`
	Category       string `json:"category"`
	UsesStockCheck bool   `json:"uses_stock_check"`
	Available      int    `json:"available_qty"`
	Unlimited      bool   `json:"unlimited"`
}

// RecipeIssue describes a recipe line pointing at a missing ingredient.
type RecipeIssue struct {
	MenuItemID   string  `json:"menu_item_id"`
	MenuItemName string  `json:"menu_item_name"`
	IngredientID string  `json:"ingredient_id"`
	Needed       float64 `json:"needed"`
}

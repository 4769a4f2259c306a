package repository

import (
	"context"
	"time"

	"warkop_pos/internal/models"
)

type IngredientRepository interface {
	Create(ctx context.Context, ingredient *models.Ingredient) error
	GetByID(ctx context.Context, id string) (*models.Ingredient, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.Ingredient, error)
	List(ctx context.Context) ([]models.Ingredient, error)
	Update(ctx context.Context, ingredient *models.Ingredient) error
	Delete(ctx context.Context, id string) error
	// Decrement subtracts amount only while stock_quantity >= amount. When the
	// stock is short nothing changes and ok is false; qty is then the quantity
	// observed at write time.
	Decrement(ctx context.Context, id string, amount float64) (qty float64, ok bool, err error)
	Increment(ctx context.Context, id string, amount float64) (float64, error)
	SetQuantity(ctx context.Context, id string, qty float64) error
}

type RecipeRepository interface {
	Upsert(ctx context.Context, recipe *models.Recipe) error
	// GetByMenuItem returns nil, nil when the item has no recipe.
	GetByMenuItem(ctx context.Context, menuItemID string) (*models.Recipe, error)
	List(ctx context.Context) ([]models.Recipe, error)
	// FindByIngredient returns the first menu item whose recipe uses the ingredient.
	FindByIngredient(ctx context.Context, ingredientID string) (string, bool, error)
}

type MenuItemRepository interface {
	Create(ctx context.Context, item *models.MenuItem) error
	GetByID(ctx context.Context, id string) (*models.MenuItem, error)
	ListActive(ctx context.Context) ([]models.MenuItem, error)
	Update(ctx context.Context, item *models.MenuItem) error
}

type OrderFilter struct {
	Status          models.OrderStatus
	TableNumber     string
	ShiftID         string
	IncludeArchived bool
	Limit           int
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	// Update persists the mutable order fields if order.Version still matches
	// the stored row and bumps Version. A stale version yields ErrConflict.
	Update(ctx context.Context, order *models.Order) error
	// MoveItems re-points every line item of the source orders to targetID.
	MoveItems(ctx context.Context, sourceIDs []string, targetID string) error
	CountActiveAtTable(ctx context.Context, tableNumber, excludeOrderID string) (int64, error)
}

type ShiftRepository interface {
	// Create fails with ShiftAlreadyOpenError if the cashier has an open shift.
	Create(ctx context.Context, shift *models.Shift) error
	GetByID(ctx context.Context, id string) (*models.Shift, error)
	GetOpenByCashier(ctx context.Context, cashierID string) (*models.Shift, error)
	AddSale(ctx context.Context, id string, bucket models.LedgerBucket, amount int64) (*models.Shift, error)
	AddCashOut(ctx context.Context, id string, amount int64) (*models.Shift, error)
	// Close flips an open shift to closed exactly once; a closed shift yields ShiftClosedError.
	Close(ctx context.Context, id string, countedCash int64, at time.Time) (*models.Shift, error)
	List(ctx context.Context, limit int) ([]models.Shift, error)
}

type ShiftActivityRepository interface {
	Create(ctx context.Context, activity *models.ShiftActivity) error
	ListByShift(ctx context.Context, shiftID string) ([]models.ShiftActivity, error)
}

type TableRepository interface {
	GetByID(ctx context.Context, id string) (*models.Table, error)
	Upsert(ctx context.Context, table *models.Table) error
	SetStatus(ctx context.Context, id string, status models.TableStatus) error
	List(ctx context.Context) ([]models.Table, error)
}

type CashierRepository interface {
	Create(ctx context.Context, cashier *models.Cashier) error
	GetByID(ctx context.Context, id string) (*models.Cashier, error)
	GetByUsername(ctx context.Context, username string) (*models.Cashier, error)
	List(ctx context.Context) ([]models.Cashier, error)
}

// Repositories bundles every repository bound to the same connection or transaction.
type Repositories struct {
	Ingredients IngredientRepository
	Recipes     RecipeRepository
	MenuItems   MenuItemRepository
	Orders      OrderRepository
	Shifts      ShiftRepository
	Activities  ShiftActivityRepository
	Tables      TableRepository
	Cashiers    CashierRepository
}

// Store is the persistence boundary of the POS core. Transaction runs fn as a
// single unit of work: either every write inside it commits or none does.
type Store interface {
	Repos() Repositories
	Transaction(ctx context.Context, fn func(repos Repositories) error) error
	Ping(ctx context.Context) error
}

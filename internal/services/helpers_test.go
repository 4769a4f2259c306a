package services

import (
	"context"
	"testing"
	"time"

	"warkop_pos/internal/lock"
	"warkop_pos/internal/models"
	"warkop_pos/internal/repository"
	"warkop_pos/internal/repository/memory"

	"go.uber.org/zap"
)

type fixture struct {
	store    *memory.Store
	locker   *lock.Memory
	stock    StockLedger
	resolver RecipeResolver
	shifts   ShiftLedger
	tables   TableService
	orders   OrderService
	merger   BillMerger
}

var testRetry = RetryPolicy{Attempts: 3, Backoff: time.Millisecond}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, memory.New(), RejectNegative)
}

func newFixtureWithStore(t *testing.T, mem *memory.Store, policy NegativeStockPolicy) *fixture {
	t.Helper()
	log := zap.NewNop()
	locker := lock.NewMemory()
	opts := OrderOptions{LockTTL: time.Minute, RequestTimeout: 5 * time.Second}

	f := &fixture{store: mem, locker: locker}
	f.stock = NewStockLedger(mem, nil, policy, testRetry, log)
	f.resolver = NewRecipeResolver(mem, f.stock, nil, time.Second, testRetry, log)
	f.shifts = NewShiftLedger(mem, 5000, testRetry, log)
	f.tables = NewTableService(mem, log)
	f.orders = NewOrderService(mem, f.resolver, f.shifts, f.tables, nil, locker, opts, testRetry, log)
	f.merger = NewBillMerger(mem, f.tables, locker, opts, testRetry, log)
	return f
}

func (f *fixture) repos() repository.Repositories {
	return f.store.Repos()
}

// seed registers the milk-coffee catalogue used across tests: "kopi-susu"
// needs 200 ml of milk per portion, "es-teh" is not stock checked.
func (f *fixture) seed(t *testing.T, milk float64) {
	t.Helper()
	ctx := context.Background()
	r := f.repos()
	must(t, r.Ingredients.Create(ctx, &models.Ingredient{ID: "milk", Name: "Susu", StockQuantity: milk, Unit: "ml"}))
	must(t, r.MenuItems.Create(ctx, &models.MenuItem{ID: "kopi-susu", Name: "Kopi Susu", Price: 18000, Category: "coffee", IsActive: true, UsesStockCheck: true}))
	must(t, r.MenuItems.Create(ctx, &models.MenuItem{ID: "es-teh", Name: "Es Teh", Price: 5000, Category: "tea", IsActive: true}))
	must(t, r.Recipes.Upsert(ctx, &models.Recipe{MenuItemID: "kopi-susu", Lines: []models.RecipeLine{
		{IngredientID: "milk", QuantityPerPortion: 200},
	}}))
	must(t, r.Cashiers.Create(ctx, &models.Cashier{ID: "c1", Name: "Sari", Username: "sari", IsActive: true}))
}

func (f *fixture) openShift(t *testing.T, cashierID string, opening int64) *models.Shift {
	t.Helper()
	shift, err := f.shifts.Open(context.Background(), cashierID, opening)
	if err != nil {
		t.Fatalf("Open shift: %v", err)
	}
	return shift
}

func (f *fixture) newOrder(t *testing.T, draft OrderDraft) *models.Order {
	t.Helper()
	if draft.CustomerName == "" {
		draft.CustomerName = "Budi"
	}
	if draft.OrderType == "" {
		draft.OrderType = models.TakeAway
	}
	order, err := f.orders.CreateOrder(context.Background(), draft)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	return order
}

func (f *fixture) advance(t *testing.T, orderID string, statuses ...models.OrderStatus) *models.Order {
	t.Helper()
	var order *models.Order
	for _, st := range statuses {
		var err error
		order, err = f.orders.AdvanceOrderStatus(context.Background(), orderID, st)
		if err != nil {
			t.Fatalf("advance %s to %s: %v", orderID, st, err)
		}
	}
	return order
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

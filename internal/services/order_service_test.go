package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"warkop_pos/internal/apperrors"
	"warkop_pos/internal/lock"
	"warkop_pos/internal/models"
	"warkop_pos/internal/repository"
)

func TestCreateOrderValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, 1000)

	tests := []struct {
		name  string
		draft OrderDraft
		field string
	}{
		{"no customer", OrderDraft{Items: []DraftItem{{MenuItemID: "es-teh", Qty: 1}}}, "customer_name"},
		{"empty cart", OrderDraft{CustomerName: "Budi"}, "items"},
		{"dine-in without table", OrderDraft{CustomerName: "Budi", OrderType: models.DineIn, Items: []DraftItem{{MenuItemID: "es-teh", Qty: 1}}}, "table_number"},
		{"zero qty", OrderDraft{CustomerName: "Budi", Items: []DraftItem{{MenuItemID: "es-teh", Qty: 0}}}, "items[0].qty"},
		{"bad method", OrderDraft{CustomerName: "Budi", PaymentMethod: "gold", Items: []DraftItem{{MenuItemID: "es-teh", Qty: 1}}}, "payment_method"},
		{"too many portions", OrderDraft{CustomerName: "Budi", Items: []DraftItem{{MenuItemID: "kopi-susu", Qty: 6}}}, "items"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orders.CreateOrder(ctx, tt.draft)
			var v *apperrors.ValidationError
			if !errors.As(err, &v) {
				t.Fatalf("got %v, want ValidationError", err)
			}
			if v.Field != tt.field {
				t.Errorf("field = %s, want %s", v.Field, tt.field)
			}
		})
	}

	if _, err := f.orders.CreateOrder(ctx, OrderDraft{CustomerName: "Budi", Items: []DraftItem{{MenuItemID: "ghost", Qty: 1}}}); !apperrors.IsNotFound(err) {
		t.Errorf("unknown menu item: got %v, want not found", err)
	}
}

func TestCreateOrderTotalsAndTable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, 1000)
	f.openShift(t, "c1", 0)

	order := f.newOrder(t, OrderDraft{
		CustomerPhone: "0812-3456-7890",
		OrderType:     models.DineIn,
		TableNumber:   "5",
		Items:         []DraftItem{{MenuItemID: "kopi-susu", Qty: 2}, {MenuItemID: "es-teh", Qty: 1}},
		Tax:           4100,
		Discount:      1000,
		CashierID:     "c1",
	})

	if order.Status != models.OrderNew || order.PaymentStatus != models.Unpaid {
		t.Errorf("status = %s/%s, want new/unpaid", order.Status, order.PaymentStatus)
	}
	if order.Total != 2*18000+5000+4100-1000 {
		t.Errorf("total = %d, want %d", order.Total, 2*18000+5000+4100-1000)
	}
	if order.Total != order.ItemsSubtotal()+order.Tax-order.Discount {
		t.Error("total does not match subtotal + tax - discount")
	}
	if order.CustomerPhone != "6281234567890" {
		t.Errorf("phone = %s, want 6281234567890", order.CustomerPhone)
	}
	if order.ShiftID == nil {
		t.Error("order should be bound to the cashier's open shift")
	}

	table, err := f.repos().Tables.GetByID(ctx, "5")
	if err != nil || table.Status != models.TableOccupied {
		t.Errorf("table 5 = %+v (%v), want occupied", table, err)
	}

	proof := f.newOrder(t, OrderDraft{PaymentMethod: models.PaymentQRIS, RequireProof: true,
		Items: []DraftItem{{MenuItemID: "es-teh", Qty: 1}}})
	if proof.Status != models.OrderPendingPayment {
		t.Errorf("qris order with proof starts in %s, want pending_payment", proof.Status)
	}
}

func TestOrderHappyPathCreditsShift(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, 1000)
	shift := f.openShift(t, "c1", 0)

	order := f.newOrder(t, OrderDraft{Items: []DraftItem{{MenuItemID: "kopi-susu", Qty: 1}}, PaymentMethod: models.PaymentQRIS, CashierID: "c1"})
	f.advance(t, order.ID, models.OrderProcess)
	if qty, _ := f.stock.Peek(ctx, "milk"); qty != 800 {
		t.Errorf("milk after process = %v, want 800", qty)
	}

	_, err := f.orders.AdvanceOrderStatus(ctx, order.ID, models.OrderDone)
	var bad *apperrors.InvalidTransitionError
	if !errors.As(err, &bad) {
		t.Fatalf("done while unpaid: got %v, want InvalidTransitionError", err)
	}

	if _, err := f.orders.ConfirmPayment(ctx, order.ID, models.PaymentQRIS, ""); err != nil {
		t.Fatal(err)
	}
	done := f.advance(t, order.ID, models.OrderDone)
	if done.CompletedAt == nil {
		t.Error("completed_at not set")
	}

	got, _ := f.repos().Shifts.GetByID(ctx, shift.ID)
	if got.NonCashSalesTotal != 18000 || got.CashSalesTotal != 0 {
		t.Errorf("shift totals cash=%d non-cash=%d, want 0 and 18000", got.CashSalesTotal, got.NonCashSalesTotal)
	}
	activities, _ := f.shifts.Activities(ctx, shift.ID)
	if n := len(activities); n != 2 || activities[1].Kind != models.ActivitySale || *activities[1].OrderID != order.ID {
		t.Errorf("activities = %+v, want open then sale for %s", activities, order.ID)
	}

	if _, err := f.orders.AdvanceOrderStatus(ctx, order.ID, models.OrderCancel); !errors.As(err, &bad) {
		t.Errorf("cancel after done: got %v, want InvalidTransitionError", err)
	}
}

func TestOrderOutlivingItsShift(t *testing.T) {
	ctx := context.Background()

	// each case leaves the order paid and in process after shift A closed
	setup := func(t *testing.T) (*fixture, *models.Order, *models.Shift) {
		t.Helper()
		f := newFixture(t)
		f.seed(t, 1000)
		must(t, f.repos().Cashiers.Create(ctx, &models.Cashier{ID: "c2", Name: "Dewi", Username: "dewi", IsActive: true}))
		shiftA := f.openShift(t, "c1", 0)
		order := f.newOrder(t, OrderDraft{Items: []DraftItem{{MenuItemID: "es-teh", Qty: 2}}, CashierID: "c1"})
		f.advance(t, order.ID, models.OrderProcess)
		if _, err := f.shifts.Close(ctx, shiftA.ID, 0); err != nil {
			t.Fatal(err)
		}
		return f, order, shiftA
	}

	t.Run("next cashier confirms payment", func(t *testing.T) {
		f, order, shiftA := setup(t)
		shiftB := f.openShift(t, "c2", 50000)
		if _, err := f.orders.ConfirmPayment(ctx, order.ID, models.PaymentCash, "c2"); err != nil {
			t.Fatalf("ConfirmPayment: %v", err)
		}
		done := f.advance(t, order.ID, models.OrderDone)
		if done.ShiftID == nil || *done.ShiftID != shiftB.ID {
			t.Errorf("order shift = %v, want %s", done.ShiftID, shiftB.ID)
		}
		got, _ := f.repos().Shifts.GetByID(ctx, shiftB.ID)
		if got.CashSalesTotal != 10000 || got.ExpectedCash != 60000 {
			t.Errorf("shift B cash=%d expected=%d, want 10000 and 60000", got.CashSalesTotal, got.ExpectedCash)
		}
		closed, _ := f.repos().Shifts.GetByID(ctx, shiftA.ID)
		if closed.CashSalesTotal != 0 {
			t.Errorf("closed shift A was credited %d", closed.CashSalesTotal)
		}
	})

	t.Run("same cashier reopens", func(t *testing.T) {
		f, order, _ := setup(t)
		if _, err := f.orders.ConfirmPayment(ctx, order.ID, models.PaymentQRIS, ""); err != nil {
			t.Fatal(err)
		}
		reopened := f.openShift(t, "c1", 0)
		done := f.advance(t, order.ID, models.OrderDone)
		if *done.ShiftID != reopened.ID {
			t.Errorf("order shift = %s, want %s", *done.ShiftID, reopened.ID)
		}
		got, _ := f.repos().Shifts.GetByID(ctx, reopened.ID)
		if got.NonCashSalesTotal != 10000 {
			t.Errorf("reopened shift non-cash = %d, want 10000", got.NonCashSalesTotal)
		}
		stored, _ := f.orders.GetOrder(ctx, order.ID)
		if *stored.ShiftID != reopened.ID {
			t.Errorf("stored order shift = %s, want %s", *stored.ShiftID, reopened.ID)
		}
	})

	t.Run("no open shift", func(t *testing.T) {
		f, order, _ := setup(t)
		if _, err := f.orders.ConfirmPayment(ctx, order.ID, models.PaymentCash, ""); err != nil {
			t.Fatal(err)
		}
		_, err := f.orders.AdvanceOrderStatus(ctx, order.ID, models.OrderDone)
		var bad *apperrors.InvalidTransitionError
		if !errors.As(err, &bad) {
			t.Fatalf("got %v, want InvalidTransitionError", err)
		}
		stored, _ := f.orders.GetOrder(ctx, order.ID)
		if stored.Status != models.OrderProcess {
			t.Errorf("status = %s, want process", stored.Status)
		}
	})
}

func TestTransitionGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, 1000)

	cash := f.newOrder(t, OrderDraft{Items: []DraftItem{{MenuItemID: "es-teh", Qty: 1}}})
	qris := f.newOrder(t, OrderDraft{PaymentMethod: models.PaymentQRIS, Items: []DraftItem{{MenuItemID: "es-teh", Qty: 1}}})

	tests := []struct {
		name    string
		orderID string
		target  models.OrderStatus
	}{
		{"cash order needs no confirmation", cash.ID, models.OrderPendingPayment},
		{"new straight to done", cash.ID, models.OrderDone},
		{"back to new", cash.ID, models.OrderNew},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var bad *apperrors.InvalidTransitionError
			if _, err := f.orders.AdvanceOrderStatus(ctx, tt.orderID, tt.target); !errors.As(err, &bad) {
				t.Errorf("got %v, want InvalidTransitionError", err)
			}
		})
	}

	f.advance(t, qris.ID, models.OrderPendingPayment)
	var bad *apperrors.InvalidTransitionError
	if _, err := f.orders.AdvanceOrderStatus(ctx, qris.ID, models.OrderProcess); !errors.As(err, &bad) {
		t.Errorf("process before payment: got %v, want InvalidTransitionError", err)
	}
	if _, err := f.orders.ConfirmPayment(ctx, qris.ID, models.PaymentQRIS, ""); err != nil {
		t.Fatal(err)
	}
	f.advance(t, qris.ID, models.OrderProcess)

	cancelled := f.advance(t, cash.ID, models.OrderCancel)
	if cancelled.Status != models.OrderCancel {
		t.Errorf("status = %s, want cancel", cancelled.Status)
	}
	if _, err := f.orders.ConfirmPayment(ctx, cash.ID, models.PaymentCash, ""); !errors.As(err, &bad) {
		t.Errorf("paying a cancelled order: got %v, want InvalidTransitionError", err)
	}
	if _, err := f.orders.AdvanceOrderStatus(ctx, cash.ID, "shipped"); err == nil {
		t.Error("unknown status should be rejected")
	}
}

func TestDoneWithoutShiftIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, 1000)

	order := f.newOrder(t, OrderDraft{Items: []DraftItem{{MenuItemID: "es-teh", Qty: 1}}})
	f.advance(t, order.ID, models.OrderProcess)
	if _, err := f.orders.ConfirmPayment(ctx, order.ID, models.PaymentCash, ""); err != nil {
		t.Fatal(err)
	}
	var bad *apperrors.InvalidTransitionError
	if _, err := f.orders.AdvanceOrderStatus(ctx, order.ID, models.OrderDone); !errors.As(err, &bad) {
		t.Fatalf("done without shift: got %v, want InvalidTransitionError", err)
	}

	f.openShift(t, "c1", 0)
	if _, err := f.orders.ConfirmPayment(ctx, order.ID, models.PaymentCash, "c1"); err != nil {
		t.Fatal(err)
	}
	f.advance(t, order.ID, models.OrderDone)
}

func TestInsufficientStockLeavesOrderNew(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, 400)

	order := f.newOrder(t, OrderDraft{Items: []DraftItem{{MenuItemID: "kopi-susu", Qty: 2}}})
	_, err := f.stock.Consume(ctx, "milk", 300)
	must(t, err)

	var short *apperrors.InsufficientStockError
	if _, err := f.orders.AdvanceOrderStatus(ctx, order.ID, models.OrderProcess); !errors.As(err, &short) {
		t.Fatalf("got %v, want InsufficientStockError", err)
	}
	got, _ := f.orders.GetOrder(ctx, order.ID)
	if got.Status != models.OrderNew {
		t.Errorf("status = %s, want new", got.Status)
	}
}

func TestConcurrentReservations(t *testing.T) {
	const n = 5
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, n*200)

	ids := make([]string, 2*n)
	for i := range ids {
		ids[i] = f.newOrder(t, OrderDraft{CustomerName: fmt.Sprintf("guest %d", i), Items: []DraftItem{{MenuItemID: "kopi-susu", Qty: 1}}}).ID
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = f.orders.AdvanceOrderStatus(ctx, id, models.OrderProcess)
		}(i, id)
	}
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		var s *apperrors.InsufficientStockError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &s):
			short++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != n || short != n {
		t.Errorf("succeeded=%d short=%d, want %d and %d", ok, short, n, n)
	}
	if qty, _ := f.stock.Peek(ctx, "milk"); qty != 0 {
		t.Errorf("final stock = %v, want 0", qty)
	}
}

func TestBusyOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, 1000)
	order := f.newOrder(t, OrderDraft{Items: []DraftItem{{MenuItemID: "kopi-susu", Qty: 1}}})

	token, ok, _ := f.locker.TryLock(ctx, lock.OrderKey(order.ID), time.Minute)
	if !ok {
		t.Fatal("could not take order lock")
	}

	var busy *apperrors.BusyError
	if _, err := f.orders.AdvanceOrderStatus(ctx, order.ID, models.OrderProcess); !errors.As(err, &busy) {
		t.Fatalf("got %v, want BusyError", err)
	}
	if qty, _ := f.stock.Peek(ctx, "milk"); qty != 1000 {
		t.Errorf("stock moved while busy: %v", qty)
	}

	must(t, f.locker.Unlock(ctx, lock.OrderKey(order.ID), token))
	f.advance(t, order.ID, models.OrderProcess)

	// the lock is released after every transition, failed or not
	if _, err := f.orders.AdvanceOrderStatus(ctx, order.ID, models.OrderDone); err == nil {
		t.Fatal("done while unpaid should fail")
	}
	if _, ok, _ := f.locker.TryLock(ctx, lock.OrderKey(order.ID), time.Minute); !ok {
		t.Error("lock still held after a failed transition")
	}
}

func TestTableTurnsDirtyAfterLastOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, 1000)
	f.openShift(t, "c1", 0)

	draft := OrderDraft{OrderType: models.DineIn, TableNumber: "3", CashierID: "c1",
		Items: []DraftItem{{MenuItemID: "es-teh", Qty: 1}}}
	first := f.newOrder(t, draft)
	second := f.newOrder(t, draft)

	for _, id := range []string{first.ID, second.ID} {
		f.advance(t, id, models.OrderProcess)
		_, err := f.orders.ConfirmPayment(ctx, id, models.PaymentCash, "")
		must(t, err)
	}

	f.advance(t, first.ID, models.OrderDone)
	if table, _ := f.repos().Tables.GetByID(ctx, "3"); table.Status != models.TableOccupied {
		t.Errorf("table after first order = %s, want occupied", table.Status)
	}
	if _, err := f.tables.Clean(ctx, "3"); err == nil {
		t.Error("cleaning a table with an open order should fail")
	}

	f.advance(t, second.ID, models.OrderDone)
	if table, _ := f.repos().Tables.GetByID(ctx, "3"); table.Status != models.TableDirty {
		t.Errorf("table after last order = %s, want dirty", table.Status)
	}

	table, err := f.tables.Clean(ctx, "3")
	if err != nil || table.Status != models.TableAvailable {
		t.Errorf("Clean = (%+v, %v), want available", table, err)
	}
}

func TestCancelAwaitingProof(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, 1000)
	shift := f.openShift(t, "c1", 0)

	order := f.newOrder(t, OrderDraft{OrderType: models.DineIn, TableNumber: "4", CashierID: "c1",
		PaymentMethod: models.PaymentQRIS, Items: []DraftItem{{MenuItemID: "kopi-susu", Qty: 2}}})
	f.advance(t, order.ID, models.OrderPendingPayment)
	if _, err := f.tables.Clean(ctx, "4"); err == nil {
		t.Fatal("cleaning a table with an order awaiting proof should fail")
	}

	cancelled := f.advance(t, order.ID, models.OrderCancel)
	if cancelled.Status != models.OrderCancel {
		t.Errorf("status = %s, want cancel", cancelled.Status)
	}
	if milk, _ := f.repos().Ingredients.GetByID(ctx, "milk"); milk.StockQuantity != 1000 {
		t.Errorf("milk = %v, want 1000 untouched", milk.StockQuantity)
	}
	if got, _ := f.repos().Shifts.GetByID(ctx, shift.ID); got.NonCashSalesTotal != 0 {
		t.Errorf("non-cash total = %d, want 0", got.NonCashSalesTotal)
	}
	if table, _ := f.repos().Tables.GetByID(ctx, "4"); table.Status != models.TableDirty {
		t.Errorf("table after cancel = %s, want dirty", table.Status)
	}
	if table, err := f.tables.Clean(ctx, "4"); err != nil || table.Status != models.TableAvailable {
		t.Errorf("Clean = (%+v, %v), want available", table, err)
	}

	var bad *apperrors.InvalidTransitionError
	if _, err := f.orders.ConfirmPayment(ctx, order.ID, models.PaymentQRIS, ""); !errors.As(err, &bad) {
		t.Errorf("late proof on a cancelled order: got %v, want InvalidTransitionError", err)
	}
}

func TestAvailabilityMonotonic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, 2000)
	f.openShift(t, "c1", 0)

	prev, _ := f.resolver.AvailablePortions(ctx, "kopi-susu")
	for i := 0; i < 3; i++ {
		order := f.newOrder(t, OrderDraft{CashierID: "c1", Items: []DraftItem{{MenuItemID: "kopi-susu", Qty: 2}}})
		f.advance(t, order.ID, models.OrderProcess)
		_, err := f.orders.ConfirmPayment(ctx, order.ID, models.PaymentCash, "")
		must(t, err)
		f.advance(t, order.ID, models.OrderDone)

		cur, _ := f.resolver.AvailablePortions(ctx, "kopi-susu")
		if cur > prev {
			t.Fatalf("portions increased from %d to %d after an order", prev, cur)
		}
		prev = cur
	}

	_, err := f.stock.Replenish(ctx, "milk", 100)
	must(t, err)
	if cur, _ := f.resolver.AvailablePortions(ctx, "kopi-susu"); cur < prev {
		t.Errorf("portions decreased from %d to %d after replenish", prev, cur)
	}
}

func TestListOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, 1000)
	a := f.newOrder(t, OrderDraft{Items: []DraftItem{{MenuItemID: "es-teh", Qty: 1}}})
	f.newOrder(t, OrderDraft{Items: []DraftItem{{MenuItemID: "es-teh", Qty: 2}}})
	f.advance(t, a.ID, models.OrderProcess)

	got, err := f.orders.ListOrders(ctx, repository.OrderFilter{Status: models.OrderProcess})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != a.ID {
		t.Errorf("ListOrders(process) = %d orders, want only %s", len(got), a.ID)
	}
}

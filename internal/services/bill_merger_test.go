package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"warkop_pos/internal/apperrors"
	"warkop_pos/internal/lock"
	"warkop_pos/internal/models"
)

func TestMergeOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, 1000)

	a := f.newOrder(t, OrderDraft{Items: []DraftItem{{MenuItemID: "kopi-susu", Qty: 1}}, Tax: 1800})
	b := f.newOrder(t, OrderDraft{Items: []DraftItem{{MenuItemID: "es-teh", Qty: 2}}, Discount: 1000})
	c := f.newOrder(t, OrderDraft{Items: []DraftItem{{MenuItemID: "es-teh", Qty: 1}}})

	merged, err := f.merger.MergeOrders(ctx, []string{a.ID, b.ID, c.ID})
	must(t, err)

	if merged.ID != a.ID {
		t.Errorf("survivor = %s, want %s", merged.ID, a.ID)
	}
	if want := a.Total + b.Total + c.Total; merged.Total != want {
		t.Errorf("merged total = %d, want %d", merged.Total, want)
	}
	if merged.Total != merged.ItemsSubtotal()+merged.Tax-merged.Discount {
		t.Error("merged total breaks subtotal + tax - discount")
	}
	if len(merged.Items) != 3 {
		t.Errorf("merged items = %d, want 3", len(merged.Items))
	}

	for _, id := range []string{b.ID, c.ID} {
		src, _ := f.orders.GetOrder(ctx, id)
		if !src.Archived || src.MergedIntoID == nil || *src.MergedIntoID != a.ID {
			t.Errorf("source %s = archived %v merged into %v", id, src.Archived, src.MergedIntoID)
		}
		var bad *apperrors.InvalidTransitionError
		if _, err := f.orders.AdvanceOrderStatus(ctx, id, models.OrderProcess); !errors.As(err, &bad) {
			t.Errorf("advancing archived %s: got %v, want InvalidTransitionError", id, err)
		}
	}

	var merr *apperrors.MergeError
	if _, err := f.merger.MergeOrders(ctx, []string{a.ID, b.ID}); !errors.As(err, &merr) || merr.Kind != apperrors.MergeArchived {
		t.Errorf("merging an archived order: got %v, want archived", err)
	}
}

func TestMergeOrdersRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, 1000)

	fresh := f.newOrder(t, OrderDraft{Items: []DraftItem{{MenuItemID: "es-teh", Qty: 1}}})
	processing := f.newOrder(t, OrderDraft{Items: []DraftItem{{MenuItemID: "kopi-susu", Qty: 1}}})
	f.advance(t, processing.ID, models.OrderProcess)
	cancelled := f.newOrder(t, OrderDraft{Items: []DraftItem{{MenuItemID: "es-teh", Qty: 1}}})
	f.advance(t, cancelled.ID, models.OrderCancel)

	tests := []struct {
		name string
		ids  []string
		kind apperrors.MergeErrorKind
	}{
		{"single order", []string{fresh.ID}, apperrors.MergeTooFew},
		{"duplicate", []string{fresh.ID, fresh.ID}, apperrors.MergeDuplicate},
		{"missing", []string{fresh.ID, "ORD-missing"}, apperrors.MergeNotFound},
		{"terminal", []string{fresh.ID, cancelled.ID}, apperrors.MergeAlreadyTerminal},
		{"already processing", []string{fresh.ID, processing.ID}, apperrors.MergeNotMergeable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var merr *apperrors.MergeError
			_, err := f.merger.MergeOrders(ctx, tt.ids)
			if !errors.As(err, &merr) || merr.Kind != tt.kind {
				t.Errorf("got %v, want merge error %s", err, tt.kind)
			}
		})
	}

	got, _ := f.orders.GetOrder(ctx, fresh.ID)
	if got.Archived || len(got.Items) != 1 {
		t.Errorf("failed merges modified %s: %+v", fresh.ID, got)
	}
}

func TestMergeBusy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, 1000)
	a := f.newOrder(t, OrderDraft{Items: []DraftItem{{MenuItemID: "es-teh", Qty: 1}}})
	b := f.newOrder(t, OrderDraft{Items: []DraftItem{{MenuItemID: "es-teh", Qty: 1}}})

	_, ok, _ := f.locker.TryLock(ctx, lock.OrderKey(b.ID), time.Minute)
	if !ok {
		t.Fatal("could not take lock")
	}
	var busy *apperrors.BusyError
	if _, err := f.merger.MergeOrders(ctx, []string{a.ID, b.ID}); !errors.As(err, &busy) || busy.OrderID != b.ID {
		t.Fatalf("got %v, want BusyError for %s", err, b.ID)
	}
	// no lock may outlive a failed merge
	if _, ok, _ := f.locker.TryLock(ctx, lock.OrderKey(a.ID), time.Minute); !ok {
		t.Error("lock on first order leaked")
	}
}

func TestMergeFreesSourceTables(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, 1000)

	dineIn := func(table string) *models.Order {
		return f.newOrder(t, OrderDraft{OrderType: models.DineIn, TableNumber: table, Items: []DraftItem{{MenuItemID: "es-teh", Qty: 1}}})
	}
	a := dineIn("1")
	b := dineIn("2")
	c := dineIn("3")
	dineIn("3") // keeps table 3 seated

	_, err := f.merger.MergeOrders(ctx, []string{a.ID, b.ID, c.ID})
	must(t, err)

	want := map[string]models.TableStatus{
		"1": models.TableOccupied,
		"2": models.TableDirty,
		"3": models.TableOccupied,
	}
	for id, status := range want {
		table, err := f.repos().Tables.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("table %s: %v", id, err)
		}
		if table.Status != status {
			t.Errorf("table %s = %s, want %s", id, table.Status, status)
		}
	}
}

package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"warkop_pos/internal/models"
	"warkop_pos/internal/repository/memory"
)

func TestCashierAuthentication(t *testing.T) {
	ctx := context.Background()
	svc := NewCashierService(memory.New().Repos().Cashiers)

	cashier := &models.Cashier{Name: "Dewi", Username: "dewi"}
	if err := svc.CreateCashier(ctx, cashier, "12"); err == nil {
		t.Fatal("short PIN should be rejected")
	}
	must(t, svc.CreateCashier(ctx, cashier, "4321"))
	if cashier.PinHash == "4321" || !strings.HasPrefix(cashier.ID, models.PrefixCashier) {
		t.Errorf("cashier stored as %+v", cashier)
	}

	got, err := svc.Authenticate(ctx, "dewi", "4321")
	if err != nil || got.ID != cashier.ID {
		t.Fatalf("Authenticate = (%v, %v)", got, err)
	}
	if _, err := svc.Authenticate(ctx, "dewi", "0000"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong PIN: got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ghost", "4321"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: got %v", err)
	}
}

func TestNewOrderMessage(t *testing.T) {
	table := "4"
	msg := formatNewOrderMessage(&models.Order{
		ID: "ORD-1", CustomerName: "Budi", TableNumber: &table, Total: 23000, PaymentMethod: models.PaymentCash,
		Items: []models.OrderItem{{Name: "Kopi Susu", Qty: 1}, {Name: "Es Teh", Qty: 1}},
	})
	for _, want := range []string{"ORD-1", "Budi", "Meja: 4", "1x Kopi Susu", "Rp 23000"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"warkop_pos/internal/apperrors"
	"warkop_pos/internal/metrics"
	"warkop_pos/internal/models"
	"warkop_pos/internal/repository"
	"warkop_pos/internal/repository/memory"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// flakyStore fails the first failures transactions with a transient error.
type flakyStore struct {
	*memory.Store
	failures int
	calls    int
}

func (s *flakyStore) Transaction(ctx context.Context, fn func(repository.Repositories) error) error {
	s.calls++
	if s.calls <= s.failures {
		return fmt.Errorf("%w: connection reset", apperrors.ErrStoreUnavailable)
	}
	return s.Store.Transaction(ctx, fn)
}

func TestRetryRecoversFromTransientFailures(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	must(t, mem.Repos().Ingredients.Create(ctx, &models.Ingredient{ID: "milk", Name: "Susu", StockQuantity: 100, Unit: "ml"}))

	store := &flakyStore{Store: mem, failures: 2}
	ledger := NewStockLedger(store, nil, RejectNegative, RetryPolicy{Attempts: 3, Backoff: time.Millisecond}, zap.NewNop())

	qty, err := ledger.Consume(ctx, "milk", 40)
	if err != nil {
		t.Fatalf("Consume after two transient failures: %v", err)
	}
	if qty != 60 || store.calls != 3 {
		t.Errorf("qty=%v calls=%d, want 60 and 3", qty, store.calls)
	}
}

func TestRetryGivesUpAsUnavailable(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	must(t, mem.Repos().Ingredients.Create(ctx, &models.Ingredient{ID: "milk", Name: "Susu", StockQuantity: 100}))

	store := &flakyStore{Store: mem, failures: 100}
	ledger := NewStockLedger(store, nil, RejectNegative, RetryPolicy{Attempts: 3, Backoff: time.Millisecond}, zap.NewNop())

	_, err := ledger.Consume(ctx, "milk", 40)
	var down *apperrors.UnavailableError
	if !errors.As(err, &down) {
		t.Fatalf("got %v, want UnavailableError", err)
	}
	if !errors.Is(err, apperrors.ErrStoreUnavailable) {
		t.Error("UnavailableError should wrap the store failure")
	}
	if store.calls != 3 {
		t.Errorf("calls = %d, want 3", store.calls)
	}
}

func TestRetryDoesNotRepeatLogicErrors(t *testing.T) {
	calls := 0
	r := newRetrier(RetryPolicy{Attempts: 5, Backoff: time.Millisecond}, zap.NewNop())
	err := r.do(context.Background(), "validate", func(context.Context) error {
		calls++
		return apperrors.Validation("qty", "must be positive")
	})
	var v *apperrors.ValidationError
	if !errors.As(err, &v) || calls != 1 {
		t.Errorf("err=%v calls=%d, want ValidationError after one call", err, calls)
	}
}

func TestRetryHonoursDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	r := newRetrier(RetryPolicy{Attempts: 1000, Backoff: 5 * time.Millisecond}, zap.NewNop())
	err := r.do(ctx, "reserve_stock", func(context.Context) error {
		return apperrors.ErrConflict
	})
	var down *apperrors.UnavailableError
	if !errors.As(err, &down) || down.Op != "reserve_stock" {
		t.Errorf("got %v, want UnavailableError for reserve_stock", err)
	}
}

func seriesCount(c prometheus.Collector) int {
	ch := make(chan prometheus.Metric, 1024)
	c.Collect(ch)
	close(ch)
	return len(ch)
}

func TestRetryMetricLabelsStayBounded(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	for _, id := range []string{"milk", "sugar", "coffee"} {
		must(t, mem.Repos().Ingredients.Create(ctx, &models.Ingredient{ID: id, Name: id, StockQuantity: 10}))
	}
	store := &flakyStore{Store: mem}
	ledger := NewStockLedger(store, nil, RejectNegative, testRetry, zap.NewNop())

	consume := func(id string) {
		store.calls, store.failures = 0, 1
		if _, err := ledger.Consume(ctx, id, 1); err != nil {
			t.Fatalf("Consume %s: %v", id, err)
		}
		if store.calls != 2 {
			t.Fatalf("Consume %s ran %d transactions, want 2", id, store.calls)
		}
	}

	consume("milk")
	before := seriesCount(metrics.Retries)
	consume("sugar")
	consume("coffee")
	if after := seriesCount(metrics.Retries); after != before {
		t.Errorf("retry series grew from %d to %d across ingredients", before, after)
	}
}

package services

import (
	"context"
	"sort"
	"time"

	"warkop_pos/internal/apperrors"
	"warkop_pos/internal/lock"
	"warkop_pos/internal/metrics"
	"warkop_pos/internal/models"
	"warkop_pos/internal/repository"

	"go.uber.org/zap"
)

type BillMerger interface {
	// MergeOrders folds every order after the first into the first one and
	// archives the rest. Only orders still in status new can be merged, so
	// no stock has been reserved for any of them yet.
	MergeOrders(ctx context.Context, orderIDs []string) (*models.Order, error)
}

type billMerger struct {
	store   repository.Store
	tables  TableService
	locker  lock.Locker
	lockTTL time.Duration
	timeout time.Duration
	retry   retrier
	log     *zap.Logger
}

func NewBillMerger(store repository.Store, tables TableService, locker lock.Locker, opts OrderOptions, retry RetryPolicy, log *zap.Logger) BillMerger {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 15 * time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	return &billMerger{
		store:   store,
		tables:  tables,
		locker:  locker,
		lockTTL: opts.LockTTL,
		timeout: opts.RequestTimeout,
		retry:   newRetrier(retry, log),
		log:     log.Named("merge"),
	}
}

func (m *billMerger) MergeOrders(ctx context.Context, orderIDs []string) (*models.Order, error) {
	if len(orderIDs) < 2 {
		return nil, &apperrors.MergeError{Kind: apperrors.MergeTooFew}
	}
	seen := make(map[string]bool, len(orderIDs))
	for _, id := range orderIDs {
		if seen[id] {
			return nil, &apperrors.MergeError{Kind: apperrors.MergeDuplicate, OrderID: id}
		}
		seen[id] = true
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	// lock in sorted order so two merges over the same orders cannot
	// each hold half of the set
	sorted := append([]string(nil), orderIDs...)
	sort.Strings(sorted)
	var releases []func()
	defer func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}()
	for _, id := range sorted {
		release, err := acquireOrderLock(ctx, m.locker, m.retry, m.lockTTL, m.log, id)
		if err != nil {
			return nil, err
		}
		releases = append(releases, release)
	}

	survivorID, sourceIDs := orderIDs[0], orderIDs[1:]
	var (
		merged  *models.Order
		vacated []string
	)
	err := m.retry.do(ctx, "merge_orders", func(ctx context.Context) error {
		vacated = nil
		return m.store.Transaction(ctx, func(repos repository.Repositories) error {
			orders := make([]*models.Order, 0, len(orderIDs))
			for _, id := range orderIDs {
				order, err := repos.Orders.GetByID(ctx, id)
				if err != nil {
					if apperrors.IsNotFound(err) {
						return &apperrors.MergeError{Kind: apperrors.MergeNotFound, OrderID: id}
					}
					return err
				}
				if err := checkMergeable(order); err != nil {
					return err
				}
				orders = append(orders, order)
			}

			survivor := orders[0]
			for _, src := range orders[1:] {
				survivor.Total += src.Total
				survivor.Tax += src.Tax
				survivor.Discount += src.Discount
				if src.PaymentStatus != models.Paid {
					survivor.PaymentStatus = models.Unpaid
				}
				if survivor.ShiftID == nil && src.ShiftID != nil {
					survivor.ShiftID = src.ShiftID
				}

				src.Archived = true
				src.MergedIntoID = &survivor.ID
				if err := repos.Orders.Update(ctx, src); err != nil {
					return err
				}
			}
			if err := repos.Orders.MoveItems(ctx, sourceIDs, survivorID); err != nil {
				return err
			}
			if err := repos.Orders.Update(ctx, survivor); err != nil {
				return err
			}
			var err error
			if vacated, err = vacatedTables(ctx, repos, orders); err != nil {
				return err
			}

			merged, err = repos.Orders.GetByID(ctx, survivorID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	for _, table := range vacated {
		if err := m.tables.SetStatus(ctx, table, models.TableDirty); err != nil {
			m.log.Warn("failed to mark table dirty", zap.String("table", table), zap.Error(err))
		}
	}

	metrics.OrdersMerged.Add(float64(len(sourceIDs)))
	m.log.Info("orders merged",
		zap.String("survivor_id", survivorID),
		zap.Strings("archived_ids", sourceIDs),
		zap.Int64("total", merged.Total))
	return merged, nil
}

// vacatedTables lists the tables the archived sources sat at that no longer
// seat any open order. It runs after the sources were archived.
func vacatedTables(ctx context.Context, repos repository.Repositories, orders []*models.Order) ([]string, error) {
	survivor := orders[0]
	seen := make(map[string]bool)
	if survivor.TableNumber != nil {
		seen[*survivor.TableNumber] = true
	}
	var out []string
	for _, src := range orders[1:] {
		if src.TableNumber == nil || seen[*src.TableNumber] {
			continue
		}
		seen[*src.TableNumber] = true
		active, err := repos.Orders.CountActiveAtTable(ctx, *src.TableNumber, "")
		if err != nil {
			return nil, err
		}
		if active == 0 {
			out = append(out, *src.TableNumber)
		}
	}
	return out, nil
}

func checkMergeable(order *models.Order) error {
	switch {
	case order.Archived:
		return &apperrors.MergeError{Kind: apperrors.MergeArchived, OrderID: order.ID}
	case order.Status.IsTerminal():
		return &apperrors.MergeError{Kind: apperrors.MergeAlreadyTerminal, OrderID: order.ID}
	case order.Status != models.OrderNew:
		return &apperrors.MergeError{Kind: apperrors.MergeNotMergeable, OrderID: order.ID}
	}
	return nil
}

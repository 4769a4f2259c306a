package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"warkop_pos/internal/apperrors"
	"warkop_pos/internal/models"
	"warkop_pos/internal/repository"
)

type orderRepo struct{ v *view }

func (r *orderRepo) Create(_ context.Context, order *models.Order) error {
	return r.v.do(func(st *state) error {
		if _, exists := st.orders[order.ID]; exists {
			return apperrors.Validation("id", "order "+order.ID+" already exists")
		}
		now := time.Now()
		if order.CreatedAt.IsZero() {
			order.CreatedAt = now
		}
		order.UpdatedAt = now
		for i := range order.Items {
			st.nextLineID++
			order.Items[i].ID = st.nextLineID
			order.Items[i].OrderID = order.ID
		}
		st.orders[order.ID] = cloneOrder(*order)
		return nil
	})
}

func (r *orderRepo) GetByID(_ context.Context, id string) (*models.Order, error) {
	var out *models.Order
	err := r.v.do(func(st *state) error {
		order, ok := st.orders[id]
		if !ok {
			return apperrors.NotFound("order", id)
		}
		c := cloneOrder(order)
		out = &c
		return nil
	})
	return out, err
}

func (r *orderRepo) List(_ context.Context, filter repository.OrderFilter) ([]models.Order, error) {
	var out []models.Order
	err := r.v.do(func(st *state) error {
		for _, order := range st.orders {
			if filter.Status != "" && order.Status != filter.Status {
				continue
			}
			if filter.TableNumber != "" && (order.TableNumber == nil || *order.TableNumber != filter.TableNumber) {
				continue
			}
			if filter.ShiftID != "" && (order.ShiftID == nil || *order.ShiftID != filter.ShiftID) {
				continue
			}
			if !filter.IncludeArchived && order.Archived {
				continue
			}
			out = append(out, cloneOrder(order))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, err
}

func (r *orderRepo) Update(_ context.Context, order *models.Order) error {
	return r.v.do(func(st *state) error {
		current, ok := st.orders[order.ID]
		if !ok {
			return apperrors.NotFound("order", order.ID)
		}
		if current.Version != order.Version {
			return fmt.Errorf("%w: order %s version %d", apperrors.ErrConflict, order.ID, order.Version)
		}
		now := time.Now()
		current.Status = order.Status
		current.PaymentMethod = order.PaymentMethod
		current.PaymentStatus = order.PaymentStatus
		current.Total = order.Total
		current.Tax = order.Tax
		current.Discount = order.Discount
		current.ShiftID = cloneString(order.ShiftID)
		current.Archived = order.Archived
		current.MergedIntoID = cloneString(order.MergedIntoID)
		current.CompletedAt = order.CompletedAt
		current.Version++
		current.UpdatedAt = now
		st.orders[order.ID] = current

		order.Version = current.Version
		order.UpdatedAt = now
		return nil
	})
}

func (r *orderRepo) MoveItems(_ context.Context, sourceIDs []string, targetID string) error {
	return r.v.do(func(st *state) error {
		target, ok := st.orders[targetID]
		if !ok {
			return apperrors.NotFound("order", targetID)
		}
		for _, id := range sourceIDs {
			source, ok := st.orders[id]
			if !ok {
				continue
			}
			for _, item := range source.Items {
				item.OrderID = targetID
				target.Items = append(target.Items, item)
			}
			source.Items = nil
			st.orders[id] = source
		}
		sort.Slice(target.Items, func(i, j int) bool { return target.Items[i].ID < target.Items[j].ID })
		st.orders[targetID] = target
		return nil
	})
}

func (r *orderRepo) CountActiveAtTable(_ context.Context, tableNumber, excludeOrderID string) (int64, error) {
	var count int64
	err := r.v.do(func(st *state) error {
		for id, order := range st.orders {
			if id == excludeOrderID || order.Archived || order.Status.IsTerminal() {
				continue
			}
			if order.TableNumber != nil && *order.TableNumber == tableNumber {
				count++
			}
		}
		return nil
	})
	return count, err
}

type tableRepo struct{ v *view }

func (r *tableRepo) GetByID(_ context.Context, id string) (*models.Table, error) {
	var out *models.Table
	err := r.v.do(func(st *state) error {
		table, ok := st.tables[id]
		if !ok {
			return apperrors.NotFound("table", id)
		}
		out = &table
		return nil
	})
	return out, err
}

func (r *tableRepo) Upsert(_ context.Context, table *models.Table) error {
	return r.v.do(func(st *state) error {
		table.UpdatedAt = time.Now()
		st.tables[table.ID] = *table
		return nil
	})
}

func (r *tableRepo) SetStatus(_ context.Context, id string, status models.TableStatus) error {
	return r.v.do(func(st *state) error {
		table, ok := st.tables[id]
		if !ok {
			return apperrors.NotFound("table", id)
		}
		table.Status = status
		table.UpdatedAt = time.Now()
		st.tables[id] = table
		return nil
	})
}

func (r *tableRepo) List(_ context.Context) ([]models.Table, error) {
	var out []models.Table
	err := r.v.do(func(st *state) error {
		for _, table := range st.tables {
			out = append(out, table)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

type cashierRepo struct{ v *view }

func (r *cashierRepo) Create(_ context.Context, cashier *models.Cashier) error {
	return r.v.do(func(st *state) error {
		for _, existing := range st.cashiers {
			if existing.Username == cashier.Username {
				return apperrors.Validation("username", "username "+cashier.Username+" already taken")
			}
		}
		now := time.Now()
		cashier.CreatedAt, cashier.UpdatedAt = now, now
		st.cashiers[cashier.ID] = *cashier
		return nil
	})
}

func (r *cashierRepo) GetByID(_ context.Context, id string) (*models.Cashier, error) {
	var out *models.Cashier
	err := r.v.do(func(st *state) error {
		cashier, ok := st.cashiers[id]
		if !ok {
			return apperrors.NotFound("cashier", id)
		}
		out = &cashier
		return nil
	})
	return out, err
}

func (r *cashierRepo) GetByUsername(_ context.Context, username string) (*models.Cashier, error) {
	var out *models.Cashier
	err := r.v.do(func(st *state) error {
		for _, cashier := range st.cashiers {
			if cashier.Username == username {
				c := cashier
				out = &c
				return nil
			}
		}
		return apperrors.NotFound("cashier", username)
	})
	return out, err
}

func (r *cashierRepo) List(_ context.Context) ([]models.Cashier, error) {
	var out []models.Cashier
	err := r.v.do(func(st *state) error {
		for _, cashier := range st.cashiers {
			out = append(out, cashier)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

package memory

import (
	"context"
	"sort"
	"time"

	"warkop_pos/internal/apperrors"
	"warkop_pos/internal/models"
)

type shiftRepo struct{ v *view }

func (r *shiftRepo) Create(_ context.Context, shift *models.Shift) error {
	return r.v.do(func(st *state) error {
		for _, existing := range st.shifts {
			if existing.CashierID == shift.CashierID && existing.Status == models.ShiftOpen {
				return &apperrors.ShiftAlreadyOpenError{CashierID: shift.CashierID, ShiftID: existing.ID}
			}
		}
		now := time.Now()
		shift.CreatedAt, shift.UpdatedAt = now, now
		st.shifts[shift.ID] = cloneShift(*shift)
		return nil
	})
}

func (r *shiftRepo) GetByID(_ context.Context, id string) (*models.Shift, error) {
	var out *models.Shift
	err := r.v.do(func(st *state) error {
		shift, ok := st.shifts[id]
		if !ok {
			return &apperrors.ShiftNotFoundError{ShiftID: id}
		}
		c := cloneShift(shift)
		out = &c
		return nil
	})
	return out, err
}

func (r *shiftRepo) GetOpenByCashier(_ context.Context, cashierID string) (*models.Shift, error) {
	var out *models.Shift
	err := r.v.do(func(st *state) error {
		for _, shift := range st.shifts {
			if shift.CashierID == cashierID && shift.Status == models.ShiftOpen {
				c := cloneShift(shift)
				out = &c
				return nil
			}
		}
		return &apperrors.ShiftNotFoundError{CashierID: cashierID}
	})
	return out, err
}

func (r *shiftRepo) mutateOpen(id string, fn func(s *models.Shift)) (*models.Shift, error) {
	var out *models.Shift
	err := r.v.do(func(st *state) error {
		shift, ok := st.shifts[id]
		if !ok {
			return &apperrors.ShiftNotFoundError{ShiftID: id}
		}
		if shift.Status != models.ShiftOpen {
			return &apperrors.ShiftClosedError{ShiftID: id}
		}
		fn(&shift)
		shift.UpdatedAt = time.Now()
		st.shifts[id] = shift
		c := cloneShift(shift)
		out = &c
		return nil
	})
	return out, err
}

func (r *shiftRepo) AddSale(_ context.Context, id string, bucket models.LedgerBucket, amount int64) (*models.Shift, error) {
	return r.mutateOpen(id, func(s *models.Shift) {
		if bucket == models.CashBucket {
			s.CashSalesTotal += amount
		} else {
			s.NonCashSalesTotal += amount
		}
		s.ExpectedCash = s.ComputeExpectedCash()
	})
}

func (r *shiftRepo) AddCashOut(_ context.Context, id string, amount int64) (*models.Shift, error) {
	return r.mutateOpen(id, func(s *models.Shift) {
		s.CashOutTotal += amount
		s.ExpectedCash = s.ComputeExpectedCash()
	})
}

func (r *shiftRepo) Close(_ context.Context, id string, countedCash int64, at time.Time) (*models.Shift, error) {
	return r.mutateOpen(id, func(s *models.Shift) {
		s.Status = models.ShiftClosed
		end := at
		s.EndTime = &end
		counted := countedCash
		s.ClosingCashCounted = &counted
		s.ExpectedCash = s.ComputeExpectedCash()
		variance := countedCash - s.ExpectedCash
		s.Variance = &variance
	})
}

func (r *shiftRepo) List(_ context.Context, limit int) ([]models.Shift, error) {
	var out []models.Shift
	err := r.v.do(func(st *state) error {
		for _, shift := range st.shifts {
			out = append(out, cloneShift(shift))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

type activityRepo struct{ v *view }

func (r *activityRepo) Create(_ context.Context, activity *models.ShiftActivity) error {
	return r.v.do(func(st *state) error {
		if activity.CreatedAt.IsZero() {
			activity.CreatedAt = time.Now()
		}
		st.activities = append(st.activities, *activity)
		return nil
	})
}

// ListByShift returns activities in insertion order.
func (r *activityRepo) ListByShift(_ context.Context, shiftID string) ([]models.ShiftActivity, error) {
	var out []models.ShiftActivity
	err := r.v.do(func(st *state) error {
		for _, a := range st.activities {
			if a.ShiftID == shiftID {
				out = append(out, a)
			}
		}
		return nil
	})
	return out, err
}

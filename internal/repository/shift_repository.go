package repository

import (
	"context"
	"errors"
	"time"

	"warkop_pos/internal/apperrors"
	"warkop_pos/internal/models"

	"gorm.io/gorm"
)

type shiftRepository struct {
	db *gorm.DB
}

func NewShiftRepository(db *gorm.DB) ShiftRepository {
	return &shiftRepository{db: db}
}

func (r *shiftRepository) Create(ctx context.Context, shift *models.Shift) error {
	existing, err := r.GetOpenByCashier(ctx, shift.CashierID)
	if err == nil {
		return &apperrors.ShiftAlreadyOpenError{CashierID: shift.CashierID, ShiftID: existing.ID}
	}
	if !apperrors.IsNotFound(err) {
		return err
	}

	// idx_shifts_open_cashier backs the check above against a concurrent open.
	if err := r.db.WithContext(ctx).Create(shift).Error; err != nil {
		if isUniqueViolation(err) {
			return &apperrors.ShiftAlreadyOpenError{CashierID: shift.CashierID}
		}
		return translateError(err)
	}
	return nil
}

func (r *shiftRepository) GetByID(ctx context.Context, id string) (*models.Shift, error) {
	var shift models.Shift
	err := r.db.WithContext(ctx).First(&shift, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.ShiftNotFoundError{ShiftID: id}
		}
		return nil, translateError(err)
	}
	return &shift, nil
}

func (r *shiftRepository) GetOpenByCashier(ctx context.Context, cashierID string) (*models.Shift, error) {
	var shift models.Shift
	err := r.db.WithContext(ctx).
		Where("cashier_id = ? AND status = ?", cashierID, models.ShiftOpen).
		First(&shift).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.ShiftNotFoundError{CashierID: cashierID}
		}
		return nil, translateError(err)
	}
	return &shift, nil
}

// mutateOpen applies updates only while the shift is still open.
func (r *shiftRepository) mutateOpen(ctx context.Context, id string, updates map[string]interface{}) (*models.Shift, error) {
	updates["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&models.Shift{}).
		Where("id = ? AND status = ?", id, models.ShiftOpen).
		Updates(updates)
	if res.Error != nil {
		return nil, translateError(res.Error)
	}

	shift, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, &apperrors.ShiftClosedError{ShiftID: id}
	}
	return shift, nil
}

func (r *shiftRepository) AddSale(ctx context.Context, id string, bucket models.LedgerBucket, amount int64) (*models.Shift, error) {
	updates := map[string]interface{}{}
	if bucket == models.CashBucket {
		updates["cash_sales_total"] = gorm.Expr("cash_sales_total + ?", amount)
		updates["expected_cash"] = gorm.Expr("expected_cash + ?", amount)
	} else {
		updates["non_cash_sales_total"] = gorm.Expr("non_cash_sales_total + ?", amount)
	}
	return r.mutateOpen(ctx, id, updates)
}

func (r *shiftRepository) AddCashOut(ctx context.Context, id string, amount int64) (*models.Shift, error) {
	return r.mutateOpen(ctx, id, map[string]interface{}{
		"cash_out_total": gorm.Expr("cash_out_total + ?", amount),
		"expected_cash":  gorm.Expr("expected_cash - ?", amount),
	})
}

func (r *shiftRepository) Close(ctx context.Context, id string, countedCash int64, at time.Time) (*models.Shift, error) {
	return r.mutateOpen(ctx, id, map[string]interface{}{
		"status":               models.ShiftClosed,
		"end_time":             at,
		"closing_cash_counted": countedCash,
		"expected_cash":        gorm.Expr("opening_cash + cash_sales_total - cash_out_total"),
		"variance":             gorm.Expr("? - (opening_cash + cash_sales_total - cash_out_total)", countedCash),
	})
}

func (r *shiftRepository) List(ctx context.Context, limit int) ([]models.Shift, error) {
	query := r.db.WithContext(ctx).Order("start_time DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var shifts []models.Shift
	err := query.Find(&shifts).Error
	return shifts, translateError(err)
}

type shiftActivityRepository struct {
	db *gorm.DB
}

func NewShiftActivityRepository(db *gorm.DB) ShiftActivityRepository {
	return &shiftActivityRepository{db: db}
}

func (r *shiftActivityRepository) Create(ctx context.Context, activity *models.ShiftActivity) error {
	return translateError(r.db.WithContext(ctx).Create(activity).Error)
}

func (r *shiftActivityRepository) ListByShift(ctx context.Context, shiftID string) ([]models.ShiftActivity, error) {
	var activities []models.ShiftActivity
	err := r.db.WithContext(ctx).Where("shift_id = ?", shiftID).Order("created_at").Find(&activities).Error
	return activities, translateError(err)
}

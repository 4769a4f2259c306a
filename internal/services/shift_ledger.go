package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warkop_pos/internal/apperrors"
	"warkop_pos/internal/metrics"
	"warkop_pos/internal/models"
	"warkop_pos/internal/repository"

	"go.uber.org/zap"
)

type ShiftLedger interface {
	Open(ctx context.Context, cashierID string, openingCash int64) (*models.Shift, error)
	RecordSale(ctx context.Context, shiftID string, amount int64, method models.PaymentMethod) (*models.Shift, error)
	// CreditOrder records the sale of a completed order inside the caller's transaction.
	CreditOrder(ctx context.Context, repos repository.Repositories, order *models.Order) error
	RecordCashOut(ctx context.Context, shiftID string, amount int64, reason string) (*models.Shift, error)
	Close(ctx context.Context, shiftID string, countedCash int64) (*models.ClosedShiftSummary, error)
	Current(ctx context.Context, cashierID string) (*models.Shift, error)
	CurrentBalance(ctx context.Context, cashierID string) (*models.ShiftBalance, error)
	History(ctx context.Context, limit int) ([]models.Shift, error)
	Activities(ctx context.Context, shiftID string) ([]models.ShiftActivity, error)
}

type shiftLedger struct {
	store     repository.Store
	tolerance int64
	retry     retrier
	log       *zap.Logger
}

func NewShiftLedger(store repository.Store, tolerance int64, retry RetryPolicy, log *zap.Logger) ShiftLedger {
	return &shiftLedger{store: store, tolerance: tolerance, retry: newRetrier(retry, log), log: log.Named("shift")}
}

func (s *shiftLedger) Open(ctx context.Context, cashierID string, openingCash int64) (*models.Shift, error) {
	if cashierID == "" {
		return nil, apperrors.Validation("cashier_id", "cashier is required")
	}
	if openingCash < 0 {
		return nil, apperrors.Validation("opening_cash", "opening cash cannot be negative")
	}

	var shift *models.Shift
	err := s.retry.do(ctx, "open_shift", func(ctx context.Context) error {
		return s.store.Transaction(ctx, func(repos repository.Repositories) error {
			cashier, err := repos.Cashiers.GetByID(ctx, cashierID)
			if err != nil {
				return err
			}
			if !cashier.IsActive {
				return apperrors.Validation("cashier_id", fmt.Sprintf("cashier %s is inactive", cashierID))
			}

			now := time.Now()
			shift = &models.Shift{
				ID:           models.NewID(models.PrefixShift),
				CashierID:    cashier.ID,
				CashierName:  cashier.Name,
				StartTime:    now,
				OpeningCash:  openingCash,
				ExpectedCash: openingCash,
				Status:       models.ShiftOpen,
			}
			if err := repos.Shifts.Create(ctx, shift); err != nil {
				return err
			}
			return s.audit(ctx, repos, shift.ID, models.ActivityOpen, openingCash, "", nil, "")
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.ShiftEvents.WithLabelValues(string(models.ActivityOpen)).Inc()
	s.log.Info("shift opened",
		zap.String("shift_id", shift.ID), zap.String("cashier_id", cashierID), zap.Int64("opening_cash", openingCash))
	return shift, nil
}

func (s *shiftLedger) RecordSale(ctx context.Context, shiftID string, amount int64, method models.PaymentMethod) (*models.Shift, error) {
	if err := validateSale(amount, method); err != nil {
		return nil, err
	}

	var shift *models.Shift
	err := s.retry.do(ctx, "record_sale", func(ctx context.Context) error {
		return s.store.Transaction(ctx, func(repos repository.Repositories) error {
			var err error
			shift, err = s.credit(ctx, repos, shiftID, amount, method, nil)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	metrics.ShiftEvents.WithLabelValues(string(models.ActivitySale)).Inc()
	return shift, nil
}

// CreditOrder books the order total on the shift open at completion time.
// When the shift the order was taken on has since closed, the sale moves to
// that cashier's current shift and order.ShiftID is updated to match.
func (s *shiftLedger) CreditOrder(ctx context.Context, repos repository.Repositories, order *models.Order) error {
	if err := validateSale(order.Total, order.PaymentMethod); err != nil {
		return err
	}
	shiftID, err := s.creditTarget(ctx, repos, order)
	if err != nil {
		return err
	}
	orderID := order.ID
	if _, err := s.credit(ctx, repos, shiftID, order.Total, order.PaymentMethod, &orderID); err != nil {
		return err
	}
	if *order.ShiftID != shiftID {
		s.log.Info("order credited to a later shift",
			zap.String("order_id", order.ID), zap.String("bound_shift_id", *order.ShiftID), zap.String("shift_id", shiftID))
		order.ShiftID = &shiftID
	}
	metrics.ShiftEvents.WithLabelValues(string(models.ActivitySale)).Inc()
	return nil
}

func (s *shiftLedger) creditTarget(ctx context.Context, repos repository.Repositories, order *models.Order) (string, error) {
	reject := func(reason string) error {
		return &apperrors.InvalidTransitionError{
			OrderID: order.ID,
			From:    string(order.Status),
			To:      string(models.OrderDone),
			Reason:  reason,
		}
	}
	if order.ShiftID == nil {
		return "", reject("order is not attached to a cashier shift")
	}

	bound, err := repos.Shifts.GetByID(ctx, *order.ShiftID)
	if err != nil {
		return "", err
	}
	if bound.Status == models.ShiftOpen {
		return bound.ID, nil
	}

	current, err := repos.Shifts.GetOpenByCashier(ctx, bound.CashierID)
	var noShift *apperrors.ShiftNotFoundError
	if errors.As(err, &noShift) {
		return "", reject(fmt.Sprintf("shift %s is closed; confirm payment with a cashier whose shift is open", bound.ID))
	}
	if err != nil {
		return "", err
	}
	return current.ID, nil
}

func (s *shiftLedger) credit(ctx context.Context, repos repository.Repositories, shiftID string, amount int64, method models.PaymentMethod, orderID *string) (*models.Shift, error) {
	shift, err := repos.Shifts.AddSale(ctx, shiftID, method.Bucket(), amount)
	if err != nil {
		return nil, err
	}
	if err := s.audit(ctx, repos, shiftID, models.ActivitySale, amount, method, orderID, ""); err != nil {
		return nil, err
	}
	return shift, nil
}

func validateSale(amount int64, method models.PaymentMethod) error {
	if amount < 0 {
		return apperrors.Validation("amount", "sale amount cannot be negative")
	}
	if _, ok := models.ParsePaymentMethod(string(method)); !ok {
		return apperrors.Validation("payment_method", fmt.Sprintf("unknown payment method %q", method))
	}
	return nil
}

func (s *shiftLedger) RecordCashOut(ctx context.Context, shiftID string, amount int64, reason string) (*models.Shift, error) {
	if amount <= 0 {
		return nil, apperrors.Validation("amount", "cash-out amount must be positive")
	}
	if reason == "" {
		return nil, apperrors.Validation("reason", "a reason is required for cash-out")
	}

	var shift *models.Shift
	err := s.retry.do(ctx, "record_cash_out", func(ctx context.Context) error {
		return s.store.Transaction(ctx, func(repos repository.Repositories) error {
			var err error
			shift, err = repos.Shifts.AddCashOut(ctx, shiftID, amount)
			if err != nil {
				return err
			}
			return s.audit(ctx, repos, shiftID, models.ActivityCashOut, amount, models.PaymentCash, nil, reason)
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.ShiftEvents.WithLabelValues(string(models.ActivityCashOut)).Inc()
	s.log.Info("cash-out recorded",
		zap.String("shift_id", shiftID), zap.Int64("amount", amount), zap.String("reason", reason))
	return shift, nil
}

func (s *shiftLedger) Close(ctx context.Context, shiftID string, countedCash int64) (*models.ClosedShiftSummary, error) {
	if countedCash < 0 {
		return nil, apperrors.Validation("counted_cash", "counted cash cannot be negative")
	}

	var shift *models.Shift
	err := s.retry.do(ctx, "close_shift", func(ctx context.Context) error {
		return s.store.Transaction(ctx, func(repos repository.Repositories) error {
			var err error
			shift, err = repos.Shifts.Close(ctx, shiftID, countedCash, time.Now())
			if err != nil {
				return err
			}
			return s.audit(ctx, repos, shiftID, models.ActivityClose, countedCash, models.PaymentCash, nil, "")
		})
	})
	if err != nil {
		return nil, err
	}

	var variance int64
	if shift.Variance != nil {
		variance = *shift.Variance
	}
	summary := &models.ClosedShiftSummary{
		Shift:          shift,
		ExpectedCash:   shift.ExpectedCash,
		CountedCash:    countedCash,
		Variance:       variance,
		VarianceStatus: models.ClassifyVariance(variance, s.tolerance),
		TotalSales:     shift.CashSalesTotal + shift.NonCashSalesTotal,
	}

	metrics.ShiftEvents.WithLabelValues(string(models.ActivityClose)).Inc()
	metrics.ShiftVariance.WithLabelValues(string(summary.VarianceStatus)).Inc()
	fields := []zap.Field{
		zap.String("shift_id", shiftID),
		zap.Int64("expected_cash", summary.ExpectedCash),
		zap.Int64("counted_cash", countedCash),
		zap.Int64("variance", variance),
	}
	if summary.VarianceStatus == models.VarianceFlagged {
		s.log.Warn("shift closed with flagged variance", fields...)
	} else {
		s.log.Info("shift closed", fields...)
	}
	return summary, nil
}

func (s *shiftLedger) Current(ctx context.Context, cashierID string) (*models.Shift, error) {
	if cashierID == "" {
		return nil, apperrors.Validation("cashier_id", "cashier is required")
	}
	return s.store.Repos().Shifts.GetOpenByCashier(ctx, cashierID)
}

func (s *shiftLedger) CurrentBalance(ctx context.Context, cashierID string) (*models.ShiftBalance, error) {
	shift, err := s.Current(ctx, cashierID)
	if err != nil {
		return nil, err
	}
	return &models.ShiftBalance{
		ShiftID:      shift.ID,
		CashierName:  shift.CashierName,
		OpeningCash:  shift.OpeningCash,
		TotalCash:    shift.CashSalesTotal,
		TotalNonCash: shift.NonCashSalesTotal,
		CashOut:      shift.CashOutTotal,
		ExpectedCash: shift.ComputeExpectedCash(),
	}, nil
}

func (s *shiftLedger) History(ctx context.Context, limit int) ([]models.Shift, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.Repos().Shifts.List(ctx, limit)
}

func (s *shiftLedger) Activities(ctx context.Context, shiftID string) ([]models.ShiftActivity, error) {
	repos := s.store.Repos()
	if _, err := repos.Shifts.GetByID(ctx, shiftID); err != nil {
		return nil, err
	}
	return repos.Activities.ListByShift(ctx, shiftID)
}

func (s *shiftLedger) audit(ctx context.Context, repos repository.Repositories, shiftID string, kind models.ActivityKind, amount int64, method models.PaymentMethod, orderID *string, note string) error {
	activity := &models.ShiftActivity{
		ID:        models.NewID(models.PrefixActivity),
		ShiftID:   shiftID,
		Kind:      kind,
		OrderID:   orderID,
		Amount:    amount,
		Method:    method,
		Note:      note,
		CreatedAt: time.Now(),
	}
	if err := repos.Activities.Create(ctx, activity); err != nil {
		return fmt.Errorf("failed to record %s activity for shift %s: %w", kind, shiftID, err)
	}
	return nil
}

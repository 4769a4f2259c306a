package models

import "time"

type Shift struct {
	ID                 string      `json:"id" gorm:"primaryKey"`
	CashierID          string      `json:"cashier_id" gorm:"index;not null"`
	CashierName        string      `json:"cashier_name"`
	StartTime          time.Time   `json:"start_time" gorm:"not null"`
	EndTime            *time.Time  `json:"end_time"`
	OpeningCash        int64       `json:"opening_cash"`
	CashSalesTotal     int64       `json:"cash_sales_total"`
	NonCashSalesTotal  int64       `json:"non_cash_sales_total"`
	CashOutTotal       int64       `json:"cash_out_total"`
	ExpectedCash       int64       `json:"expected_cash"`
	ClosingCashCounted *int64      `json:"closing_cash_counted"`
	Variance           *int64      `json:"variance"`
	Status             ShiftStatus `json:"status" gorm:"index;default:'open'"`
	Notes              string      `json:"notes"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

type ShiftStatus string

const (
	ShiftOpen   ShiftStatus = "open"
	ShiftClosed ShiftStatus = "closed"
)

// ComputeExpectedCash applies openingCash + cashSales - cashOut.
func (s *Shift) ComputeExpectedCash() int64 {
	return s.OpeningCash + s.CashSalesTotal - s.CashOutTotal
}

// ShiftActivity is the audit trail of every shift mutation.
type ShiftActivity struct {
	ID        string        `json:"id" gorm:"primaryKey"`
	ShiftID   string        `json:"shift_id" gorm:"index;not null"`
	Kind      ActivityKind  `json:"kind" gorm:"not null"`
	OrderID   *string       `json:"order_id"`
	Amount    int64         `json:"amount"`
	Method    PaymentMethod `json:"method"`
	Note      string        `json:"note"`
	CreatedAt time.Time     `json:"created_at"`
}

type ActivityKind string

const (
	ActivityOpen    ActivityKind = "open"
	ActivitySale    ActivityKind = "sale"
	ActivityCashOut ActivityKind = "cash_out"
	ActivityClose   ActivityKind = "close"
)

type VarianceStatus string

const (
	VarianceMatched         VarianceStatus = "matched"
	VarianceWithinTolerance VarianceStatus = "within_tolerance"
	VarianceFlagged         VarianceStatus = "flagged"
)

func ClassifyVariance(variance, tolerance int64) VarianceStatus {
	if variance < 0 {
		variance = -variance
	}
	switch {
	case variance == 0:
		return VarianceMatched
	case variance <= tolerance:
		return VarianceWithinTolerance
	default:
		return VarianceFlagged
	}
}

// ClosedShiftSummary is returned by a successful close.
type ClosedShiftSummary struct {
	Shift          *Shift         `json:"shift"`
	ExpectedCash   int64          `json:"expected_cash"`
	CountedCash    int64          `json:"counted_cash"`
	Variance       int64          `json:"variance"`
	VarianceStatus VarianceStatus `json:"variance_status"`
	TotalSales     int64          `json:"total_sales"`
}

// ShiftBalance is the running view of an open shift.
type ShiftBalance struct {
	ShiftID      string `json:"shift_id"`
	CashierName  string `json:"cashier_name"`
	OpeningCash  int64  `json:"opening_cash"`
	TotalCash    int64  `json:"total_cash"`
	TotalNonCash int64  `json:"total_non_cash"`
	CashOut      int64  `json:"cash_out"`
	ExpectedCash int64  `json:"expected_cash"`
}

package models

type OrderStatus string

const (
	OrderNew            OrderStatus = "new"
	OrderPendingPayment OrderStatus = "pending_payment"
	OrderProcess        OrderStatus = "process"
	OrderDone           OrderStatus = "done"
	OrderCancel         OrderStatus = "cancel"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderNew:            {OrderProcess, OrderPendingPayment, OrderCancel},
	OrderPendingPayment: {OrderProcess, OrderCancel},
	OrderProcess:        {OrderDone, OrderCancel},
}

// ParseOrderStatus maps a raw status string onto a known status.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(s); st {
	case OrderNew, OrderPendingPayment, OrderProcess, OrderDone, OrderCancel:
		return st, true
	}
	return "", false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderDone || s == OrderCancel
}

// CanTransitionTo reports whether from -> to is an edge of the order state machine.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentQRIS    PaymentMethod = "qris"
	PaymentBank    PaymentMethod = "bank"
	PaymentEWallet PaymentMethod = "ewallet"
)

// LedgerBucket is the shift total a payment method is credited to.
type LedgerBucket string

const (
	CashBucket    LedgerBucket = "cash"
	NonCashBucket LedgerBucket = "non_cash"
)

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch m := PaymentMethod(s); m {
	case PaymentCash, PaymentQRIS, PaymentBank, PaymentEWallet:
		return m, true
	}
	return "", false
}

func (m PaymentMethod) Bucket() LedgerBucket {
	if m == PaymentCash {
		return CashBucket
	}
	return NonCashBucket
}

// RequiresConfirmation is true for methods settled by a proof of payment.
func (m PaymentMethod) RequiresConfirmation() bool {
	return m == PaymentQRIS || m == PaymentBank
}

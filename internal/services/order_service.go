package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"warkop_pos/internal/apperrors"
	"warkop_pos/internal/lock"
	"warkop_pos/internal/metrics"
	"warkop_pos/internal/models"
	"warkop_pos/internal/repository"
	"warkop_pos/pkg/whatsapp"

	"go.uber.org/zap"
)

type DraftItem struct {
	MenuItemID string `json:"menu_item_id"`
	Qty        int    `json:"qty"`
}

// OrderDraft is an order as submitted by the cashier or the customer. Names
// and prices of the items are taken from the menu, never from the draft.
type OrderDraft struct {
	CustomerName  string               `json:"customer_name"`
	CustomerPhone string               `json:"customer_phone"`
	TableNumber   string               `json:"table_number"`
	OrderType     models.OrderType     `json:"order_type"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	RequireProof  bool                 `json:"require_proof"`
	Items         []DraftItem          `json:"items"`
	Tax           int64                `json:"tax"`
	Discount      int64                `json:"discount"`
	Notes         string               `json:"notes"`
	CashierID     string               `json:"cashier_id"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, draft OrderDraft) (*models.Order, error)
	AdvanceOrderStatus(ctx context.Context, orderID string, target models.OrderStatus) (*models.Order, error)
	// ConfirmPayment marks the order paid. A non-empty cashierID attaches the
	// order to that cashier's open shift when it is unbound or its shift has
	// closed.
	ConfirmPayment(ctx context.Context, orderID string, method models.PaymentMethod, cashierID string) (*models.Order, error)
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error)
}

type OrderOptions struct {
	LockTTL        time.Duration
	RequestTimeout time.Duration
}

type orderService struct {
	store    repository.Store
	resolver RecipeResolver
	shifts   ShiftLedger
	tables   TableService
	notifier Notifier
	locker   lock.Locker
	opts     OrderOptions
	retry    retrier
	log      *zap.Logger
}

func NewOrderService(store repository.Store, resolver RecipeResolver, shifts ShiftLedger, tables TableService, notifier Notifier, locker lock.Locker, opts OrderOptions, retry RetryPolicy, log *zap.Logger) OrderService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 15 * time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	return &orderService{
		store:    store,
		resolver: resolver,
		shifts:   shifts,
		tables:   tables,
		notifier: notifier,
		locker:   locker,
		opts:     opts,
		retry:    newRetrier(retry, log),
		log:      log.Named("order"),
	}
}

func (s *orderService) CreateOrder(ctx context.Context, draft OrderDraft) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	if err := validateDraft(&draft); err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:            models.NewID(models.PrefixOrder),
		CustomerName:  strings.TrimSpace(draft.CustomerName),
		CustomerPhone: whatsapp.NormalizePhone(draft.CustomerPhone),
		OrderType:     draft.OrderType,
		Status:        models.OrderNew,
		PaymentMethod: draft.PaymentMethod,
		PaymentStatus: models.Unpaid,
		Tax:           draft.Tax,
		Discount:      draft.Discount,
		Notes:         draft.Notes,
	}
	if draft.OrderType == models.DineIn {
		table := strings.TrimSpace(draft.TableNumber)
		order.TableNumber = &table
	}
	if draft.RequireProof && draft.PaymentMethod.RequiresConfirmation() {
		order.Status = models.OrderPendingPayment
	}

	if err := s.priceItems(ctx, order, draft.Items); err != nil {
		return nil, err
	}

	err := s.retry.do(ctx, "create_order", func(ctx context.Context) error {
		return s.store.Transaction(ctx, func(repos repository.Repositories) error {
			order.ShiftID = nil
			for i := range order.Items {
				order.Items[i].ID = 0
			}
			if draft.CashierID != "" {
				shift, err := repos.Shifts.GetOpenByCashier(ctx, draft.CashierID)
				if err != nil {
					return err
				}
				order.ShiftID = &shift.ID
			}
			return repos.Orders.Create(ctx, order)
		})
	})
	if err != nil {
		return nil, err
	}

	if order.TableNumber != nil {
		if err := s.tables.SetStatus(ctx, *order.TableNumber, models.TableOccupied); err != nil {
			s.log.Warn("failed to mark table occupied", zap.String("table", *order.TableNumber), zap.Error(err))
		}
	}
	s.notifier.OrderCreated(order)

	s.log.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("status", string(order.Status)),
		zap.Int64("total", order.Total))
	return order, nil
}

func validateDraft(draft *OrderDraft) error {
	if strings.TrimSpace(draft.CustomerName) == "" {
		return apperrors.Validation("customer_name", "customer name is required")
	}
	if len(draft.Items) == 0 {
		return apperrors.Validation("items", "order must contain at least one item")
	}
	switch draft.OrderType {
	case models.DineIn:
		if strings.TrimSpace(draft.TableNumber) == "" {
			return apperrors.Validation("table_number", "table number is required for dine-in orders")
		}
	case models.TakeAway:
	case "":
		draft.OrderType = models.TakeAway
	default:
		return apperrors.Validation("order_type", fmt.Sprintf("unknown order type %q", draft.OrderType))
	}
	if draft.PaymentMethod == "" {
		draft.PaymentMethod = models.PaymentCash
	}
	if _, ok := models.ParsePaymentMethod(string(draft.PaymentMethod)); !ok {
		return apperrors.Validation("payment_method", fmt.Sprintf("unknown payment method %q", draft.PaymentMethod))
	}
	if draft.Tax < 0 || draft.Discount < 0 {
		return apperrors.Validation("tax", "tax and discount cannot be negative")
	}
	for i, item := range draft.Items {
		if item.MenuItemID == "" {
			return apperrors.Validation(fmt.Sprintf("items[%d].menu_item_id", i), "menu item is required")
		}
		if item.Qty <= 0 {
			return apperrors.Validation(fmt.Sprintf("items[%d].qty", i), fmt.Sprintf("quantity for %s must be positive", item.MenuItemID))
		}
	}
	return nil
}

// priceItems resolves draft lines against the active menu and checks the
// requested portions are currently sellable.
func (s *orderService) priceItems(ctx context.Context, order *models.Order, items []DraftItem) error {
	menu := s.store.Repos().MenuItems
	requested := make(map[string]int)
	for _, it := range items {
		item, err := menu.GetByID(ctx, it.MenuItemID)
		if err != nil {
			return err
		}
		if !item.IsActive {
			return apperrors.Validation("items", fmt.Sprintf("menu item %s is not available", item.Name))
		}
		order.Items = append(order.Items, models.OrderItem{
			MenuItemID: item.ID,
			Name:       item.Name,
			Qty:        it.Qty,
			UnitPrice:  item.Price,
			Subtotal:   item.Price * int64(it.Qty),
		})
		requested[item.ID] += it.Qty
	}
	order.RecalculateTotal()
	if order.Total < 0 {
		return apperrors.Validation("discount", "discount exceeds order total")
	}

	for id, qty := range requested {
		available, err := s.resolver.AvailablePortions(ctx, id)
		if err != nil {
			return err
		}
		if available < qty {
			return apperrors.Validation("items", fmt.Sprintf("only %d portion(s) of %s available, %d requested", available, id, qty))
		}
	}
	return nil
}

func (s *orderService) AdvanceOrderStatus(ctx context.Context, orderID string, target models.OrderStatus) (*models.Order, error) {
	if _, ok := models.ParseOrderStatus(string(target)); !ok {
		return nil, apperrors.Validation("status", fmt.Sprintf("unknown order status %q", target))
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	release, err := s.acquire(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		order      *models.Order
		reserved   bool
		tableFreed bool
	)
	err = s.retry.do(ctx, "advance_order", func(ctx context.Context) error {
		reserved, tableFreed = false, false
		return s.store.Transaction(ctx, func(repos repository.Repositories) error {
			var err error
			order, err = repos.Orders.GetByID(ctx, orderID)
			if err != nil {
				return err
			}
			if err := guardTransition(order, target); err != nil {
				return err
			}

			switch target {
			case models.OrderProcess:
				if err := s.resolver.ReserveIn(ctx, repos, portionsOf(order)); err != nil {
					return err
				}
				reserved = true
			case models.OrderDone:
				if err := s.shifts.CreditOrder(ctx, repos, order); err != nil {
					return err
				}
				now := time.Now()
				order.CompletedAt = &now
			}

			if target.IsTerminal() && order.TableNumber != nil {
				active, err := repos.Orders.CountActiveAtTable(ctx, *order.TableNumber, order.ID)
				if err != nil {
					return err
				}
				tableFreed = active == 0
			}

			order.Status = target
			return repos.Orders.Update(ctx, order)
		})
	}, zap.String("order_id", orderID))
	if err != nil {
		metrics.OrderTransitions.WithLabelValues(string(target), outcomeOf(err)).Inc()
		return nil, err
	}

	if reserved {
		s.resolver.Invalidate(ctx)
	}
	if tableFreed {
		if err := s.tables.SetStatus(ctx, *order.TableNumber, models.TableDirty); err != nil {
			s.log.Warn("failed to mark table dirty", zap.String("table", *order.TableNumber), zap.Error(err))
		}
	}

	metrics.OrderTransitions.WithLabelValues(string(target), "ok").Inc()
	s.log.Info("order status changed", zap.String("order_id", orderID), zap.String("status", string(target)))
	return order, nil
}

func guardTransition(order *models.Order, target models.OrderStatus) error {
	reject := func(reason string) error {
		return &apperrors.InvalidTransitionError{
			OrderID: order.ID,
			From:    string(order.Status),
			To:      string(target),
			Reason:  reason,
		}
	}

	if order.Archived {
		merged := ""
		if order.MergedIntoID != nil {
			merged = *order.MergedIntoID
		}
		return reject("order was merged into " + merged)
	}
	if !order.Status.CanTransitionTo(target) {
		return reject("")
	}

	switch {
	case target == models.OrderPendingPayment:
		if !order.PaymentMethod.RequiresConfirmation() {
			return reject(fmt.Sprintf("payment method %s needs no confirmation", order.PaymentMethod))
		}
		if order.PaymentStatus == models.Paid {
			return reject("order is already paid")
		}
	case order.Status == models.OrderPendingPayment && target == models.OrderProcess:
		if order.PaymentStatus != models.Paid {
			return reject("payment has not been confirmed")
		}
	case target == models.OrderDone:
		if order.PaymentStatus != models.Paid {
			return reject("order is not paid")
		}
	}
	return nil
}

func portionsOf(order *models.Order) []PortionRequest {
	items := make([]PortionRequest, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, PortionRequest{MenuItemID: item.MenuItemID, Qty: item.Qty})
	}
	return items
}

func outcomeOf(err error) string {
	var (
		stock      *apperrors.InsufficientStockError
		transition *apperrors.InvalidTransitionError
		busy       *apperrors.BusyError
		down       *apperrors.UnavailableError
	)
	switch {
	case errors.As(err, &stock):
		return "insufficient_stock"
	case errors.As(err, &transition):
		return "invalid_transition"
	case errors.As(err, &busy):
		return "busy"
	case errors.As(err, &down):
		return "unavailable"
	}
	return "error"
}

func (s *orderService) ConfirmPayment(ctx context.Context, orderID string, method models.PaymentMethod, cashierID string) (*models.Order, error) {
	if _, ok := models.ParsePaymentMethod(string(method)); !ok {
		return nil, apperrors.Validation("payment_method", fmt.Sprintf("unknown payment method %q", method))
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	release, err := s.acquire(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	var order *models.Order
	err = s.retry.do(ctx, "confirm_payment", func(ctx context.Context) error {
		return s.store.Transaction(ctx, func(repos repository.Repositories) error {
			var err error
			order, err = repos.Orders.GetByID(ctx, orderID)
			if err != nil {
				return err
			}
			if order.Archived || order.Status.IsTerminal() {
				return &apperrors.InvalidTransitionError{
					OrderID: order.ID,
					From:    string(order.Status),
					To:      string(models.Paid),
					Reason:  "order is closed",
				}
			}
			if cashierID != "" {
				if err := rebindShift(ctx, repos, order, cashierID); err != nil {
					return err
				}
			}
			order.PaymentMethod = method
			order.PaymentStatus = models.Paid
			return repos.Orders.Update(ctx, order)
		})
	}, zap.String("order_id", orderID))
	if err != nil {
		return nil, err
	}

	s.log.Info("payment confirmed", zap.String("order_id", orderID), zap.String("method", string(method)))
	return order, nil
}

// rebindShift attaches the order to the cashier's open shift unless it is
// already bound to a shift that is still open.
func rebindShift(ctx context.Context, repos repository.Repositories, order *models.Order, cashierID string) error {
	if order.ShiftID != nil {
		bound, err := repos.Shifts.GetByID(ctx, *order.ShiftID)
		if err != nil {
			return err
		}
		if bound.Status == models.ShiftOpen {
			return nil
		}
	}
	shift, err := repos.Shifts.GetOpenByCashier(ctx, cashierID)
	if err != nil {
		return err
	}
	order.ShiftID = &shift.ID
	return nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return s.store.Repos().Orders.GetByID(ctx, orderID)
}

func (s *orderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.store.Repos().Orders.List(ctx, filter)
}

// acquire takes the per-order in-flight marker. A held marker fails fast
// with BusyError; only lock backend errors are retried.
func (s *orderService) acquire(ctx context.Context, orderID string) (func(), error) {
	return acquireOrderLock(ctx, s.locker, s.retry, s.opts.LockTTL, s.log, orderID)
}

func acquireOrderLock(ctx context.Context, locker lock.Locker, retry retrier, ttl time.Duration, log *zap.Logger, orderID string) (func(), error) {
	key := lock.OrderKey(orderID)
	var token string
	err := retry.do(ctx, "lock_order", func(ctx context.Context) error {
		t, ok, err := locker.TryLock(ctx, key, ttl)
		if err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrLockTimeout, err)
		}
		if !ok {
			return &apperrors.BusyError{OrderID: orderID}
		}
		token = t
		return nil
	}, zap.String("order_id", orderID))
	if err != nil {
		return nil, err
	}

	return func() {
		if err := locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			log.Warn("failed to release order lock", zap.String("order_id", orderID), zap.Error(err))
		}
	}, nil
}

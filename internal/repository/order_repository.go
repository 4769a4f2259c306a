package repository

import (
	"context"
	"fmt"
	"time"

	"warkop_pos/internal/apperrors"
	"warkop_pos/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return translateError(r.db.WithContext(ctx).Create(order).Error)
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items", preloadItems).First(&order, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "order", id)
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Preload("Items", preloadItems).Order("created_at DESC")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.TableNumber != "" {
		query = query.Where("table_number = ?", filter.TableNumber)
	}
	if filter.ShiftID != "" {
		query = query.Where("shift_id = ?", filter.ShiftID)
	}
	if !filter.IncludeArchived {
		query = query.Where("archived = ?", false)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var orders []models.Order
	err := query.Find(&orders).Error
	return orders, translateError(err)
}

func (r *orderRepository) Update(ctx context.Context, order *models.Order) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Omit(clause.Associations).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]interface{}{
			"status":         order.Status,
			"payment_method": order.PaymentMethod,
			"payment_status": order.PaymentStatus,
			"total":          order.Total,
			"tax":            order.Tax,
			"discount":       order.Discount,
			"shift_id":       order.ShiftID,
			"archived":       order.Archived,
			"merged_into_id": order.MergedIntoID,
			"completed_at":   order.CompletedAt,
			"version":        order.Version + 1,
			"updated_at":     now,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, order.ID); err != nil {
			return err
		}
		return fmt.Errorf("%w: order %s version %d", apperrors.ErrConflict, order.ID, order.Version)
	}
	order.Version++
	order.UpdatedAt = now
	return nil
}

func (r *orderRepository) MoveItems(ctx context.Context, sourceIDs []string, targetID string) error {
	if len(sourceIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Where("order_id IN ?", sourceIDs).
		Update("order_id", targetID).Error
	return translateError(err)
}

func (r *orderRepository) CountActiveAtTable(ctx context.Context, tableNumber, excludeOrderID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("table_number = ? AND id <> ? AND archived = ?", tableNumber, excludeOrderID, false).
		Where("status NOT IN ?", []models.OrderStatus{models.OrderDone, models.OrderCancel}).
		Count(&count).Error
	return count, translateError(err)
}

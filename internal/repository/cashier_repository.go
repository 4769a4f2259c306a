package repository

import (
	"context"

	"warkop_pos/internal/models"

	"gorm.io/gorm"
)

type cashierRepository struct {
	db *gorm.DB
}

func NewCashierRepository(db *gorm.DB) CashierRepository {
	return &cashierRepository{db: db}
}

func (r *cashierRepository) Create(ctx context.Context, cashier *models.Cashier) error {
	return translateError(r.db.WithContext(ctx).Create(cashier).Error)
}

func (r *cashierRepository) GetByID(ctx context.Context, id string) (*models.Cashier, error) {
	var cashier models.Cashier
	err := r.db.WithContext(ctx).First(&cashier, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "cashier", id)
	}
	return &cashier, nil
}

func (r *cashierRepository) GetByUsername(ctx context.Context, username string) (*models.Cashier, error) {
	var cashier models.Cashier
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&cashier).Error
	if err != nil {
		return nil, notFoundOr(err, "cashier", username)
	}
	return &cashier, nil
}

func (r *cashierRepository) List(ctx context.Context) ([]models.Cashier, error) {
	var cashiers []models.Cashier
	err := r.db.WithContext(ctx).Order("name").Find(&cashiers).Error
	return cashiers, translateError(err)
}
